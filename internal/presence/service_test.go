package presence

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	identities map[int64]*Identity
}

func (f *fakeSource) Identity(_ context.Context, id int64) (*Identity, error) {
	identity, ok := f.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return identity, nil
}

func newTestService(t *testing.T, src Source) (*Service, *State) {
	t.Helper()
	state := NewState()
	broadcaster := NewBroadcaster(nil, state, 1)
	t.Cleanup(broadcaster.Close)
	return NewService(nil, state, src, broadcaster), state
}

func TestLookupUnknownIdentity(t *testing.T) {
	svc, _ := newTestService(t, &fakeSource{identities: map[int64]*Identity{}})

	_, err := svc.Lookup(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLookupCacheHit(t *testing.T) {
	svc, state := newTestService(t, &fakeSource{identities: map[int64]*Identity{}})

	snap := &Snapshot{DiscordStatus: StatusOnline}
	state.SetPresence(42, snap)

	got, err := svc.Lookup(context.Background(), 42)
	require.NoError(t, err)
	require.Same(t, snap, got)
}

func TestLookupDirectoryFallback(t *testing.T) {
	svc, _ := newTestService(t, &fakeSource{identities: map[int64]*Identity{
		42: {ID: 42, Username: "vorlie", Discriminator: "0001"},
	}})

	got, err := svc.Lookup(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, StatusOffline, got.DiscordStatus)
	require.Equal(t, "vorlie", got.DiscordUser.Username)
	require.Empty(t, got.Activities)
	require.Nil(t, got.Spotify)
}

func TestInitialStateNeverFails(t *testing.T) {
	svc, _ := newTestService(t, &fakeSource{identities: map[int64]*Identity{}})

	got := svc.InitialState(context.Background(), 404)
	require.NotNil(t, got)
	require.Equal(t, StatusOffline, got.DiscordStatus)
	require.Equal(t, "unknown", got.DiscordUser.ID)
}

func TestIngestCachesAndBroadcasts(t *testing.T) {
	state := NewState()
	broadcaster := NewBroadcaster(nil, state, 1)
	svc := NewService(nil, state, &fakeSource{}, broadcaster)

	sender := &recordSender{}
	state.Register("c", sender)
	state.SetSubscriptions("c", []int64{7})

	svc.Ingest(RawPresence{
		Identity: &Identity{ID: 7, Username: "someone"},
		Status:   "online",
		Activities: []*discordgo.Activity{
			{Type: discordgo.ActivityTypeGame, Name: "Chess"},
		},
	})
	broadcaster.Close()

	snap, ok := state.Presence(7)
	require.True(t, ok)
	require.Equal(t, StatusOnline, snap.DiscordStatus)

	require.Len(t, sender.sent(), 1)
}

func TestIngestSkipsBots(t *testing.T) {
	svc, state := newTestService(t, &fakeSource{})

	svc.Ingest(RawPresence{
		Identity: &Identity{ID: 9, Username: "beep", Bot: true},
		Status:   "online",
	})

	_, ok := state.Presence(9)
	require.False(t, ok, "bot presence must not be cached")
}

func TestIngestSkipsMissingIdentity(t *testing.T) {
	svc, state := newTestService(t, &fakeSource{})

	svc.Ingest(RawPresence{Status: "online"})

	require.Equal(t, 0, state.ConnCount())
	_, ok := state.Presence(0)
	require.False(t, ok, "event without identity must not be cached")
}
