package presence

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func testIdentity() *Identity {
	return &Identity{
		ID:            123456789,
		Username:      "vorlie",
		Discriminator: "0001",
		Avatar:        "https://cdn.discordapp.com/avatars/123456789/abc.png",
		PublicFlags:   64,
	}
}

func TestNormalizeGameActivity(t *testing.T) {
	snap := Normalize(RawPresence{
		Identity: testIdentity(),
		Status:   "online",
		Activities: []*discordgo.Activity{
			{Type: discordgo.ActivityTypeGame, Name: "Chess", Details: "Move 4"},
		},
	})

	if snap.DiscordStatus != StatusOnline {
		t.Fatalf("status = %q, want %q", snap.DiscordStatus, StatusOnline)
	}
	if len(snap.Activities) != 1 {
		t.Fatalf("len(activities) = %d, want 1", len(snap.Activities))
	}
	act := snap.Activities[0]
	if act.Type != ActivityGame || act.Name != "Chess" || act.Details != "Move 4" {
		t.Fatalf("activity = %+v, want type=0 name=Chess details=Move 4", act)
	}
	if snap.Spotify != nil {
		t.Fatalf("spotify = %+v, want nil", snap.Spotify)
	}
}

func TestNormalizeOffline(t *testing.T) {
	snap := Normalize(RawPresence{Identity: testIdentity(), Status: "offline"})

	if snap.DiscordStatus != StatusOffline {
		t.Fatalf("status = %q, want offline", snap.DiscordStatus)
	}
	if len(snap.Activities) != 0 {
		t.Fatalf("len(activities) = %d, want 0", len(snap.Activities))
	}
	if snap.ActiveOnDiscordDesktop || snap.ActiveOnDiscordMobile || snap.ActiveOnDiscordWeb {
		t.Fatalf("surface flags = %v/%v/%v, want all false",
			snap.ActiveOnDiscordDesktop, snap.ActiveOnDiscordMobile, snap.ActiveOnDiscordWeb)
	}
	if snap.Spotify != nil {
		t.Fatalf("spotify = %+v, want nil", snap.Spotify)
	}
	if snap.DiscordUser.Username != "vorlie" {
		t.Fatalf("username = %q, want vorlie", snap.DiscordUser.Username)
	}
}

func TestNormalizeUnknownIdentity(t *testing.T) {
	snap := Normalize(RawPresence{Status: "online"})

	if snap.DiscordStatus != StatusOffline {
		t.Fatalf("status = %q, want offline", snap.DiscordStatus)
	}
	if snap.DiscordUser.ID != "unknown" || snap.DiscordUser.Discriminator != "0000" {
		t.Fatalf("user = %+v, want sentinel unknown record", snap.DiscordUser)
	}
}

func TestNormalizeCustomStatusStripsTimestamps(t *testing.T) {
	snap := Normalize(RawPresence{
		Identity: testIdentity(),
		Status:   "idle",
		Activities: []*discordgo.Activity{
			{
				Type:  discordgo.ActivityTypeCustom,
				Name:  "Custom Status",
				State: "brb",
				Emoji: discordgo.Emoji{Name: "wave", ID: "42", Animated: true},
				Timestamps: discordgo.TimeStamps{
					StartTimestamp: 1700000000000,
					EndTimestamp:   1700000100000,
				},
			},
		},
	})

	act := snap.Activities[0]
	if act.Timestamps != nil {
		t.Fatalf("timestamps = %+v, want nil for custom status", act.Timestamps)
	}
	if act.State != "brb" {
		t.Fatalf("state = %q, want brb", act.State)
	}
	if act.Emoji == nil || act.Emoji.Name != "wave" || act.Emoji.ID != "42" || !act.Emoji.Animated {
		t.Fatalf("emoji = %+v, want wave/42/animated", act.Emoji)
	}
}

func TestNormalizeWatchingKeepsTimestamps(t *testing.T) {
	snap := Normalize(RawPresence{
		Identity: testIdentity(),
		Status:   "online",
		Activities: []*discordgo.Activity{
			{
				Type:       discordgo.ActivityTypeWatching,
				Name:       "A Movie",
				Details:    "Act II",
				Timestamps: discordgo.TimeStamps{StartTimestamp: 1700000000000},
			},
		},
	})

	act := snap.Activities[0]
	if act.Timestamps == nil || act.Timestamps.Start != 1700000000000 {
		t.Fatalf("timestamps = %+v, want start=1700000000000", act.Timestamps)
	}
	if act.Details != "Act II" {
		t.Fatalf("details = %q, want Act II", act.Details)
	}
}

func TestNormalizeSpotify(t *testing.T) {
	snap := Normalize(RawPresence{
		Identity: testIdentity(),
		Status:   "dnd",
		Activities: []*discordgo.Activity{
			{
				Type:    discordgo.ActivityTypeListening,
				Name:    "Spotify",
				Details: "Song Title",
				State:   "Artist A; Artist B",
				SyncID:  "track123",
				Party:   discordgo.Party{ID: "spotify:party"},
				Assets: discordgo.Assets{
					LargeImageID: "spotify:coverhash",
					LargeText:    "The Album",
				},
				Timestamps: discordgo.TimeStamps{
					StartTimestamp: 1700000000000,
					EndTimestamp:   1700000200000,
				},
			},
		},
	})

	if len(snap.Activities) != 1 {
		t.Fatalf("len(activities) = %d, want 1", len(snap.Activities))
	}
	act := snap.Activities[0]
	if act.Name != "Spotify" || act.Type != ActivityListening {
		t.Fatalf("activity = %+v, want name=Spotify type=2", act)
	}
	if act.Details != "Song Title" || act.State != "Artist A; Artist B" {
		t.Fatalf("title/artists = %q/%q", act.Details, act.State)
	}
	if act.Album != "The Album" || act.SyncID != "track123" {
		t.Fatalf("album/sync = %q/%q", act.Album, act.SyncID)
	}
	if act.Assets == nil || act.Assets.LargeImage != "https://i.scdn.co/image/coverhash" {
		t.Fatalf("assets = %+v, want scdn cover url", act.Assets)
	}
	if act.Party == nil || act.Party.ID != "spotify:party" {
		t.Fatalf("party = %+v, want id spotify:party", act.Party)
	}
	if act.Timestamps == nil || act.Timestamps.End != 1700000200000 {
		t.Fatalf("timestamps = %+v, want end set", act.Timestamps)
	}

	if snap.Spotify == nil {
		t.Fatal("spotify projection missing")
	}
	if snap.Spotify.SyncID != "track123" {
		t.Fatalf("spotify.sync_id = %q, want track123", snap.Spotify.SyncID)
	}
}

func TestNormalizeStreaming(t *testing.T) {
	snap := Normalize(RawPresence{
		Identity: testIdentity(),
		Status:   "online",
		Activities: []*discordgo.Activity{
			{
				Type:    discordgo.ActivityTypeStreaming,
				Name:    "Live",
				URL:     "https://twitch.tv/someone",
				Details: "Speedrun",
			},
		},
	})

	act := snap.Activities[0]
	if act.URL != "https://twitch.tv/someone" || act.Details != "Speedrun" {
		t.Fatalf("activity = %+v, want url and details mapped", act)
	}
}

func TestNormalizeGenericFill(t *testing.T) {
	snap := Normalize(RawPresence{
		Identity: testIdentity(),
		Status:   "online",
		Activities: []*discordgo.Activity{
			{
				Type:    discordgo.ActivityTypeGame,
				Name:    "Rich Game",
				Details: "In Menu",
				Flags:   3,
				Party:   discordgo.Party{ID: "p1", Size: []int{1, 4}},
				Assets: discordgo.Assets{
					LargeImageID: "asset_large",
					LargeText:    "Large",
					SmallImageID: "asset_small",
				},
			},
		},
	})

	act := snap.Activities[0]
	if act.Details != "In Menu" {
		t.Fatalf("details = %q, want type rule value preserved", act.Details)
	}
	if act.Flags != 3 {
		t.Fatalf("flags = %d, want 3", act.Flags)
	}
	if act.Party == nil || act.Party.ID != "p1" || len(act.Party.Size) != 2 {
		t.Fatalf("party = %+v, want id p1 size [1 4]", act.Party)
	}
	if act.Assets == nil || act.Assets.LargeImage != "asset_large" || act.Assets.SmallImage != "asset_small" {
		t.Fatalf("assets = %+v, want raw asset ids", act.Assets)
	}
}

func TestNormalizeSurfaceFlags(t *testing.T) {
	snap := Normalize(RawPresence{
		Identity: testIdentity(),
		Status:   "online",
		Desktop:  true,
		Web:      true,
	})

	if !snap.ActiveOnDiscordDesktop || snap.ActiveOnDiscordMobile || !snap.ActiveOnDiscordWeb {
		t.Fatalf("surface flags = %v/%v/%v, want desktop and web only",
			snap.ActiveOnDiscordDesktop, snap.ActiveOnDiscordMobile, snap.ActiveOnDiscordWeb)
	}
	if !snap.ClientStatus.Desktop || snap.ClientStatus.Mobile || !snap.ClientStatus.Web {
		t.Fatalf("client_status = %+v, want desktop and web only", snap.ClientStatus)
	}
}
