package presence

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// RawPresence is one status/activity event as delivered by the presence
// source, before normalization.
type RawPresence struct {
	Identity   *Identity
	Status     string
	Activities []*discordgo.Activity

	// Per-surface online flags.
	Desktop bool
	Mobile  bool
	Web     bool
}

// Normalize converts a raw source event into a canonical Snapshot. It never
// fails: events without an identity record or with an offline status collapse
// to the canonical offline snapshot.
func Normalize(raw RawPresence) *Snapshot {
	if raw.Identity == nil || raw.Status == "" || Status(raw.Status) == StatusOffline {
		return OfflineSnapshot(raw.Identity)
	}

	snap := &Snapshot{
		DiscordUser:            raw.Identity.discordUser(),
		DiscordStatus:          Status(raw.Status),
		Activities:             make([]Activity, 0, len(raw.Activities)),
		ClientStatus:           ClientStatus{Desktop: raw.Desktop, Mobile: raw.Mobile, Web: raw.Web},
		ActiveOnDiscordDesktop: raw.Desktop,
		ActiveOnDiscordMobile:  raw.Mobile,
		ActiveOnDiscordWeb:     raw.Web,
	}

	for _, a := range raw.Activities {
		if a == nil {
			continue
		}
		act := mapActivity(a)
		snap.Activities = append(snap.Activities, act)
		if a.Type == discordgo.ActivityTypeListening && snap.Spotify == nil {
			spotify := act
			snap.Spotify = &spotify
		}
	}
	return snap
}

// OfflineSnapshot builds the canonical offline snapshot: empty activities,
// all surface flags false, no music. identity may be nil, in which case a
// sentinel unknown record fills the display info.
func OfflineSnapshot(identity *Identity) *Snapshot {
	return &Snapshot{
		DiscordUser:   identity.discordUser(),
		DiscordStatus: StatusOffline,
		Activities:    []Activity{},
	}
}

// mapActivity applies the per-type mapping rule, then fills generic optional
// fields only where the type rule left them unset. Type-specific values are
// never overwritten by the generic pass.
func mapActivity(a *discordgo.Activity) Activity {
	act := Activity{Type: int(a.Type), Name: a.Name}
	ts := timestampsOf(a)

	switch a.Type {
	case discordgo.ActivityTypeGame, discordgo.ActivityTypeWatching, discordgo.ActivityTypeCompeting:
		act.Details = a.Details
		act.State = a.State
	case discordgo.ActivityTypeStreaming:
		act.URL = a.URL
		act.Details = a.Details
		act.State = a.State
	case discordgo.ActivityTypeListening:
		// The track title arrives in details and the artist join in state.
		act.Name = "Spotify"
		act.Details = a.Details
		act.State = a.State
		act.Album = a.Assets.LargeText
		act.SyncID = a.SyncID
		if a.Party.ID != "" {
			act.Party = &Party{ID: a.Party.ID}
		}
		if cover := albumCoverURL(a.Assets.LargeImageID); cover != "" {
			act.Assets = &Assets{LargeImage: cover, LargeText: a.Assets.LargeText}
		}
	case discordgo.ActivityTypeCustom:
		act.State = a.State
		if a.Emoji.Name != "" || a.Emoji.ID != "" {
			act.Emoji = &Emoji{Name: a.Emoji.Name, ID: a.Emoji.ID, Animated: a.Emoji.Animated}
		}
		// Custom statuses never carry timestamps, even when the source
		// includes them.
		ts = nil
	}

	act.Timestamps = ts

	if act.Details == "" {
		act.Details = a.Details
	}
	if act.State == "" {
		act.State = a.State
	}
	if act.Assets == nil {
		act.Assets = assetsOf(a)
	}
	if act.Party == nil && (a.Party.ID != "" || len(a.Party.Size) > 0) {
		act.Party = &Party{ID: a.Party.ID, Size: a.Party.Size}
	}
	if act.Flags == 0 {
		act.Flags = a.Flags
	}
	return act
}

func timestampsOf(a *discordgo.Activity) *Timestamps {
	if a.Timestamps.StartTimestamp == 0 && a.Timestamps.EndTimestamp == 0 {
		return nil
	}
	return &Timestamps{
		Start: a.Timestamps.StartTimestamp,
		End:   a.Timestamps.EndTimestamp,
	}
}

func assetsOf(a *discordgo.Activity) *Assets {
	if a.Assets.LargeImageID == "" && a.Assets.SmallImageID == "" {
		return nil
	}
	return &Assets{
		LargeImage: a.Assets.LargeImageID,
		LargeText:  a.Assets.LargeText,
		SmallImage: a.Assets.SmallImageID,
		SmallText:  a.Assets.SmallText,
	}
}

// Spotify delivers album art as "spotify:<hash>", served from the public CDN.
func albumCoverURL(largeImageID string) string {
	const prefix = "spotify:"
	if !strings.HasPrefix(largeImageID, prefix) {
		return ""
	}
	return "https://i.scdn.co/image/" + strings.TrimPrefix(largeImageID, prefix)
}
