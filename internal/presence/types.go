// Package presence holds the canonical presence model: the snapshot wire
// structs, the normalizer that builds them from raw Discord data, the shared
// cache/registry state, and the broadcast fan-out.
package presence

import "strconv"

// Status is the canonical presence status of an identity.
type Status string

// Presence statuses.
const (
	StatusOnline  Status = "online"
	StatusIdle    Status = "idle"
	StatusDND     Status = "dnd"
	StatusOffline Status = "offline"
)

// Activity types as they appear on the wire.
const (
	ActivityGame      = 0
	ActivityStreaming = 1
	ActivityListening = 2
	ActivityWatching  = 3
	ActivityCustom    = 4
	ActivityCompeting = 5
)

// Snapshot is the serializable presence state of one identity at one instant.
type Snapshot struct {
	DiscordUser            DiscordUser  `json:"discord_user"`
	DiscordStatus          Status       `json:"discord_status"`
	Activities             []Activity   `json:"activities"`
	ClientStatus           ClientStatus `json:"client_status"`
	ActiveOnDiscordMobile  bool         `json:"active_on_discord_mobile"`
	ActiveOnDiscordDesktop bool         `json:"active_on_discord_desktop"`
	ActiveOnDiscordWeb     bool         `json:"active_on_discord_web"`
	Spotify                *Activity    `json:"spotify"`
}

// DiscordUser is the display record embedded in every snapshot.
type DiscordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
	Bot           bool   `json:"bot"`
	PublicFlags   int    `json:"public_flags"`
}

// ClientStatus reports which surfaces the identity is online from.
type ClientStatus struct {
	Desktop bool `json:"desktop"`
	Mobile  bool `json:"mobile"`
	Web     bool `json:"web"`
}

// Activity is one entry of a snapshot's activity list. Which fields are set
// depends on the activity type; unset optional fields are omitted on the wire.
type Activity struct {
	Type       int         `json:"type"`
	Name       string      `json:"name"`
	URL        string      `json:"url,omitempty"`
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Emoji      *Emoji      `json:"emoji,omitempty"`
	Album      string      `json:"album,omitempty"`
	SyncID     string      `json:"sync_id,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
	Party      *Party      `json:"party,omitempty"`
	Flags      int         `json:"flags,omitempty"`
}

// Timestamps are activity start/end times in milliseconds since epoch.
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

// Assets are the large/small image pair of a rich presence activity.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Party identifies the activity party and, when known, its size.
type Party struct {
	ID   string `json:"id,omitempty"`
	Size []int  `json:"size,omitempty"`
}

// Emoji is the emoji attached to a custom status.
type Emoji struct {
	Name     string `json:"name"`
	ID       string `json:"id,omitempty"`
	Animated bool   `json:"animated"`
}

// Identity is the directory record for one tracked identity. It carries only
// display info; presence state lives in Snapshot.
type Identity struct {
	ID            int64
	Username      string
	Discriminator string
	Avatar        string
	Bot           bool
	PublicFlags   int
}

func (i *Identity) discordUser() DiscordUser {
	if i == nil {
		// Sentinel record for identities the directory cannot resolve.
		return DiscordUser{
			ID:            "unknown",
			Username:      "unknown",
			Discriminator: "0000",
		}
	}
	return DiscordUser{
		ID:            strconv.FormatInt(i.ID, 10),
		Username:      i.Username,
		Discriminator: i.Discriminator,
		Avatar:        i.Avatar,
		Bot:           i.Bot,
		PublicFlags:   i.PublicFlags,
	}
}
