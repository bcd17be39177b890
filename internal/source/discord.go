// Package source connects the Discord gateway as the upstream presence
// source: it feeds raw presence events into ingestion and serves as the
// identity directory.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/vorlie/presenceexpose/internal/presence"
)

// Ingestor receives raw presence events from the source.
type Ingestor interface {
	Ingest(raw presence.RawPresence)
}

// Discord owns the long-lived Discord gateway session. It implements
// presence.Source for directory lookups.
type Discord struct {
	session *discordgo.Session
	logger  *slog.Logger

	mu     sync.RWMutex
	ingest Ingestor
}

// NewDiscord creates a session with presence and member intents. The session
// is not opened until Open is called; Bind must be called before Open so
// events have somewhere to go.
func NewDiscord(log *slog.Logger, token string) (*Discord, error) {
	if log == nil {
		log = slog.Default()
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildPresences
	session.StateEnabled = true

	d := &Discord{
		session: session,
		logger:  log.With(slog.String("component", "discord")),
	}
	session.AddHandler(d.onReady)
	// The typed PresenceUpdate event drops client_status, so presence frames
	// are decoded from the raw gateway payload instead.
	session.AddHandler(d.onEvent)
	return d, nil
}

// Bind sets the ingestion entry point fed by presence events.
func (d *Discord) Bind(ing Ingestor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ingest = ing
}

// Open connects to the gateway and starts delivering events.
func (d *Discord) Open() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (d *Discord) Close() error {
	return d.session.Close()
}

func (d *Discord) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	d.logger.Info("logged in",
		slog.String("username", r.User.Username),
		slog.String("user_id", r.User.ID),
	)
}

// presencePayload is the raw PRESENCE_UPDATE gateway frame, including the
// client_status object absent from the typed event.
type presencePayload struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	GuildID      string                `json:"guild_id"`
	Status       string                `json:"status"`
	Activities   []*discordgo.Activity `json:"activities"`
	ClientStatus struct {
		Desktop string `json:"desktop"`
		Mobile  string `json:"mobile"`
		Web     string `json:"web"`
	} `json:"client_status"`
}

func (d *Discord) onEvent(s *discordgo.Session, e *discordgo.Event) {
	if e.Type != "PRESENCE_UPDATE" {
		return
	}
	d.mu.RLock()
	ing := d.ingest
	d.mu.RUnlock()
	if ing == nil {
		return
	}

	var payload presencePayload
	if err := json.Unmarshal(e.RawData, &payload); err != nil {
		d.logger.Warn("malformed presence event, skipping", slog.Any("error", err))
		return
	}
	id, err := strconv.ParseInt(payload.User.ID, 10, 64)
	if err != nil {
		d.logger.Warn("presence event with invalid user id, skipping",
			slog.String("user_id", payload.User.ID))
		return
	}

	identity := d.memberIdentity(payload.GuildID, payload.User.ID)
	if identity == nil {
		// Member not cached yet; carry the ID so the event still lands.
		identity = &presence.Identity{ID: id}
	}

	ing.Ingest(presence.RawPresence{
		Identity:   identity,
		Status:     payload.Status,
		Activities: payload.Activities,
		Desktop:    surfaceOnline(payload.ClientStatus.Desktop),
		Mobile:     surfaceOnline(payload.ClientStatus.Mobile),
		Web:        surfaceOnline(payload.ClientStatus.Web),
	})
}

// Identity resolves display info for an identity: guild member records from
// the state cache first, then a REST user lookup. presence.ErrNotFound when
// neither knows the user.
func (d *Discord) Identity(_ context.Context, id int64) (*presence.Identity, error) {
	uid := strconv.FormatInt(id, 10)
	for _, guild := range d.session.State.Guilds {
		if identity := d.memberIdentity(guild.ID, uid); identity != nil {
			return identity, nil
		}
	}

	user, err := d.session.User(uid)
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return nil, presence.ErrNotFound
		}
		return nil, fmt.Errorf("user lookup %d: %w", id, err)
	}
	return identityFromUser(user)
}

func (d *Discord) memberIdentity(guildID, userID string) *presence.Identity {
	if guildID == "" {
		return nil
	}
	member, err := d.session.State.Member(guildID, userID)
	if err != nil || member.User == nil {
		return nil
	}
	identity, err := identityFromUser(member.User)
	if err != nil {
		return nil
	}
	return identity
}

func identityFromUser(u *discordgo.User) (*presence.Identity, error) {
	id, err := strconv.ParseInt(u.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", u.ID, err)
	}
	avatar := ""
	if u.Avatar != "" {
		avatar = u.AvatarURL("")
	}
	return &presence.Identity{
		ID:            id,
		Username:      u.Username,
		Discriminator: u.Discriminator,
		Avatar:        avatar,
		Bot:           u.Bot,
		PublicFlags:   int(u.PublicFlags),
	}, nil
}

func surfaceOnline(status string) bool {
	return status != "" && status != "offline"
}
