package presence

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNotFound reports an identity unknown to both the cache and the
// directory.
var ErrNotFound = errors.New("identity not found")

// Source is the identity directory of the upstream presence source.
type Source interface {
	// Identity resolves display info for an identity, preferring the most
	// specific record available. It returns ErrNotFound when the source has
	// no record at all.
	Identity(ctx context.Context, id int64) (*Identity, error)
}

// Service is the ingestion entry point and the synchronous query surface.
type Service struct {
	state       *State
	source      Source
	broadcaster *Broadcaster
	logger      *slog.Logger
}

// NewService creates a Service over the shared state, the identity directory,
// and the fan-out engine.
func NewService(log *slog.Logger, state *State, source Source, broadcaster *Broadcaster) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		state:       state,
		source:      source,
		broadcaster: broadcaster,
		logger:      log.With(slog.String("service", "presence")),
	}
}

// Ingest normalizes one raw source event, replaces the cached snapshot, and
// detaches a broadcast. Malformed events and bot identities are skipped
// without touching the cache; ingestion never fails.
func (s *Service) Ingest(raw RawPresence) {
	if raw.Identity == nil {
		s.logger.Warn("presence event without identity record, skipping")
		return
	}
	if raw.Identity.Bot {
		return
	}

	snap := Normalize(raw)
	s.state.SetPresence(raw.Identity.ID, snap)
	s.logger.Debug("presence cached",
		slog.Int64("user_id", raw.Identity.ID),
		slog.String("status", string(snap.DiscordStatus)),
	)
	// Fan-out runs detached; the ingestion path returns before sends start.
	s.broadcaster.Broadcast(raw.Identity.ID, snap)
}

// Lookup returns the latest snapshot for an identity. On a cache miss it asks
// the directory for a record and synthesizes an offline snapshot; ErrNotFound
// when the directory has none either.
func (s *Service) Lookup(ctx context.Context, id int64) (*Snapshot, error) {
	if snap, ok := s.state.Presence(id); ok {
		return snap, nil
	}
	identity, err := s.source.Identity(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return OfflineSnapshot(identity), nil
}

// InitialState returns the snapshot sent to a connection that just subscribed
// to an identity. Unlike Lookup it never fails: identities unknown to the
// directory get an offline snapshot with sentinel display info.
func (s *Service) InitialState(ctx context.Context, id int64) *Snapshot {
	if snap, ok := s.state.Presence(id); ok {
		return snap
	}
	identity, err := s.source.Identity(ctx, id)
	if err != nil {
		identity = nil
	}
	return OfflineSnapshot(identity)
}
