package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vorlie/presenceexpose/internal/presence"
)

// Session drives the protocol state machine for one subscriber connection:
// accepted (hello) -> open (read loop) -> closed (teardown, exactly once).
type Session struct {
	id        presence.ConnID
	conn      Conn
	state     *presence.State
	service   *presence.Service
	heartbeat time.Duration
	grace     time.Duration
	logger    *slog.Logger
}

// NewSession creates a session over an accepted connection.
func NewSession(log *slog.Logger, conn Conn, state *presence.State, service *presence.Service, heartbeat, grace time.Duration) *Session {
	if log == nil {
		log = slog.Default()
	}
	id := presence.ConnID(uuid.NewString())
	return &Session{
		id:        id,
		conn:      conn,
		state:     state,
		service:   service,
		heartbeat: heartbeat,
		grace:     grace,
		logger: log.With(
			slog.String("component", "gateway"),
			slog.String("conn", string(id)),
			slog.String("remote", conn.RemoteAddr()),
		),
	}
}

// Run executes the connection lifecycle and returns once the connection is
// closed. The registry entry exists exactly while the session is open; the
// deferred teardown removes it on every exit path, including faults.
func (s *Session) Run(ctx context.Context) {
	hello, err := json.Marshal(presence.Envelope{
		Op:   presence.OpHello,
		Data: presence.Hello{HeartbeatInterval: s.heartbeat.Milliseconds()},
	})
	if err == nil {
		err = s.conn.Send(hello)
	}
	if err != nil {
		// Dropped before open: never registered, nothing to unregister.
		s.logger.Info("client dropped during hello", slog.Any("error", err))
		_ = s.conn.Close(websocket.CloseInternalServerErr)
		return
	}

	s.state.Register(s.id, s.conn)
	defer s.teardown()
	s.logger.Info("client connected")

	for {
		// Any received frame, valid or not, resets the idle deadline.
		data, err := s.conn.Read(time.Now().Add(s.heartbeat + s.grace))
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				s.logger.Info("client timed out", slog.Duration("idle", s.heartbeat+s.grace))
			} else {
				s.logger.Info("client disconnected", slog.Any("error", err))
			}
			return
		}

		var frame struct {
			Op int             `json:"op"`
			D  json.RawMessage `json:"d"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Warn("ignoring unparseable frame", slog.Any("error", err))
			continue
		}

		switch frame.Op {
		case presence.OpInitialize:
			if err := s.handleInitialize(ctx, frame.D); err != nil {
				s.logger.Info("initial state send failed", slog.Any("error", err))
				return
			}
		case presence.OpHeartbeat:
			if err := s.send(presence.Envelope{Op: presence.OpHeartbeatAck}); err != nil {
				s.logger.Info("heartbeat ack failed", slog.Any("error", err))
				return
			}
		default:
			s.logger.Warn("unknown op code", slog.Int("op", frame.Op))
			if err := s.send(presence.Envelope{
				Op:   presence.OpError,
				Data: fmt.Sprintf("Unknown OP Code: %d", frame.Op),
			}); err != nil {
				return
			}
		}
	}
}

// handleInitialize replaces the watch set wholesale and sends one INIT_STATE
// event per newly subscribed identity. A send failure aborts the remaining
// sends and closes the session.
func (s *Session) handleInitialize(ctx context.Context, payload json.RawMessage) error {
	ids, ok := s.parseSubscribeIDs(payload)
	if !ok {
		// Malformed payload is a protocol error, not fatal.
		return nil
	}

	added := s.state.SetSubscriptions(s.id, ids)
	s.logger.Info("subscriptions replaced", slog.Int("count", len(ids)), slog.Int("new", len(added)))

	for _, id := range added {
		env := presence.Envelope{
			Op:   presence.OpEvent,
			Type: presence.EventInitState,
			Data: s.service.InitialState(ctx, id),
		}
		if err := s.send(env); err != nil {
			return fmt.Errorf("initial state for %d: %w", id, err)
		}
	}
	return nil
}

// parseSubscribeIDs extracts valid identity IDs from an INITIALIZE payload.
// Entries that cannot be parsed are dropped; a payload of the wrong shape
// returns ok=false.
func (s *Session) parseSubscribeIDs(payload json.RawMessage) ([]int64, bool) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var body struct {
		SubscribeToIDs []any `json:"subscribe_to_ids"`
	}
	if err := dec.Decode(&body); err != nil || body.SubscribeToIDs == nil {
		s.logger.Warn("invalid initialize payload")
		return nil, false
	}

	ids := make([]int64, 0, len(body.SubscribeToIDs))
	for _, entry := range body.SubscribeToIDs {
		id, err := parseID(entry)
		if err != nil {
			s.logger.Warn("dropping invalid identity id", slog.Any("value", entry))
			continue
		}
		ids = append(ids, id)
	}
	return ids, true
}

// IDs arrive as JSON strings or numbers; snowflakes exceed float53 so numbers
// are decoded with UseNumber upstream.
func parseID(v any) (int64, error) {
	switch t := v.(type) {
	case string:
		return strconv.ParseInt(t, 10, 64)
	case json.Number:
		return t.Int64()
	default:
		return 0, fmt.Errorf("unsupported id type %T", v)
	}
}

func (s *Session) send(env presence.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.conn.Send(data)
}

// teardown runs exactly once per open session.
func (s *Session) teardown() {
	s.state.Unregister(s.id)
	_ = s.conn.Close(websocket.CloseInternalServerErr)
	s.logger.Info("connection closed", slog.Int("active", s.state.ConnCount()))
}
