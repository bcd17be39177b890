package presence

import "sync"

// ConnID identifies one subscriber connection for the lifetime of its socket.
type ConnID string

// Sender delivers one serialized frame to a subscriber connection. Send must
// be safe for concurrent use; a non-nil error marks the connection dead.
type Sender interface {
	Send(data []byte) error
}

// Subscription is a point-in-time copy of one connection's watch set, taken
// for fan-out iteration.
type Subscription struct {
	Conn   ConnID
	Sender Sender
	IDs    map[int64]struct{}
}

type connEntry struct {
	sender Sender
	ids    map[int64]struct{}
}

// State is the single shared-state domain: the latest snapshot per identity
// and the connection subscription registry, behind one lock. The lock is held
// only across map access, never across serialization or sends.
type State struct {
	mu        sync.Mutex
	presences map[int64]*Snapshot
	subs      map[ConnID]*connEntry
}

// NewState creates an empty State.
func NewState() *State {
	return &State{
		presences: map[int64]*Snapshot{},
		subs:      map[ConnID]*connEntry{},
	}
}

// SetPresence replaces the cached snapshot for an identity unconditionally.
// Last write wins by arrival order.
func (s *State) SetPresence(id int64, snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presences[id] = snap
}

// Presence returns the cached snapshot for an identity, if any.
func (s *State) Presence(id int64) (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.presences[id]
	return snap, ok
}

// Register inserts an empty subscription set for a newly opened connection.
func (s *State) Register(conn ConnID, sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[conn] = &connEntry{sender: sender, ids: map[int64]struct{}{}}
}

// SetSubscriptions replaces the connection's watch set wholesale. IDs absent
// from the new set are dropped. It returns the IDs newly present relative to
// the previous set; an unregistered connection gets no update and no adds.
func (s *State) SetSubscriptions(conn ConnID, ids []int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.subs[conn]
	if !ok {
		return nil
	}
	next := make(map[int64]struct{}, len(ids))
	var added []int64
	for _, id := range ids {
		if _, dup := next[id]; dup {
			continue
		}
		next[id] = struct{}{}
		if _, had := entry.ids[id]; !had {
			added = append(added, id)
		}
	}
	entry.ids = next
	return added
}

// Unregister removes the connection's registry entry. It is safe to call for
// connections that were never registered or were already removed.
func (s *State) Unregister(conn ConnID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, conn)
}

// SnapshotSubscriptions returns a point-in-time copy of all registered
// connections and their watch sets, so fan-out iteration never races with
// registry mutation.
func (s *State) SnapshotSubscriptions() []Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Subscription, 0, len(s.subs))
	for conn, entry := range s.subs {
		ids := make(map[int64]struct{}, len(entry.ids))
		for id := range entry.ids {
			ids[id] = struct{}{}
		}
		out = append(out, Subscription{Conn: conn, Sender: entry.sender, IDs: ids})
	}
	return out
}

// ConnCount reports the number of registered connections.
func (s *State) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
