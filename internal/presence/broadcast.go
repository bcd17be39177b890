package presence

import (
	"encoding/json"
	"log/slog"
	"sync"
)

type broadcastJob struct {
	id   int64
	snap *Snapshot
}

// broadcastShard is a FIFO queue drained by a single worker goroutine.
// Enqueueing appends under the lock and never blocks.
type broadcastShard struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []broadcastJob
	closed bool
}

func newBroadcastShard() *broadcastShard {
	s := &broadcastShard{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *broadcastShard) enqueue(job broadcastJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.queue = append(s.queue, job)
	s.cond.Signal()
	return true
}

// next blocks until a job is available or the shard is closed and drained.
func (s *broadcastShard) next() (broadcastJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 {
		if s.closed {
			return broadcastJob{}, false
		}
		s.cond.Wait()
	}
	job := s.queue[0]
	s.queue = s.queue[1:]
	return job, true
}

func (s *broadcastShard) close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Broadcaster fans presence updates out to interested subscriber connections.
// Jobs are sharded by identity across a fixed set of workers, so updates for
// one identity always reach a subscriber in the order they arrived while the
// ingestion path never blocks on slow subscribers.
type Broadcaster struct {
	state  *State
	logger *slog.Logger

	shards []*broadcastShard
	wg     sync.WaitGroup
}

// NewBroadcaster creates a Broadcaster over the given state with the given
// number of fan-out workers.
func NewBroadcaster(log *slog.Logger, state *State, workers int) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	if workers <= 0 {
		workers = 8
	}
	b := &Broadcaster{
		state:  state,
		logger: log.With(slog.String("component", "broadcast")),
		shards: make([]*broadcastShard, workers),
	}
	for i := range b.shards {
		shard := newBroadcastShard()
		b.shards[i] = shard
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for {
				job, ok := shard.next()
				if !ok {
					return
				}
				b.dispatch(job.id, job.snap)
			}
		}()
	}
	return b
}

// Broadcast schedules a fan-out of the snapshot to every connection watching
// the identity. It returns immediately; after Close the update is dropped.
func (b *Broadcaster) Broadcast(id int64, snap *Snapshot) {
	shard := b.shards[uint64(id)%uint64(len(b.shards))]
	shard.enqueue(broadcastJob{id: id, snap: snap})
}

// Close stops accepting new broadcasts and waits for queued fan-outs to
// finish. It is idempotent.
func (b *Broadcaster) Close() {
	for _, shard := range b.shards {
		shard.close()
	}
	b.wg.Wait()
}

// dispatch serializes the event once and attempts a send to every interested
// connection. Connections whose send fails are removed from the registry
// afterwards.
func (b *Broadcaster) dispatch(id int64, snap *Snapshot) {
	data, err := json.Marshal(Envelope{
		Op:   OpEvent,
		Type: EventPresenceUpdate,
		Data: snap,
	})
	if err != nil {
		b.logger.Error("marshal presence update", slog.Int64("user_id", id), slog.Any("error", err))
		return
	}

	var dead []ConnID
	for _, sub := range b.state.SnapshotSubscriptions() {
		if _, watching := sub.IDs[id]; !watching {
			continue
		}
		if err := sub.Sender.Send(data); err != nil {
			b.logger.Info("subscriber dropped during broadcast",
				slog.String("conn", string(sub.Conn)),
				slog.Int64("user_id", id),
				slog.Any("error", err),
			)
			dead = append(dead, sub.Conn)
		}
	}
	for _, conn := range dead {
		b.state.Unregister(conn)
	}
}
