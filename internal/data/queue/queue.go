// Package queue buffers activity intervals locally and delivers them to the
// remote store with at-least-once semantics. Queued items survive process
// restarts through an injected persistence store; duplicates on redelivery
// are absorbed remotely by deterministic interval ids.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/flowpulse/flowpulse/internal/core/model"
	"github.com/flowpulse/flowpulse/internal/util"
)

const (
	// DefaultMaxBatchSize triggers an immediate flush when reached.
	DefaultMaxBatchSize = 15
	// DefaultFlushInterval is the timer-driven flush cadence.
	DefaultFlushInterval = 30 * time.Second
	// DefaultSendTimeout bounds one delivery attempt.
	DefaultSendTimeout = 15 * time.Second
)

// Store persists the full queue contents across restarts.
type Store interface {
	Save(intervals []model.ActivityInterval) error
	Load() ([]model.ActivityInterval, error)
	Close() error
}

// Sender delivers one batch of intervals to the remote store. It returns the
// number accepted; any error means nothing may be removed from the queue.
type Sender interface {
	Send(ctx context.Context, intervals []model.ActivityInterval) (int, error)
}

// Config tunes a Queue. Zero values fall back to the defaults.
type Config struct {
	MaxBatchSize  int
	FlushInterval time.Duration
	SendTimeout   time.Duration
}

// Queue is the durable batching queue between the session tracker and the
// remote store.
type Queue struct {
	mu       sync.Mutex
	items    []model.ActivityInterval
	flushing bool
	timer    *time.Timer
	closed   bool

	store  Store
	sender Sender
	cfg    Config
}

// New creates a Queue, restoring any intervals the store persisted in a
// previous run, and arms the flush timer.
func New(store Store, sender Sender, cfg Config) (*Queue, error) {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}

	restored, err := store.Load()
	if err != nil {
		return nil, err
	}
	if len(restored) > 0 {
		util.LogInfof("restored %d queued intervals from local storage", len(restored))
	}

	q := &Queue{
		items:  restored,
		store:  store,
		sender: sender,
		cfg:    cfg,
	}
	q.schedule()
	return q, nil
}

// Enqueue appends an interval and persists the queue immediately, so a crash
// loses at most a delivery in flight, never unacknowledged enqueued data.
// Delivery failures are never surfaced to the producer.
func (q *Queue) Enqueue(interval model.ActivityInterval) {
	q.mu.Lock()
	q.items = append(q.items, interval)
	q.persistLocked()
	full := len(q.items) >= q.cfg.MaxBatchSize
	q.mu.Unlock()

	if full {
		go q.Flush(context.Background())
	}
}

// Len returns the number of queued, undelivered intervals.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Flush attempts to deliver a snapshot of the current queue. It is
// non-reentrant: if a flush is already in progress, or the queue is empty,
// the call is a no-op that still reschedules the timer. On success exactly
// the delivered prefix is removed; on failure the queue is left untouched
// and the same items retry on the next cycle.
func (q *Queue) Flush(ctx context.Context) {
	q.mu.Lock()
	if q.flushing || len(q.items) == 0 {
		q.mu.Unlock()
		q.schedule()
		return
	}
	q.flushing = true
	snapshot := make([]model.ActivityInterval, len(q.items))
	copy(snapshot, q.items)
	q.mu.Unlock()

	sendCtx, cancel := context.WithTimeout(ctx, q.cfg.SendTimeout)
	accepted, err := q.sender.Send(sendCtx, snapshot)
	cancel()

	q.mu.Lock()
	q.flushing = false
	if err != nil {
		util.LogWarnf("flush failed, keeping %d intervals queued: %v", len(snapshot), err)
	} else {
		// Items enqueued during the in-flight request stay queued.
		q.items = q.items[len(snapshot):]
		q.persistLocked()
		util.LogInfof("flushed %d intervals (%d accepted remotely)", len(snapshot), accepted)
	}
	q.mu.Unlock()

	q.schedule()
}

// Close stops the flush timer, attempts one final flush, and releases the
// persistence store.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
	}
	q.mu.Unlock()

	q.Flush(ctx)
	return q.store.Close()
}

func (q *Queue) schedule() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(q.cfg.FlushInterval, func() {
		q.Flush(context.Background())
	})
}

// persistLocked saves the queue; the caller holds q.mu. Persistence errors
// are logged, not propagated: the in-memory queue is still authoritative
// for this process's lifetime.
func (q *Queue) persistLocked() {
	if err := q.store.Save(q.items); err != nil {
		util.LogErrorf("persist queue: %v", err)
	}
}
