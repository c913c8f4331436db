// Package replication delivers committed changesets to subscribers outside
// the store: tarantool spaces, redis channels, amqp queues.
package replication

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Xausdorf/presentation-poll/internal/store"
)

const (
	// maxAttempts failures in a row are reported as an error. Delivery keeps retrying.
	maxAttempts  = 3
	retryBackoff = 200 * time.Millisecond
	maxBackoff   = 10 * time.Second
)

// Sink receives changesets in commit order.
type Sink interface {
	Name() string
	Apply(ctx context.Context, cs store.Changeset) error
}

// Dispatcher queues changesets without blocking the committing transaction
// and hands them to every sink from a single goroutine.
type Dispatcher struct {
	sinks   []Sink
	logger  *slog.Logger
	backoff time.Duration

	mu      sync.Mutex
	pending []store.Changeset
	notify  chan struct{}
}

func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:   sinks,
		logger:  logger,
		backoff: retryBackoff,
		notify:  make(chan struct{}, 1),
	}
}

// Enqueue is meant to be registered with store.OnCommit.
func (d *Dispatcher) Enqueue(cs store.Changeset) {
	d.mu.Lock()
	d.pending = append(d.pending, cs)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Pending returns the number of changesets not yet handed to sinks.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Run delivers queued changesets until ctx is done. A changeset interrupted by
// ctx goes back to the queue with everything after it, so sinks see each
// changeset at least once.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		batch := d.drain()
		for i, cs := range batch {
			if !d.deliver(ctx, cs) {
				d.requeue(batch[i:])
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-d.notify:
		}
	}
}

// Flush delivers everything queued so far. Used on shutdown after Run returned.
func (d *Dispatcher) Flush(ctx context.Context) {
	batch := d.drain()
	for i, cs := range batch {
		if !d.deliver(ctx, cs) {
			d.requeue(batch[i:])
			return
		}
	}
}

// requeue puts batch back in front of the queue.
func (d *Dispatcher) requeue(batch []store.Changeset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(batch, d.pending...)
}

func (d *Dispatcher) drain() []store.Changeset {
	d.mu.Lock()
	defer d.mu.Unlock()
	batch := d.pending
	d.pending = nil
	return batch
}

// deliver hands cs to every sink, retrying a failing sink until it accepts
// cs or ctx ends. It returns false in the latter case.
func (d *Dispatcher) deliver(ctx context.Context, cs store.Changeset) bool {
	for _, sink := range d.sinks {
		for attempt := 1; ; attempt++ {
			if ctx.Err() != nil {
				return false
			}
			err := sink.Apply(ctx, cs)
			if err == nil {
				break
			}
			log := d.logger.With("sink", sink.Name(), "tx_id", cs.TxID, "attempt", attempt, "error", err)
			if attempt == maxAttempts {
				log.Error("could not replicate changeset, delivery stalled until the sink recovers",
					"rows", cs.Rows.Len(),
					"pending", d.Pending(),
				)
			} else {
				log.Warn("could not replicate changeset, retrying")
			}

			select {
			case <-ctx.Done():
				return false
			case <-time.After(min(d.backoff*time.Duration(attempt), maxBackoff)):
			}
		}
		d.logger.Debug("changeset replicated", "sink", sink.Name(), "tx_id", cs.TxID)
	}
	return true
}
