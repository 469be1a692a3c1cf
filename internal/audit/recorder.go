package audit

import (
	"context"
	"log"
	"sync"
	"time"

	"tykhepot-engine/internal/domain"
)

// EventStore persists batches of audit events.
type EventStore interface {
	InsertBulk(ctx context.Context, events []*domain.AuditEvent) error
}

const (
	defaultFlushInterval = 2 * time.Second
	defaultBatchSize     = 256
	queueCapacity        = 4096
)

// Recorder buffers events and writes them to the store in batches, either
// when the batch fills or on a flush tick. Emit never blocks: if the queue
// is full the event is dropped and counted, the protocol state itself is
// the source of truth.
type Recorder struct {
	store  EventStore
	logger *log.Logger

	queue   chan *domain.AuditEvent
	flushIn time.Duration

	mu      sync.Mutex
	dropped uint64
}

// NewRecorder creates a recorder. Call Run to start the flush loop.
func NewRecorder(store EventStore, logger *log.Logger) *Recorder {
	return &Recorder{
		store:   store,
		logger:  logger,
		queue:   make(chan *domain.AuditEvent, queueCapacity),
		flushIn: defaultFlushInterval,
	}
}

// Emit enqueues an event for the next batch.
func (r *Recorder) Emit(_ context.Context, ev *domain.AuditEvent) {
	copy := *ev
	select {
	case r.queue <- &copy:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// Dropped returns how many events were discarded due to a full queue.
func (r *Recorder) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Run drains the queue until ctx is cancelled, then flushes what remains.
func (r *Recorder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.flushIn)
	defer ticker.Stop()

	batch := make([]*domain.AuditEvent, 0, defaultBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Flush with a fresh context so shutdown still persists the tail.
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := r.store.InsertBulk(flushCtx, batch); err != nil {
			r.logger.Printf("[audit] flush %d events failed: %v", len(batch), err)
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case ev := <-r.queue:
					batch = append(batch, ev)
				default:
					flush()
					return
				}
			}
		case ev := <-r.queue:
			batch = append(batch, ev)
			if len(batch) >= defaultBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
