// Package audit publishes one event per state-changing operation to
// off-chain consumers: a ClickHouse event log for indexers and a websocket
// feed for live subscribers.
package audit

import (
	"context"
	"log"
	"sync"

	"tykhepot-engine/internal/domain"
)

// Sink consumes audit events. Implementations must not block the caller;
// emission is best-effort and never fails the operation that produced it.
type Sink interface {
	Emit(ctx context.Context, ev *domain.AuditEvent)
}

// Fanout forwards every event to all attached sinks.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Emit(ctx context.Context, ev *domain.AuditEvent) {
	for _, s := range f.sinks {
		s.Emit(ctx, ev)
	}
}

// LogSink writes events to a standard logger. Used when no durable sink is
// configured.
type LogSink struct {
	Logger *log.Logger
}

func (s *LogSink) Emit(_ context.Context, ev *domain.AuditEvent) {
	s.Logger.Printf("[audit] kind=%s pool=%s round=%d user=%s amount=%d",
		ev.Kind, ev.PoolType, ev.RoundNumber, ev.User, ev.Amount)
}

// MemorySink collects events in order. Test helper.
type MemorySink struct {
	mu     sync.Mutex
	events []*domain.AuditEvent
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(_ context.Context, ev *domain.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *ev
	s.events = append(s.events, &copy)
}

// Events returns a snapshot of everything emitted so far.
func (s *MemorySink) Events() []*domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}
