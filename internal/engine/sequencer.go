// Package engine owns the single-threaded hotpath: feed workers push typed
// events into a bounded drop-oldest ring, and one goroutine drains it into
// the decision engine in arrival order.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"maker_go/internal/event"
	"maker_go/internal/infra"
	"maker_go/internal/maker"
	"maker_go/internal/storage"
)

// Stats is the externally visible counter snapshot.
type Stats struct {
	Pushed    uint64 `json:"pushed"`
	Dropped   uint64 `json:"dropped"`
	Processed uint64 `json:"processed"`
}

// Sequencer is the core single-threaded event processor. All decision logic
// runs on the Run goroutine; producers only touch the ring.
type Sequencer struct {
	ring   *eventRing
	notify chan struct{}

	eng *maker.Engine

	// Recording is best-effort: a sick disk must not stall decisions, so
	// persistence sits behind a breaker instead of a WAL-first panic.
	store   *storage.EventStore
	breaker *infra.CircuitBreaker

	// tap sees every tick after the engine. Outcome measurement hangs here.
	tap TickTap

	pushed    atomic.Uint64
	dropped   atomic.Uint64
	processed atomic.Uint64
}

// TickTap observes the tick stream without influencing decisions.
type TickTap interface {
	OnTick(tick event.TickEvent)
}

// NewSequencer creates a sequencer draining into eng. store may be nil to
// disable event recording.
func NewSequencer(ringSize int, eng *maker.Engine, store *storage.EventStore) *Sequencer {
	if eng == nil {
		panic("engine: maker engine is required")
	}
	return &Sequencer{
		ring:    newEventRing(ringSize),
		notify:  make(chan struct{}, 1),
		eng:     eng,
		store:   store,
		breaker: infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("event_store")),
	}
}

// SetTickTap attaches an optional tick observer. Must be set before Run.
func (s *Sequencer) SetTickTap(tap TickTap) {
	s.tap = tap
}

// Push enqueues an event from a feed worker. Never blocks; when the ring is
// full the oldest queued event is shed and counted.
func (s *Sequencer) Push(ev event.Event) {
	if s.ring.push(ev) {
		s.dropped.Add(1)
	}
	s.pushed.Add(1)

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run drains the ring until ctx is canceled. This MUST be run in a single
// goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("sequencer started", slog.Int("ring_size", len(s.ring.buf)))

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState("panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sequencer stopping",
				slog.Uint64("processed", s.processed.Load()),
				slog.Uint64("dropped", s.dropped.Load()))
			return
		case <-s.notify:
			s.drain(ctx)
		}
	}
}

func (s *Sequencer) drain(ctx context.Context) {
	for {
		ev, ok := s.ring.pop()
		if !ok {
			return
		}
		s.record(ctx, ev)
		s.ProcessEvent(ctx, ev)
	}
}

// record persists the event when a store is configured and the breaker
// admits the write. Failures trip the breaker; they never halt the hotpath.
func (s *Sequencer) record(ctx context.Context, ev event.Event) {
	if s.store == nil || !s.breaker.Allow() {
		return
	}
	if err := s.store.SaveEvent(ctx, ev); err != nil {
		s.breaker.RecordFailure()
		slog.Warn("event recording failed", slog.Uint64("seq", ev.GetSeq()), slog.Any("error", err))
		return
	}
	s.breaker.RecordSuccess()
}

// ProcessEvent dispatches one event synchronously without recording. The
// replayer uses this directly so replay and live share one code path.
func (s *Sequencer) ProcessEvent(ctx context.Context, ev event.Event) {
	switch e := ev.(type) {
	case event.TickEvent:
		s.eng.OnTick(ctx, e)
		if s.tap != nil {
			s.tap.OnTick(e)
		}
	case *event.TickEvent:
		s.eng.OnTick(ctx, *e)
		if s.tap != nil {
			s.tap.OnTick(*e)
		}
		event.ReleaseTickEvent(e)
	case event.DomSnapshot:
		s.eng.OnDom(e)
	case *event.DomSnapshot:
		s.eng.OnDom(*e)
		event.ReleaseDomSnapshot(e)
	case event.TradeEvent:
		s.eng.OnTrade(e)
	default:
		slog.Warn("unknown event type", slog.Any("type", ev.GetType()))
	}
	s.processed.Add(1)
}

// GetStats returns the counter snapshot (monitoring read path).
func (s *Sequencer) GetStats() Stats {
	return Stats{
		Pushed:    s.pushed.Load(),
		Dropped:   s.dropped.Load(),
		Processed: s.processed.Load(),
	}
}

// DumpState writes engine and sequencer state to a file for post-mortem.
func (s *Sequencer) DumpState(filename string) {
	slog.Info("dumping internal state", slog.String("file", filename))

	data := struct {
		Stats    Stats          `json:"stats"`
		Snapshot maker.Snapshot `json:"snapshot"`
	}{
		Stats:    s.GetStats(),
		Snapshot: s.eng.GetSnapshot(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("failed to marshal state", slog.Any("error", err))
		return
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("failed to write state dump", slog.Any("error", err))
	}
}
