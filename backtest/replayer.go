// Package backtest replays recorded event logs through the live decision
// path. Same code, different event source.
package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"maker_go/internal/engine"
	"maker_go/internal/storage"
)

// Replayer reads event logs from SQLite and feeds them into the sequencer.
type Replayer struct {
	store *storage.EventStore
}

// NewReplayer opens the recorded session at dbPath.
func NewReplayer(dbPath string) (*Replayer, error) {
	store, err := storage.NewEventStore(dbPath)
	if err != nil {
		return nil, err
	}
	return &Replayer{store: store}, nil
}

// RunReplay pushes every recorded event through seq synchronously, in the
// exact order the live session saw them. Returns the number of events.
func (r *Replayer) RunReplay(ctx context.Context, seq *engine.Sequencer) (int, error) {
	events, err := r.store.LoadEvents(ctx, 1)
	if err != nil {
		return 0, fmt.Errorf("failed to load events: %w", err)
	}

	slog.Info("replaying recorded session", slog.Int("events", len(events)))
	for _, ev := range events {
		seq.ProcessEvent(ctx, ev)
	}
	return len(events), nil
}

// Close releases the underlying store.
func (r *Replayer) Close() error {
	return r.store.Close()
}
