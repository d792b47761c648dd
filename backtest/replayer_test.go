package backtest_test

import (
	"context"
	"path/filepath"
	"testing"

	"maker_go/backtest"
	"maker_go/internal/book"
	"maker_go/internal/engine"
	"maker_go/internal/event"
	"maker_go/internal/execution"
	"maker_go/internal/iceberg"
	"maker_go/internal/maker"
	"maker_go/internal/pricing"
	"maker_go/internal/regime"
	"maker_go/internal/storage"
)

func fptr(v float64) *float64 { return &v }

// Record a tiny session, replay it, and expect the identical decision.
func TestReplayReproducesDecisions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	store, err := storage.NewEventStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}

	events := []event.Event{
		event.DomSnapshot{
			BaseEvent: event.BaseEvent{Seq: 1, Ts: 1},
			BestBid:   6799.75,
			BestAsk:   6800.00,
			Bids:      []event.Level{{Price: 6799.75, Volume: 200}, {Price: 6799.50, Volume: 400}},
			Asks:      []event.Level{{Price: 6800.00, Volume: 100}, {Price: 6800.25, Volume: 100}},
		},
		event.TickEvent{BaseEvent: event.BaseEvent{Seq: 2, Ts: 2}, Primary: 6800.0, Aux1: fptr(100.0), Aux2: fptr(50.0)},
		event.TickEvent{BaseEvent: event.BaseEvent{Seq: 3, Ts: 3}, Primary: 6800.0, Aux1: fptr(110.0), Aux2: fptr(50.0)},
	}
	for _, ev := range events {
		if err := store.SaveEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	sink := execution.NewPaperSink()
	eng := maker.NewEngine(
		maker.DefaultConfig(),
		pricing.NewOnlineKalman(pricing.DefaultKalmanConfig()),
		book.NewCalculator(book.DefaultOBIConfig()),
		iceberg.NewDetector(iceberg.DefaultConfig()),
		regime.NewMonitor(regime.DefaultConfig()),
		sink,
	)
	seq := engine.NewSequencer(64, eng, nil)

	rep, err := backtest.NewReplayer(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer rep.Close()

	n, err := rep.RunReplay(ctx, seq)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if n != 3 {
		t.Errorf("replayed %d events, want 3", n)
	}

	orders := sink.Orders()
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	if orders[0].Price != 6799.75 {
		t.Errorf("entry price = %v, want best bid", orders[0].Price)
	}
}

func TestReplayerMissingFileStillOpens(t *testing.T) {
	// SQLite creates the file on open; an absent path is an empty session,
	// not an error.
	rep, err := backtest.NewReplayer(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rep.Close()

	sink := execution.NewPaperSink()
	eng := maker.NewEngine(
		maker.DefaultConfig(),
		pricing.NewOnlineKalman(pricing.DefaultKalmanConfig()),
		book.NewCalculator(book.DefaultOBIConfig()),
		iceberg.NewDetector(iceberg.DefaultConfig()),
		regime.NewMonitor(regime.DefaultConfig()),
		sink,
	)
	n, err := rep.RunReplay(context.Background(), engine.NewSequencer(64, eng, nil))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if n != 0 {
		t.Errorf("replayed %d events, want 0", n)
	}
}
