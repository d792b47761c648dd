package maker_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"maker_go/internal/book"
	"maker_go/internal/domain"
	"maker_go/internal/event"
	"maker_go/internal/iceberg"
	"maker_go/internal/maker"
	"maker_go/internal/pricing"
	"maker_go/internal/regime"
	"maker_go/pkg/quant"
)

// captureSink records every command for assertions.
type captureSink struct {
	cmds []domain.OrderCommand
}

func (s *captureSink) Submit(ctx context.Context, cmd domain.OrderCommand) error {
	s.cmds = append(s.cmds, cmd)
	return nil
}

func (s *captureSink) entries() []domain.OrderCommand {
	var out []domain.OrderCommand
	for _, c := range s.cmds {
		if !c.IsCancel {
			out = append(out, c)
		}
	}
	return out
}

func (s *captureSink) cancels() []domain.OrderCommand {
	var out []domain.OrderCommand
	for _, c := range s.cmds {
		if c.IsCancel {
			out = append(out, c)
		}
	}
	return out
}

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func ptr(v float64) *float64 { return &v }

func fullTick(ts quant.TimeStamp, primary, aux1, aux2 float64) event.TickEvent {
	return event.TickEvent{
		BaseEvent: event.BaseEvent{Ts: ts},
		Primary:   primary,
		Aux1:      ptr(aux1),
		Aux2:      ptr(aux2),
	}
}

// bullishDom leans the book toward the bids with a shallow best-bid queue.
func bullishDom(ts quant.TimeStamp) event.DomSnapshot {
	return event.DomSnapshot{
		BaseEvent: event.BaseEvent{Ts: ts},
		BestBid:   6800.00,
		BestAsk:   6800.25,
		Bids: []event.Level{
			{Price: 6800.00, Volume: 200}, {Price: 6799.75, Volume: 400}, {Price: 6799.50, Volume: 300},
		},
		Asks: []event.Level{
			{Price: 6800.25, Volume: 100}, {Price: 6800.50, Volume: 100}, {Price: 6800.75, Volume: 100},
		},
	}
}

func newEngine(t *testing.T, sink *captureSink) (*maker.Engine, *testClock) {
	t.Helper()
	eng := maker.NewEngine(
		maker.DefaultConfig(),
		pricing.NewOnlineKalman(pricing.DefaultKalmanConfig()),
		book.NewCalculator(book.DefaultOBIConfig()),
		iceberg.NewDetector(iceberg.DefaultConfig()),
		regime.NewMonitor(regime.DefaultConfig()),
		sink,
	)
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	eng.SetClock(clock.now)
	return eng, clock
}

func TestLongEntryAtBestBid(t *testing.T) {
	sink := &captureSink{}
	eng, _ := newEngine(t, sink)
	ctx := context.Background()

	eng.OnDom(bullishDom(1000))
	eng.OnTick(ctx, fullTick(1001, 6800.0, 23000.0, 42000.0)) // baseline
	// Aux1 +10 -> warm theta projects +3.0 points = 12 ticks of spread.
	eng.OnTick(ctx, fullTick(1002, 6800.0, 23010.0, 42000.0))

	entries := sink.entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Side != domain.SideBuy {
		t.Errorf("side = %s, want BUY", e.Side)
	}
	if e.OrderType != domain.TypeLimit {
		t.Errorf("type = %s, want LIMIT", e.OrderType)
	}
	if e.Price != 6800.00 {
		t.Errorf("price = %v, want best bid 6800.00", e.Price)
	}
	if e.ClientOrderID == "" {
		t.Error("client order id must be set")
	}

	snap := eng.GetSnapshot()
	if !snap.Position.Active() || snap.Position.Side != domain.SideBuy {
		t.Error("position should record the active long entry")
	}
}

func TestShortEntryAtBestAsk(t *testing.T) {
	sink := &captureSink{}
	eng, _ := newEngine(t, sink)
	ctx := context.Background()

	dom := bullishDom(1000)
	// Mirror the book so the OBI agrees with a short.
	dom.Bids, dom.Asks = dom.Asks, dom.Bids
	for i := range dom.Bids {
		dom.Bids[i].Price = 6800.00 - 0.25*float64(i)
	}
	for i := range dom.Asks {
		dom.Asks[i].Price = 6800.25 + 0.25*float64(i)
	}
	eng.OnDom(dom)

	eng.OnTick(ctx, fullTick(1001, 6800.0, 23000.0, 42000.0))
	// Aux1 -10 -> fair 3 points below actual: short signal.
	eng.OnTick(ctx, fullTick(1002, 6800.0, 22990.0, 42000.0))

	entries := sink.entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Side != domain.SideSell || entries[0].Price != 6800.25 {
		t.Errorf("got %s @ %v, want SELL @ best ask 6800.25", entries[0].Side, entries[0].Price)
	}
}

func TestNoSecondEntryWhilePending(t *testing.T) {
	sink := &captureSink{}
	eng, _ := newEngine(t, sink)
	ctx := context.Background()

	eng.OnDom(bullishDom(1000))
	eng.OnTick(ctx, fullTick(1001, 6800.0, 23000.0, 42000.0))
	eng.OnTick(ctx, fullTick(1002, 6800.0, 23010.0, 42000.0))

	if len(sink.entries()) != 1 {
		t.Fatal("precondition: one entry expected")
	}

	// Keep firing strong signals; the pending entry must absorb them all.
	for i := 0; i < 20; i++ {
		eng.OnTick(ctx, fullTick(quant.TimeStamp(1003+i), 6800.0, 23020.0+float64(i), 42000.0))
	}
	if got := len(sink.entries()); got != 1 {
		t.Errorf("entries = %d, want still 1 while pending", got)
	}
}

func TestTimeoutCancelResetsToIdle(t *testing.T) {
	sink := &captureSink{}
	eng, clock := newEngine(t, sink)
	ctx := context.Background()

	eng.OnDom(bullishDom(1000))
	eng.OnTick(ctx, fullTick(1001, 6800.0, 23000.0, 42000.0))
	eng.OnTick(ctx, fullTick(1002, 6800.0, 23010.0, 42000.0))
	if len(sink.entries()) != 1 {
		t.Fatal("precondition: one entry expected")
	}
	entryID := sink.entries()[0].ClientOrderID

	// Past MaxWaitSeconds (10s) without a fill.
	clock.advance(11 * time.Second)
	// The repeated observation has been learned away, so this tick carries
	// no fresh signal; it only drives pending-order management.
	eng.OnTick(ctx, fullTick(12002, 6800.0, 23010.0, 42000.0))

	cancels := sink.cancels()
	if len(cancels) != 1 {
		t.Fatalf("cancels = %d, want exactly 1", len(cancels))
	}
	if cancels[0].ClientOrderID != entryID {
		t.Errorf("cancel id = %s, want %s", cancels[0].ClientOrderID, entryID)
	}
	if cancels[0].Reason != "timeout_cancel" {
		t.Errorf("reason = %q, want timeout_cancel", cancels[0].Reason)
	}
	if eng.GetSnapshot().Position.Active() {
		t.Error("position must reset to idle after the cancel")
	}
}

func TestNoEntryBeforeSpreadDefined(t *testing.T) {
	sink := &captureSink{}
	eng, _ := newEngine(t, sink)
	ctx := context.Background()

	eng.OnDom(bullishDom(1000))
	// Aux2 never observed: spread stays undefined, nothing may trade.
	for i := 0; i < 10; i++ {
		eng.OnTick(ctx, event.TickEvent{
			BaseEvent: event.BaseEvent{Ts: quant.TimeStamp(1001 + i)},
			Primary:   6800.0,
			Aux1:      ptr(23000.0 + float64(i)*10),
		})
	}
	if len(sink.cmds) != 0 {
		t.Errorf("commands = %v, want none without a defined spread", sink.cmds)
	}
}

func TestOBIFilterBlocksDisagreeingBook(t *testing.T) {
	sink := &captureSink{}
	eng, _ := newEngine(t, sink)
	ctx := context.Background()

	// Ask-heavy book: OBI is negative while the model wants a long.
	dom := bullishDom(1000)
	dom.Bids, dom.Asks = dom.Asks, dom.Bids
	eng.OnDom(dom)

	eng.OnTick(ctx, fullTick(1001, 6800.0, 23000.0, 42000.0))
	eng.OnTick(ctx, fullTick(1002, 6800.0, 23010.0, 42000.0))

	if len(sink.entries()) != 0 {
		t.Error("OBI disagreement must reject the long signal")
	}
}

func TestIcebergFilterBlocksEntry(t *testing.T) {
	sink := &captureSink{}
	eng, _ := newEngine(t, sink)
	ctx := context.Background()

	eng.OnDom(bullishDom(1000))
	// Plant significant hidden asks just above: 350 traded into a displayed
	// 100 leaves +250 hidden, over the 200 significance threshold.
	eng.OnTrade(event.TradeEvent{
		BaseEvent: event.BaseEvent{Ts: 1001},
		Price:     6800.25, Volume: 350, Side: "BUY",
	})
	eng.OnDom(bullishDom(1100)) // flush the trade window

	eng.OnTick(ctx, fullTick(1101, 6800.0, 23000.0, 42000.0))
	eng.OnTick(ctx, fullTick(1102, 6800.0, 23010.0, 42000.0))

	if len(sink.entries()) != 0 {
		t.Error("iceberg resistance must reject the long signal")
	}
}

func TestQueueFilterBlocksDeepQueue(t *testing.T) {
	sink := &captureSink{}
	eng, _ := newEngine(t, sink)
	ctx := context.Background()

	dom := bullishDom(1000)
	dom.Bids[0].Volume = 5000 // way past MaxQueueSize 300
	eng.OnDom(dom)

	eng.OnTick(ctx, fullTick(1001, 6800.0, 23000.0, 42000.0))
	eng.OnTick(ctx, fullTick(1002, 6800.0, 23010.0, 42000.0))

	if len(sink.entries()) != 0 {
		t.Error("deep best-bid queue must reject the entry")
	}
}

func TestNoEntryWithoutDom(t *testing.T) {
	sink := &captureSink{}
	eng, _ := newEngine(t, sink)
	ctx := context.Background()

	eng.OnTick(ctx, fullTick(1001, 6800.0, 23000.0, 42000.0))
	eng.OnTick(ctx, fullTick(1002, 6800.0, 23010.0, 42000.0))

	if len(sink.cmds) != 0 {
		t.Error("no DOM snapshot yet: nothing may be priced or placed")
	}
}

type recordingObserver struct {
	signals []domain.SignalContext
}

func (r *recordingObserver) OnSignal(sig domain.SignalContext) {
	r.signals = append(r.signals, sig)
}

func TestSignalContextEmittedWithEntry(t *testing.T) {
	sink := &captureSink{}
	eng, _ := newEngine(t, sink)
	obs := &recordingObserver{}
	eng.SetObserver(obs)
	ctx := context.Background()

	eng.OnDom(bullishDom(1000))
	eng.OnTick(ctx, fullTick(1001, 6800.0, 23000.0, 42000.0))
	eng.OnTick(ctx, fullTick(1002, 6800.0, 23010.0, 42000.0))

	if len(obs.signals) != 1 {
		t.Fatalf("signals = %d, want 1", len(obs.signals))
	}
	sig := obs.signals[0]
	if sig.Side != domain.SideBuy || sig.Price != 6800.00 {
		t.Errorf("signal %+v does not match the emitted entry", sig)
	}
	if sig.SpreadTicks <= 2.0 {
		t.Errorf("spread ticks = %v, should exceed the threshold", sig.SpreadTicks)
	}
	if sig.OBI <= 0.1 {
		t.Errorf("OBI = %v, should have passed the long gate", sig.OBI)
	}
	if sig.QueueSize != 200 {
		t.Errorf("queue size = %v, want best-bid volume 200", sig.QueueSize)
	}
}

// Property: no interleaving of tick/DOM/trade events ever produces a second
// entry while one is active.
func TestSingleEntryInvariantFuzzed(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	for run := 0; run < 20; run++ {
		sink := &captureSink{}
		eng, clock := newEngine(t, sink)

		ts := quant.TimeStamp(1000)
		aux1 := 23000.0
		for i := 0; i < 500; i++ {
			ts += quant.TimeStamp(rng.Intn(200))
			clock.advance(time.Duration(rng.Intn(500)) * time.Millisecond)

			switch rng.Intn(4) {
			case 0:
				aux1 += float64(rng.Intn(21) - 10)
				eng.OnTick(ctx, fullTick(ts, 6800.0, aux1, 42000.0))
			case 1:
				eng.OnDom(bullishDom(ts))
			case 2:
				side := "BUY"
				if rng.Intn(2) == 0 {
					side = "SELL"
				}
				eng.OnTrade(event.TradeEvent{
					BaseEvent: event.BaseEvent{Ts: ts},
					Price:     6800.25,
					Volume:    float64(rng.Intn(400)),
					Side:      side,
				})
			case 3:
				eng.OnTick(ctx, event.TickEvent{
					BaseEvent: event.BaseEvent{Ts: ts},
					Primary:   6800.0,
				})
			}
		}

		// Walk the command stream: an entry is legal only when no entry is
		// outstanding, a cancel only for the outstanding id.
		active := ""
		for i, cmd := range sink.cmds {
			if cmd.IsCancel {
				if cmd.ClientOrderID != active {
					t.Fatalf("run %d cmd %d: cancel for %q while active is %q", run, i, cmd.ClientOrderID, active)
				}
				active = ""
				continue
			}
			if active != "" {
				t.Fatalf("run %d cmd %d: second entry emitted while %q active", run, i, active)
			}
			active = cmd.ClientOrderID
		}
	}
}
