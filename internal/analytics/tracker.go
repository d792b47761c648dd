// Package analytics measures what happened after each emitted signal.
// It observes the decision stream without feeding anything back into it.
package analytics

import (
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"maker_go/internal/domain"
	"maker_go/internal/event"
)

// Config controls outcome measurement.
type Config struct {
	// HorizonSeconds is how long each signal is tracked after emission.
	HorizonSeconds float64 `yaml:"horizon_seconds"`

	// TickSize converts price excursions into tick units.
	TickSize float64 `yaml:"tick_size"`
}

// DefaultConfig returns the standard tracking parameters.
func DefaultConfig() Config {
	return Config{
		HorizonSeconds: 30.0,
		TickSize:       0.25,
	}
}

// Outcome is one completed signal measurement. Excursions are in ticks,
// signed so that positive always means favorable for the signal's side.
type Outcome struct {
	Signal domain.SignalContext
	MFE    float64
	MAE    float64
}

type openSignal struct {
	sig domain.SignalContext
	mfe float64
	mae float64
}

// Tracker follows each signal for a fixed horizon and records its maximum
// favorable and adverse excursions. Implements maker.SignalObserver.
type Tracker struct {
	cfg Config

	mu     sync.Mutex
	open   []*openSignal
	closed []Outcome
}

// NewTracker creates a tracker. Panics on non-positive horizon or tick size.
func NewTracker(cfg Config) *Tracker {
	if cfg.HorizonSeconds <= 0 {
		panic("analytics: horizon must be positive")
	}
	if cfg.TickSize <= 0 {
		panic("analytics: tick size must be positive")
	}
	return &Tracker{cfg: cfg}
}

// OnSignal starts tracking a freshly emitted signal.
func (t *Tracker) OnSignal(sig domain.SignalContext) {
	t.mu.Lock()
	t.open = append(t.open, &openSignal{sig: sig})
	t.mu.Unlock()

	slog.Debug("tracking signal",
		slog.String("side", string(sig.Side)),
		slog.Float64("price", sig.Price),
		slog.Float64("spread_ticks", sig.SpreadTicks))
}

// OnTick updates excursions for every open signal and closes those whose
// horizon has elapsed.
func (t *Tracker) OnTick(tick event.TickEvent) {
	if tick.Primary <= 0 {
		return
	}
	now := tick.Ts

	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.open[:0]
	for _, os := range t.open {
		excursion := (tick.Primary - os.sig.Price) / t.cfg.TickSize
		if os.sig.Side == domain.SideSell {
			excursion = -excursion
		}
		if excursion > os.mfe {
			os.mfe = excursion
		}
		if excursion < os.mae {
			os.mae = excursion
		}

		if os.sig.Ts.SecondsSince(now) >= t.cfg.HorizonSeconds {
			t.closed = append(t.closed, Outcome{Signal: os.sig, MFE: os.mfe, MAE: os.mae})
			continue
		}
		kept = append(kept, os)
	}
	t.open = kept
}

// Outcomes returns a copy of all completed measurements.
func (t *Tracker) Outcomes() []Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Outcome, len(t.closed))
	copy(out, t.closed)
	return out
}

// OpenCount returns the number of signals still inside their horizon.
func (t *Tracker) OpenCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// Report is the aggregate quality summary of all closed signals.
type Report struct {
	Count   int
	AvgMFE  decimal.Decimal
	AvgMAE  decimal.Decimal
	WinRate decimal.Decimal
}

// Summarize aggregates the closed outcomes. Decimal arithmetic keeps the
// reported averages exact regardless of sample count.
func (t *Tracker) Summarize() Report {
	outcomes := t.Outcomes()
	if len(outcomes) == 0 {
		return Report{}
	}

	sumMFE := decimal.Zero
	sumMAE := decimal.Zero
	wins := 0
	for _, o := range outcomes {
		sumMFE = sumMFE.Add(decimal.NewFromFloat(o.MFE))
		sumMAE = sumMAE.Add(decimal.NewFromFloat(o.MAE))
		if o.MFE > -o.MAE {
			wins++
		}
	}

	n := decimal.NewFromInt(int64(len(outcomes)))
	return Report{
		Count:   len(outcomes),
		AvgMFE:  sumMFE.Div(n),
		AvgMAE:  sumMAE.Div(n),
		WinRate: decimal.NewFromInt(int64(wins)).Div(n),
	}
}
