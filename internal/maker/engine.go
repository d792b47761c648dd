// Package maker contains the decision engine: it fuses the pricing model,
// book imbalance, iceberg map and regime breaker into at most one resting
// entry order at a time.
package maker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"maker_go/internal/book"
	"maker_go/internal/domain"
	"maker_go/internal/event"
	"maker_go/internal/execution"
	"maker_go/internal/iceberg"
	"maker_go/internal/pricing"
	"maker_go/internal/regime"
	"maker_go/pkg/quant"
	"maker_go/pkg/safe"
)

// Config holds the engine-level knobs.
type Config struct {
	// SpreadThreshold is the entry trigger in tick units.
	SpreadThreshold float64 `yaml:"spread_threshold"`

	// MinOBILong / MinOBIShort gate directional agreement with the visible
	// book: longs need OBI > MinOBILong, shorts need OBI < -MinOBIShort.
	MinOBILong  float64 `yaml:"min_obi_long"`
	MinOBIShort float64 `yaml:"min_obi_short"`

	// MaxQueueSize rejects entries that would join a deep best-level queue;
	// fill probability before the price moves away is too low there.
	MaxQueueSize float64 `yaml:"max_queue_size"`

	// MaxWaitSeconds cancels a resting entry that has not filled.
	MaxWaitSeconds float64 `yaml:"max_wait_seconds"`

	// TickSize of the primary instrument.
	TickSize float64 `yaml:"tick_size"`

	// Quantity per entry order.
	Quantity int64 `yaml:"quantity"`
}

// DefaultConfig returns the standard engine parameters.
func DefaultConfig() Config {
	return Config{
		SpreadThreshold: 2.0,
		MinOBILong:      0.1,
		MinOBIShort:     0.1,
		MaxQueueSize:    300,
		MaxWaitSeconds:  10.0,
		TickSize:        0.25,
		Quantity:        1,
	}
}

// SignalObserver consumes the deciding context of every emitted entry.
// Pure output; the engine never reads anything back from it.
type SignalObserver interface {
	OnSignal(sig domain.SignalContext)
}

// Snapshot is the externally queryable engine state.
type Snapshot struct {
	Fair        float64
	HasFair     bool
	Spread      float64
	SpreadTicks float64
	HasSpread   bool
	Position    domain.PositionState
	VolRatio    float64
	Safe        bool
}

// Engine is the single-position market-making decision engine. All event
// entry points run on the sequencer thread; the mutex exists only for
// external snapshot reads.
type Engine struct {
	cfg Config

	model    pricing.Model
	obiCalc  *book.Calculator
	icebergs *iceberg.Detector
	monitor  *regime.Monitor
	sink     execution.Sink
	observer SignalObserver

	position domain.PositionState

	// lastDom points at domCopy. The copy owns its level slices because
	// inbound snapshots may come from a pool and be recycled after dispatch.
	lastDom *event.DomSnapshot
	domCopy event.DomSnapshot

	lastFair        float64
	hasFair         bool
	lastSpread      float64
	lastSpreadTicks float64
	hasSpread       bool

	now func() time.Time

	mu sync.RWMutex
}

// NewEngine wires the decision pipeline. Panics on invalid configuration;
// model, calculator, detector, monitor and sink are required.
func NewEngine(
	cfg Config,
	model pricing.Model,
	obiCalc *book.Calculator,
	detector *iceberg.Detector,
	monitor *regime.Monitor,
	sink execution.Sink,
) *Engine {
	if cfg.TickSize <= 0 {
		panic(fmt.Sprintf("maker: tick size must be positive, got %v", cfg.TickSize))
	}
	if cfg.Quantity <= 0 {
		panic(fmt.Sprintf("maker: quantity must be positive, got %d", cfg.Quantity))
	}
	if model == nil || obiCalc == nil || detector == nil || monitor == nil || sink == nil {
		panic("maker: all collaborators are required")
	}
	return &Engine{
		cfg:      cfg,
		model:    model,
		obiCalc:  obiCalc,
		icebergs: detector,
		monitor:  monitor,
		sink:     sink,
		now:      time.Now,
	}
}

// SetObserver attaches an optional outcome-measurement consumer.
func (e *Engine) SetObserver(obs SignalObserver) {
	e.observer = obs
}

// SetClock overrides the wall clock. Test hook.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// OnDom stores the snapshot and forwards it to iceberg quote tracking.
func (e *Engine) OnDom(dom event.DomSnapshot) {
	e.mu.Lock()
	e.domCopy.BaseEvent = dom.BaseEvent
	e.domCopy.BestBid = dom.BestBid
	e.domCopy.BestAsk = dom.BestAsk
	e.domCopy.Bids = append(e.domCopy.Bids[:0], dom.Bids...)
	e.domCopy.Asks = append(e.domCopy.Asks[:0], dom.Asks...)
	e.lastDom = &e.domCopy
	e.mu.Unlock()
	e.icebergs.OnDom(dom)
}

// OnTrade forwards an execution print to the iceberg trade buffer.
func (e *Engine) OnTrade(tr event.TradeEvent) {
	e.icebergs.OnTrade(tr)
}

// OnTick is the decision entry point: model update, pending-order
// management, signal generation, layered filters, order emission.
func (e *Engine) OnTick(ctx context.Context, tick event.TickEvent) {
	if tick.Risk != nil {
		e.monitor.OnTick(*tick.Risk)
	}

	fair, spread, ok := e.model.Update(tick)

	e.mu.Lock()
	e.lastFair, e.hasFair = e.model.LastFair()
	e.lastSpread = spread
	e.hasSpread = ok
	if ok {
		e.lastSpreadTicks = quant.SpreadTicks(spread, e.cfg.TickSize)
	}
	e.mu.Unlock()

	e.manageActiveOrder(ctx)

	// One outstanding entry, ever. A second signal while pending is simply
	// ignored, not an error.
	if e.position.Active() {
		return
	}
	if !ok || !safe.Finite(fair) || !safe.Finite(spread) {
		return
	}

	spreadTicks := quant.SpreadTicks(spread, e.cfg.TickSize)
	threshold := e.dynamicThreshold()
	wantLong := spreadTicks > threshold
	wantShort := spreadTicks < -threshold
	if !wantLong && !wantShort {
		return
	}

	obi, pass := e.passFilters(tick, wantLong)
	if !pass {
		return
	}

	e.mu.RLock()
	dom := e.lastDom
	e.mu.RUnlock()
	if dom == nil {
		return
	}

	side := domain.SideBuy
	if wantShort {
		side = domain.SideSell
	}
	e.maybePlaceLimit(ctx, side, *dom, domain.SignalContext{
		Side:        side,
		FairPrice:   fair,
		Spread:      spread,
		SpreadTicks: spreadTicks,
		OBI:         obi,
		VolRatio:    e.monitor.VolRatio(),
	})
}

// dynamicThreshold is the seam for future volatility-adaptive thresholds.
// Currently static.
func (e *Engine) dynamicThreshold() float64 {
	return e.cfg.SpreadThreshold
}

// passFilters runs the layered gate in fixed order: regime first (cheapest,
// hardest risk stop), then iceberg, then OBI. Returns the computed OBI for
// the signal context.
func (e *Engine) passFilters(tick event.TickEvent, wantLong bool) (float64, bool) {
	if !e.monitor.CheckSafety() {
		return 0, false
	}

	e.mu.RLock()
	dom := e.lastDom
	e.mu.RUnlock()
	if dom == nil {
		return 0, false
	}

	direction := 1
	if !wantLong {
		direction = -1
	}
	if e.icebergs.Blocks(tick.Primary, direction, 0) {
		return 0, false
	}

	obi := e.obiCalc.Calculate(*dom)
	if wantLong && obi < e.cfg.MinOBILong {
		return obi, false
	}
	if !wantLong && obi > -e.cfg.MinOBIShort {
		return obi, false
	}
	return obi, true
}

// estimateQueueSize approximates the entry-side queue with the best-level
// aggregate volume. A weak substitute for MBO queue position, but the only
// thing an aggregated feed offers.
func (e *Engine) estimateQueueSize(side domain.Side, dom event.DomSnapshot) float64 {
	if side == domain.SideBuy && len(dom.Bids) > 0 {
		return safe.NonNeg(dom.Bids[0].Volume)
	}
	if side == domain.SideSell && len(dom.Asks) > 0 {
		return safe.NonNeg(dom.Asks[0].Volume)
	}
	return 0
}

func (e *Engine) maybePlaceLimit(ctx context.Context, side domain.Side, dom event.DomSnapshot, sig domain.SignalContext) {
	queueSize := e.estimateQueueSize(side, dom)
	if queueSize > e.cfg.MaxQueueSize {
		return
	}

	price := dom.BestBid
	reason := "maker_entry_buy"
	if side == domain.SideSell {
		price = dom.BestAsk
		reason = "maker_entry_sell"
	}

	nowMs := quant.TimeStamp(e.now().UnixMilli())
	clientID := fmt.Sprintf("local_%d", nowMs)

	cmd := domain.OrderCommand{
		ClientOrderID: clientID,
		Side:          side,
		OrderType:     domain.TypeLimit,
		Price:         price,
		Quantity:      e.cfg.Quantity,
		Reason:        reason,
	}

	if err := e.sink.Submit(ctx, cmd); err != nil {
		slog.Warn("order submission failed", slog.String("id", clientID), slog.Any("error", err))
		return
	}

	e.mu.Lock()
	e.position = domain.PositionState{
		ActiveOrderID: clientID,
		EntryPrice:    price,
		EntryTime:     nowMs,
		Side:          side,
	}
	e.mu.Unlock()

	if e.observer != nil {
		sig.Ts = nowMs
		sig.Price = price
		sig.QueueSize = queueSize
		e.observer.OnSignal(sig)
	}
}

// manageActiveOrder handles the resting entry: past MaxWaitSeconds without a
// fill it is canceled and the position cleared. Spread-reversal and
// queue-collapse pre-emptive cancels are named future hooks, deliberately
// not implemented.
func (e *Engine) manageActiveOrder(ctx context.Context) {
	if !e.position.Active() {
		return
	}

	nowMs := quant.TimeStamp(e.now().UnixMilli())
	elapsed := e.position.EntryTime.SecondsSince(nowMs)
	if elapsed <= e.cfg.MaxWaitSeconds {
		return
	}

	cancel := domain.OrderCommand{
		IsCancel:      true,
		ClientOrderID: e.position.ActiveOrderID,
		Reason:        "timeout_cancel",
	}
	if err := e.sink.Submit(ctx, cancel); err != nil {
		slog.Warn("cancel submission failed",
			slog.String("id", e.position.ActiveOrderID), slog.Any("error", err))
	}

	e.mu.Lock()
	e.position = domain.PositionState{}
	e.mu.Unlock()
}

// GetSnapshot returns the externally visible engine state (UI/analytics
// read path).
func (e *Engine) GetSnapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		Fair:        e.lastFair,
		HasFair:     e.hasFair,
		Spread:      e.lastSpread,
		SpreadTicks: e.lastSpreadTicks,
		HasSpread:   e.hasSpread,
		Position:    e.position,
		VolRatio:    e.monitor.VolRatio(),
		Safe:        e.monitor.CheckSafety(),
	}
}
