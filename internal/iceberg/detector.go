// Package iceberg infers hidden resting liquidity from the gap between
// executed volume and displayed size at the touch.
package iceberg

import (
	"math"

	"maker_go/internal/event"
	"maker_go/pkg/quant"
)

// Config holds the detection knobs.
type Config struct {
	// MinHiddenSize is the smallest excess volume worth recording.
	MinHiddenSize float64 `yaml:"min_hidden_size"`

	// PriceTolerance matches a trade print against the touch price. Feeds
	// occasionally report the print a fraction off the quoted level.
	PriceTolerance float64 `yaml:"price_tolerance"`

	// DecaySeconds is how long a detection stays relevant without being
	// re-confirmed.
	DecaySeconds float64 `yaml:"decay_seconds"`

	// CheckRangeTicks is the default query range around the current price.
	CheckRangeTicks int `yaml:"check_range_ticks"`

	// SignificanceThreshold is the hidden volume above which a level is
	// treated as a hard block by the pass/fail query.
	SignificanceThreshold float64 `yaml:"significance_threshold"`

	// TickSize converts the query range into price distance.
	TickSize float64 `yaml:"tick_size"`
}

// DefaultConfig returns the standard detection parameters.
func DefaultConfig() Config {
	return Config{
		MinHiddenSize:         10,
		PriceTolerance:        0.01,
		DecaySeconds:          60.0,
		CheckRangeTicks:       5,
		SignificanceThreshold: 200,
		TickSize:              0.25,
	}
}

type quoteState struct {
	bestBidPrice float64
	bestBidSize  float64
	bestAskPrice float64
	bestAskSize  float64
	ts           quant.TimeStamp
}

type bufferedTrade struct {
	price  float64
	volume float64
	side   string
}

type aggKey struct {
	price float64
	side  string
}

// Detector reconciles trade prints against the displayed touch and keeps a
// decaying map of detected hidden volume. Positive entries are ask-side
// (resistance), negative entries bid-side (support).
//
// Single-consumer: all methods are called from the engine thread.
type Detector struct {
	cfg Config

	quote    *quoteState
	hidden   map[float64]float64
	lastSeen map[float64]quant.TimeStamp

	// Same-millisecond prints are fragments of one execution; they are
	// buffered per arrival timestamp and aggregated on flush.
	buffer      []bufferedTrade
	lastTradeTs quant.TimeStamp
	hasBuffered bool
}

// NewDetector creates an empty detector.
func NewDetector(cfg Config) *Detector {
	return &Detector{
		cfg:      cfg,
		hidden:   make(map[float64]float64),
		lastSeen: make(map[float64]quant.TimeStamp),
	}
}

// Reset clears all detector state.
func (d *Detector) Reset() {
	d.quote = nil
	d.hidden = make(map[float64]float64)
	d.lastSeen = make(map[float64]quant.TimeStamp)
	d.buffer = d.buffer[:0]
	d.hasBuffered = false
	d.lastTradeTs = 0
}

// OnDom tracks the current touch. Buffered trades are flushed against the
// quote they arrived under before it is replaced, then stale detections are
// evicted.
func (d *Detector) OnDom(dom event.DomSnapshot) {
	d.FlushTrades()

	if len(dom.Bids) == 0 || len(dom.Asks) == 0 {
		return
	}

	d.quote = &quoteState{
		bestBidPrice: dom.BestBid,
		bestBidSize:  dom.Bids[0].Volume,
		bestAskPrice: dom.BestAsk,
		bestAskSize:  dom.Asks[0].Volume,
		ts:           dom.Ts,
	}

	d.evictExpired(dom.Ts)
}

// OnTrade buffers one print. A print with a newer timestamp flushes the
// previous window first.
func (d *Detector) OnTrade(tr event.TradeEvent) {
	if d.hasBuffered && tr.Ts > d.lastTradeTs {
		d.FlushTrades()
	}
	d.buffer = append(d.buffer, bufferedTrade{price: tr.Price, volume: tr.Volume, side: tr.Side})
	d.lastTradeTs = tr.Ts
	d.hasBuffered = true
}

// FlushTrades aggregates and detects everything currently buffered.
func (d *Detector) FlushTrades() {
	if !d.hasBuffered {
		return
	}
	if d.quote == nil {
		d.buffer = d.buffer[:0]
		d.hasBuffered = false
		return
	}

	agg := make(map[aggKey]float64, len(d.buffer))
	for _, tr := range d.buffer {
		agg[aggKey{price: tr.price, side: tr.side}] += tr.volume
	}
	for k, vol := range agg {
		d.detect(k.price, vol, k.side)
	}

	d.buffer = d.buffer[:0]
	d.hasBuffered = false
}

func (d *Detector) detect(price, volume float64, side string) {
	q := d.quote

	switch side {
	case "BUY", "B":
		if math.Abs(price-q.bestAskPrice) >= d.cfg.PriceTolerance {
			return
		}
		if q.bestAskSize <= 0 || volume < q.bestAskSize {
			return
		}
		hidden := volume - q.bestAskSize
		if hidden >= d.cfg.MinHiddenSize {
			d.record(price, hidden, q.ts)
		}
	case "SELL", "S":
		if math.Abs(price-q.bestBidPrice) >= d.cfg.PriceTolerance {
			return
		}
		if q.bestBidSize <= 0 || volume < q.bestBidSize {
			return
		}
		hidden := volume - q.bestBidSize
		if hidden >= d.cfg.MinHiddenSize {
			d.record(price, -hidden, q.ts)
		}
	}
}

// record merges a detection into the map. Same-direction repeats accumulate;
// a direction conflict keeps whichever magnitude is larger, not the newer.
func (d *Detector) record(price, hiddenVol float64, ts quant.TimeStamp) {
	if existing, ok := d.hidden[price]; ok {
		sameDir := (existing > 0) == (hiddenVol > 0)
		if sameDir {
			d.hidden[price] = existing + hiddenVol
		} else if math.Abs(hiddenVol) > math.Abs(existing) {
			d.hidden[price] = hiddenVol
		}
	} else {
		d.hidden[price] = hiddenVol
	}
	d.lastSeen[price] = ts
}

func (d *Detector) evictExpired(now quant.TimeStamp) {
	decayMs := quant.TimeStamp(d.cfg.DecaySeconds * 1000)
	for price, seen := range d.lastSeen {
		if now-seen > decayMs {
			delete(d.hidden, price)
			delete(d.lastSeen, price)
		}
	}
}

// Resistance sums ask-side hidden volume within rangeTicks above price.
// rangeTicks <= 0 uses the configured default.
func (d *Detector) Resistance(price float64, rangeTicks int) float64 {
	if rangeTicks <= 0 {
		rangeTicks = d.cfg.CheckRangeTicks
	}
	total := 0.0
	for i := 1; i <= rangeTicks; i++ {
		check := price + float64(i)*d.cfg.TickSize
		for p, vol := range d.hidden {
			if vol > 0 && math.Abs(p-check) < d.cfg.PriceTolerance {
				total += vol
			}
		}
	}
	return total
}

// Support sums the magnitude of bid-side hidden volume within rangeTicks
// below price.
func (d *Detector) Support(price float64, rangeTicks int) float64 {
	if rangeTicks <= 0 {
		rangeTicks = d.cfg.CheckRangeTicks
	}
	total := 0.0
	for i := 1; i <= rangeTicks; i++ {
		check := price - float64(i)*d.cfg.TickSize
		for p, vol := range d.hidden {
			if vol < 0 && math.Abs(p-check) < d.cfg.PriceTolerance {
				total += -vol
			}
		}
	}
	return total
}

// Blocks reports whether the intended direction runs into significant hidden
// liquidity: direction > 0 checks resistance above, direction < 0 checks
// support below.
func (d *Detector) Blocks(price float64, direction, rangeTicks int) bool {
	if direction > 0 {
		return d.Resistance(price, rangeTicks) > d.cfg.SignificanceThreshold
	}
	return d.Support(price, rangeTicks) > d.cfg.SignificanceThreshold
}

// Map returns a copy of the hidden-volume map for diagnostics.
func (d *Detector) Map() map[float64]float64 {
	out := make(map[float64]float64, len(d.hidden))
	for p, v := range d.hidden {
		out[p] = v
	}
	return out
}
