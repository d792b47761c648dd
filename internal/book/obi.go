// Package book computes visible-book pressure metrics from depth snapshots.
package book

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"maker_go/internal/event"
	"maker_go/pkg/safe"
)

// OBIConfig holds the imbalance knobs.
type OBIConfig struct {
	// Depth is how many levels per side enter the weighted sum. The first
	// few levels carry real resting interest; deep levels are mostly noise.
	Depth int `yaml:"depth"`

	// Decay is the exponential weight falloff per level.
	// 0.5 -> weights 1.00, 0.61, 0.37, ...
	Decay float64 `yaml:"decay"`
}

// DefaultOBIConfig returns the standard configuration.
func DefaultOBIConfig() OBIConfig {
	return OBIConfig{Depth: 10, Decay: 0.5}
}

// Calculator computes weighted order-book imbalance in [-1, 1].
// Weights are precomputed once; Calculate itself is allocation-free.
type Calculator struct {
	cfg     OBIConfig
	weights []float64

	// scratch buffers reused across calls (single-consumer hotpath)
	bidVols []float64
	askVols []float64
}

// NewCalculator precomputes the level weights. Panics on a non-positive
// depth or negative decay: that is caller misuse, not a runtime condition.
func NewCalculator(cfg OBIConfig) *Calculator {
	if cfg.Depth <= 0 {
		panic(fmt.Sprintf("book: depth must be positive, got %d", cfg.Depth))
	}
	if cfg.Decay < 0 {
		panic(fmt.Sprintf("book: decay must be non-negative, got %v", cfg.Decay))
	}
	w := make([]float64, cfg.Depth)
	for i := range w {
		w[i] = math.Exp(-cfg.Decay * float64(i))
	}
	return &Calculator{
		cfg:     cfg,
		weights: w,
		bidVols: make([]float64, cfg.Depth),
		askVols: make([]float64, cfg.Depth),
	}
}

// Calculate returns the weighted imbalance of the snapshot.
// Returns 0.0 on an empty side or zero weighted volume.
func (c *Calculator) Calculate(dom event.DomSnapshot) float64 {
	obi, _, _ := c.CalculateDetailed(dom)
	return obi
}

// CalculateDetailed also returns the weighted bid/ask volumes for
// diagnostics and outcome measurement.
func (c *Calculator) CalculateDetailed(dom event.DomSnapshot) (obi, weightedBid, weightedAsk float64) {
	depth := c.cfg.Depth
	if len(dom.Bids) < depth {
		depth = len(dom.Bids)
	}
	if len(dom.Asks) < depth {
		depth = len(dom.Asks)
	}
	if depth <= 0 {
		return 0, 0, 0
	}

	for i := 0; i < depth; i++ {
		c.bidVols[i] = safe.NonNeg(dom.Bids[i].Volume)
		c.askVols[i] = safe.NonNeg(dom.Asks[i].Volume)
	}

	w := c.weights[:depth]
	weightedBid = floats.Dot(c.bidVols[:depth], w)
	weightedAsk = floats.Dot(c.askVols[:depth], w)

	total := weightedBid + weightedAsk
	if total <= 0 {
		return 0, 0, 0
	}
	return (weightedBid - weightedAsk) / total, weightedBid, weightedAsk
}

// SimpleOBI is the unweighted whole-book variant, for degraded or low-depth
// feeds where per-level weighting adds nothing.
func SimpleOBI(bids, asks []event.Level) float64 {
	var bid, ask float64
	for _, l := range bids {
		bid += safe.NonNeg(l.Volume)
	}
	for _, l := range asks {
		ask += safe.NonNeg(l.Volume)
	}
	total := bid + ask
	if total <= 0 {
		return 0
	}
	return (bid - ask) / total
}
