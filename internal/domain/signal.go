package domain

import "maker_go/pkg/quant"

// SignalContext is a snapshot of everything the engine knew when it emitted
// an entry order. It exists purely for outcome measurement (post-signal
// MFE/MAE tracking); the engine never reads it back.
type SignalContext struct {
	Ts          quant.TimeStamp
	Side        Side
	Price       float64
	FairPrice   float64
	Spread      float64
	SpreadTicks float64
	OBI         float64
	QueueSize   float64
	VolRatio    float64
}
