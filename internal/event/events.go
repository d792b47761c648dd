package event

import (
	"maker_go/pkg/quant"
)

// Type defines the type of event.
type Type uint16

const (
	EvTick Type = iota + 1
	EvTrade
	EvDom
)

// Event is the interface for all sequencer events.
type Event interface {
	GetSeq() uint64
	GetTs() quant.TimeStamp
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq uint64          `json:"seq"`
	Ts  quant.TimeStamp `json:"ts"`
}

func (e BaseEvent) GetSeq() uint64         { return e.Seq }
func (e BaseEvent) GetTs() quant.TimeStamp { return e.Ts }

// TickEvent is a normalized multi-instrument trade print.
// Primary carries the traded instrument; Aux1/Aux2 carry the correlated
// instruments used for fair-value regression and Risk carries the auxiliary
// risk-index price. Aux fields are nil when the inbound feed had no fresh
// value for that instrument on this print (last-value-wins at the consumer).
type TickEvent struct {
	BaseEvent
	Primary float64  `json:"primary"`
	Aux1    *float64 `json:"aux1,omitempty"`
	Aux2    *float64 `json:"aux2,omitempty"`
	Risk    *float64 `json:"risk,omitempty"`
}

func (e TickEvent) GetType() Type { return EvTick }

// TradeEvent is a single execution print on the primary instrument.
type TradeEvent struct {
	BaseEvent
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
	Side   string  `json:"side"` // "BUY" or "SELL" (aggressor)
}

func (e TradeEvent) GetType() Type { return EvTrade }

// Level is one aggregated depth level.
type Level struct {
	Price  float64 `json:"p"`
	Volume float64 `json:"v"`
}

// DomSnapshot is a ranked depth-of-market snapshot, best level first.
type DomSnapshot struct {
	BaseEvent
	BestBid float64 `json:"best_bid"`
	BestAsk float64 `json:"best_ask"`
	Bids    []Level `json:"bids"`
	Asks    []Level `json:"asks"`
}

func (e DomSnapshot) GetType() Type { return EvDom }

// Mid returns the snapshot midpoint price.
func (e DomSnapshot) Mid() float64 {
	return (e.BestBid + e.BestAsk) / 2.0
}
