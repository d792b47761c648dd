package domain

import "maker_go/pkg/quant"

// Side is the order direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType is the order pricing mode. The maker only places LIMIT entries;
// MARKET exists for emergency flatten paths owned by the execution layer.
type OrderType string

const (
	TypeLimit  OrderType = "LIMIT"
	TypeMarket OrderType = "MARKET"
)

// OrderCommand is the engine's output instruction. The engine does not know
// about accounts or venue APIs; the execution collaborator owns real order-id
// assignment, submission and acknowledgements.
type OrderCommand struct {
	// IsCancel selects between "place new order" and "cancel existing".
	IsCancel bool

	// ClientOrderID identifies the order to cancel, or carries the engine's
	// local id for a new entry.
	ClientOrderID string

	// Fields below are set only for new entries.
	Side      Side
	OrderType OrderType
	Price     float64
	Quantity  int64

	// Reason is a free-text debugging tag.
	Reason string
}

// PositionState tracks the single outstanding entry an engine instance may
// have. There is no fill-acknowledgement channel yet: the state is created on
// order emission and cleared only by the timeout cancel.
type PositionState struct {
	ActiveOrderID string
	EntryPrice    float64
	EntryTime     quant.TimeStamp
	Side          Side
}

// Active reports whether an entry order is outstanding.
func (p PositionState) Active() bool {
	return p.ActiveOrderID != ""
}
