package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"maker_go/internal/domain"
)

// SubmittedOrder is one command accepted by the paper venue.
type SubmittedOrder struct {
	VenueID       string
	ClientOrderID string
	Side          domain.Side
	Type          domain.OrderType
	Price         float64
	Quantity      int64
	Reason        string
	SubmittedAt   time.Time
	Canceled      bool
}

// PaperSink records commands as a virtual venue would: every entry gets a
// venue-assigned uuid, cancels mark the referenced order. There is no fill
// simulation — fill reconciliation is owned by whoever supplies the real
// execution collaborator.
type PaperSink struct {
	mu       sync.Mutex
	orders   map[string]*SubmittedOrder // keyed by client order id
	sequence []string
}

func NewPaperSink() *PaperSink {
	return &PaperSink{orders: make(map[string]*SubmittedOrder)}
}

func (p *PaperSink) Submit(ctx context.Context, cmd domain.OrderCommand) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cmd.IsCancel {
		order, ok := p.orders[cmd.ClientOrderID]
		if !ok {
			return fmt.Errorf("paper: cancel for unknown order %q", cmd.ClientOrderID)
		}
		if order.Canceled {
			return fmt.Errorf("paper: order %q already canceled", cmd.ClientOrderID)
		}
		order.Canceled = true
		slog.Info("PAPER EXECUTION: Order Canceled",
			slog.String("client_id", cmd.ClientOrderID),
			slog.String("venue_id", order.VenueID))
		return nil
	}

	if cmd.ClientOrderID == "" {
		return fmt.Errorf("paper: entry without client order id")
	}
	if _, exists := p.orders[cmd.ClientOrderID]; exists {
		return fmt.Errorf("paper: duplicate client order id %q", cmd.ClientOrderID)
	}

	order := &SubmittedOrder{
		VenueID:       uuid.NewString(),
		ClientOrderID: cmd.ClientOrderID,
		Side:          cmd.Side,
		Type:          cmd.OrderType,
		Price:         cmd.Price,
		Quantity:      cmd.Quantity,
		Reason:        cmd.Reason,
		SubmittedAt:   time.Now(),
	}
	p.orders[cmd.ClientOrderID] = order
	p.sequence = append(p.sequence, cmd.ClientOrderID)

	slog.Info("PAPER EXECUTION: Order Accepted",
		slog.String("client_id", order.ClientOrderID),
		slog.String("venue_id", order.VenueID),
		slog.String("side", string(order.Side)),
		slog.Float64("price", order.Price),
		slog.Int64("qty", order.Quantity))
	return nil
}

// Orders returns all accepted orders in submission sequence.
func (p *PaperSink) Orders() []SubmittedOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SubmittedOrder, 0, len(p.sequence))
	for _, id := range p.sequence {
		out = append(out, *p.orders[id])
	}
	return out
}

// OpenCount returns the number of accepted orders not yet canceled.
func (p *PaperSink) OpenCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, o := range p.orders {
		if !o.Canceled {
			n++
		}
	}
	return n
}
