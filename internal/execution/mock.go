package execution

import (
	"context"
	"log/slog"

	"maker_go/internal/domain"
)

// MockSink is a safe implementation that only logs commands.
type MockSink struct{}

func NewMockSink() *MockSink {
	return &MockSink{}
}

func (m *MockSink) Submit(ctx context.Context, cmd domain.OrderCommand) error {
	if cmd.IsCancel {
		slog.Info("MOCK EXECUTION: Cancel Order",
			slog.String("id", cmd.ClientOrderID),
			slog.String("reason", cmd.Reason))
		return nil
	}
	slog.Info("MOCK EXECUTION: Submit Order",
		slog.String("id", cmd.ClientOrderID),
		slog.String("side", string(cmd.Side)),
		slog.String("type", string(cmd.OrderType)),
		slog.Float64("price", cmd.Price),
		slog.Int64("qty", cmd.Quantity),
		slog.String("reason", cmd.Reason))
	return nil
}
