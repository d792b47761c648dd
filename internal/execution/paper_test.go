package execution_test

import (
	"context"
	"testing"

	"maker_go/internal/domain"
	"maker_go/internal/execution"
)

func TestPaperSinkSubmitAndCancel(t *testing.T) {
	sink := execution.NewPaperSink()
	ctx := context.Background()

	cmd := domain.OrderCommand{
		ClientOrderID: "local_1",
		Side:          domain.SideBuy,
		OrderType:     domain.TypeLimit,
		Price:         6800.0,
		Quantity:      1,
		Reason:        "maker_entry_buy",
	}
	if err := sink.Submit(ctx, cmd); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	orders := sink.Orders()
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	if orders[0].VenueID == "" {
		t.Error("venue id should be assigned")
	}
	if sink.OpenCount() != 1 {
		t.Error("order should be open")
	}

	cancel := domain.OrderCommand{IsCancel: true, ClientOrderID: "local_1", Reason: "timeout_cancel"}
	if err := sink.Submit(ctx, cancel); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if sink.OpenCount() != 0 {
		t.Error("order should be canceled")
	}

	// Double cancel is a venue error.
	if err := sink.Submit(ctx, cancel); err == nil {
		t.Error("expected error on double cancel")
	}
}

func TestPaperSinkRejectsBadCommands(t *testing.T) {
	sink := execution.NewPaperSink()
	ctx := context.Background()

	if err := sink.Submit(ctx, domain.OrderCommand{IsCancel: true, ClientOrderID: "ghost"}); err == nil {
		t.Error("expected error canceling unknown order")
	}
	if err := sink.Submit(ctx, domain.OrderCommand{Side: domain.SideBuy}); err == nil {
		t.Error("expected error for entry without client id")
	}

	cmd := domain.OrderCommand{ClientOrderID: "dup", Side: domain.SideSell, OrderType: domain.TypeLimit, Price: 1, Quantity: 1}
	if err := sink.Submit(ctx, cmd); err != nil {
		t.Fatal(err)
	}
	if err := sink.Submit(ctx, cmd); err == nil {
		t.Error("expected error for duplicate client id")
	}
}
