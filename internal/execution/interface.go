package execution

import (
	"context"

	"maker_go/internal/domain"
)

// Sink receives order commands from the decision engine. Implementations own
// venue submission, real order-id assignment and acknowledgement handling;
// the engine itself never learns about fills (there is currently no inbound
// fill channel — position state clears only via timeout cancel).
type Sink interface {
	Submit(ctx context.Context, cmd domain.OrderCommand) error
}
