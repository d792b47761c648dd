package infra

import (
	"time"
)

const (
	// Reconnect pacing for the feed gateway. One second doubles per attempt
	// up to a minute; a dead venue is not helped by hammering it.
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second
)

// CalculateBackoff returns the delay before reconnect attempt retryCount:
// baseDelay * 2^retryCount, capped at maxDelay. Negative counts get the
// base delay.
func CalculateBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		return baseDelay
	}

	// 1<<31 seconds already dwarfs maxDelay; cap before the shift can
	// overflow.
	if retryCount > 30 {
		return maxDelay
	}

	backoff := baseDelay * time.Duration(1<<retryCount)
	if backoff > maxDelay {
		return maxDelay
	}
	return backoff
}
