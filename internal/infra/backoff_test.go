package infra

import (
	"testing"
	"time"
)

func TestCalculateBackoffDoublesToCap(t *testing.T) {
	cases := []struct {
		retry int
		want  time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second},  // 64s capped
		{10, 60 * time.Second}, // stays at the cap
		{40, 60 * time.Second}, // past the shift guard
	}

	for _, tc := range cases {
		if got := CalculateBackoff(tc.retry); got != tc.want {
			t.Errorf("CalculateBackoff(%d) = %s, want %s", tc.retry, got, tc.want)
		}
	}
}

func TestCalculateBackoffNegativeRetry(t *testing.T) {
	// A worker that resets its retry counter below zero still gets a sane
	// first delay.
	if got := CalculateBackoff(-1); got != 1*time.Second {
		t.Errorf("CalculateBackoff(-1) = %s, want 1s", got)
	}
}
