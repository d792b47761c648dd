package regime_test

import (
	"testing"
	"time"

	"maker_go/internal/regime"
)

// fakeClock advances one second per tick, matching the 1 Hz sampler.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) step() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newMonitor(t *testing.T, short, long int) (*regime.Monitor, *fakeClock) {
	t.Helper()
	cfg := regime.DefaultConfig()
	cfg.ShortWindow = short
	cfg.LongWindow = long
	m := regime.NewMonitor(cfg)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m.SetClock(clock.step)
	return m, clock
}

func TestSafeDuringWarmup(t *testing.T) {
	m, _ := newMonitor(t, 5, 60)

	for i := 0; i < 4; i++ {
		m.OnTick(100.0)
		if !m.CheckSafety() {
			t.Fatal("monitor must fail open during warm-up")
		}
		if m.VolRatio() != 1.0 {
			t.Fatalf("warm-up ratio = %v, want 1.0", m.VolRatio())
		}
	}
}

func TestVolatilitySpikeFlipsUnsafeAndRecovers(t *testing.T) {
	m, _ := newMonitor(t, 5, 60)

	// Quiet baseline: constant price, zero returns.
	for i := 0; i < 54; i++ {
		m.OnTick(100.0)
	}
	if !m.CheckSafety() {
		t.Fatal("quiet market must be safe")
	}

	// Spike: the last five returns are huge relative to the retained
	// baseline (mostly zeros), pushing the ratio past 3x.
	prices := []float64{110, 100, 110, 100, 110}
	for _, p := range prices {
		m.OnTick(p)
	}
	if m.CheckSafety() {
		t.Fatalf("spike should flip unsafe, ratio = %v", m.VolRatio())
	}
	if m.VolRatio() <= 3.0 {
		t.Errorf("ratio = %v, want > 3.0", m.VolRatio())
	}

	// Quiet again: no hysteresis, the flag recovers as soon as the short
	// window calms down.
	for i := 0; i < 10; i++ {
		m.OnTick(110.0)
	}
	if !m.CheckSafety() {
		t.Errorf("quiet period must restore safety, ratio = %v", m.VolRatio())
	}
}

func TestDownSamplingGatesOnClock(t *testing.T) {
	cfg := regime.DefaultConfig()
	cfg.ShortWindow = 5
	cfg.LongWindow = 60
	m := regime.NewMonitor(cfg)

	// Frozen clock: everything after the first tick is inside the same
	// sampling interval and must be dropped.
	frozen := time.Unix(1_700_000_000, 0)
	m.SetClock(func() time.Time { return frozen })

	for i := 0; i < 50; i++ {
		m.OnTick(100.0 + float64(i))
	}
	if got := m.GetStats().Samples; got != 1 {
		t.Errorf("samples = %d, want 1 (down-sampled)", got)
	}
}

func TestRingEvictsOldest(t *testing.T) {
	m, _ := newMonitor(t, 3, 10)
	for i := 0; i < 25; i++ {
		m.OnTick(100.0)
	}
	if got := m.GetStats().Samples; got != 10 {
		t.Errorf("samples = %d, want capped at long window 10", got)
	}
}

func TestIgnoresNonPositivePrices(t *testing.T) {
	m, _ := newMonitor(t, 3, 10)
	m.OnTick(0)
	m.OnTick(-5)
	if got := m.GetStats().Samples; got != 0 {
		t.Errorf("samples = %d, want 0", got)
	}
}

func TestZeroBaselineDoesNotDivideByZero(t *testing.T) {
	m, _ := newMonitor(t, 3, 10)
	// Constant price: both vols are zero; ratio must be 0, not NaN.
	for i := 0; i < 8; i++ {
		m.OnTick(100.0)
	}
	if r := m.VolRatio(); r != 0 {
		t.Errorf("ratio = %v, want 0 for a flat series", r)
	}
	if !m.CheckSafety() {
		t.Error("flat series must be safe")
	}
}

func TestNewMonitorRejectsBadWindows(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when long window < short window")
		}
	}()
	regime.NewMonitor(regime.Config{ShortWindow: 60, LongWindow: 10, AlertThreshold: 3, SampleIntervalSec: 1})
}
