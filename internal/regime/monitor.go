// Package regime implements the volatility-ratio circuit breaker over the
// auxiliary risk-index price series.
package regime

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"maker_go/pkg/safe"
)

// Config holds the monitor knobs.
type Config struct {
	// ShortWindow is the number of 1 Hz samples in the "current" window.
	ShortWindow int `yaml:"short_window"`

	// LongWindow is the total retained history; it is also the baseline
	// window.
	LongWindow int `yaml:"long_window"`

	// AlertThreshold is the short/baseline volatility ratio above which the
	// market is unsafe.
	AlertThreshold float64 `yaml:"alert_threshold"`

	// SampleIntervalSec gates the down-sampling of the inbound tick rate.
	SampleIntervalSec float64 `yaml:"sample_interval_sec"`
}

// DefaultConfig returns the standard 1-minute vs 10-minute configuration.
func DefaultConfig() Config {
	return Config{
		ShortWindow:       60,
		LongWindow:        600,
		AlertThreshold:    3.0,
		SampleIntervalSec: 1.0,
	}
}

// Stats is a diagnostic snapshot of the monitor.
type Stats struct {
	Safe        bool
	VolRatio    float64
	ShortVol    float64
	BaselineVol float64
	Samples     int
}

// Monitor down-samples an arbitrary-rate price feed to one sample per second
// and compares short-window volatility against the retained baseline.
// Fail-open: the market reads safe until the short window is populated.
// There is deliberately no hysteresis; the flag may oscillate at the
// threshold.
//
// Single-consumer, like every component on the engine thread.
type Monitor struct {
	cfg Config

	// ring buffer of price samples, capacity LongWindow
	samples []float64
	head    int
	count   int

	lastSample  time.Time
	safeFlag    bool
	ratio       float64
	shortVol    float64
	baselineVol float64

	// scratch, reused across updates
	ordered []float64
	returns []float64

	now func() time.Time
}

// NewMonitor creates a monitor. Panics on invalid window configuration.
func NewMonitor(cfg Config) *Monitor {
	if cfg.ShortWindow < 2 {
		panic(fmt.Sprintf("regime: short window must be >= 2, got %d", cfg.ShortWindow))
	}
	if cfg.LongWindow < cfg.ShortWindow {
		panic(fmt.Sprintf("regime: long window %d smaller than short window %d",
			cfg.LongWindow, cfg.ShortWindow))
	}
	if cfg.SampleIntervalSec <= 0 {
		panic(fmt.Sprintf("regime: sample interval must be positive, got %v", cfg.SampleIntervalSec))
	}
	return &Monitor{
		cfg:      cfg,
		samples:  make([]float64, cfg.LongWindow),
		safeFlag: true,
		ratio:    1.0,
		ordered:  make([]float64, 0, cfg.LongWindow),
		returns:  make([]float64, 0, cfg.LongWindow),
		now:      time.Now,
	}
}

// SetClock overrides the wall clock. Test hook.
func (m *Monitor) SetClock(now func() time.Time) {
	m.now = now
}

// Reset clears all monitor state.
func (m *Monitor) Reset() {
	m.head = 0
	m.count = 0
	m.lastSample = time.Time{}
	m.safeFlag = true
	m.ratio = 1.0
	m.shortVol = 0
	m.baselineVol = 0
}

// OnTick feeds one risk-index price. Internally down-samples to the
// configured interval, so call rate does not matter.
func (m *Monitor) OnTick(price float64) {
	if price <= 0 || !safe.Finite(price) {
		return
	}
	now := m.now()
	interval := time.Duration(m.cfg.SampleIntervalSec * float64(time.Second))
	if !m.lastSample.IsZero() && now.Sub(m.lastSample) < interval {
		return
	}
	m.lastSample = now
	m.updateSample(price)
}

func (m *Monitor) updateSample(price float64) {
	// ring append, oldest evicted when full
	m.samples[m.head] = price
	m.head = (m.head + 1) % m.cfg.LongWindow
	if m.count < m.cfg.LongWindow {
		m.count++
	}

	if m.count < m.cfg.ShortWindow {
		m.safeFlag = true
		m.ratio = 1.0
		return
	}

	// chronological view of the ring
	m.ordered = m.ordered[:0]
	start := m.head - m.count
	if start < 0 {
		start += m.cfg.LongWindow
	}
	for i := 0; i < m.count; i++ {
		m.ordered = append(m.ordered, m.samples[(start+i)%m.cfg.LongWindow])
	}

	// log returns over the full retained window
	m.returns = m.returns[:0]
	for i := 1; i < len(m.ordered); i++ {
		m.returns = append(m.returns, math.Log(m.ordered[i]/m.ordered[i-1]))
	}
	if len(m.returns) < 2 {
		return
	}

	shortN := m.cfg.ShortWindow
	if shortN > len(m.returns) {
		shortN = len(m.returns)
	}
	shortVol := stat.StdDev(m.returns[len(m.returns)-shortN:], nil)
	baselineVol := stat.StdDev(m.returns, nil)

	if math.IsNaN(shortVol) {
		shortVol = 0
	}
	baselineVol = safe.FloorEps(baselineVol, 1e-9)

	m.shortVol = shortVol
	m.baselineVol = baselineVol
	m.ratio = shortVol / baselineVol
	m.safeFlag = m.ratio <= m.cfg.AlertThreshold
}

// CheckSafety reports whether trading is allowed.
func (m *Monitor) CheckSafety() bool {
	return m.safeFlag
}

// VolRatio returns the current short/baseline volatility ratio.
func (m *Monitor) VolRatio() float64 {
	return m.ratio
}

// GetStats returns a diagnostic snapshot.
func (m *Monitor) GetStats() Stats {
	return Stats{
		Safe:        m.safeFlag,
		VolRatio:    m.ratio,
		ShortVol:    m.shortVol,
		BaselineVol: m.baselineVol,
		Samples:     m.count,
	}
}
