package safe

import (
	"math"
	"testing"
)

func TestNonNeg(t *testing.T) {
	if NonNeg(-5.0) != 0 {
		t.Error("negative input must clamp to 0")
	}
	if NonNeg(3.5) != 3.5 {
		t.Error("positive input must pass through")
	}
	if NonNeg(0) != 0 {
		t.Error("zero must pass through")
	}
}

func TestFloorEps(t *testing.T) {
	if FloorEps(0, 1e-9) != 1e-9 {
		t.Error("zero must floor to eps")
	}
	if FloorEps(math.NaN(), 1e-9) != 1e-9 {
		t.Error("NaN must floor to eps")
	}
	if FloorEps(0.5, 1e-9) != 0.5 {
		t.Error("value above eps must pass through")
	}
}

func TestFinite(t *testing.T) {
	if Finite(math.NaN()) || Finite(math.Inf(1)) || Finite(math.Inf(-1)) {
		t.Error("NaN/Inf must not be finite")
	}
	if !Finite(0) || !Finite(-123.456) {
		t.Error("ordinary values must be finite")
	}
}

func FuzzFloorEps(f *testing.F) {
	f.Add(0.0, 1e-9)
	f.Add(-1.0, 1e-6)
	f.Add(math.MaxFloat64, 1e-12)
	f.Fuzz(func(t *testing.T, v, eps float64) {
		if eps <= 0 || math.IsNaN(eps) || math.IsInf(eps, 0) {
			t.Skip()
		}
		got := FloorEps(v, eps)
		if got < eps {
			t.Errorf("FloorEps(%v, %v) = %v, below eps", v, eps, got)
		}
	})
}
