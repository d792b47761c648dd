package pricing

import (
	"gonum.org/v1/gonum/mat"

	"maker_go/internal/event"
)

// KalmanConfig holds the noise and prior knobs of the Kalman estimator.
type KalmanConfig struct {
	// QSlope / QIntercept are the diagonal process-noise entries. Slopes act
	// on large-magnitude auxiliary deltas, so their noise stays tiny.
	QSlope     float64 `yaml:"q_slope"`
	QIntercept float64 `yaml:"q_intercept"`

	// RObs is the scalar observation-noise variance. Too small and the
	// filter chases price, collapsing the spread to zero.
	RObs float64 `yaml:"r_obs"`

	// InitP seeds the intercept variance. Slope variances are fixed near
	// zero regardless (see NewOnlineKalman).
	InitP float64 `yaml:"init_p"`
}

// DefaultKalmanConfig returns the de-sensitized live parameters.
func DefaultKalmanConfig() KalmanConfig {
	return KalmanConfig{
		QSlope:     1e-9,
		QIntercept: 1e-4,
		RObs:       4.0,
		InitP:      100.0,
	}
}

// OnlineKalman estimates primary-instrument fair value with a
// scalar-observation Kalman filter over theta = [slopeAux1, slopeAux2,
// intercept].
type OnlineKalman struct {
	cfg KalmanConfig

	theta *mat.VecDense
	p     *mat.Dense
	q     *mat.Dense
	r     float64

	in       inputState
	lastFair float64
	hasFair  bool
}

// slope warm start: primary ~ 0.30*aux1 + 0.05*aux2 is the right order of
// magnitude for the index complex this runs on, and a cold prior makes the
// early spread useless.
var warmTheta = []float64{0.30, 0.05, 0.0}

// NewOnlineKalman creates a warm-started filter.
//
// The prior covariance is deliberately asymmetric: near-zero variance on the
// slopes, large variance on the intercept. A uniform prior lets x'Px dwarf R,
// the filter then tracks price exactly and the spread signal vanishes.
func NewOnlineKalman(cfg KalmanConfig) *OnlineKalman {
	k := &OnlineKalman{cfg: cfg, r: cfg.RObs}
	k.theta = mat.NewVecDense(3, append([]float64(nil), warmTheta...))
	k.p = mat.NewDense(3, 3, nil)
	k.p.Set(0, 0, 1e-8)
	k.p.Set(1, 1, 1e-8)
	k.p.Set(2, 2, cfg.InitP)
	k.q = mat.NewDense(3, 3, nil)
	k.q.Set(0, 0, cfg.QSlope)
	k.q.Set(1, 1, cfg.QSlope)
	k.q.Set(2, 2, cfg.QIntercept)
	return k
}

// Reset clears all learned state, keeping the warm-start prior.
func (k *OnlineKalman) Reset() {
	k.theta.SetVec(0, warmTheta[0])
	k.theta.SetVec(1, warmTheta[1])
	k.theta.SetVec(2, warmTheta[2])
	k.p.Zero()
	k.p.Set(0, 0, 1e-8)
	k.p.Set(1, 1, 1e-8)
	k.p.Set(2, 2, k.cfg.InitP)
	k.in.reset()
	k.lastFair = 0
	k.hasFair = false
}

// LastFair returns the most recent fair price, if one has been produced.
func (k *OnlineKalman) LastFair() (float64, bool) {
	return k.lastFair, k.hasFair
}

// Update runs one predict/update cycle.
func (k *OnlineKalman) Update(tick event.TickEvent) (fair, spread float64, ok bool) {
	dAux1, dAux2, dPrimary, phase := k.in.observe(tick)
	switch phase {
	case obsSkip:
		return k.lastFair, 0, false
	case obsBaseline:
		// The first full tick only anchors the coordinate system; there is
		// no prior error to learn from.
		k.lastFair = tick.Primary
		k.hasFair = true
		return tick.Primary, 0, true
	}

	x := mat.NewVecDense(3, []float64{dAux1, dAux2, 1.0})

	// Predict with the pre-update theta; the signal must not see its own
	// correction.
	fairDelta := mat.Dot(x, k.theta)
	spread = fairDelta - dPrimary

	px := mat.NewVecDense(3, nil)
	px.MulVec(k.p, x)
	s := mat.Dot(x, px) + k.r

	if s > 1e-12 {
		resid := dPrimary - fairDelta
		// theta += K*resid with K = Px/S
		k.theta.AddScaledVec(k.theta, resid/s, px)

		// P = (I - K x') P + Q
		var kxT mat.Dense
		kxT.Outer(1.0/s, px, x)
		eye := mat.NewDiagDense(3, []float64{1, 1, 1})
		var ikx mat.Dense
		ikx.Sub(eye, &kxT)
		var newP mat.Dense
		newP.Mul(&ikx, k.p)
		newP.Add(&newP, k.q)
		k.p.Copy(&newP)
	}
	// Non-positive innovation variance: keep theta and P untouched, the
	// prediction above still stands.

	fair = fairDelta + k.in.basePrimary
	k.lastFair = fair
	k.hasFair = true
	return fair, spread, true
}
