package pricing

import (
	"gonum.org/v1/gonum/mat"

	"maker_go/internal/event"
)

// RidgeConfig holds the recursive-least-squares knobs.
type RidgeConfig struct {
	// Lambda is the exponential forgetting factor. 0.999 remembers on the
	// order of a thousand ticks, 0.99 about a hundred.
	Lambda float64 `yaml:"lambda"`

	// Alpha is the per-step L2 shrinkage on the slope coefficients. This is
	// what keeps a non-zero spread alive under near-collinear auxiliaries;
	// plain RLS fits price perfectly and the signal dies.
	Alpha float64 `yaml:"alpha"`

	// InitP seeds the information matrix diagonal.
	InitP float64 `yaml:"init_p"`
}

// DefaultRidgeConfig returns the standard live parameters.
func DefaultRidgeConfig() RidgeConfig {
	return RidgeConfig{
		Lambda: 0.995,
		Alpha:  1e-4,
		InitP:  100.0,
	}
}

// OnlineRidge estimates fair value with exponentially forgetting RLS plus
// slope-only ridge shrinkage. Drop-in alternative to OnlineKalman.
type OnlineRidge struct {
	cfg RidgeConfig

	theta *mat.VecDense
	p     *mat.Dense

	in       inputState
	lastFair float64
	hasFair  bool
}

// NewOnlineRidge creates a warm-started estimator.
func NewOnlineRidge(cfg RidgeConfig) *OnlineRidge {
	r := &OnlineRidge{cfg: cfg}
	r.theta = mat.NewVecDense(3, append([]float64(nil), warmTheta...))
	r.p = mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		r.p.Set(i, i, cfg.InitP)
	}
	return r
}

// Reset clears all learned state, keeping the warm-start prior.
func (r *OnlineRidge) Reset() {
	r.theta.SetVec(0, warmTheta[0])
	r.theta.SetVec(1, warmTheta[1])
	r.theta.SetVec(2, warmTheta[2])
	r.p.Zero()
	for i := 0; i < 3; i++ {
		r.p.Set(i, i, r.cfg.InitP)
	}
	r.in.reset()
	r.lastFair = 0
	r.hasFair = false
}

// LastFair returns the most recent fair price, if one has been produced.
func (r *OnlineRidge) LastFair() (float64, bool) {
	return r.lastFair, r.hasFair
}

// Update runs one RLS cycle.
func (r *OnlineRidge) Update(tick event.TickEvent) (fair, spread float64, ok bool) {
	dAux1, dAux2, dPrimary, phase := r.in.observe(tick)
	switch phase {
	case obsSkip:
		return r.lastFair, 0, false
	case obsBaseline:
		r.lastFair = tick.Primary
		r.hasFair = true
		return tick.Primary, 0, true
	}

	x := mat.NewVecDense(3, []float64{dAux1, dAux2, 1.0})

	predDelta := mat.Dot(x, r.theta)
	fair = predDelta + r.in.basePrimary
	spread = fair - tick.Primary

	// RLS gain: k = Px / (lambda + x'Px)
	px := mat.NewVecDense(3, nil)
	px.MulVec(r.p, x)
	g := r.cfg.Lambda + mat.Dot(x, px)

	// P = (P - k (Px)') / lambda
	var kPxT mat.Dense
	kPxT.Outer(1.0/g, px, px)
	var newP mat.Dense
	newP.Sub(r.p, &kPxT)
	newP.Scale(1.0/r.cfg.Lambda, &newP)
	r.p.Copy(&newP)

	resid := dPrimary - predDelta
	r.theta.AddScaledVec(r.theta, resid/g, px)

	// Slope-only weight decay. The intercept is never shrunk.
	if r.cfg.Alpha > 0 {
		decay := 1.0 - r.cfg.Alpha
		r.theta.SetVec(0, r.theta.AtVec(0)*decay)
		r.theta.SetVec(1, r.theta.AtVec(1)*decay)
	}

	r.lastFair = fair
	r.hasFair = true
	return fair, spread, true
}
