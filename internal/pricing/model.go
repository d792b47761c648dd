// Package pricing contains the online fair-value estimators.
//
// Both estimators regress the primary instrument against two correlated
// instruments in delta-from-baseline coordinates. The auxiliary instruments
// trade an order of magnitude above the primary, so raw-price regression is
// numerically unstable; every input is re-centered on the first fully
// populated tick before it touches the filter.
package pricing

import (
	"maker_go/internal/event"
)

// Model is the contract the decision engine depends on. Implementations are
// drop-in substitutable; the engine never sees internal estimator state.
//
// Update returns ok=false when the spread is undefined for this tick (an
// auxiliary series has never been observed). In that case fair repeats the
// last known value and must not be traded on.
type Model interface {
	Update(tick event.TickEvent) (fair, spread float64, ok bool)
	LastFair() (float64, bool)
	Reset()
}

// inputState implements the input protocol shared by both estimators:
// last-value fill for missing auxiliaries and baseline capture on the first
// fully populated tick.
type inputState struct {
	lastAux1 *float64
	lastAux2 *float64

	baseSet     bool
	basePrimary float64
	baseAux1    float64
	baseAux2    float64
}

type obsPhase int

const (
	obsSkip     obsPhase = iota // an input series has never been observed
	obsBaseline                 // this tick set the baseline, no learning step
	obsReady                    // deltas are valid
)

func (s *inputState) reset() {
	*s = inputState{}
}

// observe cleans one tick. On obsReady the returned values are the
// delta-from-baseline features (aux1, aux2) and observation (primary).
func (s *inputState) observe(tick event.TickEvent) (dAux1, dAux2, dPrimary float64, phase obsPhase) {
	aux1 := tick.Aux1
	if aux1 == nil {
		aux1 = s.lastAux1 // never substitute zero for a lost packet
	}
	aux2 := tick.Aux2
	if aux2 == nil {
		aux2 = s.lastAux2
	}

	if tick.Aux1 != nil {
		v := *tick.Aux1
		s.lastAux1 = &v
	}
	if tick.Aux2 != nil {
		v := *tick.Aux2
		s.lastAux2 = &v
	}

	if aux1 == nil || aux2 == nil {
		return 0, 0, 0, obsSkip
	}

	if !s.baseSet {
		s.basePrimary = tick.Primary
		s.baseAux1 = *aux1
		s.baseAux2 = *aux2
		s.baseSet = true
		return 0, 0, 0, obsBaseline
	}

	return *aux1 - s.baseAux1, *aux2 - s.baseAux2, tick.Primary - s.basePrimary, obsReady
}
