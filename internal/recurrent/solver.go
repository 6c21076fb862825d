package recurrent

import (
	"fmt"
	"math"

	"github.com/born-ml/volnet/internal/volume"
)

// Solver is RMSProp with per-weight gradient clipping and L2
// regularization:
//
//	cache = decay*cache + (1-decay)*g²
//	g     = clamp(g, -clip, clip)
//	w    += -lr*g/sqrt(cache+eps) - regc*w
//
// The cache sees the unclipped gradient. Gradients are zeroed after the
// update.
type Solver struct {
	DecayRate float64
	Eps       float64
	cache     [][]float64
}

// SolverStats reports one Step.
type SolverStats struct {
	// RatioClipped is the fraction of weights whose gradient was clipped.
	RatioClipped float64
}

// NewSolver creates a Solver with empty caches.
func NewSolver(decayRate, eps float64) *Solver {
	return &Solver{DecayRate: decayRate, Eps: eps}
}

// Step updates every Volume in params from its accumulated gradient. The
// params order must not change between calls.
func (s *Solver) Step(params []*volume.Volume, lr, regc, clip float64) SolverStats {
	if s.cache == nil {
		s.cache = make([][]float64, len(params))
		for i, p := range params {
			s.cache[i] = make([]float64, p.Len())
		}
	}
	if len(s.cache) != len(params) {
		panic(fmt.Sprintf("Solver.Step: %d parameters, cache holds %d", len(params), len(s.cache)))
	}

	var clipped, total int
	for i, p := range params {
		w, g, c := p.Weights(), p.Gradients(), s.cache[i]
		for j := range w {
			dw := g[j]
			c[j] = c[j]*s.DecayRate + (1-s.DecayRate)*dw*dw
			if dw > clip {
				dw = clip
				clipped++
			} else if dw < -clip {
				dw = -clip
				clipped++
			}
			w[j] += -lr*dw/math.Sqrt(c[j]+s.Eps) - regc*w[j]
			g[j] = 0
		}
		total += len(w)
	}
	if total == 0 {
		return SolverStats{}
	}
	return SolverStats{RatioClipped: float64(clipped) / float64(total)}
}

// Cache returns a copy of the per-parameter caches, or nil before the first
// Step.
func (s *Solver) Cache() [][]float64 {
	if s.cache == nil {
		return nil
	}
	out := make([][]float64, len(s.cache))
	for i, c := range s.cache {
		out[i] = append([]float64(nil), c...)
	}
	return out
}

// SetCache restores caches saved by Cache for params.
func (s *Solver) SetCache(params []*volume.Volume, cache [][]float64) error {
	if len(cache) == 0 {
		s.cache = nil
		return nil
	}
	if len(cache) != len(params) {
		return fmt.Errorf("%d caches for %d parameters: %w", len(cache), len(params), ErrStateMismatch)
	}
	for i, p := range params {
		if len(cache[i]) != p.Len() {
			return fmt.Errorf("cache %d has %d values, parameter %d: %w", i, len(cache[i]), p.Len(), ErrStateMismatch)
		}
	}
	s.cache = make([][]float64, len(cache))
	for i, c := range cache {
		s.cache[i] = append([]float64(nil), c...)
	}
	return nil
}
