package nn

import "github.com/born-ml/volnet/internal/volume"

// ParametersAndGradients is a non-owning view of one trainable Volume and
// its decay multipliers, letting a trainer walk every parameter uniformly.
//
// The multipliers point into the owning layer so that edits made after the
// view was taken are still observed. A nil multiplier means 1.
type ParametersAndGradients struct {
	Volume     *volume.Volume
	L1DecayMul *float64
	L2DecayMul *float64
}

// DecayMuls returns the effective multipliers, treating nil as 1.
func (p ParametersAndGradients) DecayMuls() (l1, l2 float64) {
	l1, l2 = 1, 1
	if p.L1DecayMul != nil {
		l1 = *p.L1DecayMul
	}
	if p.L2DecayMul != nil {
		l2 = *p.L2DecayMul
	}
	return l1, l2
}

// decayMuls is embedded by layers with filters and biases.
//
// Filters default to l1 0 and l2 1; biases are never decayed.
type decayMuls struct {
	L1DecayMul float64
	L2DecayMul float64
	biasL1     float64
	biasL2     float64
}

func defaultDecayMuls() decayMuls {
	return decayMuls{L1DecayMul: 0, L2DecayMul: 1}
}

func (m *decayMuls) filterView(v *volume.Volume) ParametersAndGradients {
	return ParametersAndGradients{Volume: v, L1DecayMul: &m.L1DecayMul, L2DecayMul: &m.L2DecayMul}
}

func (m *decayMuls) biasView(v *volume.Volume) ParametersAndGradients {
	return ParametersAndGradients{Volume: v, L1DecayMul: &m.biasL1, L2DecayMul: &m.biasL2}
}
