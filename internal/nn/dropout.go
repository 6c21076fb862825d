package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/volnet/internal/volume"
)

// Dropout zeroes activations at random while training.
//
// In training mode each activation is dropped independently with probability
// DropProb and the mask is kept for Backward. In inference mode nothing is
// dropped and activations are multiplied by DropProb. This matches the
// engine's historical numerics rather than inverted dropout, whose scale
// would be 1 - DropProb.
type Dropout struct {
	base

	DropProb float64

	rng      *rand.Rand
	dropped  []bool
	training bool
}

// NewDropout creates a Dropout layer. dropProb must be in [0, 1].
func NewDropout(dropProb float64) (*Dropout, error) {
	if dropProb < 0 || dropProb > 1 {
		return nil, fmt.Errorf("Dropout: drop probability %g outside [0,1]: %w", dropProb, ErrInvalidArgument)
	}
	return &Dropout{DropProb: dropProb}, nil
}

// Kind implements Layer.
func (l *Dropout) Kind() Kind { return KindDropout }

// Init implements Layer. rng is retained for drawing masks.
func (l *Dropout) Init(inW, inH, inD int, rng *rand.Rand) error {
	if err := validateInput("Dropout", inW, inH, inD); err != nil {
		return err
	}
	l.setShapes(inW, inH, inD, inW, inH, inD)
	l.rng = rng
	l.dropped = make([]bool, inW*inH*inD)
	l.output = volume.New(inW, inH, inD)
	return nil
}

// Forward implements Layer.
func (l *Dropout) Forward(in *volume.Volume, training bool) *volume.Volume {
	l.checkInput("Dropout.Forward", in)
	l.input = in
	l.training = training

	src, dst := in.Weights(), l.output.Weights()
	if training {
		for i, x := range src {
			if l.rng.Float64() < l.DropProb {
				dst[i] = 0
				l.dropped[i] = true
			} else {
				dst[i] = x
				l.dropped[i] = false
			}
		}
		return l.output
	}
	for i, x := range src {
		dst[i] = x * l.DropProb
	}
	return l.output
}

// Backward implements Layer.
func (l *Dropout) Backward() {
	l.mustHaveInput("Dropout.Backward")
	chain := l.output.Gradients()
	grad := l.input.Gradients()
	for i, g := range chain {
		switch {
		case !l.training:
			grad[i] = g * l.DropProb
		case l.dropped[i]:
			grad[i] = 0
		default:
			grad[i] = g
		}
	}
}

// ParametersAndGradients implements Layer.
func (l *Dropout) ParametersAndGradients() []ParametersAndGradients { return nil }

// Reset implements Layer.
func (l *Dropout) Reset(rng *rand.Rand) { l.rng = rng }
