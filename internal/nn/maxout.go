package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/volnet/internal/volume"
)

// Maxout reduces each run of GroupSize consecutive channels to its maximum.
// The output depth is floor(inDepth/GroupSize); trailing channels that do not
// fill a group are ignored.
type Maxout struct {
	base

	GroupSize int

	switches []int // winning input depth per output cell
}

// NewMaxout creates a Maxout layer. A group size of 0 means 2.
func NewMaxout(groupSize int) (*Maxout, error) {
	if groupSize == 0 {
		groupSize = 2
	}
	if groupSize < 1 {
		return nil, fmt.Errorf("Maxout: group size %d: %w", groupSize, ErrInvalidArgument)
	}
	return &Maxout{GroupSize: groupSize}, nil
}

// Kind implements Layer.
func (l *Maxout) Kind() Kind { return KindMaxout }

// Init implements Layer.
func (l *Maxout) Init(inW, inH, inD int, _ *rand.Rand) error {
	if err := validateInput("Maxout", inW, inH, inD); err != nil {
		return err
	}
	outD := inD / l.GroupSize
	if outD == 0 {
		return fmt.Errorf("Maxout: input depth %d smaller than group size %d: %w", inD, l.GroupSize, ErrInvalidArgument)
	}
	l.setShapes(inW, inH, inD, inW, inH, outD)
	l.switches = make([]int, inW*inH*outD)
	l.output = volume.New(inW, inH, outD)
	return nil
}

// Forward implements Layer.
func (l *Maxout) Forward(in *volume.Volume, _ bool) *volume.Volume {
	l.checkInput("Maxout.Forward", in)
	l.input = in

	n := 0
	for x := 0; x < l.outWidth; x++ {
		for y := 0; y < l.outHeight; y++ {
			for i := 0; i < l.outDepth; i++ {
				ix := i * l.GroupSize
				a := in.Get(x, y, ix)
				ai := 0
				for j := 1; j < l.GroupSize; j++ {
					if a2 := in.Get(x, y, ix+j); a2 > a {
						a, ai = a2, j
					}
				}
				l.output.Set(x, y, i, a)
				l.switches[n] = ix + ai
				n++
			}
		}
	}
	return l.output
}

// Backward implements Layer.
func (l *Maxout) Backward() {
	l.mustHaveInput("Maxout.Backward")
	in := l.input
	in.ZeroGradients()

	n := 0
	for x := 0; x < l.outWidth; x++ {
		for y := 0; y < l.outHeight; y++ {
			for i := 0; i < l.outDepth; i++ {
				in.SetGradient(x, y, l.switches[n], l.output.GetGradient(x, y, i))
				n++
			}
		}
	}
}

// ParametersAndGradients implements Layer.
func (l *Maxout) ParametersAndGradients() []ParametersAndGradients { return nil }

// Reset implements Layer.
func (l *Maxout) Reset(_ *rand.Rand) {}
