package nn

import (
	"math/rand"

	"github.com/born-ml/volnet/internal/volume"
)

// Input is the first layer of every Net. It passes its input through and
// fixes the shape the rest of the pipeline is built from.
type Input struct {
	base
}

// NewInput creates an Input layer for width x height x depth examples.
func NewInput(width, height, depth int) (*Input, error) {
	if err := validateInput("Input", width, height, depth); err != nil {
		return nil, err
	}
	l := &Input{}
	l.setShapes(width, height, depth, width, height, depth)
	return l, nil
}

// Kind implements Layer.
func (l *Input) Kind() Kind { return KindInput }

// Init implements Layer. The declared shape wins over the arguments.
func (l *Input) Init(_, _, _ int, _ *rand.Rand) error { return nil }

// Forward implements Layer.
func (l *Input) Forward(in *volume.Volume, _ bool) *volume.Volume {
	l.checkInput("Input.Forward", in)
	l.input = in
	l.output = in
	return in
}

// Backward implements Layer. There is nothing upstream of the input.
func (l *Input) Backward() {}

// ParametersAndGradients implements Layer.
func (l *Input) ParametersAndGradients() []ParametersAndGradients { return nil }

// Reset implements Layer.
func (l *Input) Reset(_ *rand.Rand) {}
