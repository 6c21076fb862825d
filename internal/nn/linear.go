package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/volnet/internal/parallel"
	"github.com/born-ml/volnet/internal/volume"
)

// FullyConn implements a fully connected (dense) layer.
//
// Each of the NeuronCount neurons owns a filter of length
// inWidth*inHeight*inDepth and a bias:
//
//	out[i] = dot(filter[i], in) + bias[i]
//
// The output is a 1x1xNeuronCount Volume.
type FullyConn struct {
	base
	decayMuls

	NeuronCount int
	BiasPref    float64
	Parallel    parallel.Config

	numInputs int
	filters   []*volume.Volume
	biases    *volume.Volume
}

// NewFullyConn creates a FullyConn layer with neurons outputs.
func NewFullyConn(neurons int) (*FullyConn, error) {
	if neurons <= 0 {
		return nil, fmt.Errorf("FullyConn: neuron count %d: %w", neurons, ErrInvalidArgument)
	}
	return &FullyConn{
		decayMuls:   defaultDecayMuls(),
		NeuronCount: neurons,
		Parallel:    parallel.DefaultConfig(),
	}, nil
}

// Kind implements Layer.
func (l *FullyConn) Kind() Kind { return KindFullyConn }

// Init implements Layer.
func (l *FullyConn) Init(inW, inH, inD int, rng *rand.Rand) error {
	if err := validateInput("FullyConn", inW, inH, inD); err != nil {
		return err
	}
	l.setShapes(inW, inH, inD, 1, 1, l.NeuronCount)
	l.numInputs = inW * inH * inD
	l.filters = make([]*volume.Volume, l.NeuronCount)
	for i := range l.filters {
		l.filters[i] = volume.NewRand(1, 1, l.numInputs, rng)
	}
	l.biases = volume.NewFilled(1, 1, l.NeuronCount, l.BiasPref)
	l.output = volume.New(1, 1, l.NeuronCount)
	return nil
}

// Filters returns the neuron weight Volumes.
func (l *FullyConn) Filters() []*volume.Volume { return l.filters }

// Biases returns the bias Volume.
func (l *FullyConn) Biases() *volume.Volume { return l.biases }

// Forward implements Layer.
func (l *FullyConn) Forward(in *volume.Volume, _ bool) *volume.Volume {
	l.checkInput("FullyConn.Forward", in)
	l.input = in
	x := in.Weights()
	out := l.output.Weights()
	bias := l.biases.Weights()

	parallel.For(l.NeuronCount, l.numInputs, func(i int) {
		w := l.filters[i].Weights()
		a := 0.0
		for d, xd := range x {
			a += xd * w[d]
		}
		out[i] = a + bias[i]
	}, l.Parallel)
	return l.output
}

// Backward implements Layer.
func (l *FullyConn) Backward() {
	l.mustHaveInput("FullyConn.Backward")
	l.input.ZeroGradients()
	x := l.input.Weights()
	dx := l.input.Gradients()
	chain := l.output.Gradients()
	db := l.biases.Gradients()

	for i := 0; i < l.NeuronCount; i++ {
		w := l.filters[i].Weights()
		dw := l.filters[i].Gradients()
		g := chain[i]
		for d := range x {
			dx[d] += w[d] * g
			dw[d] += x[d] * g
		}
		db[i] += g
	}
}

// ParametersAndGradients implements Layer: filters first, then biases.
func (l *FullyConn) ParametersAndGradients() []ParametersAndGradients {
	out := make([]ParametersAndGradients, 0, len(l.filters)+1)
	for _, f := range l.filters {
		out = append(out, l.filterView(f))
	}
	return append(out, l.biasView(l.biases))
}

// Reset implements Layer.
func (l *FullyConn) Reset(rng *rand.Rand) {
	for _, f := range l.filters {
		f.Randomize(rng)
		f.ZeroGradients()
	}
	if l.biases != nil {
		l.biases.SetConst(l.BiasPref)
		l.biases.ZeroGradients()
	}
}
