package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/volnet/internal/volume"
)

// elementwise is the shared body of Relu, Sigmoid and Tanh: the output has the
// input's shape and Backward only needs the output values.
type elementwise struct {
	base
}

func (l *elementwise) init(who string, inW, inH, inD int) error {
	if err := validateInput(who, inW, inH, inD); err != nil {
		return err
	}
	l.setShapes(inW, inH, inD, inW, inH, inD)
	return nil
}

func (l *elementwise) forward(who string, in *volume.Volume, f func(float64) float64) *volume.Volume {
	l.checkInput(who, in)
	l.input = in
	if l.output == nil {
		l.output = in.CloneAndZero()
	}
	src, dst := in.Weights(), l.output.Weights()
	for i, x := range src {
		dst[i] = f(x)
	}
	return l.output
}

// backward sets in.grad[i] = df(out[i]) * out.grad[i].
func (l *elementwise) backward(who string, df func(y float64) float64) {
	l.mustHaveInput(who)
	out := l.output.Weights()
	chain := l.output.Gradients()
	grad := l.input.Gradients()
	for i, y := range out {
		grad[i] = df(y) * chain[i]
	}
}

func (l *elementwise) ParametersAndGradients() []ParametersAndGradients { return nil }
func (l *elementwise) Reset(_ *rand.Rand)                                {}

// Relu implements max(0, x).
type Relu struct{ elementwise }

// NewRelu creates a Relu layer.
func NewRelu() *Relu { return &Relu{} }

// Kind implements Layer.
func (l *Relu) Kind() Kind { return KindRelu }

// Init implements Layer.
func (l *Relu) Init(inW, inH, inD int, _ *rand.Rand) error {
	return l.init("Relu", inW, inH, inD)
}

// Forward implements Layer.
func (l *Relu) Forward(in *volume.Volume, _ bool) *volume.Volume {
	return l.forward("Relu.Forward", in, func(x float64) float64 {
		if x < 0 {
			return 0
		}
		return x
	})
}

// Backward implements Layer. The gradient is blocked where the output is 0.
func (l *Relu) Backward() {
	l.backward("Relu.Backward", func(y float64) float64 {
		if y <= 0 {
			return 0
		}
		return 1
	})
}

// Sigmoid implements 1/(1+exp(-x)).
type Sigmoid struct{ elementwise }

// NewSigmoid creates a Sigmoid layer.
func NewSigmoid() *Sigmoid { return &Sigmoid{} }

// Kind implements Layer.
func (l *Sigmoid) Kind() Kind { return KindSigmoid }

// Init implements Layer.
func (l *Sigmoid) Init(inW, inH, inD int, _ *rand.Rand) error {
	return l.init("Sigmoid", inW, inH, inD)
}

// Forward implements Layer.
func (l *Sigmoid) Forward(in *volume.Volume, _ bool) *volume.Volume {
	return l.forward("Sigmoid.Forward", in, func(x float64) float64 {
		return 1.0 / (1.0 + math.Exp(-x))
	})
}

// Backward implements Layer.
func (l *Sigmoid) Backward() {
	l.backward("Sigmoid.Backward", func(y float64) float64 { return y * (1 - y) })
}

// Tanh implements the hyperbolic tangent.
type Tanh struct{ elementwise }

// NewTanh creates a Tanh layer.
func NewTanh() *Tanh { return &Tanh{} }

// Kind implements Layer.
func (l *Tanh) Kind() Kind { return KindTanh }

// Init implements Layer.
func (l *Tanh) Init(inW, inH, inD int, _ *rand.Rand) error {
	return l.init("Tanh", inW, inH, inD)
}

// Forward implements Layer.
func (l *Tanh) Forward(in *volume.Volume, _ bool) *volume.Volume {
	return l.forward("Tanh.Forward", in, math.Tanh)
}

// Backward implements Layer.
func (l *Tanh) Backward() {
	l.backward("Tanh.Backward", func(y float64) float64 { return 1 - y*y })
}
