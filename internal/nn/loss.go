package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/volnet/internal/volume"
	"gonum.org/v1/gonum/floats"
)

// lossBase holds what every terminal layer shares: a flattened 1x1xN view of
// its input and no trainable parameters.
type lossBase struct {
	base
	name string
}

func (l *lossBase) initFlat(inW, inH, inD, want int) error {
	if err := validateInput(l.name, inW, inH, inD); err != nil {
		return err
	}
	if n := inW * inH * inD; n != want {
		return fmt.Errorf("%s: expects %d inputs, got %d: %w", l.name, want, n, ErrInvalidArgument)
	}
	l.setShapes(inW, inH, inD, 1, 1, want)
	return nil
}

// Backward panics: a loss layer only runs through BackwardLoss.
func (l *lossBase) Backward() {
	panic(l.name + ".Backward: loss layer needs a target, call BackwardLoss")
}

func (l *lossBase) ParametersAndGradients() []ParametersAndGradients { return nil }
func (l *lossBase) Reset(_ *rand.Rand)                                {}

// Softmax turns ClassCount scores into a probability distribution and trains
// with the cross-entropy loss -log p[target].
type Softmax struct {
	lossBase

	ClassCount int
}

// NewSoftmax creates a Softmax layer over classes outputs.
func NewSoftmax(classes int) (*Softmax, error) {
	if classes < 2 {
		return nil, fmt.Errorf("Softmax: class count %d: %w", classes, ErrInvalidArgument)
	}
	return &Softmax{lossBase: lossBase{name: "Softmax"}, ClassCount: classes}, nil
}

// Kind implements Layer.
func (l *Softmax) Kind() Kind { return KindSoftmax }

// Init implements Layer.
func (l *Softmax) Init(inW, inH, inD int, _ *rand.Rand) error {
	if err := l.initFlat(inW, inH, inD, l.ClassCount); err != nil {
		return err
	}
	l.output = volume.New(1, 1, l.ClassCount)
	return nil
}

// Forward implements Layer. The max score is subtracted before
// exponentiating so large logits do not overflow.
func (l *Softmax) Forward(in *volume.Volume, _ bool) *volume.Volume {
	l.checkInput("Softmax.Forward", in)
	l.input = in

	scores := in.Weights()
	amax := floats.Max(scores)
	es := l.output.Weights()
	sum := 0.0
	for i, a := range scores {
		e := math.Exp(a - amax)
		es[i] = e
		sum += e
	}
	floats.Scale(1/sum, es)
	return l.output
}

// BackwardLoss implements LossLayer for class targets.
func (l *Softmax) BackwardLoss(target Target) float64 {
	l.mustHaveInput("Softmax.BackwardLoss")
	y := target.Class()
	if y < 0 || y >= l.ClassCount {
		panic(fmt.Sprintf("Softmax.BackwardLoss: class %d out of range [0,%d)", y, l.ClassCount))
	}
	p := l.output.Weights()
	dx := l.input.Gradients()
	for i := range dx {
		indicator := 0.0
		if i == y {
			indicator = 1
		}
		dx[i] = -(indicator - p[i])
	}
	return -math.Log(p[y])
}

// SVM trains ClassCount scores with the multiclass hinge loss, margin 1.
type SVM struct {
	lossBase

	ClassCount int
}

// NewSVM creates an SVM layer over classes outputs.
func NewSVM(classes int) (*SVM, error) {
	if classes < 2 {
		return nil, fmt.Errorf("SVM: class count %d: %w", classes, ErrInvalidArgument)
	}
	return &SVM{lossBase: lossBase{name: "SVM"}, ClassCount: classes}, nil
}

// Kind implements Layer.
func (l *SVM) Kind() Kind { return KindSVM }

// Init implements Layer.
func (l *SVM) Init(inW, inH, inD int, _ *rand.Rand) error {
	return l.initFlat(inW, inH, inD, l.ClassCount)
}

// Forward implements Layer. Scores pass through unchanged.
func (l *SVM) Forward(in *volume.Volume, _ bool) *volume.Volume {
	l.checkInput("SVM.Forward", in)
	l.input = in
	l.output = in
	return in
}

// BackwardLoss implements LossLayer for class targets.
func (l *SVM) BackwardLoss(target Target) float64 {
	l.mustHaveInput("SVM.BackwardLoss")
	y := target.Class()
	if y < 0 || y >= l.ClassCount {
		panic(fmt.Sprintf("SVM.BackwardLoss: class %d out of range [0,%d)", y, l.ClassCount))
	}
	l.input.ZeroGradients()
	x := l.input.Weights()
	dx := l.input.Gradients()

	const margin = 1.0
	yscore := x[y]
	loss := 0.0
	for i := range x {
		if i == y {
			continue
		}
		if ydiff := -yscore + x[i] + margin; ydiff > 0 {
			dx[i]++
			dx[y]--
			loss += ydiff
		}
	}
	return loss
}

// Regression trains NeuronCount outputs with the squared error 0.5*dy^2.
type Regression struct {
	lossBase

	NeuronCount int
}

// NewRegression creates a Regression layer over neurons outputs.
func NewRegression(neurons int) (*Regression, error) {
	if neurons <= 0 {
		return nil, fmt.Errorf("Regression: neuron count %d: %w", neurons, ErrInvalidArgument)
	}
	return &Regression{lossBase: lossBase{name: "Regression"}, NeuronCount: neurons}, nil
}

// Kind implements Layer.
func (l *Regression) Kind() Kind { return KindRegression }

// Init implements Layer.
func (l *Regression) Init(inW, inH, inD int, _ *rand.Rand) error {
	return l.initFlat(inW, inH, inD, l.NeuronCount)
}

// Forward implements Layer. Predictions pass through unchanged.
func (l *Regression) Forward(in *volume.Volume, _ bool) *volume.Volume {
	l.checkInput("Regression.Forward", in)
	l.input = in
	l.output = in
	return in
}

// BackwardLoss implements LossLayer. A vector target trains every output; a
// DimTarget trains one output and leaves the others with zero gradient.
func (l *Regression) BackwardLoss(target Target) float64 {
	l.mustHaveInput("Regression.BackwardLoss")
	l.input.ZeroGradients()
	x := l.input.Weights()
	dx := l.input.Gradients()

	if dim, val, ok := target.Dim(); ok {
		if dim < 0 || dim >= len(x) {
			panic(fmt.Sprintf("Regression.BackwardLoss: dimension %d out of range [0,%d)", dim, len(x)))
		}
		dy := x[dim] - val
		dx[dim] = dy
		return 0.5 * dy * dy
	}

	y := target.Values()
	if len(y) != len(x) {
		panic(fmt.Sprintf("Regression.BackwardLoss: target length %d, want %d", len(y), len(x)))
	}
	loss := 0.0
	for i := range x {
		dy := x[i] - y[i]
		dx[i] = dy
		loss += 0.5 * dy * dy
	}
	return loss
}

// HeteroscedasticRegression predicts a mean and a log-variance per target.
//
// The input holds 2*NeuronCount values: means first, then log-variances. With
// precision p = exp(-logvar) and dy = mean - y:
//
//	loss        = 0.5 * p * dy^2
//	dloss/dmean = p * dy
//	d/dlogvar   = -0.5 * (p*dy^2 - 1)
//
// The log-variance gradient is that of the full Gaussian negative
// log-likelihood, which couples both halves: a large residual pushes the
// predicted variance up while the +1 term keeps it from growing without
// bound.
type HeteroscedasticRegression struct {
	lossBase

	NeuronCount int
}

// NewHeteroscedasticRegression creates the layer for neurons targets.
func NewHeteroscedasticRegression(neurons int) (*HeteroscedasticRegression, error) {
	if neurons <= 0 {
		return nil, fmt.Errorf("HeteroscedasticRegression: neuron count %d: %w", neurons, ErrInvalidArgument)
	}
	return &HeteroscedasticRegression{
		lossBase:    lossBase{name: "HeteroscedasticRegression"},
		NeuronCount: neurons,
	}, nil
}

// Kind implements Layer.
func (l *HeteroscedasticRegression) Kind() Kind { return KindHeteroscedasticRegression }

// Init implements Layer.
func (l *HeteroscedasticRegression) Init(inW, inH, inD int, _ *rand.Rand) error {
	return l.initFlat(inW, inH, inD, 2*l.NeuronCount)
}

// Forward implements Layer. Means and log-variances pass through unchanged.
func (l *HeteroscedasticRegression) Forward(in *volume.Volume, _ bool) *volume.Volume {
	l.checkInput("HeteroscedasticRegression.Forward", in)
	l.input = in
	l.output = in
	return in
}

// BackwardLoss implements LossLayer for vector or DimTarget targets.
func (l *HeteroscedasticRegression) BackwardLoss(target Target) float64 {
	l.mustHaveInput("HeteroscedasticRegression.BackwardLoss")
	l.input.ZeroGradients()
	x := l.input.Weights()
	dx := l.input.Gradients()
	n := l.NeuronCount

	term := func(i int, y float64) float64 {
		precision := math.Exp(-x[n+i])
		dy := x[i] - y
		dx[i] = precision * dy
		dx[n+i] = -0.5 * (precision*dy*dy - 1)
		return 0.5 * precision * dy * dy
	}

	if dim, val, ok := target.Dim(); ok {
		if dim < 0 || dim >= n {
			panic(fmt.Sprintf("HeteroscedasticRegression.BackwardLoss: dimension %d out of range [0,%d)", dim, n))
		}
		return term(dim, val)
	}

	y := target.Values()
	if len(y) != n {
		panic(fmt.Sprintf("HeteroscedasticRegression.BackwardLoss: target length %d, want %d", len(y), n))
	}
	loss := 0.0
	for i := range y {
		loss += term(i, y[i])
	}
	return loss
}
