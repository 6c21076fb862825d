// Package nn implements the differentiable layer catalog.
//
// Every layer follows the same two-phase protocol:
//   - Init fixes the output shape from the known input shape and allocates
//     parameter and output Volumes.
//   - Forward reads the input Volume and writes the output Volume.
//   - Backward reads the output gradient, overwrites the input gradient and
//     accumulates into the layer's own parameter gradients.
//
// Loss layers (Softmax, SVM, Regression, HeteroscedasticRegression) close the
// pipeline: they implement LossLayer and take the training target in
// BackwardLoss instead of reading an output gradient.
//
// The set of layer kinds is closed; callers that need per-kind behavior
// switch on Kind rather than asserting concrete types.
package nn

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/born-ml/volnet/internal/volume"
)

// ErrInvalidArgument marks a layer configuration that can never work
// (negative sizes, out-of-range probabilities, even LRN windows, ...).
var ErrInvalidArgument = errors.New("invalid layer argument")

// Kind identifies a layer type in the closed catalog.
type Kind int

// Layer kinds.
const (
	KindInput Kind = iota + 1
	KindFullyConn
	KindConv
	KindDeconv
	KindPool
	KindUnpool
	KindRelu
	KindSigmoid
	KindTanh
	KindMaxout
	KindDropout
	KindLRN
	KindSoftmax
	KindSVM
	KindRegression
	KindHeteroscedasticRegression
)

// kindNames is the wire name of each kind in the network description.
var kindNames = map[Kind]string{
	KindInput:                     "input",
	KindFullyConn:                 "fc",
	KindConv:                      "conv",
	KindDeconv:                    "deconv",
	KindPool:                      "pool",
	KindUnpool:                    "unpool",
	KindRelu:                      "relu",
	KindSigmoid:                   "sigmoid",
	KindTanh:                      "tanh",
	KindMaxout:                    "maxout",
	KindDropout:                   "dropout",
	KindLRN:                       "lrn",
	KindSoftmax:                   "softmax",
	KindSVM:                       "svm",
	KindRegression:                "regression",
	KindHeteroscedasticRegression: "heteroscedastic_regression",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind looks up a kind by its wire name.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// IsLoss reports whether the kind terminates a Net with a loss.
func (k Kind) IsLoss() bool {
	switch k {
	case KindSoftmax, KindSVM, KindRegression, KindHeteroscedasticRegression:
		return true
	default:
		return false
	}
}

// Layer is the Forward/Backward contract shared by the catalog.
type Layer interface {
	// Kind returns the catalog entry of this layer.
	Kind() Kind

	// Init allocates the output and parameter Volumes for the given input
	// shape. rng drives parameter initialization and stochastic layers.
	Init(inWidth, inHeight, inDepth int, rng *rand.Rand) error

	// Forward computes the output from in. The layer keeps a reference to
	// in so that Backward can write its gradient.
	Forward(in *volume.Volume, training bool) *volume.Volume

	// Backward propagates the output gradient into the input and parameters.
	Backward()

	// ParametersAndGradients lists trainable Volumes in a fixed order.
	ParametersAndGradients() []ParametersAndGradients

	// Reset re-initializes trainable parameters without changing shapes.
	Reset(rng *rand.Rand)

	OutputWidth() int
	OutputHeight() int
	OutputDepth() int
	Output() *volume.Volume
}

// LossLayer is a terminal layer that turns a target into a loss and the
// input gradient.
type LossLayer interface {
	Layer

	// BackwardLoss writes the input gradient and returns the loss.
	BackwardLoss(target Target) float64
}

// base holds the shape bookkeeping shared by all layers.
type base struct {
	inWidth, inHeight, inDepth    int
	outWidth, outHeight, outDepth int
	input                         *volume.Volume
	output                        *volume.Volume
	ready                         bool
}

func (b *base) OutputWidth() int          { return b.outWidth }
func (b *base) OutputHeight() int         { return b.outHeight }
func (b *base) OutputDepth() int          { return b.outDepth }
func (b *base) Output() *volume.Volume    { return b.output }
func (b *base) Input() *volume.Volume     { return b.input }
func (b *base) InputShape() (w, h, d int) { return b.inWidth, b.inHeight, b.inDepth }

func (b *base) setShapes(inW, inH, inD, outW, outH, outD int) {
	b.inWidth, b.inHeight, b.inDepth = inW, inH, inD
	b.outWidth, b.outHeight, b.outDepth = outW, outH, outD
	b.ready = true
}

func (b *base) mustReady(who string) {
	if !b.ready {
		panic(who + ": layer used before Init")
	}
}

func (b *base) checkInput(who string, in *volume.Volume) {
	b.mustReady(who)
	if in.Width() != b.inWidth || in.Height() != b.inHeight || in.Depth() != b.inDepth {
		panic(fmt.Sprintf("%s: input %v does not match %dx%dx%d", who, in, b.inWidth, b.inHeight, b.inDepth))
	}
}

func (b *base) mustHaveInput(who string) {
	b.mustReady(who)
	if b.input == nil {
		panic(who + ": Backward called before Forward")
	}
}

func validateInput(who string, inW, inH, inD int) error {
	if inW <= 0 || inH <= 0 || inD <= 0 {
		return fmt.Errorf("%s: input shape %dx%dx%d: %w", who, inW, inH, inD, ErrInvalidArgument)
	}
	return nil
}
