package nn

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/born-ml/volnet/internal/volume"
)

// ErrInvalidTopology marks a layer that cannot be appended at its position.
var ErrInvalidTopology = errors.New("invalid network topology")

// Net is an ordered pipeline of layers.
//
// Constraints checked on every AddLayer:
//   - the first layer is an Input layer and no other layer is;
//   - a loss layer, if present, is last;
//   - a loss layer directly follows a FullyConn whose neuron count equals the
//     loss layer's expected input count.
//
// Each layer's output Volume is the next layer's input, so one Forward call
// threads a single Volume reference through the whole pipeline.
type Net struct {
	layers []Layer
	rng    *rand.Rand
}

// NewNet creates an empty Net. rng initializes parameters and drives
// stochastic layers; it is shared by every layer added later.
func NewNet(rng *rand.Rand) *Net {
	if rng == nil {
		panic("NewNet: nil rng")
	}
	return &Net{rng: rng}
}

// Layers returns the layers in pipeline order.
func (n *Net) Layers() []Layer { return n.layers }

// Len returns the number of layers.
func (n *Net) Len() int { return len(n.layers) }

// Last returns the final layer, or nil for an empty Net.
func (n *Net) Last() Layer {
	if len(n.layers) == 0 {
		return nil
	}
	return n.layers[len(n.layers)-1]
}

// Rand returns the generator shared by the Net's layers.
func (n *Net) Rand() *rand.Rand { return n.rng }

// expectedLossInputs is the neuron count the FullyConn before a loss layer
// must produce.
func expectedLossInputs(l Layer) int {
	switch t := l.(type) {
	case *Softmax:
		return t.ClassCount
	case *SVM:
		return t.ClassCount
	case *Regression:
		return t.NeuronCount
	case *HeteroscedasticRegression:
		return 2 * t.NeuronCount
	default:
		return -1
	}
}

// CheckLayer validates that l may be appended to the Net.
func (n *Net) CheckLayer(l Layer) error {
	kind := l.Kind()
	if len(n.layers) == 0 {
		if kind != KindInput {
			return fmt.Errorf("first layer must be input, got %s: %w", kind, ErrInvalidTopology)
		}
		return nil
	}
	if kind == KindInput {
		return fmt.Errorf("input layer at position %d: %w", len(n.layers), ErrInvalidTopology)
	}
	last := n.Last()
	if last.Kind().IsLoss() {
		return fmt.Errorf("%s after loss layer %s: %w", kind, last.Kind(), ErrInvalidTopology)
	}
	if kind.IsLoss() {
		fc, ok := last.(*FullyConn)
		if !ok {
			return fmt.Errorf("%s must follow fc, got %s: %w", kind, last.Kind(), ErrInvalidTopology)
		}
		if want := expectedLossInputs(l); fc.NeuronCount != want {
			return fmt.Errorf("%s expects %d inputs, preceding fc has %d neurons: %w",
				kind, want, fc.NeuronCount, ErrInvalidTopology)
		}
	}
	return nil
}

// AddLayer validates l, initializes it from the previous layer's output shape
// and appends it.
func (n *Net) AddLayer(l Layer) error {
	if err := n.CheckLayer(l); err != nil {
		return err
	}
	if prev := n.Last(); prev != nil {
		if err := l.Init(prev.OutputWidth(), prev.OutputHeight(), prev.OutputDepth(), n.rng); err != nil {
			return fmt.Errorf("layer %d (%s): %w", len(n.layers), l.Kind(), err)
		}
	}
	n.layers = append(n.layers, l)
	return nil
}

// Clear removes every layer.
func (n *Net) Clear() {
	n.layers = nil
}

// Forward runs every layer in order and returns the last output.
func (n *Net) Forward(in *volume.Volume, training bool) *volume.Volume {
	if len(n.layers) == 0 {
		panic("Net.Forward: empty net")
	}
	act := in
	for _, l := range n.layers {
		act = l.Forward(act, training)
	}
	return act
}

// Backward computes the loss for target at the terminal layer, then runs
// every other layer's Backward in strict reverse order. It returns the loss.
func (n *Net) Backward(target Target) float64 {
	loss, ok := n.Last().(LossLayer)
	if !ok {
		panic(fmt.Sprintf("Net.Backward: last layer %s is not a loss layer", n.Last().Kind()))
	}
	cost := loss.BackwardLoss(target)
	for i := len(n.layers) - 2; i >= 0; i-- {
		n.layers[i].Backward()
	}
	return cost
}

// CostLoss runs an inference Forward and returns the loss for target
// without touching parameter gradients beyond the terminal layer.
func (n *Net) CostLoss(in *volume.Volume, target Target) float64 {
	n.Forward(in, false)
	loss, ok := n.Last().(LossLayer)
	if !ok {
		panic(fmt.Sprintf("Net.CostLoss: last layer %s is not a loss layer", n.Last().Kind()))
	}
	return loss.BackwardLoss(target)
}

// Prediction returns the arg-max class of the last Forward. The last layer
// must be Softmax.
func (n *Net) Prediction() int {
	last := n.Last()
	if last == nil || last.Kind() != KindSoftmax {
		panic("Net.Prediction: last layer must be softmax")
	}
	return last.Output().MaxIndex()
}

// Output returns the last layer's output Volume.
func (n *Net) Output() *volume.Volume {
	if len(n.layers) == 0 {
		return nil
	}
	return n.Last().Output()
}

// ParametersAndGradients concatenates every layer's parameter views in layer
// order. Trainer state is indexed by this order, so it must not change while
// a trainer is bound to the Net.
func (n *Net) ParametersAndGradients() []ParametersAndGradients {
	var out []ParametersAndGradients
	for _, l := range n.layers {
		out = append(out, l.ParametersAndGradients()...)
	}
	return out
}

// Reset re-initializes every layer's parameters, keeping the topology.
func (n *Net) Reset() {
	for _, l := range n.layers {
		l.Reset(n.rng)
	}
}

// InputShape returns the declared shape of the Input layer.
func (n *Net) InputShape() (w, h, d int) {
	if len(n.layers) == 0 {
		return 0, 0, 0
	}
	in := n.layers[0]
	return in.OutputWidth(), in.OutputHeight(), in.OutputDepth()
}
