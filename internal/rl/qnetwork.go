package rl

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/born-ml/volnet/internal/autodiff"
	"github.com/born-ml/volnet/internal/nn"
	"github.com/born-ml/volnet/internal/volume"
)

// Activation selects the hidden nonlinearity of a QNetwork.
type Activation int

const (
	// Tanh hidden units, as used by DQNAgent.
	Tanh Activation = iota
	// Relu hidden units, as used by Brain.
	Relu
)

func (a Activation) String() string {
	switch a {
	case Tanh:
		return "tanh"
	case Relu:
		return "relu"
	}
	return fmt.Sprintf("Activation(%d)", int(a))
}

// QNetwork is a fully connected value network recorded on the autodiff
// tape: each hidden layer computes act(W h + b) and the output layer W h + b
// gives one value per action.
type QNetwork struct {
	inputs, outputs int
	act             Activation
	weights         []*volume.Volume // W0, b0, W1, b1, ...
	noDecay         float64
}

// NewQNetwork creates a QNetwork whose weights are drawn from N(0, std²)
// and whose biases start at zero. A std of 0 selects 1/sqrt(fan-in) per
// layer.
func NewQNetwork(inputs int, hidden []int, outputs int, act Activation, std float64, rng *rand.Rand) *QNetwork {
	if inputs <= 0 || outputs <= 0 {
		panic(fmt.Sprintf("rl.NewQNetwork: %d inputs, %d outputs", inputs, outputs))
	}
	q := &QNetwork{inputs: inputs, outputs: outputs, act: act}
	prev := inputs
	for _, h := range append(slices.Clone(hidden), outputs) {
		if h <= 0 {
			panic(fmt.Sprintf("rl.NewQNetwork: layer size %d", h))
		}
		sd := std
		if sd == 0 {
			sd = math.Sqrt(1 / float64(prev))
		}
		w := volume.New(prev, h, 1)
		for i := range w.Weights() {
			w.SetAt(i, rng.NormFloat64()*sd)
		}
		q.weights = append(q.weights, w, volume.New(1, h, 1))
		prev = h
	}
	return q
}

// Inputs returns the state size.
func (q *QNetwork) Inputs() int { return q.inputs }

// Outputs returns the number of actions.
func (q *QNetwork) Outputs() int { return q.outputs }

// Forward evaluates the network on state and returns the action values and
// the Graph that computed them. With backprop set, seed the gradient of the
// returned Volume and call Backward on the Graph to accumulate weight
// gradients.
func (q *QNetwork) Forward(state []float64, backprop bool) (*volume.Volume, *autodiff.Graph) {
	x, err := volume.FromSlice(1, q.inputs, 1, state)
	if err != nil {
		panic(fmt.Sprintf("QNetwork.Forward: %v", err))
	}
	g := autodiff.NewGraph(backprop)
	h := g.Leaf(x)
	last := len(q.weights)/2 - 1
	for i := 0; i <= last; i++ {
		h = g.Add(g.Mul(g.Leaf(q.weights[2*i]), h), g.Leaf(q.weights[2*i+1]))
		if i == last {
			break
		}
		switch q.act {
		case Relu:
			h = g.Relu(h)
		default:
			h = g.Tanh(h)
		}
	}
	g.Forward()
	return g.Value(h), g
}

// Values returns a copy of the action values for state.
func (q *QNetwork) Values(state []float64) []float64 {
	out, _ := q.Forward(state, false)
	return append([]float64(nil), out.Weights()...)
}

// ParametersAndGradients lists every weight matrix and bias vector. Biases
// are excluded from weight decay.
func (q *QNetwork) ParametersAndGradients() []nn.ParametersAndGradients {
	out := make([]nn.ParametersAndGradients, len(q.weights))
	for i, v := range q.weights {
		out[i] = nn.ParametersAndGradients{Volume: v}
		if i%2 == 1 {
			out[i].L1DecayMul, out[i].L2DecayMul = &q.noDecay, &q.noDecay
		}
	}
	return out
}

// Volumes returns the parameter Volumes in order.
func (q *QNetwork) Volumes() []*volume.Volume { return q.weights }

// step applies w -= alpha*dw to every parameter and zeroes the gradients.
func (q *QNetwork) step(alpha float64) {
	for _, v := range q.weights {
		w, g := v.Weights(), v.Gradients()
		for i := range w {
			w[i] -= alpha * g[i]
			g[i] = 0
		}
	}
}

// restore copies saved parameter weights into q.
func (q *QNetwork) restore(saved []*volume.Volume) error {
	if len(saved) != len(q.weights) {
		return fmt.Errorf("%d saved parameters, network has %d: %w", len(saved), len(q.weights), ErrStateMismatch)
	}
	for i, v := range q.weights {
		if !v.SameShape(saved[i]) {
			return fmt.Errorf("parameter %d: saved %v, network %v: %w", i, saved[i], v, ErrStateMismatch)
		}
	}
	for i, v := range q.weights {
		v.SetWeights(saved[i].Weights())
		v.ZeroGradients()
	}
	return nil
}
