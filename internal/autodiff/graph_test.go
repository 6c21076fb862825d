package autodiff_test

import (
	"math/rand"
	"testing"

	"github.com/born-ml/volnet/internal/autodiff"
	"github.com/born-ml/volnet/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
)

var central = &fd.Settings{Formula: fd.Central, Step: 1e-5}

func randomMatrix(rows, cols int, rng *rand.Rand) *volume.Volume {
	v := volume.New(cols, rows, 1)
	for i := range v.Weights() {
		v.SetAt(i, rng.NormFloat64()*0.5)
	}
	return v
}

// checkLeaf compares the gradient accumulated in leaf by run(true) with
// central differences of run(false).
func checkLeaf(t *testing.T, leaf *volume.Volume, run func(backprop bool) float64) {
	t.Helper()
	leaf.ZeroGradients()
	run(true)
	analytic := append([]float64(nil), leaf.Gradients()...)
	for i := range leaf.Weights() {
		orig := leaf.GetAt(i)
		num := fd.Derivative(func(x float64) float64 {
			leaf.SetAt(i, x)
			defer leaf.SetAt(i, orig)
			return run(false)
		}, orig, central)
		assert.InDelta(t, num, analytic[i], 1e-6, "element %d", i)
	}
}

func TestGraph_TwoLayerNetwork(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	w1, b1 := randomMatrix(4, 3, rng), randomMatrix(4, 1, rng)
	w2, b2 := randomMatrix(1, 4, rng), randomMatrix(1, 1, rng)
	x := randomMatrix(3, 1, rng)

	// L = (W2 · relu(W1 x + b1) + b2)^2 / 2 folded into a seeded gradient.
	run := func(backprop bool) float64 {
		g := autodiff.NewGraph(backprop)
		h := g.Relu(g.Add(g.Mul(g.Leaf(w1), g.Leaf(x)), g.Leaf(b1)))
		out := g.Add(g.Mul(g.Leaf(w2), h), g.Leaf(b2))
		g.Forward()
		y := g.Value(out).GetAt(0)
		g.Value(out).SetGradientAt(0, y)
		g.Backward()
		return y * y / 2
	}

	for name, leaf := range map[string]*volume.Volume{"w1": w1, "b1": b1, "w2": w2, "b2": b2, "x": x} {
		t.Run(name, func(t *testing.T) { checkLeaf(t, leaf, run) })
	}
}

func TestGraph_GateNodes(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	emb := randomMatrix(5, 3, rng)
	a := randomMatrix(3, 1, rng)

	// L = sigmoid(a) · (tanh(row 1) ⊙ row 4) + sum(row 1 ⊙ row 1)
	run := func(backprop bool) float64 {
		g := autodiff.NewGraph(backprop)
		m := g.Leaf(emb)
		r1, r4 := g.RowPluck(m, 1), g.RowPluck(m, 4)
		gate := g.Sigmoid(g.Leaf(a))
		d1 := g.Dot(gate, g.EltMul(g.Tanh(r1), r4))
		d2 := g.Dot(r1, r1)
		g.Forward()
		g.Value(d1).SetGradientAt(0, 1)
		g.Value(d2).SetGradientAt(0, 1)
		g.Backward()
		return g.Value(d1).GetAt(0) + g.Value(d2).GetAt(0)
	}

	checkLeaf(t, emb, run)
	checkLeaf(t, a, run)

	// Rows that were never plucked get no gradient.
	emb.ZeroGradients()
	run(true)
	for _, row := range []int{0, 2, 3} {
		for c := range 3 {
			assert.Zero(t, emb.GetGradient(c, row, 0))
		}
	}
}

func TestGraph_InferenceSkipsBackward(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	w, x := randomMatrix(2, 2, rng), randomMatrix(2, 1, rng)
	g := autodiff.NewGraph(false)
	assert.False(t, g.Backprop())
	out := g.Tanh(g.Mul(g.Leaf(w), g.Leaf(x)))
	g.Forward()
	g.Value(out).SetGradientAt(0, 1)
	g.Backward()
	assert.Equal(t, []float64{0, 0, 0, 0}, w.Gradients())
}

func TestGraph_LenValueClear(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	w := randomMatrix(2, 2, rng)
	g := autodiff.NewGraph(true)
	id := g.Leaf(w)
	assert.Same(t, w, g.Value(id))
	assert.Equal(t, 0, g.Len())

	h := g.Tanh(g.Mul(id, id))
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 2, g.Value(h).Width())

	g.Clear()
	assert.Equal(t, 0, g.Len())
	assert.Panics(t, func() { g.Value(id) })
	assert.Panics(t, func() { g.Leaf(nil) })
}

func TestGraph_ShapeMismatchPanics(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	g := autodiff.NewGraph(true)
	a, b := g.Leaf(randomMatrix(2, 3, rng)), g.Leaf(randomMatrix(2, 1, rng))
	assert.Panics(t, func() { g.Mul(a, b) })
	assert.Panics(t, func() { g.Add(a, b) })
	assert.Panics(t, func() { g.EltMul(a, b) })
	assert.Panics(t, func() { g.Copy(a, b) })
}

// TestGraphTree_SharedWeightsAcrossSteps unrolls h_t = tanh(W h_{t-1} + U x_t)
// over three steps, one Graph per step, handing each hidden state to fresh
// per-step Volumes through Copy.
func TestGraphTree_SharedWeightsAcrossSteps(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	w, u := randomMatrix(3, 3, rng), randomMatrix(3, 2, rng)
	xs := []*volume.Volume{randomMatrix(2, 1, rng), randomMatrix(2, 1, rng), randomMatrix(2, 1, rng)}
	c := randomMatrix(3, 1, rng)

	run := func(backprop bool) float64 {
		tree := autodiff.NewGraphTree(backprop)
		prev := volume.New(1, 3, 1)
		var last *autodiff.Graph
		var lastH autodiff.NodeID
		for _, x := range xs {
			next := volume.New(1, 3, 1)
			g := tree.Add()
			h := g.Tanh(g.Add(g.Mul(g.Leaf(w), g.Leaf(prev)), g.Mul(g.Leaf(u), g.Leaf(x))))
			g.Copy(h, g.Leaf(next))
			g.Forward()
			prev, last, lastH = next, g, h
		}
		out := last.Dot(lastH, last.Leaf(c))
		last.Forward()
		last.Value(out).SetGradientAt(0, 1)
		tree.Backward()
		require.Equal(t, 3, tree.Len())
		return last.Value(out).GetAt(0)
	}

	checkLeaf(t, w, run)
	checkLeaf(t, u, run)
	checkLeaf(t, xs[0], run)
}

func TestGraphTree_ForwardReplaysInOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	w := randomMatrix(2, 2, rng)
	in := randomMatrix(2, 1, rng)
	mid := volume.New(1, 2, 1)

	tree := autodiff.NewGraphTree(true)
	g1 := tree.Add()
	g1.Copy(g1.Tanh(g1.Mul(g1.Leaf(w), g1.Leaf(in))), g1.Leaf(mid))
	g2 := tree.Add()
	out := g2.Mul(g2.Leaf(w), g2.Leaf(mid))
	tree.Forward()

	first := append([]float64(nil), g2.Value(out).Weights()...)
	in.SetAt(0, in.GetAt(0)+1)
	tree.Forward()
	assert.NotEqual(t, first, g2.Value(out).Weights())

	tree.Clear()
	assert.Equal(t, 0, tree.Len())
	assert.Empty(t, tree.Graphs())
}
