package nn

import (
	"testing"

	"github.com/born-ml/volnet/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildNet(t *testing.T, layers ...Layer) *Net {
	t.Helper()
	n := NewNet(newRand())
	for _, l := range layers {
		require.NoError(t, n.AddLayer(l))
	}
	return n
}

func mustInput(t *testing.T, w, h, d int) *Input {
	t.Helper()
	in, err := NewInput(w, h, d)
	require.NoError(t, err)
	return in
}

func mustFC(t *testing.T, neurons int) *FullyConn {
	t.Helper()
	fc, err := NewFullyConn(neurons)
	require.NoError(t, err)
	return fc
}

func TestNet_CheckLayer(t *testing.T) {
	sm3, err := NewSoftmax(3)
	require.NoError(t, err)

	t.Run("first layer must be input", func(t *testing.T) {
		n := NewNet(newRand())
		err := n.AddLayer(mustFC(t, 2))
		assert.ErrorIs(t, err, ErrInvalidTopology)
		assert.Zero(t, n.Len())
	})

	t.Run("second input rejected", func(t *testing.T) {
		n := buildNet(t, mustInput(t, 1, 1, 2))
		assert.ErrorIs(t, n.AddLayer(mustInput(t, 1, 1, 2)), ErrInvalidTopology)
	})

	t.Run("loss must follow fc", func(t *testing.T) {
		n := buildNet(t, mustInput(t, 1, 1, 3))
		assert.ErrorIs(t, n.AddLayer(sm3), ErrInvalidTopology)
	})

	t.Run("loss input count must match fc", func(t *testing.T) {
		n := buildNet(t, mustInput(t, 1, 1, 2), mustFC(t, 4))
		assert.ErrorIs(t, n.AddLayer(sm3), ErrInvalidTopology)
	})

	t.Run("heteroscedastic needs twice the neurons", func(t *testing.T) {
		hr, err := NewHeteroscedasticRegression(2)
		require.NoError(t, err)
		n := buildNet(t, mustInput(t, 1, 1, 2), mustFC(t, 2))
		assert.ErrorIs(t, n.AddLayer(hr), ErrInvalidTopology)

		n = buildNet(t, mustInput(t, 1, 1, 2), mustFC(t, 4))
		assert.NoError(t, n.AddLayer(hr))
	})

	t.Run("nothing after loss", func(t *testing.T) {
		sm, err := NewSoftmax(2)
		require.NoError(t, err)
		n := buildNet(t, mustInput(t, 1, 1, 2), mustFC(t, 2), sm)
		assert.ErrorIs(t, n.AddLayer(NewRelu()), ErrInvalidTopology)
		assert.Equal(t, 3, n.Len())
	})
}

func TestNet_AddLayerPropagatesShape(t *testing.T) {
	conv, err := NewConv(3, 3, 4)
	require.NoError(t, err)
	conv.Pad = 1
	pool, err := NewPool(2, 2)
	require.NoError(t, err)

	n := buildNet(t, mustInput(t, 8, 8, 1), conv, NewRelu(), pool, mustFC(t, 3))
	assert.Equal(t, 4, pool.OutputWidth())
	assert.Equal(t, 4, pool.OutputDepth())
	w, h, d := n.InputShape()
	assert.Equal(t, [3]int{8, 8, 1}, [3]int{w, h, d})

	out := n.Forward(volume.New(8, 8, 1), false)
	assert.Equal(t, 3, out.Len())
	assert.Same(t, out, n.Output())
}

func TestNet_Prediction(t *testing.T) {
	reg, err := NewRegression(2)
	require.NoError(t, err)
	n := buildNet(t, mustInput(t, 1, 1, 2), mustFC(t, 2), reg)
	n.Forward(volume.New(1, 1, 2), false)
	assert.Panics(t, func() { n.Prediction() })

	sm, err := NewSoftmax(3)
	require.NoError(t, err)
	n = buildNet(t, mustInput(t, 1, 1, 2), mustFC(t, 3), sm)
	in, err := volume.FromSlice(1, 1, 2, []float64{0.5, -0.5})
	require.NoError(t, err)
	p := n.Forward(in, false)
	assert.Equal(t, p.MaxIndex(), n.Prediction())
}

func TestNet_BackwardMatchesNumericalLoss(t *testing.T) {
	sm, err := NewSoftmax(3)
	require.NoError(t, err)
	n := buildNet(t, mustInput(t, 2, 1, 2), mustFC(t, 5), NewTanh(), mustFC(t, 3), sm)
	in := randomVolume(2, 1, 2, newRand())
	target := ClassTarget(1)

	for _, p := range n.ParametersAndGradients() {
		p.Volume.ZeroGradients()
	}
	n.Forward(in, true)
	loss := n.Backward(target)
	assert.InDelta(t, n.CostLoss(in, target), loss, 1e-12)

	// Spot check the first layer's weights, which depend on every Backward.
	first := n.ParametersAndGradients()[0].Volume
	analytic := append([]float64(nil), first.Gradients()...)
	for i := range first.Weights() {
		orig := first.GetAt(i)
		const h = 1e-6
		first.SetAt(i, orig+h)
		lp := n.CostLoss(in, target)
		first.SetAt(i, orig-h)
		lm := n.CostLoss(in, target)
		first.SetAt(i, orig)
		assert.InDelta(t, (lp-lm)/(2*h), analytic[i], 1e-6, "weight %d", i)
	}
}

func TestNet_ResetKeepsTopology(t *testing.T) {
	sm, err := NewSoftmax(2)
	require.NoError(t, err)
	n := buildNet(t, mustInput(t, 1, 1, 2), mustFC(t, 2), sm)
	before := n.ParametersAndGradients()[0].Volume.Clone()

	n.Reset()
	after := n.ParametersAndGradients()
	require.Len(t, after, 3)
	assert.NotEqual(t, before.Weights(), after[0].Volume.Weights())
	assert.Equal(t, 3, n.Len())

	n.Clear()
	assert.Zero(t, n.Len())
	assert.Nil(t, n.Output())
}

func TestLayerConfigErrors(t *testing.T) {
	_, err := NewLRN(1, 4, 1e-4, 0.75)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewDropout(1.5)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewDropout(-0.1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewFullyConn(-1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewSoftmax(1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewMaxout(-2)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	m, err := NewMaxout(0)
	require.NoError(t, err)
	assert.Equal(t, 2, m.GroupSize)
	assert.ErrorIs(t, m.Init(1, 1, 1, newRand()), ErrInvalidArgument)
}

func TestDropout_TrainingAndInference(t *testing.T) {
	d, err := NewDropout(0.5)
	require.NoError(t, err)
	mustInit(t, d, 10, 10, 1)

	in := volume.NewFilled(10, 10, 1, 1)
	out := d.Forward(in, true)
	dropped := 0
	for _, v := range out.Weights() {
		if v == 0 {
			dropped++
		} else {
			assert.Equal(t, 1.0, v)
		}
	}
	assert.Greater(t, dropped, 20)
	assert.Less(t, dropped, 80)

	out = d.Forward(in, false)
	for _, v := range out.Weights() {
		assert.Equal(t, 0.5, v)
	}
}
