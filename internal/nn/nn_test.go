package nn

import (
	"math/rand"
	"testing"

	"github.com/born-ml/volnet/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
)

const gradTolerance = 1e-5

var centralSettings = &fd.Settings{Formula: fd.Central, Step: 1e-5}

func newRand() *rand.Rand { return rand.New(rand.NewSource(42)) }

func randomVolume(w, h, d int, rng *rand.Rand) *volume.Volume {
	v := volume.New(w, h, d)
	for i := range v.Weights() {
		v.SetAt(i, rng.Float64()*2-1)
	}
	return v
}

// weightedLoss is sum_i c[i]*out[i] for fixed coefficients c, so the output
// gradient of the loss is exactly c.
func weightedLoss(l Layer, in *volume.Volume, c []float64, training bool) float64 {
	out := l.Forward(in, training)
	s := 0.0
	for i, v := range out.Weights() {
		s += c[i] * v
	}
	return s
}

// checkLayerGradients compares Backward against central differences for the
// input and every parameter of l.
func checkLayerGradients(t *testing.T, l Layer, in *volume.Volume, training bool) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))

	out := l.Forward(in, training)
	c := make([]float64, out.Len())
	for i := range c {
		c[i] = rng.Float64()*2 - 1
	}

	for _, p := range l.ParametersAndGradients() {
		p.Volume.ZeroGradients()
	}
	l.Forward(in, training)
	copy(l.Output().Gradients(), c)
	l.Backward()

	analyticIn := append([]float64(nil), in.Gradients()...)
	for i := range in.Weights() {
		orig := in.GetAt(i)
		num := fd.Derivative(func(x float64) float64 {
			in.SetAt(i, x)
			defer in.SetAt(i, orig)
			return weightedLoss(l, in, c, training)
		}, orig, centralSettings)
		assert.InDelta(t, num, analyticIn[i], gradTolerance, "input gradient %d", i)
	}

	for pi, p := range l.ParametersAndGradients() {
		v := p.Volume
		analytic := append([]float64(nil), v.Gradients()...)
		for i := range v.Weights() {
			orig := v.GetAt(i)
			num := fd.Derivative(func(x float64) float64 {
				v.SetAt(i, x)
				defer v.SetAt(i, orig)
				return weightedLoss(l, in, c, training)
			}, orig, centralSettings)
			assert.InDelta(t, num, analytic[i], gradTolerance, "param %d element %d", pi, i)
		}
	}
}

// checkLossGradients compares BackwardLoss against central differences.
func checkLossGradients(t *testing.T, l LossLayer, in *volume.Volume, target Target) {
	t.Helper()

	l.Forward(in, true)
	l.BackwardLoss(target)
	analytic := append([]float64(nil), in.Gradients()...)

	for i := range in.Weights() {
		orig := in.GetAt(i)
		num := fd.Derivative(func(x float64) float64 {
			in.SetAt(i, x)
			defer in.SetAt(i, orig)
			l.Forward(in, false)
			return l.BackwardLoss(target)
		}, orig, centralSettings)
		assert.InDelta(t, num, analytic[i], gradTolerance, "input gradient %d", i)
	}
}

func mustInit(t *testing.T, l Layer, w, h, d int) {
	t.Helper()
	require.NoError(t, l.Init(w, h, d, newRand()))
}

func TestLayers_OutputShapeMatchesDeclared(t *testing.T) {
	rng := newRand()

	mk := func(l Layer, err error) Layer {
		require.NoError(t, err)
		return l
	}
	conv, err := NewConv(3, 3, 4)
	require.NoError(t, err)
	conv.Stride, conv.Pad = 2, 1
	deconv, err := NewDeconv(3, 3, 2)
	require.NoError(t, err)
	deconv.Stride = 2
	unpool, err := NewUnpool(2, 2)
	require.NoError(t, err)
	lrn, err := NewLRN(2, 3, 1e-4, 0.75)
	require.NoError(t, err)

	cases := []struct {
		name    string
		layer   Layer
		w, h, d int
	}{
		{"fc", mk(NewFullyConn(5)), 4, 3, 2},
		{"conv", conv, 7, 6, 3},
		{"deconv", deconv, 3, 4, 2},
		{"pool", mk(NewPool(2, 2)), 6, 5, 3},
		{"unpool", unpool, 3, 2, 2},
		{"relu", NewRelu(), 2, 3, 4},
		{"sigmoid", NewSigmoid(), 2, 3, 4},
		{"tanh", NewTanh(), 2, 3, 4},
		{"maxout", mk(NewMaxout(3)), 2, 2, 7},
		{"dropout", mk(NewDropout(0.3)), 3, 3, 1},
		{"lrn", lrn, 2, 2, 6},
		{"softmax", mk(NewSoftmax(6)), 1, 2, 3},
		{"svm", mk(NewSVM(4)), 1, 1, 4},
		{"regression", mk(NewRegression(3)), 1, 1, 3},
		{"hetero", mk(NewHeteroscedasticRegression(2)), 1, 1, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.layer.Init(tc.w, tc.h, tc.d, rng))
			out := tc.layer.Forward(randomVolume(tc.w, tc.h, tc.d, rng), true)
			assert.Equal(t, tc.layer.OutputDepth(), out.Depth())
			if tc.layer.Kind().IsLoss() {
				assert.Equal(t, tc.layer.OutputDepth(), out.Len())
				return
			}
			assert.Equal(t, tc.layer.OutputWidth(), out.Width())
			assert.Equal(t, tc.layer.OutputHeight(), out.Height())
		})
	}
}

func TestKind_NameTable(t *testing.T) {
	for k := KindInput; k <= KindHeteroscedasticRegression; k++ {
		parsed, ok := ParseKind(k.String())
		require.True(t, ok, "kind %d", k)
		assert.Equal(t, k, parsed)
	}
	_, ok := ParseKind("bogus")
	assert.False(t, ok)
	assert.True(t, KindSoftmax.IsLoss())
	assert.False(t, KindFullyConn.IsLoss())
}

func TestLayers_UseBeforeInitPanics(t *testing.T) {
	fc, err := NewFullyConn(2)
	require.NoError(t, err)
	assert.Panics(t, func() { fc.Forward(volume.New(1, 1, 2), false) })
}
