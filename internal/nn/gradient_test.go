package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFullyConn_GradientCheck(t *testing.T) {
	l, err := NewFullyConn(4)
	require.NoError(t, err)
	l.BiasPref = 0.1
	mustInit(t, l, 2, 2, 3)
	checkLayerGradients(t, l, randomVolume(2, 2, 3, newRand()), true)
}

func TestConv_GradientCheck(t *testing.T) {
	l, err := NewConv(3, 2, 3)
	require.NoError(t, err)
	l.Stride, l.Pad = 2, 1
	mustInit(t, l, 5, 4, 2)
	checkLayerGradients(t, l, randomVolume(5, 4, 2, newRand()), true)
}

func TestDeconv_GradientCheck(t *testing.T) {
	l, err := NewDeconv(3, 3, 2)
	require.NoError(t, err)
	l.Stride, l.Pad = 2, 1
	mustInit(t, l, 3, 3, 2)
	checkLayerGradients(t, l, randomVolume(3, 3, 2, newRand()), true)
}

func TestPool_GradientCheck(t *testing.T) {
	l, err := NewPool(2, 2)
	require.NoError(t, err)
	mustInit(t, l, 4, 4, 2)
	checkLayerGradients(t, l, randomVolume(4, 4, 2, newRand()), true)
}

func TestUnpool_GradientCheck(t *testing.T) {
	l, err := NewUnpool(3, 3)
	require.NoError(t, err)
	mustInit(t, l, 3, 3, 2)
	checkLayerGradients(t, l, randomVolume(3, 3, 2, newRand()), true)
}

func TestMaxout_GradientCheck(t *testing.T) {
	l, err := NewMaxout(2)
	require.NoError(t, err)
	mustInit(t, l, 2, 2, 6)
	checkLayerGradients(t, l, randomVolume(2, 2, 6, newRand()), true)
}

func TestDropout_EvalGradientCheck(t *testing.T) {
	l, err := NewDropout(0.4)
	require.NoError(t, err)
	mustInit(t, l, 2, 3, 2)
	checkLayerGradients(t, l, randomVolume(2, 3, 2, newRand()), false)
}

func TestActivations_GradientCheck(t *testing.T) {
	for _, l := range []Layer{NewRelu(), NewSigmoid(), NewTanh()} {
		t.Run(l.Kind().String(), func(t *testing.T) {
			mustInit(t, l, 3, 2, 2)
			checkLayerGradients(t, l, randomVolume(3, 2, 2, newRand()), true)
		})
	}
}

func TestLRN_GradientCheck(t *testing.T) {
	l, err := NewLRN(1, 3, 0.5, 0.75)
	require.NoError(t, err)
	mustInit(t, l, 2, 2, 5)
	checkLayerGradients(t, l, randomVolume(2, 2, 5, newRand()), true)
}

func TestSoftmax_GradientCheck(t *testing.T) {
	l, err := NewSoftmax(5)
	require.NoError(t, err)
	mustInit(t, l, 1, 1, 5)
	checkLossGradients(t, l, randomVolume(1, 1, 5, newRand()), ClassTarget(3))
}

func TestSVM_GradientCheck(t *testing.T) {
	l, err := NewSVM(4)
	require.NoError(t, err)
	mustInit(t, l, 1, 1, 4)
	checkLossGradients(t, l, randomVolume(1, 1, 4, newRand()), ClassTarget(1))
}

func TestRegression_GradientCheck(t *testing.T) {
	l, err := NewRegression(3)
	require.NoError(t, err)
	mustInit(t, l, 1, 1, 3)
	in := randomVolume(1, 1, 3, newRand())
	checkLossGradients(t, l, in, VectorTarget([]float64{0.5, -0.25, 2}))
	checkLossGradients(t, l, in, DimTarget(1, 0.75))
}
