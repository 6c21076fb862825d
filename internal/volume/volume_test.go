package volume

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolume_Indexing(t *testing.T) {
	v := New(3, 2, 4)
	require.Equal(t, 24, v.Len())
	require.Len(t, v.Gradients(), 24)

	v.Set(2, 1, 3, 7.5)
	assert.Equal(t, 7.5, v.Get(2, 1, 3))
	assert.Equal(t, 7.5, v.GetAt(((3*1)+2)*4+3))

	v.AddGradient(1, 0, 2, 0.5)
	v.AddGradient(1, 0, 2, 0.25)
	assert.InDelta(t, 0.75, v.GetGradient(1, 0, 2), 1e-12)

	v.ZeroGradients()
	for _, g := range v.Gradients() {
		assert.Zero(t, g)
	}
}

func TestVolume_RandStatistics(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	v := NewRand(20, 20, 10, rng)

	var sum, sq float64
	for _, w := range v.Weights() {
		sum += w
		sq += w * w
	}
	n := float64(v.Len())
	mean := sum / n
	std := math.Sqrt(sq/n - mean*mean)

	assert.InDelta(t, 0, mean, 0.01)
	assert.InDelta(t, 1/math.Sqrt(n), std, 0.005)
}

func TestVolume_RandDistinctGenerators(t *testing.T) {
	a := NewRand(4, 1, 1, rand.New(rand.NewSource(3)))
	b := NewRand(4, 1, 1, rand.New(rand.NewSource(3)))
	c := NewRand(4, 1, 1, rand.New(rand.NewSource(4)))

	assert.Equal(t, a.Weights(), b.Weights())
	assert.NotEqual(t, a.Weights(), c.Weights())
}

func TestVolume_AddFromScaled(t *testing.T) {
	a, err := FromSlice(3, 1, 1, []float64{1, 2, 3})
	require.NoError(t, err)
	b, err := FromSlice(3, 1, 1, []float64{10, 20, 30})
	require.NoError(t, err)

	a.AddFromScaled(b, 0.5)
	assert.Equal(t, []float64{6, 12, 18}, a.Weights())

	a.AddFrom(b)
	assert.Equal(t, []float64{16, 32, 48}, a.Weights())
}

func TestVolume_FromSliceLengthMismatch(t *testing.T) {
	_, err := FromSlice(2, 2, 1, []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestVolume_CloneIsDeep(t *testing.T) {
	a := NewFilled(2, 2, 1, 1)
	a.SetGradientAt(0, 3)
	b := a.Clone()
	b.SetAt(0, 9)
	b.SetGradientAt(0, 4)

	assert.Equal(t, 1.0, a.GetAt(0))
	assert.Equal(t, 3.0, a.GetGradientAt(0))
	assert.True(t, a.SameShape(b))
}

func TestVolume_MaxIndex(t *testing.T) {
	v, err := FromSlice(4, 1, 1, []float64{0.1, 3, -2, 2.9})
	require.NoError(t, err)
	assert.Equal(t, 1, v.MaxIndex())
}

func TestVolume_AugmentCropAndFlip(t *testing.T) {
	v := New(4, 4, 1)
	for i := 0; i < 16; i++ {
		v.SetAt(i, float64(i))
	}

	crop := v.Augment(2, 1, 2, false, nil)
	require.Equal(t, 2, crop.Width())
	require.Equal(t, 2, crop.Height())
	require.Len(t, crop.Gradients(), crop.Len())
	assert.Equal(t, []float64{9, 10, 13, 14}, crop.Weights())

	flipped := v.Augment(2, 1, 2, true, nil)
	assert.Equal(t, []float64{10, 9, 14, 13}, flipped.Weights())
}

func TestVolume_AugmentIdentity(t *testing.T) {
	v := NewFilled(3, 3, 2, 1)
	assert.Same(t, v, v.Augment(3, 0, 0, false, nil))
}

func TestVolume_AugmentRandomOffset(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	v := NewFilled(8, 8, 3, 2)
	w := v.Augment(6, -1, -1, false, rng)
	assert.Equal(t, 6*6*3, w.Len())
	assert.Len(t, w.Gradients(), w.Len())
}

func TestVolume_Restore(t *testing.T) {
	_, err := Restore(2, 1, 1, []float64{1}, nil)
	assert.Error(t, err)

	v, err := Restore(2, 1, 1, []float64{1, 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, v.Gradients())
}
