package nn

import (
	"testing"

	"github.com/born-ml/volnet/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPool_RegionalMaxima pools a 4x4 ramp with a 2x2 window and stride 2.
func TestPool_RegionalMaxima(t *testing.T) {
	pool, err := NewPool(2, 2)
	require.NoError(t, err)
	require.Equal(t, 2, pool.Stride)
	mustInit(t, pool, 4, 4, 1)

	in := volume.New(4, 4, 1)
	for i := 0; i < 16; i++ {
		in.SetAt(i, float64(i))
	}

	// [[ 0, 1, 2, 3],      -> [[ 5, 7],
	//  [ 4, 5, 6, 7],          [13,15]]
	//  [ 8, 9,10,11],
	//  [12,13,14,15]]
	out := pool.Forward(in, false)
	assert.Equal(t, []float64{5, 7, 13, 15}, out.Weights())

	for i := range out.Gradients() {
		out.SetGradientAt(i, 1)
	}
	pool.Backward()

	winners := map[int]bool{5: true, 7: true, 13: true, 15: true}
	total := 0.0
	for i, g := range in.Gradients() {
		total += g
		if winners[i] {
			assert.Equal(t, 1.0, g, "winner %d", i)
		} else {
			assert.Zero(t, g, "non-winner %d", i)
		}
	}
	assert.Equal(t, 4.0, total)
}

func TestPool_SwitchesRecomputedEachForward(t *testing.T) {
	pool, err := NewPool(2, 2)
	require.NoError(t, err)
	mustInit(t, pool, 2, 2, 1)

	a, err := volume.FromSlice(2, 2, 1, []float64{9, 0, 0, 0})
	require.NoError(t, err)
	b, err := volume.FromSlice(2, 2, 1, []float64{0, 0, 0, 9})
	require.NoError(t, err)

	pool.Forward(a, false)
	xs, ys := pool.Switches()
	assert.Equal(t, []int{0}, xs)
	assert.Equal(t, []int{0}, ys)

	pool.Forward(b, false)
	xs, ys = pool.Switches()
	assert.Equal(t, []int{1}, xs)
	assert.Equal(t, []int{1}, ys)
}

func TestUnpool_InvertsPoolGeometry(t *testing.T) {
	unpool, err := NewUnpool(2, 2)
	require.NoError(t, err)
	mustInit(t, unpool, 2, 2, 1)
	require.Equal(t, 4, unpool.OutputWidth())
	require.Equal(t, 4, unpool.OutputHeight())

	in, err := volume.FromSlice(2, 2, 1, []float64{5, 7, 13, 15})
	require.NoError(t, err)
	out := unpool.Forward(in, false)

	// Non-overlapping windows: each input fills its own 2x2 block.
	assert.Equal(t, 5.0, out.Get(1, 1, 0))
	assert.Equal(t, 7.0, out.Get(3, 0, 0))
	assert.Equal(t, 13.0, out.Get(0, 3, 0))
	assert.Equal(t, 15.0, out.Get(2, 2, 0))

	pool, err := NewPool(2, 2)
	require.NoError(t, err)
	mustInit(t, pool, 4, 4, 1)
	assert.Equal(t, in.Weights(), pool.Forward(out, false).Weights())
}

func TestPool_RejectsOversizedWindow(t *testing.T) {
	pool, err := NewPool(5, 5)
	require.NoError(t, err)
	err = pool.Init(4, 4, 1, newRand())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
