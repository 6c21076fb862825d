package ops_test

import (
	"math/rand"
	"testing"

	"github.com/born-ml/volnet/internal/autodiff/ops"
	"github.com/born-ml/volnet/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
)

var central = &fd.Settings{Formula: fd.Central, Step: 1e-5}

func randomMatrix(rows, cols int, rng *rand.Rand) *volume.Volume {
	v := volume.New(cols, rows, 1)
	for i := range v.Weights() {
		v.SetAt(i, rng.NormFloat64())
	}
	return v
}

// checkGradients compares Backward against central differences of
// L = Σ c_i * output_i for a random c.
func checkGradients(t *testing.T, op ops.Operation) {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	out := op.Output()
	c := make([]float64, out.Len())
	for i := range c {
		c[i] = rng.NormFloat64()
	}
	loss := func() float64 {
		op.Forward()
		return floats.Dot(c, out.Weights())
	}

	for _, in := range op.Inputs() {
		in.ZeroGradients()
	}
	op.Forward()
	copy(out.Gradients(), c)
	op.Backward()

	for k, in := range op.Inputs() {
		analytic := append([]float64(nil), in.Gradients()...)
		for i := range in.Weights() {
			orig := in.GetAt(i)
			num := fd.Derivative(func(x float64) float64 {
				in.SetAt(i, x)
				defer in.SetAt(i, orig)
				return loss()
			}, orig, central)
			assert.InDelta(t, num, analytic[i], 1e-6, "input %d element %d", k, i)
		}
	}
}

func TestRowPluckOp(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := randomMatrix(4, 3, rng)
	op := ops.NewRowPluckOp(m, 2)
	op.Forward()
	assert.Equal(t, [3]int{1, 3, 1}, [3]int{op.Output().Width(), op.Output().Height(), op.Output().Depth()})
	assert.Equal(t, m.Weights()[6:9], op.Output().Weights())
	checkGradients(t, op)

	assert.Panics(t, func() { ops.NewRowPluckOp(m, 4) })
}

func TestActivationOps(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for name, build := range map[string]func(*volume.Volume) ops.Operation{
		"tanh":    func(v *volume.Volume) ops.Operation { return ops.NewTanhOp(v) },
		"sigmoid": func(v *volume.Volume) ops.Operation { return ops.NewSigmoidOp(v) },
		"relu":    func(v *volume.Volume) ops.Operation { return ops.NewReLUOp(v) },
	} {
		t.Run(name, func(t *testing.T) {
			checkGradients(t, build(randomMatrix(3, 2, rng)))
		})
	}
}

func TestReLUOp_Values(t *testing.T) {
	v, err := volume.FromSlice(3, 1, 1, []float64{-1, 0, 2})
	require.NoError(t, err)
	op := ops.NewReLUOp(v)
	op.Forward()
	assert.Equal(t, []float64{0, 0, 2}, op.Output().Weights())
}

func TestMatMulOp(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := randomMatrix(2, 3, rng)
	b := randomMatrix(3, 4, rng)
	op := ops.NewMatMulOp(a, b)
	op.Forward()

	out := op.Output()
	require.Equal(t, [2]int{4, 2}, [2]int{out.Width(), out.Height()})
	for r := range 2 {
		for c := range 4 {
			want := 0.0
			for k := range 3 {
				want += a.Get(k, r, 0) * b.Get(c, k, 0)
			}
			assert.InDelta(t, want, out.Get(c, r, 0), 1e-12)
		}
	}
	checkGradients(t, op)

	assert.Panics(t, func() { ops.NewMatMulOp(a, a) })
}

func TestMatMulOp_SharedOperand(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	checkGradients(t, ops.NewMatMulOp(randomMatrix(3, 3, rng), randomMatrix(3, 1, rng)))

	sq := randomMatrix(2, 2, rng)
	checkGradients(t, ops.NewMatMulOp(sq, sq))
}

func TestAddOp(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a, b := randomMatrix(3, 1, rng), randomMatrix(3, 1, rng)
	op := ops.NewAddOp(a, b)
	op.Forward()
	for i := range 3 {
		assert.InDelta(t, a.GetAt(i)+b.GetAt(i), op.Output().GetAt(i), 1e-15)
	}
	checkGradients(t, op)

	assert.Panics(t, func() { ops.NewAddOp(a, randomMatrix(1, 3, rng)) })
}

func TestEltMulOp(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	checkGradients(t, ops.NewEltMulOp(randomMatrix(4, 1, rng), randomMatrix(4, 1, rng)))

	v := randomMatrix(4, 1, rng)
	checkGradients(t, ops.NewEltMulOp(v, v))
}

func TestDotOp(t *testing.T) {
	a, err := volume.FromSlice(1, 3, 1, []float64{1, 2, 3})
	require.NoError(t, err)
	b, err := volume.FromSlice(1, 3, 1, []float64{4, -5, 6})
	require.NoError(t, err)
	op := ops.NewDotOp(a, b)
	op.Forward()
	assert.Equal(t, 12.0, op.Output().GetAt(0))
	checkGradients(t, op)
}

func TestCopyOp(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	src, dst := randomMatrix(3, 1, rng), volume.New(1, 3, 1)
	op := ops.NewCopyOp(src, dst)
	op.Forward()
	assert.Equal(t, src.Weights(), dst.Weights())
	assert.Same(t, dst, op.Output())

	dst.SetGradientAt(1, 2.5)
	op.Forward()
	assert.Equal(t, 2.5, dst.GetGradientAt(1), "Forward must not clear the destination gradient")
	checkGradients(t, op)

	assert.Panics(t, func() { ops.NewCopyOp(src, src) })
}

func TestForwardClearsOutputGradient(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	op := ops.NewTanhOp(randomMatrix(2, 1, rng))
	op.Forward()
	op.Output().SetGradientAt(0, 1)
	op.Forward()
	assert.Equal(t, []float64{0, 0}, op.Output().Gradients())
}
