package ops

import (
	"fmt"

	"github.com/born-ml/volnet/internal/volume"
	"gonum.org/v1/gonum/mat"
)

// MatMulOp represents a matrix multiplication operation: output = a @ b.
//
// Backward pass:
//   - grad_a += outputGrad @ b^T
//   - grad_b += a^T @ outputGrad
//
// The products run on gonum Dense views over the Volume buffers; nothing is
// copied in or out.
type MatMulOp struct {
	a, b   *volume.Volume
	output *volume.Volume
	tmp    mat.Dense
}

// NewMatMulOp creates a MatMulOp. It panics unless a is n×k and b is k×m.
func NewMatMulOp(a, b *volume.Volume) *MatMulOp {
	mustMatrix("MatMul", a)
	mustMatrix("MatMul", b)
	if a.Width() != b.Height() {
		panic(fmt.Sprintf("MatMul: inner dimensions differ: %v @ %v", a, b))
	}
	return &MatMulOp{a: a, b: b, output: volume.New(b.Width(), a.Height(), 1)}
}

func weightsView(v *volume.Volume) *mat.Dense {
	return mat.NewDense(v.Height(), v.Width(), v.Weights())
}

func gradientsView(v *volume.Volume) *mat.Dense {
	return mat.NewDense(v.Height(), v.Width(), v.Gradients())
}

// Forward implements Operation.
func (op *MatMulOp) Forward() {
	weightsView(op.output).Mul(weightsView(op.a), weightsView(op.b))
	resetOutput(op.output)
}

// Backward implements Operation.
func (op *MatMulOp) Backward() {
	dout := gradientsView(op.output)

	da := gradientsView(op.a)
	op.tmp.Reset()
	op.tmp.Mul(dout, weightsView(op.b).T())
	da.Add(da, &op.tmp)

	db := gradientsView(op.b)
	op.tmp.Reset()
	op.tmp.Mul(weightsView(op.a).T(), dout)
	db.Add(db, &op.tmp)
}

// Inputs implements Operation.
func (op *MatMulOp) Inputs() []*volume.Volume { return []*volume.Volume{op.a, op.b} }

// Output implements Operation.
func (op *MatMulOp) Output() *volume.Volume { return op.output }
