package ops

import (
	"github.com/born-ml/volnet/internal/volume"
	"gonum.org/v1/gonum/floats"
)

// EltMulOp represents an element-wise multiplication operation: output = a * b.
//
// Backward pass:
//   - grad_a += outputGrad * b
//   - grad_b += outputGrad * a
type EltMulOp struct {
	a, b   *volume.Volume
	output *volume.Volume
}

// NewEltMulOp creates a new EltMulOp.
func NewEltMulOp(a, b *volume.Volume) *EltMulOp {
	mustSameShape("EltMul", a, b)
	return &EltMulOp{a: a, b: b, output: a.CloneAndZero()}
}

// Forward implements Operation.
func (op *EltMulOp) Forward() {
	floats.MulTo(op.output.Weights(), op.a.Weights(), op.b.Weights())
	resetOutput(op.output)
}

// Backward implements Operation.
func (op *EltMulOp) Backward() {
	aw, bw := op.a.Weights(), op.b.Weights()
	da, db := op.a.Gradients(), op.b.Gradients()
	for i, g := range op.output.Gradients() {
		da[i] += bw[i] * g
		db[i] += aw[i] * g
	}
}

// Inputs implements Operation.
func (op *EltMulOp) Inputs() []*volume.Volume { return []*volume.Volume{op.a, op.b} }

// Output implements Operation.
func (op *EltMulOp) Output() *volume.Volume { return op.output }
