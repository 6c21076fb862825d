package ops

import (
	"github.com/born-ml/volnet/internal/volume"
	"gonum.org/v1/gonum/floats"
)

// AddOp represents an element-wise addition operation: output = a + b.
//
// Since d(a+b)/da = d(a+b)/db = 1, the gradient flows equally to both inputs.
// There is no broadcasting; a and b must have the same shape.
type AddOp struct {
	a, b   *volume.Volume
	output *volume.Volume
}

// NewAddOp creates a new AddOp.
func NewAddOp(a, b *volume.Volume) *AddOp {
	mustSameShape("Add", a, b)
	return &AddOp{a: a, b: b, output: a.CloneAndZero()}
}

// Forward implements Operation.
func (op *AddOp) Forward() {
	floats.AddTo(op.output.Weights(), op.a.Weights(), op.b.Weights())
	resetOutput(op.output)
}

// Backward implements Operation.
func (op *AddOp) Backward() {
	dout := op.output.Gradients()
	floats.Add(op.a.Gradients(), dout)
	floats.Add(op.b.Gradients(), dout)
}

// Inputs implements Operation.
func (op *AddOp) Inputs() []*volume.Volume { return []*volume.Volume{op.a, op.b} }

// Output implements Operation.
func (op *AddOp) Output() *volume.Volume { return op.output }
