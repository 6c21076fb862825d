package ops

import (
	"github.com/born-ml/volnet/internal/volume"
	"gonum.org/v1/gonum/floats"
)

// DotOp is the inner product of two same-shaped Volumes. Its output is a
// 1x1x1 Volume.
type DotOp struct {
	a, b   *volume.Volume
	output *volume.Volume
}

// NewDotOp creates a new DotOp.
func NewDotOp(a, b *volume.Volume) *DotOp {
	mustSameShape("Dot", a, b)
	return &DotOp{a: a, b: b, output: volume.New(1, 1, 1)}
}

// Forward implements Operation.
func (op *DotOp) Forward() {
	op.output.SetAt(0, floats.Dot(op.a.Weights(), op.b.Weights()))
	resetOutput(op.output)
}

// Backward implements Operation.
func (op *DotOp) Backward() {
	g := op.output.GetGradientAt(0)
	floats.AddScaled(op.a.Gradients(), g, op.b.Weights())
	floats.AddScaled(op.b.Gradients(), g, op.a.Weights())
}

// Inputs implements Operation.
func (op *DotOp) Inputs() []*volume.Volume { return []*volume.Volume{op.a, op.b} }

// Output implements Operation.
func (op *DotOp) Output() *volume.Volume { return op.output }
