package ops

import "github.com/born-ml/volnet/internal/volume"

// ReLUOp represents the rectified linear unit: max(0, x).
//
// d(ReLU(x))/dx = 1 if x > 0, else 0.
type ReLUOp struct {
	input  *volume.Volume
	output *volume.Volume
}

// NewReLUOp creates a new ReLU operation.
func NewReLUOp(input *volume.Volume) *ReLUOp {
	return &ReLUOp{input: input, output: input.CloneAndZero()}
}

// Forward implements Operation.
func (op *ReLUOp) Forward() {
	out := op.output.Weights()
	for i, x := range op.input.Weights() {
		out[i] = max(0, x)
	}
	resetOutput(op.output)
}

// Backward implements Operation.
func (op *ReLUOp) Backward() {
	out, dout := op.output.Weights(), op.output.Gradients()
	din := op.input.Gradients()
	for i, y := range out {
		if y > 0 {
			din[i] += dout[i]
		}
	}
}

// Inputs implements Operation.
func (op *ReLUOp) Inputs() []*volume.Volume { return []*volume.Volume{op.input} }

// Output implements Operation.
func (op *ReLUOp) Output() *volume.Volume { return op.output }
