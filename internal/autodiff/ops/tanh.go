package ops

import (
	"math"

	"github.com/born-ml/volnet/internal/volume"
)

// TanhOp represents the hyperbolic tangent activation.
//
// Since the output tanh(x) is already computed:
// grad_input += grad_output * (1 - output²).
type TanhOp struct {
	input  *volume.Volume
	output *volume.Volume
}

// NewTanhOp creates a new tanh operation.
func NewTanhOp(input *volume.Volume) *TanhOp {
	return &TanhOp{input: input, output: input.CloneAndZero()}
}

// Forward implements Operation.
func (op *TanhOp) Forward() {
	out := op.output.Weights()
	for i, x := range op.input.Weights() {
		out[i] = math.Tanh(x)
	}
	resetOutput(op.output)
}

// Backward implements Operation.
func (op *TanhOp) Backward() {
	out, dout := op.output.Weights(), op.output.Gradients()
	din := op.input.Gradients()
	for i, y := range out {
		din[i] += (1 - y*y) * dout[i]
	}
}

// Inputs implements Operation.
func (op *TanhOp) Inputs() []*volume.Volume { return []*volume.Volume{op.input} }

// Output implements Operation.
func (op *TanhOp) Output() *volume.Volume { return op.output }
