package ops

import (
	"math"

	"github.com/born-ml/volnet/internal/volume"
)

// SigmoidOp represents the logistic activation σ(x) = 1 / (1 + exp(-x)).
//
// With the output σ(x) at hand: grad_input += grad_output * σ(x) * (1 - σ(x)).
type SigmoidOp struct {
	input  *volume.Volume
	output *volume.Volume
}

// NewSigmoidOp creates a new sigmoid operation.
func NewSigmoidOp(input *volume.Volume) *SigmoidOp {
	return &SigmoidOp{input: input, output: input.CloneAndZero()}
}

// Forward implements Operation.
func (op *SigmoidOp) Forward() {
	out := op.output.Weights()
	for i, x := range op.input.Weights() {
		out[i] = 1 / (1 + math.Exp(-x))
	}
	resetOutput(op.output)
}

// Backward implements Operation.
func (op *SigmoidOp) Backward() {
	out, dout := op.output.Weights(), op.output.Gradients()
	din := op.input.Gradients()
	for i, y := range out {
		din[i] += y * (1 - y) * dout[i]
	}
}

// Inputs implements Operation.
func (op *SigmoidOp) Inputs() []*volume.Volume { return []*volume.Volume{op.input} }

// Output implements Operation.
func (op *SigmoidOp) Output() *volume.Volume { return op.output }
