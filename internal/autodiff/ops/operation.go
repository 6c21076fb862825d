// Package ops defines the node kernels of the autodiff tape.
//
// Each kernel holds its operand Volumes and owns its output Volume:
//   - Forward computes the output from the operands and zeroes the output
//     gradient.
//   - Backward reads the output gradient and adds each operand's share into
//     the operand gradients.
//
// Kernels never reset operand gradients, so an operand used by several
// kernels (a shared weight, a hidden state read by two gates) accumulates
// every contribution.
//
// Supported kernels:
//   - RowPluckOp: one row of a matrix as a column vector
//   - TanhOp, SigmoidOp, ReLUOp: elementwise nonlinearities
//   - MatMulOp: matrix product (d(A@B)/dA = grad@B^T, d(A@B)/dB = A^T@grad)
//   - AddOp, EltMulOp: elementwise sum and product
//   - DotOp: inner product
//   - CopyOp: assignment into an existing Volume
//
// Matrices are Volumes of depth 1 with width columns and height rows, so
// element (row r, column c) sits at index r*width+c.
package ops

import (
	"fmt"

	"github.com/born-ml/volnet/internal/volume"
)

// Operation is one recorded node.
type Operation interface {
	// Forward computes Output from Inputs.
	Forward()

	// Backward propagates Output's gradient into the gradients of Inputs.
	Backward()

	// Inputs returns the operand Volumes.
	Inputs() []*volume.Volume

	// Output returns the Volume written by Forward.
	Output() *volume.Volume
}

func mustSameShape(op string, a, b *volume.Volume) {
	if !a.SameShape(b) {
		panic(fmt.Sprintf("%s: shape mismatch %v vs %v", op, a, b))
	}
}

func mustMatrix(op string, v *volume.Volume) {
	if v.Depth() != 1 {
		panic(fmt.Sprintf("%s: %v is not a matrix", op, v))
	}
}

// resetOutput zeroes the gradient of an output about to be recomputed.
func resetOutput(v *volume.Volume) {
	v.ZeroGradients()
}
