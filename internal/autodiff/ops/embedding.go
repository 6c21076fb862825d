package ops

import (
	"fmt"

	"github.com/born-ml/volnet/internal/volume"
)

// RowPluckOp selects one row of a matrix, typically a character embedding.
//
// Forward: output[i] = m[row, i], as a column vector (width 1, height
// m.Width()).
//
// Backward: m.grad[row, i] += output.grad[i]. Plucking the same row twice
// accumulates both contributions.
type RowPluckOp struct {
	m      *volume.Volume
	row    int
	output *volume.Volume
}

// NewRowPluckOp creates a RowPluckOp. It panics if row is outside m.
func NewRowPluckOp(m *volume.Volume, row int) *RowPluckOp {
	mustMatrix("RowPluck", m)
	if row < 0 || row >= m.Height() {
		panic(fmt.Sprintf("RowPluck: row %d outside %v", row, m))
	}
	return &RowPluckOp{m: m, row: row, output: volume.New(1, m.Width(), 1)}
}

// Forward implements Operation.
func (op *RowPluckOp) Forward() {
	cols := op.m.Width()
	copy(op.output.Weights(), op.m.Weights()[op.row*cols:(op.row+1)*cols])
	resetOutput(op.output)
}

// Backward implements Operation.
func (op *RowPluckOp) Backward() {
	cols := op.m.Width()
	dm := op.m.Gradients()[op.row*cols : (op.row+1)*cols]
	for i, g := range op.output.Gradients() {
		dm[i] += g
	}
}

// Inputs implements Operation.
func (op *RowPluckOp) Inputs() []*volume.Volume { return []*volume.Volume{op.m} }

// Output implements Operation.
func (op *RowPluckOp) Output() *volume.Volume { return op.output }
