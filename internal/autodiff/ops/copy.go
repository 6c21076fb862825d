package ops

import "github.com/born-ml/volnet/internal/volume"

// CopyOp assigns src's weights to an existing Volume dst, which is its
// output. It is how a recurrent step hands its hidden state to the Volume
// the next step reads.
//
// Forward leaves dst's gradient alone: the next step accumulates into it
// and runs its Backward first. Backward adds dst's gradient into src's.
type CopyOp struct {
	src, dst *volume.Volume
}

// NewCopyOp creates a CopyOp. It panics if src and dst are the same Volume
// or differ in shape.
func NewCopyOp(src, dst *volume.Volume) *CopyOp {
	mustSameShape("Copy", src, dst)
	if src == dst {
		panic("Copy: source and destination are the same Volume")
	}
	return &CopyOp{src: src, dst: dst}
}

// Forward implements Operation.
func (op *CopyOp) Forward() {
	copy(op.dst.Weights(), op.src.Weights())
}

// Backward implements Operation.
func (op *CopyOp) Backward() {
	ds := op.src.Gradients()
	for i, g := range op.dst.Gradients() {
		ds[i] += g
	}
}

// Inputs implements Operation.
func (op *CopyOp) Inputs() []*volume.Volume { return []*volume.Volume{op.src} }

// Output implements Operation.
func (op *CopyOp) Output() *volume.Volume { return op.dst }
