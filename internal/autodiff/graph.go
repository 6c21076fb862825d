// Package autodiff implements a reverse-mode differentiation tape over
// Volumes.
//
// A Graph is an arena: every Volume it knows about, whether an external
// leaf or a node output, gets a NodeID, and every node refers to its
// operands by NodeID. Nodes are recorded by the constructor methods and
// executed later:
//
//	g := autodiff.NewGraph(true)
//	w, x := g.Leaf(weights), g.Leaf(input)
//	h := g.Tanh(g.Mul(w, x))
//	g.Forward()
//	g.Value(h).SetGradientAt(0, 1)
//	g.Backward() // weights.Gradients() now holds dh/dW
//
// Forward runs the nodes in insertion order and Backward in exact reverse,
// because a later node's Backward feeds the output gradient an earlier
// node's Backward consumes. Leaf gradients are only ever added to; the
// owner of a leaf Volume clears them.
package autodiff

import (
	"fmt"

	"github.com/born-ml/volnet/internal/autodiff/ops"
	"github.com/born-ml/volnet/internal/volume"
)

// NodeID addresses a Volume in a Graph's arena.
type NodeID int

// Graph records one dataflow of tape nodes.
type Graph struct {
	backprop bool
	values   []*volume.Volume
	nodes    []ops.Operation
}

// NewGraph creates an empty Graph. When backprop is false, Backward does
// nothing, which suits inference passes.
func NewGraph(backprop bool) *Graph {
	return &Graph{
		backprop: backprop,
		values:   make([]*volume.Volume, 0, 16),
		nodes:    make([]ops.Operation, 0, 16),
	}
}

// Backprop reports whether Backward is enabled.
func (g *Graph) Backprop() bool { return g.backprop }

// Leaf registers an external Volume, such as a weight matrix shared across
// Graphs or an input vector. The Graph never reallocates it.
func (g *Graph) Leaf(v *volume.Volume) NodeID {
	if v == nil {
		panic("Graph.Leaf: nil Volume")
	}
	g.values = append(g.values, v)
	return NodeID(len(g.values) - 1)
}

// Value returns the Volume behind id. A node's Value holds its result only
// after Forward.
func (g *Graph) Value(id NodeID) *volume.Volume {
	if id < 0 || int(id) >= len(g.values) {
		panic(fmt.Sprintf("Graph.Value: unknown node %d", id))
	}
	return g.values[id]
}

// Len returns the number of recorded nodes, leaves excluded.
func (g *Graph) Len() int { return len(g.nodes) }

// Clear drops every node and leaf. NodeIDs handed out before are invalid
// afterwards.
func (g *Graph) Clear() {
	clear(g.values)
	clear(g.nodes)
	g.values = g.values[:0]
	g.nodes = g.nodes[:0]
}

// Forward executes every node in insertion order.
func (g *Graph) Forward() {
	for _, n := range g.nodes {
		n.Forward()
	}
}

// Backward executes every node's Backward in reverse insertion order. Seed
// the gradient of the final outputs between Forward and Backward.
func (g *Graph) Backward() {
	if !g.backprop {
		return
	}
	for i := len(g.nodes) - 1; i >= 0; i-- {
		g.nodes[i].Backward()
	}
}

func (g *Graph) record(op ops.Operation) NodeID {
	g.nodes = append(g.nodes, op)
	g.values = append(g.values, op.Output())
	return NodeID(len(g.values) - 1)
}

// RowPluck records the selection of row from matrix m as a column vector.
func (g *Graph) RowPluck(m NodeID, row int) NodeID {
	return g.record(ops.NewRowPluckOp(g.Value(m), row))
}

// Tanh records an elementwise tanh.
func (g *Graph) Tanh(x NodeID) NodeID {
	return g.record(ops.NewTanhOp(g.Value(x)))
}

// Sigmoid records an elementwise logistic function.
func (g *Graph) Sigmoid(x NodeID) NodeID {
	return g.record(ops.NewSigmoidOp(g.Value(x)))
}

// Relu records an elementwise max(0, x).
func (g *Graph) Relu(x NodeID) NodeID {
	return g.record(ops.NewReLUOp(g.Value(x)))
}

// Mul records the matrix product a @ b.
func (g *Graph) Mul(a, b NodeID) NodeID {
	return g.record(ops.NewMatMulOp(g.Value(a), g.Value(b)))
}

// Add records the elementwise sum of two same-shaped Volumes.
func (g *Graph) Add(a, b NodeID) NodeID {
	return g.record(ops.NewAddOp(g.Value(a), g.Value(b)))
}

// Dot records the inner product of two same-shaped Volumes, a 1x1x1 result.
func (g *Graph) Dot(a, b NodeID) NodeID {
	return g.record(ops.NewDotOp(g.Value(a), g.Value(b)))
}

// EltMul records the elementwise product of two same-shaped Volumes.
func (g *Graph) EltMul(a, b NodeID) NodeID {
	return g.record(ops.NewEltMulOp(g.Value(a), g.Value(b)))
}

// Copy records the assignment of src into dst, which must be a distinct
// Volume of the same shape (normally a leaf read by a later Graph). It
// returns a NodeID for dst as written by this node.
func (g *Graph) Copy(src, dst NodeID) NodeID {
	return g.record(ops.NewCopyOp(g.Value(src), g.Value(dst)))
}
