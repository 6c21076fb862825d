// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides a reverse-mode automatic differentiation tape
// over Volumes.
//
// A Graph records node operations as they are constructed and replays them:
// Forward in insertion order, Backward in exact reverse. Matrices are
// Volumes of width cols, height rows and depth 1. Parameters enter a Graph
// as leaves; their gradients accumulate across Backward calls until the
// caller's update zeroes them.
//
// Example:
//
//	import (
//	    "github.com/born-ml/volnet/autodiff"
//	    "github.com/born-ml/volnet/volume"
//	)
//
//	func main() {
//	    w := volume.NewRand(3, 4, 1, rng) // 4x3 matrix
//	    x, _ := volume.FromSlice(1, 3, 1, []float64{1, 2, 3})
//
//	    g := autodiff.NewGraph(true)
//	    h := g.Tanh(g.Mul(g.Leaf(w), g.Leaf(x)))
//	    g.Forward()
//
//	    out := g.Value(h)
//	    out.SetGradientAt(0, 1) // d loss / d h[0]
//	    g.Backward()            // w.Gradients() now holds d loss / d w
//	}
//
// A GraphTree holds one Graph per time step of a recurrent model so that
// the whole unrolled sequence is backpropagated in reverse.
package autodiff

import (
	"github.com/born-ml/volnet/internal/autodiff"
)

// Graph records and replays node operations.
type Graph = autodiff.Graph

// NodeID identifies a value recorded on a Graph.
type NodeID = autodiff.NodeID

// NewGraph creates an empty Graph. Backward is a no-op unless backprop is
// set.
func NewGraph(backprop bool) *Graph {
	return autodiff.NewGraph(backprop)
}

// GraphTree is an ordered set of Graphs sharing leaves.
type GraphTree = autodiff.GraphTree

// NewGraphTree creates an empty GraphTree.
func NewGraphTree(backprop bool) *GraphTree {
	return autodiff.NewGraphTree(backprop)
}
