// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package autodiff_test

import (
	"math"
	"testing"

	"github.com/born-ml/volnet/autodiff"
	"github.com/born-ml/volnet/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGraph_MatrixVector verifies the forward value and the weight gradient
// of tanh(W x).
func TestGraph_MatrixVector(t *testing.T) {
	w, err := volume.FromSlice(2, 1, 1, []float64{0.5, -0.25}) // 1x2
	require.NoError(t, err)
	x, err := volume.FromSlice(1, 2, 1, []float64{2, 4}) // 2x1
	require.NoError(t, err)

	g := autodiff.NewGraph(true)
	h := g.Tanh(g.Mul(g.Leaf(w), g.Leaf(x)))
	g.Forward()
	out := g.Value(h)
	assert.InDelta(t, math.Tanh(0), out.GetAt(0), 1e-12)

	out.SetGradientAt(0, 1)
	g.Backward()
	assert.InDeltaSlice(t, []float64{2, 4}, w.Gradients(), 1e-12)
}
