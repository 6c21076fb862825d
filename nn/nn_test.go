// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"math/rand"
	"testing"

	"github.com/born-ml/volnet/nn"
	"github.com/born-ml/volnet/optim"
	"github.com/born-ml/volnet/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLayerInterface verifies that the catalog constructors return Layers of
// the expected kind.
func TestLayerInterface(t *testing.T) {
	fc, err := nn.NewFullyConn(3)
	require.NoError(t, err)
	pool, err := nn.NewPool(2, 2)
	require.NoError(t, err)
	sm, err := nn.NewSoftmax(4)
	require.NoError(t, err)

	tests := []struct {
		name  string
		layer nn.Layer
		kind  nn.Kind
	}{
		{"FullyConn", fc, nn.KindFullyConn},
		{"Pool", pool, nn.KindPool},
		{"Relu", nn.NewRelu(), nn.KindRelu},
		{"Softmax", sm, nn.KindSoftmax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.layer.Kind())
			k, ok := nn.ParseKind(tt.kind.String())
			assert.True(t, ok)
			assert.Equal(t, tt.kind, k)
		})
	}
	var _ nn.LossLayer = sm
}

// TestParseNet verifies that a description builds a working Net and carries
// its trainer settings.
func TestParseNet(t *testing.T) {
	net, cfg, err := nn.ParseNet(`[
		{"type":"input","input_width":1,"input_height":1,"input_depth":2},
		{"type":"fc","neuron_count":4,"activation":"tanh"},
		{"type":"softmax","class_count":3},
		{"type":"adam","learning_rate":0.002}
	]`, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 5, net.Len(), "fc sized to the classes precedes softmax")
	assert.Equal(t, optim.Adam, cfg.Method)
	assert.Equal(t, 0.002, cfg.LearningRate)

	x, err := volume.FromSlice(1, 1, 2, []float64{0.3, -0.5})
	require.NoError(t, err)
	out := net.Forward(x, false)
	var sum float64
	for _, p := range out.Weights() {
		sum += p
	}
	assert.InDelta(t, 1, sum, 1e-9)
	assert.Less(t, net.Prediction(), 3)

	_, _, err = nn.ParseNet(`[{"type":"bogus"}]`, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}
