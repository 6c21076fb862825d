// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package volume_test

import (
	"bytes"
	"testing"

	"github.com/born-ml/volnet/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSaveLoad verifies that weights, gradients and dimensions survive a
// round trip.
func TestSaveLoad(t *testing.T) {
	v, err := volume.FromSlice(2, 1, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	v.SetGradientAt(4, -0.5)

	var buf bytes.Buffer
	require.NoError(t, volume.Save(&buf, v))
	got, err := volume.Load(&buf)
	require.NoError(t, err)

	assert.True(t, v.SameShape(got))
	assert.Equal(t, v.Weights(), got.Weights())
	assert.Equal(t, v.Gradients(), got.Gradients())
	assert.Equal(t, 6.0, got.Get(1, 0, 2))
}

// TestLoad_Truncated verifies that a short stream is rejected.
func TestLoad_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, volume.Save(&buf, volume.NewFilled(3, 3, 1, 2)))
	_, err := volume.Load(bytes.NewReader(buf.Bytes()[:buf.Len()-5]))
	assert.Error(t, err)
}
