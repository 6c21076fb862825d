// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package volume

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/born-ml/volnet/internal/serialization"
	"github.com/born-ml/volnet/internal/volume"
)

// Volume is a 3-D array of weights with a gradient buffer of equal length.
type Volume = volume.Volume

// New creates a zero-filled Volume.
func New(width, height, depth int) *Volume {
	return volume.New(width, height, depth)
}

// NewFilled creates a Volume with every weight set to c.
func NewFilled(width, height, depth int, c float64) *Volume {
	return volume.NewFilled(width, height, depth, c)
}

// NewRand creates a Volume with Gaussian weights of standard deviation
// 1/sqrt(width*height*depth).
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	filter := volume.NewRand(3, 3, 16, rng)
func NewRand(width, height, depth int, rng *rand.Rand) *Volume {
	return volume.NewRand(width, height, depth, rng)
}

// FromSlice creates a Volume whose weights are a copy of data.
func FromSlice(width, height, depth int, data []float64) (*Volume, error) {
	return volume.FromSlice(width, height, depth, data)
}

// Restore creates a Volume from saved weights and gradients.
func Restore(width, height, depth int, weights, gradients []float64) (*Volume, error) {
	return volume.Restore(width, height, depth, weights, gradients)
}

const fieldVolume = 1

// Save writes v to w.
func Save(w io.Writer, v *Volume) error {
	var rec serialization.Record
	serialization.PutVolume(&rec, fieldVolume, v)
	return serialization.WriteContainer(w, serialization.KindVolume, rec.Bytes())
}

// Load reads a Volume written by Save.
func Load(r io.Reader) (*Volume, error) {
	body, err := serialization.ReadKind(r, serialization.KindVolume)
	if err != nil {
		return nil, err
	}
	f, err := serialization.Parse(body)
	if err != nil {
		return nil, err
	}
	v := serialization.GetVolume(f, fieldVolume)
	if err := f.Err(); err != nil {
		return nil, fmt.Errorf("decoding volume: %w", err)
	}
	return v, nil
}
