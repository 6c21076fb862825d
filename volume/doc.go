// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package volume provides the Volume, the dense 3-D array that carries data
// between layers and stores every trainable parameter.
//
// # Overview
//
// A Volume has a width, a height and a depth, a weight buffer and a
// gradient buffer of the same length. Elements are laid out row-major over
// (x, y) with depth innermost:
//
//	index(x, y, d) = ((width*y) + x)*depth + d
//
// Matrices used by the autodiff package are Volumes of width cols, height
// rows and depth 1.
//
// # Basic Usage
//
//	import (
//	    "math/rand"
//
//	    "github.com/born-ml/volnet/volume"
//	)
//
//	func main() {
//	    rng := rand.New(rand.NewSource(1))
//
//	    // A 32x32 RGB image, zero-filled
//	    img := volume.New(32, 32, 3)
//	    img.Set(4, 7, 0, 0.5)
//
//	    // Random weights with std 1/sqrt(length)
//	    w := volume.NewRand(5, 5, 3, rng)
//
//	    // Random 24x24 crop, mirrored at random
//	    crop := img.Augment(24, -1, -1, true, rng)
//	}
//
// # Persistence
//
// Save and Load write a single Volume, weights and gradients included, in
// the engine's checksummed binary format.
package volume
