// Package volume implements the engine's tensor type.
//
// A Volume is a dense 3-D array of weights (width x height x depth) with a
// parallel, same-length gradient buffer. Volumes are the unit of data flowing
// between layers and the storage for every trainable parameter.
//
// Layout is row-major over (x, y) with depth innermost:
//
//	index(x, y, d) = ((width*y) + x)*depth + d
//
// A matrix with r rows and c columns is a Volume of width c, height r and
// depth 1, so element (i, j) lives at index i*c + j.
package volume

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Volume is a 3-D tensor with a gradient buffer of identical length.
type Volume struct {
	width     int
	height    int
	depth     int
	weights   []float64
	gradients []float64
}

// New creates a zero-filled Volume.
func New(width, height, depth int) *Volume {
	if width <= 0 || height <= 0 || depth <= 0 {
		panic(fmt.Sprintf("volume.New: invalid dimensions %dx%dx%d", width, height, depth))
	}
	n := width * height * depth
	return &Volume{
		width:     width,
		height:    height,
		depth:     depth,
		weights:   make([]float64, n),
		gradients: make([]float64, n),
	}
}

// NewFilled creates a Volume with every weight set to c.
func NewFilled(width, height, depth int, c float64) *Volume {
	v := New(width, height, depth)
	v.SetConst(c)
	return v
}

// NewRand creates a Volume filled from a zero-mean Gaussian whose standard
// deviation is 1/sqrt(width*height*depth) (fan-in normalization).
//
// The generator is supplied by the caller, so two Volumes of different
// lengths never share a hidden sequence and tests stay reproducible.
func NewRand(width, height, depth int, rng *rand.Rand) *Volume {
	v := New(width, height, depth)
	v.Randomize(rng)
	return v
}

// FromSlice creates a Volume that copies data as its weights.
func FromSlice(width, height, depth int, data []float64) (*Volume, error) {
	if len(data) != width*height*depth {
		return nil, fmt.Errorf("volume: data length %d does not match %dx%dx%d", len(data), width, height, depth)
	}
	v := New(width, height, depth)
	copy(v.weights, data)
	return v, nil
}

// Width returns the x extent.
func (v *Volume) Width() int { return v.width }

// Height returns the y extent.
func (v *Volume) Height() int { return v.height }

// Depth returns the depth extent.
func (v *Volume) Depth() int { return v.depth }

// Len returns the number of elements.
func (v *Volume) Len() int { return len(v.weights) }

// Weights exposes the weight buffer. Writes are visible to the Volume.
func (v *Volume) Weights() []float64 { return v.weights }

// Gradients exposes the gradient buffer. Writes are visible to the Volume.
func (v *Volume) Gradients() []float64 { return v.gradients }

// SameShape reports whether o has the same dimensions as v.
func (v *Volume) SameShape(o *Volume) bool {
	return v.width == o.width && v.height == o.height && v.depth == o.depth
}

func (v *Volume) index(x, y, d int) int {
	return ((v.width*y)+x)*v.depth + d
}

// Get returns the weight at (x, y, d).
func (v *Volume) Get(x, y, d int) float64 { return v.weights[v.index(x, y, d)] }

// Set assigns the weight at (x, y, d).
func (v *Volume) Set(x, y, d int, val float64) { v.weights[v.index(x, y, d)] = val }

// Add adds val to the weight at (x, y, d).
func (v *Volume) Add(x, y, d int, val float64) { v.weights[v.index(x, y, d)] += val }

// GetAt returns the weight at linear index i.
func (v *Volume) GetAt(i int) float64 { return v.weights[i] }

// SetAt assigns the weight at linear index i.
func (v *Volume) SetAt(i int, val float64) { v.weights[i] = val }

// GetGradient returns the gradient at (x, y, d).
func (v *Volume) GetGradient(x, y, d int) float64 { return v.gradients[v.index(x, y, d)] }

// SetGradient assigns the gradient at (x, y, d).
func (v *Volume) SetGradient(x, y, d int, val float64) { v.gradients[v.index(x, y, d)] = val }

// AddGradient accumulates val into the gradient at (x, y, d).
func (v *Volume) AddGradient(x, y, d int, val float64) { v.gradients[v.index(x, y, d)] += val }

// GetGradientAt returns the gradient at linear index i.
func (v *Volume) GetGradientAt(i int) float64 { return v.gradients[i] }

// SetGradientAt assigns the gradient at linear index i.
func (v *Volume) SetGradientAt(i int, val float64) { v.gradients[i] = val }

// AddGradientAt accumulates val into the gradient at linear index i.
func (v *Volume) AddGradientAt(i int, val float64) { v.gradients[i] += val }

// ZeroGradients resets the gradient buffer to zero.
func (v *Volume) ZeroGradients() {
	clear(v.gradients)
}

// SetConst assigns c to every weight.
func (v *Volume) SetConst(c float64) {
	for i := range v.weights {
		v.weights[i] = c
	}
}

// Randomize refills the weights from N(0, 1/len).
func (v *Volume) Randomize(rng *rand.Rand) {
	std := math.Sqrt(1.0 / float64(len(v.weights)))
	for i := range v.weights {
		v.weights[i] = rng.NormFloat64() * std
	}
}

// SetWeights copies data into the weight buffer.
func (v *Volume) SetWeights(data []float64) {
	if len(data) != len(v.weights) {
		panic(fmt.Sprintf("Volume.SetWeights: length %d, want %d", len(data), len(v.weights)))
	}
	copy(v.weights, data)
}

// AddFrom adds o's weights elementwise into v.
func (v *Volume) AddFrom(o *Volume) {
	v.AddFromScaled(o, 1)
}

// AddFromScaled adds a*o's weights elementwise into v.
func (v *Volume) AddFromScaled(o *Volume, a float64) {
	if len(o.weights) != len(v.weights) {
		panic(fmt.Sprintf("Volume.AddFromScaled: length %d, want %d", len(o.weights), len(v.weights)))
	}
	floats.AddScaled(v.weights, a, o.weights)
}

// Clone returns a deep copy including gradients.
func (v *Volume) Clone() *Volume {
	c := &Volume{
		width:     v.width,
		height:    v.height,
		depth:     v.depth,
		weights:   make([]float64, len(v.weights)),
		gradients: make([]float64, len(v.gradients)),
	}
	copy(c.weights, v.weights)
	copy(c.gradients, v.gradients)
	return c
}

// CloneAndZero returns a zero-filled Volume with v's shape.
func (v *Volume) CloneAndZero() *Volume {
	return New(v.width, v.height, v.depth)
}

// MaxIndex returns the linear index of the largest weight.
func (v *Volume) MaxIndex() int {
	return floats.MaxIdx(v.weights)
}

// Restore rebuilds a Volume from persisted parts. Both buffers must match the
// dimensions; a nil gradient buffer is allocated as zeros.
func Restore(width, height, depth int, weights, gradients []float64) (*Volume, error) {
	n := width * height * depth
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("volume: invalid dimensions %dx%dx%d", width, height, depth)
	}
	if len(weights) != n {
		return nil, fmt.Errorf("volume: weights length %d, want %d", len(weights), n)
	}
	if gradients == nil {
		gradients = make([]float64, n)
	}
	if len(gradients) != n {
		return nil, fmt.Errorf("volume: gradients length %d, want %d", len(gradients), n)
	}
	return &Volume{width: width, height: height, depth: depth, weights: weights, gradients: gradients}, nil
}

// String implements fmt.Stringer.
func (v *Volume) String() string {
	return fmt.Sprintf("Volume(%dx%dx%d)", v.width, v.height, v.depth)
}
