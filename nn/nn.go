// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/volnet/internal/nn"
)

// Layer is the Forward/Backward contract shared by the catalog.
type Layer = nn.Layer

// LossLayer is a Layer that ends a Net and computes a loss.
type LossLayer = nn.LossLayer

// Kind identifies a layer type.
type Kind = nn.Kind

// Layer kinds.
const (
	KindInput                     = nn.KindInput
	KindFullyConn                 = nn.KindFullyConn
	KindConv                      = nn.KindConv
	KindDeconv                    = nn.KindDeconv
	KindPool                      = nn.KindPool
	KindUnpool                    = nn.KindUnpool
	KindRelu                      = nn.KindRelu
	KindSigmoid                   = nn.KindSigmoid
	KindTanh                      = nn.KindTanh
	KindMaxout                    = nn.KindMaxout
	KindDropout                   = nn.KindDropout
	KindLRN                       = nn.KindLRN
	KindSoftmax                   = nn.KindSoftmax
	KindSVM                       = nn.KindSVM
	KindRegression                = nn.KindRegression
	KindHeteroscedasticRegression = nn.KindHeteroscedasticRegression
)

// ParseKind looks up a kind by its name in network descriptions.
func ParseKind(name string) (Kind, bool) {
	return nn.ParseKind(name)
}

// ErrInvalidArgument marks a layer configuration that can never work.
var ErrInvalidArgument = nn.ErrInvalidArgument

// Input declares the network input shape.
type Input = nn.Input

// NewInput creates an Input layer.
func NewInput(width, height, depth int) (*Input, error) {
	return nn.NewInput(width, height, depth)
}

// FullyConn connects every input to every neuron.
type FullyConn = nn.FullyConn

// NewFullyConn creates a fully connected layer.
//
// Example:
//
//	fc, err := nn.NewFullyConn(10)
//	if err != nil {
//	    return err
//	}
//	fc.BiasPref = 0.1
func NewFullyConn(neurons int) (*FullyConn, error) {
	return nn.NewFullyConn(neurons)
}

// Conv is a 2-D convolution.
type Conv = nn.Conv

// NewConv creates a convolution with filterCount filters of width x height.
// Stride and padding are set on the returned layer before it is added.
func NewConv(width, height, filterCount int) (*Conv, error) {
	return nn.NewConv(width, height, filterCount)
}

// Deconv is a transposed 2-D convolution.
type Deconv = nn.Deconv

// NewDeconv creates a transposed convolution.
func NewDeconv(width, height, filterCount int) (*Deconv, error) {
	return nn.NewDeconv(width, height, filterCount)
}

// Pool is spatial max pooling.
type Pool = nn.Pool

// NewPool creates a max pooling layer over width x height windows.
func NewPool(width, height int) (*Pool, error) {
	return nn.NewPool(width, height)
}

// Unpool scatters values back through the switches of a pooling geometry.
type Unpool = nn.Unpool

// NewUnpool creates an unpooling layer.
func NewUnpool(width, height int) (*Unpool, error) {
	return nn.NewUnpool(width, height)
}

// Activations

// Relu is max(0, x).
type Relu = nn.Relu

// NewRelu creates a Relu layer.
func NewRelu() *Relu { return nn.NewRelu() }

// Sigmoid is 1/(1+exp(-x)).
type Sigmoid = nn.Sigmoid

// NewSigmoid creates a Sigmoid layer.
func NewSigmoid() *Sigmoid { return nn.NewSigmoid() }

// Tanh is the hyperbolic tangent.
type Tanh = nn.Tanh

// NewTanh creates a Tanh layer.
func NewTanh() *Tanh { return nn.NewTanh() }

// Maxout takes the maximum over groups of groupSize channels.
type Maxout = nn.Maxout

// NewMaxout creates a Maxout layer.
func NewMaxout(groupSize int) (*Maxout, error) {
	return nn.NewMaxout(groupSize)
}

// Dropout zeroes inputs at random while training.
type Dropout = nn.Dropout

// NewDropout creates a Dropout layer.
func NewDropout(dropProb float64) (*Dropout, error) {
	return nn.NewDropout(dropProb)
}

// LRN is local response normalization across channels.
type LRN = nn.LRN

// NewLRN creates an LRN layer; n must be odd.
func NewLRN(k float64, n int, alpha, beta float64) (*LRN, error) {
	return nn.NewLRN(k, n, alpha, beta)
}

// Losses

// Softmax is a classifier with cross-entropy loss.
type Softmax = nn.Softmax

// NewSoftmax creates a Softmax layer.
func NewSoftmax(classes int) (*Softmax, error) {
	return nn.NewSoftmax(classes)
}

// SVM is a classifier with multiclass hinge loss.
type SVM = nn.SVM

// NewSVM creates an SVM layer.
func NewSVM(classes int) (*SVM, error) {
	return nn.NewSVM(classes)
}

// Regression is an L2 loss.
type Regression = nn.Regression

// NewRegression creates a Regression layer.
func NewRegression(neurons int) (*Regression, error) {
	return nn.NewRegression(neurons)
}

// HeteroscedasticRegression predicts a mean and a variance per output.
type HeteroscedasticRegression = nn.HeteroscedasticRegression

// NewHeteroscedasticRegression creates a HeteroscedasticRegression layer.
func NewHeteroscedasticRegression(neurons int) (*HeteroscedasticRegression, error) {
	return nn.NewHeteroscedasticRegression(neurons)
}
