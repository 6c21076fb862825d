// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/volnet/internal/optim"
)

// Trainer applies an update rule to the parameters of a bound Net or
// ParamSource.
type Trainer = optim.Trainer

// Config holds the Trainer hyperparameters.
type Config = optim.Config

// Stats reports one training call.
type Stats = optim.Stats

// State is a snapshot of the optimizer memory.
type State = optim.State

// ParamSource exposes trainable parameters in a stable order.
type ParamSource = optim.ParamSource

// Method selects the update rule.
type Method = optim.Method

// Update rules.
const (
	SGD        = optim.SGD
	Adagrad    = optim.Adagrad
	Adadelta   = optim.Adadelta
	Adam       = optim.Adam
	Nesterov   = optim.Nesterov
	Windowgrad = optim.Windowgrad
)

// Errors.
var (
	ErrNotConfigured = optim.ErrNotConfigured
	ErrStateMismatch = optim.ErrStateMismatch
)

// New creates a Trainer. Zero fields without a meaningful zero value take
// their DefaultConfig values.
//
// Example:
//
//	trainer := optim.New(optim.Config{Method: optim.Adam, LearningRate: 0.001})
//	trainer.BindNet(net)
func New(cfg Config) *Trainer {
	return optim.New(cfg)
}

// DefaultConfig returns the settings used when a network description has
// no trainer object.
func DefaultConfig() Config {
	return optim.DefaultConfig()
}

// ParseMethod resolves a method name as used in network descriptions.
func ParseMethod(name string) (Method, bool) {
	return optim.ParseMethod(name)
}
