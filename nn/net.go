// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/born-ml/volnet/internal/netspec"
	"github.com/born-ml/volnet/internal/nn"
	"github.com/born-ml/volnet/internal/optim"
)

// Net is an ordered pipeline of layers.
type Net = nn.Net

// NewNet creates an empty Net drawing initial weights from rng.
func NewNet(rng *rand.Rand) *Net {
	return nn.NewNet(rng)
}

// ErrInvalidTopology is returned when a layer cannot follow the layers
// already in a Net.
var ErrInvalidTopology = nn.ErrInvalidTopology

// ParametersAndGradients is a view of one trainable Volume and its decay
// multipliers.
type ParametersAndGradients = nn.ParametersAndGradients

// Target is the expected output handed to a loss layer.
type Target = nn.Target

// ClassTarget selects the correct class of a classifier.
func ClassTarget(class int) Target { return nn.ClassTarget(class) }

// VectorTarget gives the full regression target.
func VectorTarget(values []float64) Target { return nn.VectorTarget(values) }

// DimTarget regresses a single output dimension.
func DimTarget(dim int, val float64) Target { return nn.DimTarget(dim, val) }

// Definition is a parsed JSON network description.
type Definition = netspec.Definition

// ParseDefinition parses a JSON network description.
func ParseDefinition(spec string) (*Definition, error) {
	return netspec.Parse([]byte(spec))
}

// ParseNet parses a JSON network description and builds its Net. The
// trainer settings of the description are returned alongside.
func ParseNet(spec string, rng *rand.Rand) (*Net, optim.Config, error) {
	def, err := netspec.Parse([]byte(spec))
	if err != nil {
		return nil, optim.Config{}, err
	}
	net, err := def.BuildNet(rng)
	if err != nil {
		return nil, optim.Config{}, err
	}
	return net, def.Trainer, nil
}
