// Package recurrent trains character-level RNN and LSTM language models
// built on the autodiff tape.
//
// Each training tick unrolls the model over one random sentence, one Graph
// per character, with the weight matrices shared across steps and fresh
// hidden and cell Volumes handed from step to step. Index 0 of the
// vocabulary is the start/end token.
package recurrent

import (
	"fmt"
	"log/slog"
	"strings"
)

// Model selects the recurrent cell.
type Model int

const (
	// LSTM uses input, forget and output gates over a cell state.
	LSTM Model = iota
	// RNN uses h = relu(Wxh x + Whh h + b).
	RNN
)

var modelNames = [...]string{LSTM: "lstm", RNN: "rnn"}

// String returns the model name.
func (m Model) String() string {
	if m < 0 || int(m) >= len(modelNames) {
		return fmt.Sprintf("Model(%d)", int(m))
	}
	return modelNames[m]
}

// ParseModel maps "lstm" or "rnn" to a Model.
func ParseModel(name string) (Model, bool) {
	for m, n := range modelNames {
		if strings.EqualFold(n, name) {
			return Model(m), true
		}
	}
	return 0, false
}

// Config holds the model shape and solver settings.
type Config struct {
	Model       Model
	LetterSize  int   // embedding width
	HiddenSizes []int // one entry per stacked layer

	LearningRate float64
	Regc         float64 // L2 regularization strength
	Clip         float64 // gradient clip magnitude
	DecayRate    float64 // RMSProp cache decay
	Eps          float64 // RMSProp smoothing

	// WindowSize is the number of ticks the perplexity average covers.
	WindowSize int

	Seed   int64
	Logger *slog.Logger
}

// DefaultConfig returns a two-layer LSTM with 20 hidden units per layer.
func DefaultConfig() Config {
	return Config{
		Model:        LSTM,
		LetterSize:   5,
		HiddenSizes:  []int{20, 20},
		LearningRate: 0.01,
		Regc:         1e-6,
		Clip:         5,
		DecayRate:    0.999,
		Eps:          1e-8,
		WindowSize:   100,
		Seed:         1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LetterSize <= 0 {
		c.LetterSize = d.LetterSize
	}
	if len(c.HiddenSizes) == 0 {
		c.HiddenSizes = d.HiddenSizes
	}
	c.HiddenSizes = append([]int(nil), c.HiddenSizes...)
	if c.LearningRate == 0 {
		c.LearningRate = d.LearningRate
	}
	if c.Clip == 0 {
		c.Clip = d.Clip
	}
	if c.DecayRate == 0 {
		c.DecayRate = d.DecayRate
	}
	if c.Eps == 0 {
		c.Eps = d.Eps
	}
	if c.WindowSize <= 0 {
		c.WindowSize = d.WindowSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func (c Config) validate() error {
	if _, ok := ParseModel(c.Model.String()); !ok {
		return fmt.Errorf("unknown model %v: %w", c.Model, ErrInvalidConfig)
	}
	for i, h := range c.HiddenSizes {
		if h <= 0 {
			return fmt.Errorf("hidden layer %d size %d: %w", i, h, ErrInvalidConfig)
		}
	}
	if c.Regc < 0 || c.Clip < 0 || c.DecayRate <= 0 || c.DecayRate >= 1 {
		return fmt.Errorf("regc %g clip %g decay %g: %w", c.Regc, c.Clip, c.DecayRate, ErrInvalidConfig)
	}
	return nil
}
