// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package recurrent trains character-level RNN and LSTM language models
// built on the autodiff tape.
//
// Example:
//
//	s, err := recurrent.NewSession(recurrent.Config{
//	    Model:       recurrent.LSTM,
//	    HiddenSizes: []int{20, 20},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := s.SetSentences(lines); err != nil {
//	    log.Fatal(err)
//	}
//	for range 1000 {
//	    st, _ := s.Train()
//	    _ = st.Perplexity
//	}
//	fmt.Println(s.Predict(true, 0.8, 100))
package recurrent

import (
	"github.com/born-ml/volnet/internal/recurrent"
)

// Session trains one character model.
type Session = recurrent.Session

// Config configures a Session.
type Config = recurrent.Config

// Model selects the cell type.
type Model = recurrent.Model

// Cell types.
const (
	LSTM = recurrent.LSTM
	RNN  = recurrent.RNN
)

// TickStats reports one training tick.
type TickStats = recurrent.TickStats

// Vocab maps characters to token indices; index 0 marks start and end.
type Vocab = recurrent.Vocab

// Errors.
var (
	ErrNoData        = recurrent.ErrNoData
	ErrInvalidConfig = recurrent.ErrInvalidConfig
	ErrStateMismatch = recurrent.ErrStateMismatch
)

// NewSession creates a Session.
func NewSession(cfg Config) (*Session, error) {
	return recurrent.NewSession(cfg)
}

// DefaultConfig returns the default model settings.
func DefaultConfig() Config {
	return recurrent.DefaultConfig()
}

// ParseModel resolves "lstm" or "rnn", ignoring case.
func ParseModel(name string) (Model, bool) {
	return recurrent.ParseModel(name)
}
