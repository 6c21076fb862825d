// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package session trains a layer network described in JSON over a dataset.
//
// A Session owns the Net, its Trainer, the Dataset and moving-window
// statistics behind one mutex. Training runs one pass at a time with
// TrainIteration, or in a background goroutine with StartTraining and
// StopTraining.
//
// Example:
//
//	s := session.New(session.WithSeed(7))
//	if !s.MakeLayers(spec) {
//	    log.Fatal("bad network description")
//	}
//	if err := s.SetDataset(data); err != nil {
//	    log.Fatal(err)
//	}
//	for range 100 {
//	    if err := s.TrainIteration(ctx); err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(s.Iteration(), s.LossAverage(), s.TrainingAccuracy())
//	}
//
// Callbacks registered with WhenStepInterval, WhenIterationInterval and
// WhenSessionLoaded run with the Session locked and must not call its
// methods.
package session

import (
	"github.com/born-ml/volnet/internal/session"
)

// Session trains one Net.
type Session = session.Session

// Dataset holds the training and test examples.
type Dataset = session.Dataset

// Sample is one example.
type Sample = session.Sample

// Option configures a Session.
type Option = session.Option

// Errors.
var (
	ErrNotConfigured   = session.ErrNotConfigured
	ErrAlreadyTraining = session.ErrAlreadyTraining
	ErrBadSample       = session.ErrBadSample
)

// New creates an empty Session.
func New(opts ...Option) *Session {
	return session.New(opts...)
}

// Options.
var (
	WithLogger          = session.WithLogger
	WithSeed            = session.WithSeed
	WithWindowSize      = session.WithWindowSize
	WithPredictInterval = session.WithPredictInterval
	WithStepInterval    = session.WithStepInterval
	WithAugmentation    = session.WithAugmentation
)
