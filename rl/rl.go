// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package rl provides deep Q-learning agents.
//
// DQNAgent learns from every transition and replays stored ones. Brain sees
// a temporal window of past observations and actions, anneals its
// exploration rate and trains through an optim.Trainer.
//
// Example:
//
//	brain, err := rl.NewBrain(numSensors, numActions, rl.DefaultBrainConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for {
//	    action := brain.Forward(world.Sense())
//	    brain.Backward(world.Do(action))
//	}
package rl

import (
	"github.com/born-ml/volnet/internal/rl"
)

// Experience is one stored transition.
type Experience = rl.Experience

// ReplayMemory is a fixed-capacity experience store.
type ReplayMemory = rl.ReplayMemory

// QNetwork is the value network of both agents.
type QNetwork = rl.QNetwork

// Activation selects the hidden nonlinearity of a QNetwork.
type Activation = rl.Activation

// Hidden nonlinearities.
const (
	Tanh = rl.Tanh
	Relu = rl.Relu
)

// DQNAgent is an epsilon-greedy Q-learner with experience replay.
type DQNAgent = rl.DQNAgent

// AgentConfig configures a DQNAgent.
type AgentConfig = rl.AgentConfig

// Brain is a Q-learner over a temporal window of observations.
type Brain = rl.Brain

// BrainConfig configures a Brain.
type BrainConfig = rl.BrainConfig

// BrainStats is a snapshot of a Brain's progress.
type BrainStats = rl.BrainStats

// Errors.
var (
	ErrInvalidConfig = rl.ErrInvalidConfig
	ErrStateMismatch = rl.ErrStateMismatch
)

// NewDQNAgent creates a DQNAgent.
func NewDQNAgent(numStates, numActions int, cfg AgentConfig) (*DQNAgent, error) {
	return rl.NewDQNAgent(numStates, numActions, cfg)
}

// DefaultAgentConfig returns the default DQNAgent settings.
func DefaultAgentConfig() AgentConfig {
	return rl.DefaultAgentConfig()
}

// NewBrain creates a Brain.
func NewBrain(numStates, numActions int, cfg BrainConfig) (*Brain, error) {
	return rl.NewBrain(numStates, numActions, cfg)
}

// DefaultBrainConfig returns the default Brain settings.
func DefaultBrainConfig() BrainConfig {
	return rl.DefaultBrainConfig()
}
