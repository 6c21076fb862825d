// Package rl implements deep Q-learning agents on the autodiff tape.
//
// Two agents share the QNetwork value function and the ReplayMemory:
//   - DQNAgent learns from every transition with plain gradient steps and
//     replays a sample of stored transitions after each one.
//   - Brain feeds the network a temporal window of past observations and
//     actions, anneals its exploration rate, and trains through an
//     optim.Trainer in mini-batches drawn from replay.
package rl

import (
	"fmt"
	"math/rand"
	"slices"
)

// Experience is one transition: in State0 the agent took Action0, received
// Reward0 and arrived in State1, where it took Action1.
type Experience struct {
	State0  []float64
	Action0 int
	Reward0 float64
	State1  []float64
	Action1 int
}

func (e Experience) clone() Experience {
	e.State0 = slices.Clone(e.State0)
	e.State1 = slices.Clone(e.State1)
	return e
}

// ReplayMemory stores up to Capacity experiences. Once full, each Add
// overwrites a uniformly random slot.
type ReplayMemory struct {
	capacity int
	items    []Experience
	rng      *rand.Rand
}

// NewReplayMemory creates an empty ReplayMemory.
func NewReplayMemory(capacity int, rng *rand.Rand) *ReplayMemory {
	if capacity <= 0 {
		panic(fmt.Sprintf("rl.NewReplayMemory: capacity %d", capacity))
	}
	return &ReplayMemory{capacity: capacity, rng: rng}
}

// Capacity returns the maximum number of stored experiences.
func (m *ReplayMemory) Capacity() int { return m.capacity }

// Len returns the number of stored experiences.
func (m *ReplayMemory) Len() int { return len(m.items) }

// Add stores a copy of e.
func (m *ReplayMemory) Add(e Experience) {
	e = e.clone()
	if len(m.items) < m.capacity {
		m.items = append(m.items, e)
		return
	}
	m.items[m.rng.Intn(m.capacity)] = e
}

// Sample returns a uniformly random stored experience. It panics when the
// memory is empty.
func (m *ReplayMemory) Sample() Experience {
	if len(m.items) == 0 {
		panic("ReplayMemory.Sample: empty memory")
	}
	return m.items[m.rng.Intn(len(m.items))]
}

// At returns the i-th stored experience.
func (m *ReplayMemory) At(i int) Experience { return m.items[i] }

// restore replaces the contents, keeping at most Capacity experiences.
func (m *ReplayMemory) restore(items []Experience) {
	if len(items) > m.capacity {
		items = items[:m.capacity]
	}
	m.items = items
}
