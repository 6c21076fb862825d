package rl

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInvalidConfig is returned for agent settings that cannot work.
	ErrInvalidConfig = errors.New("invalid agent config")

	// ErrStateMismatch is returned when saved state does not fit the agent.
	ErrStateMismatch = errors.New("agent state does not match")
)

// AgentConfig configures a DQNAgent.
type AgentConfig struct {
	Gamma   float64 // discount factor
	Epsilon float64 // exploration probability, used as given
	Alpha   float64 // value-network learning rate

	ExperienceAddEvery        int // store every n-th transition
	ExperienceSize            int // replay capacity
	LearningStepsPerIteration int // replayed transitions per Learn
	StartLearnThreshold       int // stored transitions needed before replay

	TDErrorClamp float64
	HiddenUnits  int

	Seed int64
}

// DefaultAgentConfig returns the reference DQN settings.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Gamma:                     0.75,
		Epsilon:                   0.1,
		Alpha:                     0.01,
		ExperienceAddEvery:        25,
		ExperienceSize:            5000,
		LearningStepsPerIteration: 10,
		TDErrorClamp:              1,
		HiddenUnits:               100,
		Seed:                      1,
	}
}

// withDefaults fills zero fields other than Epsilon and StartLearnThreshold,
// where zero is meaningful.
func (c AgentConfig) withDefaults() AgentConfig {
	d := DefaultAgentConfig()
	if c.Gamma == 0 {
		c.Gamma = d.Gamma
	}
	if c.Alpha == 0 {
		c.Alpha = d.Alpha
	}
	if c.ExperienceAddEvery <= 0 {
		c.ExperienceAddEvery = d.ExperienceAddEvery
	}
	if c.ExperienceSize <= 0 {
		c.ExperienceSize = d.ExperienceSize
	}
	if c.LearningStepsPerIteration <= 0 {
		c.LearningStepsPerIteration = d.LearningStepsPerIteration
	}
	if c.TDErrorClamp <= 0 {
		c.TDErrorClamp = d.TDErrorClamp
	}
	if c.HiddenUnits <= 0 {
		c.HiddenUnits = d.HiddenUnits
	}
	return c
}

// DQNAgent is an epsilon-greedy Q-learner with a one-hidden-layer tanh
// value network and experience replay.
//
// Act and Learn alternate: Act observes a state and picks an action, Learn
// reports the reward for it. A DQNAgent is not safe for concurrent use.
type DQNAgent struct {
	cfg        AgentConfig
	numStates  int
	numActions int
	rng        *rand.Rand
	net        *QNetwork
	memory     *ReplayMemory

	// The transition being assembled: s0 --a0--> s1 with reward r0, then a1.
	s0, s1  []float64
	a0, a1  int
	r0      float64
	hasR0   bool
	t       int
	tdError float64
}

// NewDQNAgent creates an agent for states of numStates values and
// numActions discrete actions.
func NewDQNAgent(numStates, numActions int, cfg AgentConfig) (*DQNAgent, error) {
	cfg = cfg.withDefaults()
	if numStates <= 0 || numActions <= 0 {
		return nil, fmt.Errorf("%d states, %d actions: %w", numStates, numActions, ErrInvalidConfig)
	}
	if cfg.Epsilon < 0 || cfg.Epsilon > 1 || cfg.Gamma < 0 || cfg.Gamma > 1 {
		return nil, fmt.Errorf("epsilon %g gamma %g: %w", cfg.Epsilon, cfg.Gamma, ErrInvalidConfig)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	return &DQNAgent{
		cfg:        cfg,
		numStates:  numStates,
		numActions: numActions,
		rng:        rng,
		net:        NewQNetwork(numStates, []int{cfg.HiddenUnits}, numActions, Tanh, 0.01, rng),
		memory:     NewReplayMemory(cfg.ExperienceSize, rng),
	}, nil
}

// Config returns the effective configuration.
func (a *DQNAgent) Config() AgentConfig { return a.cfg }

// SetEpsilon changes the exploration probability.
func (a *DQNAgent) SetEpsilon(eps float64) { a.cfg.Epsilon = eps }

// Network returns the value network.
func (a *DQNAgent) Network() *QNetwork { return a.net }

// Memory returns the replay memory.
func (a *DQNAgent) Memory() *ReplayMemory { return a.memory }

// TDError returns the clamped TD error of the most recent transition.
func (a *DQNAgent) TDError() float64 { return a.tdError }

// Act picks an action for state: uniformly at random with probability
// Epsilon, otherwise the action of highest value.
func (a *DQNAgent) Act(state []float64) int {
	if len(state) != a.numStates {
		panic(fmt.Sprintf("DQNAgent.Act: state has %d values, want %d", len(state), a.numStates))
	}
	var action int
	if a.rng.Float64() < a.cfg.Epsilon {
		action = a.rng.Intn(a.numActions)
	} else {
		action = floats.MaxIdx(a.net.Values(state))
	}

	a.s0, a.a0 = a.s1, a.a1
	a.s1, a.a1 = append([]float64(nil), state...), action
	return action
}

// Learn reports the reward for the last action. Once a full transition is
// known it is learned from directly, stored every ExperienceAddEvery
// calls, and followed by LearningStepsPerIteration replayed transitions.
// The direct update runs from the first full transition on; only replay
// waits until the memory holds StartLearnThreshold transitions.
// It returns the TD error of the direct update, or 0 when none happened.
func (a *DQNAgent) Learn(reward float64) float64 {
	var td float64
	if a.hasR0 && a.s0 != nil && a.cfg.Alpha > 0 {
		e := Experience{State0: a.s0, Action0: a.a0, Reward0: a.r0, State1: a.s1, Action1: a.a1}
		td = a.learnFrom(e)
		a.tdError = td
		if a.t%a.cfg.ExperienceAddEvery == 0 {
			a.memory.Add(e)
		}
		a.t++
		if a.memory.Len() > 0 && a.memory.Len() >= a.cfg.StartLearnThreshold {
			for range a.cfg.LearningStepsPerIteration {
				a.learnFrom(a.memory.Sample())
			}
		}
	}
	a.r0, a.hasR0 = reward, true
	return td
}

// learnFrom takes one gradient step toward r0 + gamma*max Q(s1) on the
// value of a0 in s0 and returns the clamped TD error.
func (a *DQNAgent) learnFrom(e Experience) float64 {
	target := finiteOrZero(e.Reward0 + a.cfg.Gamma*floats.Max(a.net.Values(e.State1)))
	pred, g := a.net.Forward(e.State0, true)
	td := clamp(pred.GetAt(e.Action0)-target, a.cfg.TDErrorClamp)
	pred.SetGradientAt(e.Action0, td)
	g.Backward()
	a.net.step(a.cfg.Alpha)
	return td
}

func clamp(x, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, x))
}

func finiteOrZero(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
