package rl

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"github.com/born-ml/volnet/internal/optim"
	"github.com/born-ml/volnet/internal/stats"
	"gonum.org/v1/gonum/floats"
)

// BrainConfig configures a Brain.
type BrainConfig struct {
	// TemporalWindow is the number of past observations and actions fed to
	// the network besides the current observation.
	TemporalWindow int

	ExperienceSize      int
	StartLearnThreshold int // default: min(ExperienceSize/10, 1000)
	Gamma               float64

	// Epsilon decays linearly from 1 to EpsilonMin between
	// LearningStepsBurnin and LearningStepsTotal.
	LearningStepsTotal  int
	LearningStepsBurnin int
	EpsilonMin          float64
	EpsilonTestTime     float64 // used while not learning

	Hidden  []int // relu layers, default: [50, 50]
	Trainer optim.Config

	TDErrorClamp float64

	// RandomActionDistribution, when set, gives the probability of each
	// action for exploratory moves and must sum to 1.
	RandomActionDistribution []float64

	Seed   int64
	Logger *slog.Logger
}

// DefaultBrainConfig returns the reference Brain settings.
func DefaultBrainConfig() BrainConfig {
	return BrainConfig{
		TemporalWindow:      1,
		ExperienceSize:      30000,
		Gamma:               0.8,
		LearningStepsTotal:  100000,
		LearningStepsBurnin: 3000,
		EpsilonMin:          0.05,
		EpsilonTestTime:     0.01,
		Hidden:              []int{50, 50},
		Trainer: optim.Config{
			Method:       optim.SGD,
			LearningRate: 0.01,
			BatchSize:    64,
			L2Decay:      0.01,
		},
		TDErrorClamp: 1,
		Seed:         1,
	}
}

// withDefaults fills unset fields. TemporalWindow, EpsilonMin and
// EpsilonTestTime are used as given; a zero Trainer selects the default one.
func (c BrainConfig) withDefaults() BrainConfig {
	d := DefaultBrainConfig()
	if c.ExperienceSize <= 0 {
		c.ExperienceSize = d.ExperienceSize
	}
	if c.StartLearnThreshold <= 0 {
		c.StartLearnThreshold = int(math.Floor(math.Min(float64(c.ExperienceSize)*0.1, 1000)))
	}
	if c.Gamma == 0 {
		c.Gamma = d.Gamma
	}
	if c.LearningStepsTotal <= 0 {
		c.LearningStepsTotal = d.LearningStepsTotal
	}
	if c.LearningStepsBurnin < 0 {
		c.LearningStepsBurnin = 0
	}
	if len(c.Hidden) == 0 {
		c.Hidden = d.Hidden
	}
	if c.Trainer == (optim.Config{}) {
		c.Trainer = d.Trainer
	}
	if c.Trainer.BatchSize <= 0 {
		c.Trainer.BatchSize = d.Trainer.BatchSize
	}
	if c.TDErrorClamp <= 0 {
		c.TDErrorClamp = d.TDErrorClamp
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func (c BrainConfig) validate(numActions int) error {
	if c.TemporalWindow < 0 {
		return fmt.Errorf("temporal window %d: %w", c.TemporalWindow, ErrInvalidConfig)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("gamma %g: %w", c.Gamma, ErrInvalidConfig)
	}
	if c.LearningStepsBurnin >= c.LearningStepsTotal {
		return fmt.Errorf("burnin %d not below total %d: %w", c.LearningStepsBurnin, c.LearningStepsTotal, ErrInvalidConfig)
	}
	for _, h := range c.Hidden {
		if h <= 0 {
			return fmt.Errorf("hidden size %d: %w", h, ErrInvalidConfig)
		}
	}
	if _, ok := optim.ParseMethod(c.Trainer.Method.String()); !ok {
		return fmt.Errorf("trainer method %v: %w", c.Trainer.Method, ErrInvalidConfig)
	}
	if d := c.RandomActionDistribution; d != nil {
		if len(d) != numActions {
			return fmt.Errorf("random action distribution has %d entries, want %d: %w", len(d), numActions, ErrInvalidConfig)
		}
		if math.Abs(floats.Sum(d)-1) > 1e-4 {
			return fmt.Errorf("random action distribution sums to %g: %w", floats.Sum(d), ErrInvalidConfig)
		}
	}
	return nil
}

// BrainStats is a snapshot of a Brain's progress.
type BrainStats struct {
	Experiences   int
	ExperienceCap int
	ForwardPasses int
	Age           int
	Epsilon       float64
	LatestReward  float64
	AverageReward float64 // -1 until the window fills enough
	AverageLoss   float64 // -1 until the window fills enough
	Learning      bool
}

// Brain is a deep Q-learner whose network sees the current observation
// together with a temporal window of past observations and actions.
//
// Forward and Backward alternate: Forward takes an observation and returns
// an action, Backward reports the reward for it. While learning, epsilon is
// annealed with the number of Backward calls and every Backward trains on a
// batch drawn from replay memory. A Brain is safe for concurrent use.
type Brain struct {
	mu  sync.Mutex
	cfg BrainConfig
	log *slog.Logger
	rng *rand.Rand

	numStates  int
	numActions int
	netInputs  int
	windowSize int

	net     *QNetwork
	trainer *optim.Trainer
	memory  *ReplayMemory

	// Sliding windows over the last windowSize decisions, oldest first.
	stateWindow  [][]float64
	actionWindow []int
	rewardWindow []float64
	netWindow    [][]float64

	rewards *stats.Window
	losses  *stats.Window

	forwardPasses int
	age           int
	epsilon       float64
	latestReward  float64
	learning      bool
}

// NewBrain creates a Brain for observations of numStates values and
// numActions discrete actions.
func NewBrain(numStates, numActions int, cfg BrainConfig) (*Brain, error) {
	if numStates <= 0 || numActions <= 0 {
		return nil, fmt.Errorf("%d states, %d actions: %w", numStates, numActions, ErrInvalidConfig)
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(numActions); err != nil {
		return nil, err
	}

	b := &Brain{
		cfg:        cfg,
		log:        cfg.Logger,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		numStates:  numStates,
		numActions: numActions,
		netInputs:  numStates*cfg.TemporalWindow + numActions*cfg.TemporalWindow + numStates,
		windowSize: max(cfg.TemporalWindow, 2),
		rewards:    stats.NewWindow(1000, 10),
		losses:     stats.NewWindow(1000, 10),
		epsilon:    1,
		learning:   true,
	}
	b.net = NewQNetwork(b.netInputs, cfg.Hidden, numActions, Relu, 0, b.rng)
	b.trainer = optim.New(cfg.Trainer)
	b.trainer.Bind(b.net)
	b.cfg.Trainer = b.trainer.Config()
	b.memory = NewReplayMemory(cfg.ExperienceSize, b.rng)
	b.resetWindows()

	b.log.Info("brain created",
		"states", numStates, "actions", numActions, "inputs", b.netInputs,
		"hidden", cfg.Hidden, "trainer", b.trainer.Config().Method.String())
	return b, nil
}

func (b *Brain) resetWindows() {
	n := b.windowSize
	b.stateWindow = make([][]float64, n)
	b.actionWindow = make([]int, n)
	b.rewardWindow = make([]float64, n)
	b.netWindow = make([][]float64, n)
	for i := range n {
		b.stateWindow[i] = make([]float64, b.numStates)
	}
}

// Config returns the effective configuration.
func (b *Brain) Config() BrainConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

// Network returns the value network. Callers must not use it while the
// Brain is learning concurrently.
func (b *Brain) Network() *QNetwork {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.net
}

// SetLearning switches learning on or off. While off, Backward only records
// rewards and exploration uses EpsilonTestTime.
func (b *Brain) SetLearning(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.learning = on
}

// Stats returns a snapshot of the Brain's counters and averages.
func (b *Brain) Stats() BrainStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BrainStats{
		Experiences:   b.memory.Len(),
		ExperienceCap: b.memory.Capacity(),
		ForwardPasses: b.forwardPasses,
		Age:           b.age,
		Epsilon:       b.epsilon,
		LatestReward:  b.latestReward,
		AverageReward: b.rewards.Average(),
		AverageLoss:   b.losses.Average(),
		Learning:      b.learning,
	}
}

// Forward observes obs and returns the chosen action. Until the temporal
// window has filled, actions are random.
func (b *Brain) Forward(obs []float64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(obs) != b.numStates {
		panic(fmt.Sprintf("Brain.Forward: observation has %d values, want %d", len(obs), b.numStates))
	}

	b.forwardPasses++
	var netInput []float64
	var action int
	if b.forwardPasses > b.cfg.TemporalWindow {
		netInput = b.netInput(obs)
		b.epsilon = b.currentEpsilon()
		if b.rng.Float64() < b.epsilon {
			action = b.randomAction()
		} else {
			action, _ = b.policy(netInput)
		}
	} else {
		action = b.randomAction()
	}

	b.stateWindow = shift(b.stateWindow, append([]float64(nil), obs...))
	b.actionWindow = shift(b.actionWindow, action)
	b.netWindow = shift(b.netWindow, netInput)
	return action
}

// Backward reports the reward for the last action. While learning it stores
// the completed transition and trains on a batch of replayed ones.
func (b *Brain) Backward(reward float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latestReward = reward
	b.rewards.Add(reward)
	b.rewardWindow = shift(b.rewardWindow, reward)
	if !b.learning {
		return
	}
	b.age++

	n := b.windowSize
	if b.forwardPasses > b.cfg.TemporalWindow+1 {
		b.memory.Add(Experience{
			State0:  b.netWindow[n-2],
			Action0: b.actionWindow[n-2],
			Reward0: b.rewardWindow[n-2],
			State1:  b.netWindow[n-1],
			Action1: b.actionWindow[n-1],
		})
	}
	if b.memory.Len() <= b.cfg.StartLearnThreshold {
		return
	}

	batch := b.trainer.Config().BatchSize
	var cost float64
	for range batch {
		cost += b.train(b.memory.Sample())
	}
	b.losses.Add(cost / float64(batch))
}

// train accumulates the regression gradient of Q(s0, a0) toward
// r0 + gamma*max Q(s1) and hands the example to the trainer.
func (b *Brain) train(e Experience) float64 {
	_, best := b.policy(e.State1)
	target := finiteOrZero(e.Reward0 + b.cfg.Gamma*best)

	pred, g := b.net.Forward(e.State0, true)
	diff := pred.GetAt(e.Action0) - target
	pred.SetGradientAt(e.Action0, clamp(diff, b.cfg.TDErrorClamp))
	g.Backward()

	st, err := b.trainer.Step(0.5 * diff * diff)
	if err != nil {
		panic(fmt.Sprintf("Brain.train: %v", err))
	}
	return st.Loss
}

// currentEpsilon anneals linearly with age while learning.
func (b *Brain) currentEpsilon() float64 {
	if !b.learning {
		return b.cfg.EpsilonTestTime
	}
	span := float64(b.cfg.LearningStepsTotal - b.cfg.LearningStepsBurnin)
	eps := 1 - float64(b.age-b.cfg.LearningStepsBurnin)/span
	return math.Min(1, math.Max(b.cfg.EpsilonMin, eps))
}

// netInput concatenates obs with the last TemporalWindow observations and
// one-hot actions, newest first. The hot entry is numStates so that action
// and observation inputs have comparable scale.
func (b *Brain) netInput(obs []float64) []float64 {
	out := make([]float64, 0, b.netInputs)
	out = append(out, obs...)
	n := b.windowSize
	for k := range b.cfg.TemporalWindow {
		out = append(out, b.stateWindow[n-1-k]...)
		onehot := make([]float64, b.numActions)
		onehot[b.actionWindow[n-1-k]] = float64(b.numStates)
		out = append(out, onehot...)
	}
	return out
}

// policy returns the greedy action and its value.
func (b *Brain) policy(netInput []float64) (int, float64) {
	values := b.net.Values(netInput)
	i := floats.MaxIdx(values)
	return i, values[i]
}

func (b *Brain) randomAction() int {
	d := b.cfg.RandomActionDistribution
	if d == nil {
		return b.rng.Intn(b.numActions)
	}
	p := b.rng.Float64()
	var acc float64
	for i, v := range d {
		acc += v
		if p < acc {
			return i
		}
	}
	return len(d) - 1
}

// shift drops the oldest entry of w and appends v.
func shift[T any](w []T, v T) []T {
	copy(w, w[1:])
	w[len(w)-1] = v
	return w
}

func (b *Brain) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("rl.Brain{inputs=%d actions=%d age=%d epsilon=%.3f}", b.netInputs, b.numActions, b.age, b.epsilon)
}
