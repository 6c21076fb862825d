// Package optim implements the Trainer that updates network parameters from
// their accumulated gradients.
//
// This package provides:
//   - Trainer: shared batching, weight decay and bookkeeping
//   - Update rules: SGD with momentum, Adagrad, Windowgrad, Adadelta,
//     Nesterov momentum and Adam
//
// One example is processed at a time. Gradients accumulate in the parameter
// Volumes and the rule fires every BatchSize-th example, dividing the
// accumulated gradient by the batch size.
//
// Example usage:
//
//	trainer := optim.New(optim.Config{
//	    Method:       optim.Adadelta,
//	    LearningRate: 0.01,
//	    BatchSize:    10,
//	})
//	trainer.BindNet(net)
//
//	for _, s := range samples {
//	    stats, err := trainer.Train(s.Input, nn.ClassTarget(s.Label))
//	    ...
//	}
package optim

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/born-ml/volnet/internal/nn"
	"github.com/born-ml/volnet/internal/volume"
)

// ErrNotConfigured is returned when training is requested before parameters
// (or a Net, for Train) have been bound.
var ErrNotConfigured = errors.New("trainer not configured")

// ErrStateMismatch is returned by LoadState when the saved optimizer state
// does not fit the bound parameters.
var ErrStateMismatch = errors.New("trainer state does not match parameters")

// Method selects the update rule.
type Method int

// Update rules.
const (
	SGD Method = iota
	Adagrad
	Adadelta
	Adam
	Nesterov
	Windowgrad
)

var methodNames = map[Method]string{
	SGD:        "sgd",
	Adagrad:    "adagrad",
	Adadelta:   "adadelta",
	Adam:       "adam",
	Nesterov:   "nesterov",
	Windowgrad: "windowgrad",
}

// methodAliases holds accepted spellings beyond the canonical names.
var methodAliases = map[string]Method{
	"netsterov": Nesterov,
}

// String returns the canonical name of m.
func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod resolves a method name, including historical aliases.
func ParseMethod(name string) (Method, bool) {
	for m, n := range methodNames {
		if n == name {
			return m, true
		}
	}
	m, ok := methodAliases[name]
	return m, ok
}

// Config holds the Trainer hyperparameters.
type Config struct {
	Method       Method
	LearningRate float64 // default: 0.01
	BatchSize    int     // default: 1
	Momentum     float64 // sgd and nesterov; 0 disables it for sgd
	L1Decay      float64
	L2Decay      float64
	Beta1        float64 // adam, default: 0.9
	Beta2        float64 // adam, default: 0.999
	Eps          float64 // default: 1e-8
	Ro           float64 // adadelta and windowgrad, default: 0.95
}

// DefaultConfig returns the defaults used when a network description has no
// trainer object.
func DefaultConfig() Config {
	return Config{
		Method:       SGD,
		LearningRate: 0.01,
		BatchSize:    1,
		Momentum:     0.9,
		Beta1:        0.9,
		Beta2:        0.999,
		Eps:          1e-8,
		Ro:           0.95,
	}
}

// withDefaults fills zero fields whose zero value is never meaningful.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LearningRate == 0 {
		c.LearningRate = d.LearningRate
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.Beta1 == 0 {
		c.Beta1 = d.Beta1
	}
	if c.Beta2 == 0 {
		c.Beta2 = d.Beta2
	}
	if c.Eps == 0 {
		c.Eps = d.Eps
	}
	if c.Ro == 0 {
		c.Ro = d.Ro
	}
	return c
}

// ParamSource is anything that exposes trainable parameters in a stable
// order: a Net, or a model assembled on the autodiff tape.
type ParamSource interface {
	ParametersAndGradients() []nn.ParametersAndGradients
}

// Stats reports one training call.
type Stats struct {
	CostLoss     float64
	L1DecayLoss  float64
	L2DecayLoss  float64
	Loss         float64 // CostLoss + L1DecayLoss + L2DecayLoss
	ForwardTime  time.Duration
	BackwardTime time.Duration
}

// slot is the per-parameter optimizer memory. gsum holds the first
// accumulator (velocity, squared-gradient sum or first moment) and xsum the
// second (adadelta's squared-update sum or adam's second moment).
type slot struct {
	gsum []float64
	xsum []float64
}

// Trainer applies one of the update rules to the parameters of a bound
// source.
//
// A Trainer is not safe for concurrent use; the Session serializes access.
type Trainer struct {
	cfg  Config
	rule updateRule

	net *nn.Net
	src ParamSource

	iterCount int
	updates   int // completed updates, for adam's bias correction
	slots     []slot
}

// New creates a Trainer. Zero fields that have no meaningful zero value
// take their DefaultConfig values; Momentum and the decays are used as given.
func New(cfg Config) *Trainer {
	cfg = cfg.withDefaults()
	rule, ok := rules[cfg.Method]
	if !ok {
		panic(fmt.Sprintf("optim.New: unknown method %v", cfg.Method))
	}
	return &Trainer{cfg: cfg, rule: rule}
}

// Config returns the effective configuration.
func (t *Trainer) Config() Config { return t.cfg }

// SetLearningRate changes the learning rate; optimizer state is kept.
func (t *Trainer) SetLearningRate(lr float64) { t.cfg.LearningRate = lr }

// IterCount returns the number of examples seen since the last Reset.
func (t *Trainer) IterCount() int { return t.iterCount }

// Bind attaches a parameter source for use with Step. Optimizer state is
// dropped.
func (t *Trainer) Bind(src ParamSource) {
	t.net = nil
	t.src = src
	t.Reset()
}

// BindNet attaches a Net for use with Train. Optimizer state is dropped.
func (t *Trainer) BindNet(n *nn.Net) {
	t.Bind(n)
	t.net = n
}

// Reset drops the optimizer state and the iteration counter.
func (t *Trainer) Reset() {
	t.iterCount = 0
	t.updates = 0
	t.slots = nil
}

// Train runs a training Forward and Backward for one example on the bound
// Net, then counts the example and applies the update rule when a batch is
// complete.
func (t *Trainer) Train(x *volume.Volume, target nn.Target) (Stats, error) {
	if t.net == nil || t.net.Len() == 0 {
		return Stats{}, ErrNotConfigured
	}

	start := time.Now()
	t.net.Forward(x, true)
	fwd := time.Since(start)

	start = time.Now()
	cost := t.net.Backward(target)
	bwd := time.Since(start)

	t.iterCount++
	l1, l2 := t.TrainImplem()
	return Stats{
		CostLoss:     cost,
		L1DecayLoss:  l1,
		L2DecayLoss:  l2,
		Loss:         cost + l1 + l2,
		ForwardTime:  fwd,
		BackwardTime: bwd,
	}, nil
}

// Step counts one example whose gradients were already accumulated into the
// bound parameters by the caller, and applies the update rule when a batch
// is complete.
func (t *Trainer) Step(costLoss float64) (Stats, error) {
	if t.src == nil {
		return Stats{}, ErrNotConfigured
	}
	t.iterCount++
	l1, l2 := t.TrainImplem()
	return Stats{
		CostLoss:    costLoss,
		L1DecayLoss: l1,
		L2DecayLoss: l2,
		Loss:        costLoss + l1 + l2,
	}, nil
}

// TrainImplem applies the update rule to every bound parameter if the
// iteration count is a multiple of the batch size, and does nothing
// otherwise. It returns the weight-decay losses of the update.
//
// For each weight w with accumulated gradient g the effective gradient is
//
//	gij = (l2*w + l1*sign(w) + g) / BatchSize
//
// where l1 and l2 are the configured decays times the parameter's decay
// multipliers. Gradients are zeroed after the update.
func (t *Trainer) TrainImplem() (l1Loss, l2Loss float64) {
	if t.src == nil {
		panic("Trainer.TrainImplem: no parameters bound")
	}
	if t.iterCount%t.cfg.BatchSize != 0 {
		return 0, 0
	}

	params := t.src.ParametersAndGradients()
	t.ensureSlots(params)
	t.updates++
	batch := float64(t.cfg.BatchSize)

	for i, p := range params {
		w := p.Volume.Weights()
		g := p.Volume.Gradients()
		l1Mul, l2Mul := p.DecayMuls()
		l1 := t.cfg.L1Decay * l1Mul
		l2 := t.cfg.L2Decay * l2Mul
		s := &t.slots[i]

		for j := range w {
			l2Loss += l2 * w[j] * w[j] / 2
			l1Loss += l1 * math.Abs(w[j])
			l1grad := 0.0
			switch {
			case w[j] > 0:
				l1grad = l1
			case w[j] < 0:
				l1grad = -l1
			}
			gij := (l2*w[j] + l1grad + g[j]) / batch
			w[j] += t.rule(&t.cfg, t.updates, s, j, gij)
			g[j] = 0
		}
	}
	return l1Loss, l2Loss
}

// ensureSlots allocates optimizer memory on the first update.
func (t *Trainer) ensureSlots(params []nn.ParametersAndGradients) {
	if len(t.slots) == len(params) {
		return
	}
	t.slots = make([]slot, len(params))
	for i, p := range params {
		n := p.Volume.Len()
		t.slots[i] = slot{gsum: make([]float64, n), xsum: make([]float64, n)}
	}
}

// State is a snapshot of the optimizer memory, index-aligned with the
// source's ParametersAndGradients order.
type State struct {
	IterCount int
	Updates   int
	Gsum      [][]float64
	Xsum      [][]float64
}

// State returns a deep copy of the optimizer memory.
func (t *Trainer) State() State {
	st := State{IterCount: t.iterCount, Updates: t.updates}
	for _, s := range t.slots {
		st.Gsum = append(st.Gsum, append([]float64(nil), s.gsum...))
		st.Xsum = append(st.Xsum, append([]float64(nil), s.xsum...))
	}
	return st
}

// LoadState restores optimizer memory saved by State. An empty snapshot
// restores only the counters.
func (t *Trainer) LoadState(st State) error {
	if len(st.Gsum) != len(st.Xsum) {
		return fmt.Errorf("gsum has %d entries, xsum %d: %w", len(st.Gsum), len(st.Xsum), ErrStateMismatch)
	}
	var slots []slot
	if len(st.Gsum) > 0 {
		if t.src == nil {
			return ErrNotConfigured
		}
		params := t.src.ParametersAndGradients()
		if len(params) != len(st.Gsum) {
			return fmt.Errorf("%d saved parameters, %d bound: %w", len(st.Gsum), len(params), ErrStateMismatch)
		}
		slots = make([]slot, len(params))
		for i, p := range params {
			n := p.Volume.Len()
			if len(st.Gsum[i]) != n || len(st.Xsum[i]) != n {
				return fmt.Errorf("parameter %d has %d weights: %w", i, n, ErrStateMismatch)
			}
			slots[i] = slot{
				gsum: append([]float64(nil), st.Gsum[i]...),
				xsum: append([]float64(nil), st.Xsum[i]...),
			}
		}
	}
	t.iterCount = st.IterCount
	t.updates = st.Updates
	t.slots = slots
	return nil
}
