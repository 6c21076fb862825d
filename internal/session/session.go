// Package session drives training of a layer Net over a Dataset.
//
// A Session owns the Net built from a JSON network description, the Trainer
// bound to it, the dataset and the moving-window statistics. One mutex
// guards all of it. A background training goroutine takes the lock once per
// step, so readers on other goroutines see consistent snapshots between
// steps; callers that read the Net directly bracket the access with
// Enter and Leave.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/born-ml/volnet/internal/netspec"
	"github.com/born-ml/volnet/internal/nn"
	"github.com/born-ml/volnet/internal/optim"
	"github.com/born-ml/volnet/internal/stats"
	"github.com/born-ml/volnet/internal/volume"
)

var (
	// ErrNotConfigured is returned when training or saving needs layers or
	// data that have not been set.
	ErrNotConfigured = errors.New("session not configured")

	// ErrAlreadyTraining is returned by StartTraining while a training
	// goroutine is running.
	ErrAlreadyTraining = errors.New("session already training")
)

// Session trains one Net.
type Session struct {
	mu   sync.Mutex
	opts options
	log  *slog.Logger
	rng  *rand.Rand

	def     *netspec.Definition
	net     *nn.Net
	trainer *optim.Trainer
	data    *Dataset

	loss     *stats.Window
	l1Loss   *stats.Window
	l2Loss   *stats.Window
	trainAcc *stats.Window
	testAcc  *stats.Window
	reward   *stats.Window

	step      int
	iteration int

	cancel context.CancelFunc
	done   chan struct{}

	whenStep      func(step int)
	whenIteration func(iteration int)
	whenLoaded    func()
}

// New creates an empty Session.
func New(opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &Session{
		opts: o,
		log:  o.logger,
		rng:  rand.New(rand.NewSource(o.seed)),
	}
	s.newWindows()
	return s
}

func (s *Session) newWindows() {
	n := s.opts.windowSize
	s.loss = stats.NewWindow(n, 0)
	s.l1Loss = stats.NewWindow(n, 0)
	s.l2Loss = stats.NewWindow(n, 0)
	s.trainAcc = stats.NewWindow(n, 0)
	s.testAcc = stats.NewWindow(n, 0)
	s.reward = stats.NewWindow(n, 0)
}

// Enter acquires the Session lock. Hold it while touching the Net returned
// by Net.
func (s *Session) Enter() { s.mu.Lock() }

// Leave releases the Session lock.
func (s *Session) Leave() { s.mu.Unlock() }

// MakeLayers replaces the network with the one described by spec. The
// Session is cleared first, so on failure it is left without a network; the
// failure is logged and false returned.
func (s *Session) MakeLayers(spec string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clear()
	def, err := netspec.Parse([]byte(spec))
	if err != nil {
		s.log.Error("network description rejected", "err", err)
		return false
	}
	net, err := def.BuildNet(s.rng)
	if err != nil {
		s.log.Error("network construction failed", "err", err)
		return false
	}
	s.install(def, net)
	s.log.Info("network built", "layers", net.Len(), "trainer", def.Trainer.Method.String())
	return true
}

func (s *Session) clear() {
	s.def, s.net, s.trainer = nil, nil, nil
	s.resetStats()
}

func (s *Session) install(def *netspec.Definition, net *nn.Net) {
	s.def = def
	s.net = net
	s.trainer = optim.New(def.Trainer)
	s.trainer.BindNet(net)
}

func (s *Session) resetStats() {
	for _, w := range []*stats.Window{s.loss, s.l1Loss, s.l2Loss, s.trainAcc, s.testAcc, s.reward} {
		w.Reset()
	}
	s.step, s.iteration = 0, 0
}

// Reset re-initializes the network parameters and optimizer state, keeping
// the topology, and clears the statistics.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.net != nil {
		s.net.Reset()
		s.trainer.Reset()
	}
	s.resetStats()
}

// SetDataset validates and installs d.
func (s *Session) SetDataset(d *Dataset) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = d
	return nil
}

// Dataset returns the installed dataset.
func (s *Session) Dataset() *Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Net returns the current network, or nil. Access it between Enter and
// Leave while training runs.
func (s *Session) Net() *nn.Net { return s.net }

// Trainer returns the current trainer, or nil.
func (s *Session) Trainer() *optim.Trainer { return s.trainer }

// Definition returns the parsed network description, or nil.
func (s *Session) Definition() *netspec.Definition { return s.def }

// Predict runs an inference pass on data and returns a copy of the output.
func (s *Session) Predict(data []float64) (*volume.Volume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.net == nil {
		return nil, ErrNotConfigured
	}
	w, h, d := s.net.InputShape()
	x, err := volume.FromSlice(w, h, d, data)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	return s.net.Forward(x, false).Clone(), nil
}

// WhenStepInterval registers f to run every step interval. It runs with the
// Session locked and must not call back into the Session.
func (s *Session) WhenStepInterval(f func(step int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whenStep = f
}

// WhenIterationInterval registers f to run after every pass over the
// training set. It runs with the Session locked.
func (s *Session) WhenIterationInterval(f func(iteration int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whenIteration = f
}

// WhenSessionLoaded registers f to run after a successful Load. It runs
// with the Session locked.
func (s *Session) WhenSessionLoaded(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whenLoaded = f
}

// Step returns the number of training steps since the last reset.
func (s *Session) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Iteration returns the number of completed passes over the training set.
func (s *Session) Iteration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iteration
}

func (s *Session) average(w *stats.Window) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return w.Average()
}

// LossAverage is the windowed mean cost loss, or -1 before enough steps.
func (s *Session) LossAverage() float64 { return s.average(s.loss) }

// L1DecayLossAverage is the windowed mean L1 weight-decay loss.
func (s *Session) L1DecayLossAverage() float64 { return s.average(s.l1Loss) }

// L2DecayLossAverage is the windowed mean L2 weight-decay loss.
func (s *Session) L2DecayLossAverage() float64 { return s.average(s.l2Loss) }

// TrainingAccuracy is the windowed fraction of correctly classified
// training samples.
func (s *Session) TrainingAccuracy() float64 { return s.average(s.trainAcc) }

// TestAccuracy is the windowed fraction of correctly classified validation
// samples.
func (s *Session) TestAccuracy() float64 { return s.average(s.testAcc) }

// AddReward records a reward reported by a reinforcement-learning host.
func (s *Session) AddReward(r float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reward.Add(r)
}

// RewardAverage is the windowed mean reward.
func (s *Session) RewardAverage() float64 { return s.average(s.reward) }
