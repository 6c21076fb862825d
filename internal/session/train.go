package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/born-ml/volnet/internal/nn"
	"github.com/born-ml/volnet/internal/volume"
)

// TrainIteration runs one shuffled pass over the training set, taking the
// Session lock for each step. It returns ctx.Err() if ctx is cancelled
// between steps.
func (s *Session) TrainIteration(ctx context.Context) error {
	s.mu.Lock()
	if s.net == nil || s.data == nil || len(s.data.Train) == 0 {
		s.mu.Unlock()
		return ErrNotConfigured
	}
	order := s.rng.Perm(len(s.data.Train))
	s.mu.Unlock()

	for _, i := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		err := s.trainStep(i)
		s.mu.Unlock()
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.iteration++
	if s.whenIteration != nil {
		s.whenIteration(s.iteration)
	}
	return nil
}

// trainStep trains on training sample i. The lock is held.
func (s *Session) trainStep(i int) error {
	if s.net == nil || s.data == nil {
		return ErrNotConfigured
	}
	if i >= len(s.data.Train) {
		// The dataset was replaced mid-pass.
		return nil
	}
	sample := s.data.Train[i]

	x, err := s.input(sample, true)
	if err != nil {
		return err
	}
	target, err := s.target(sample)
	if err != nil {
		return err
	}
	st, err := s.trainer.Train(x, target)
	if err != nil {
		return err
	}

	s.loss.Add(st.CostLoss)
	s.l1Loss.Add(st.L1DecayLoss)
	s.l2Loss.Add(st.L2DecayLoss)
	if s.classifies() && target.IsClass() {
		s.trainAcc.Add(hit(s.net.Prediction() == sample.Label))
	}
	s.step++

	if s.opts.predictInterval > 0 && s.step%s.opts.predictInterval == 0 {
		if err := s.validate(); err != nil {
			return err
		}
	}
	if s.opts.stepInterval > 0 && s.step%s.opts.stepInterval == 0 && s.whenStep != nil {
		s.whenStep(s.step)
	}
	return nil
}

// validate scores one random test sample.
func (s *Session) validate() error {
	if len(s.data.Test) == 0 || !s.classifies() {
		return nil
	}
	sample := s.data.Test[s.rng.Intn(len(s.data.Test))]
	if sample.Target != nil {
		return nil
	}
	x, err := s.input(sample, false)
	if err != nil {
		return err
	}
	s.net.Forward(x, false)
	s.testAcc.Add(hit(s.net.Prediction() == sample.Label))
	return nil
}

func (s *Session) classifies() bool {
	return s.net.Last().Kind() == nn.KindSoftmax
}

// input builds the network input for sample, applying augmentation when
// configured.
func (s *Session) input(sample Sample, training bool) (*volume.Volume, error) {
	d := s.data
	x, err := volume.FromSlice(d.Width, d.Height, d.Depth, sample.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSample, err)
	}
	if crop := s.opts.crop; crop > 0 {
		if training {
			x = x.Augment(crop, -1, -1, s.opts.flip && s.rng.Float64() < 0.5, s.rng)
		} else {
			x = x.Augment(crop, (d.Width-crop)/2, (d.Height-crop)/2, false, s.rng)
		}
	}
	return x, nil
}

func (s *Session) target(sample Sample) (nn.Target, error) {
	if sample.Target != nil {
		return nn.VectorTarget(sample.Target), nil
	}
	switch s.net.Last().Kind() {
	case nn.KindSoftmax, nn.KindSVM:
		return nn.ClassTarget(sample.Label), nil
	case nn.KindRegression:
		if s.net.Last().OutputDepth() == 1 {
			return nn.VectorTarget([]float64{float64(sample.Label)}), nil
		}
	}
	return nn.Target{}, fmt.Errorf("sample without target for %s output: %w", s.net.Last().Kind(), ErrBadSample)
}

func hit(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

// StartTraining runs TrainIteration on a new goroutine until ctx is done,
// StopTraining is called, or an iteration fails.
func (s *Session) StartTraining(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyTraining
	}
	if s.net == nil || s.data == nil || len(s.data.Train) == 0 {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.log.Info("training started", "samples", len(s.data.Train))

	go func() {
		var err error
		for err == nil {
			err = s.TrainIteration(ctx)
		}

		s.mu.Lock()
		if s.done == done {
			s.cancel, s.done = nil, nil
		}
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.log.Error("training stopped", "err", err, "step", s.step)
		} else {
			s.log.Info("training stopped", "step", s.step, "iteration", s.iteration)
		}
		s.mu.Unlock()
		cancel()
		close(done)
	}()
	return nil
}

// StopTraining cancels the training goroutine and waits for it to exit. It
// is a no-op when not training.
func (s *Session) StopTraining() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// IsTraining reports whether a training goroutine is running.
func (s *Session) IsTraining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}
