package session

import (
	"log/slog"
)

// Defaults for Options left unset.
const (
	DefaultWindowSize      = 100
	DefaultPredictInterval = 10
	DefaultStepInterval    = 100
)

type options struct {
	logger          *slog.Logger
	seed            int64
	windowSize      int
	predictInterval int
	stepInterval    int
	crop            int
	flip            bool
}

func defaultOptions() options {
	return options{
		logger:          slog.Default(),
		seed:            1,
		windowSize:      DefaultWindowSize,
		predictInterval: DefaultPredictInterval,
		stepInterval:    DefaultStepInterval,
	}
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the logger for parse failures and training lifecycle
// events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSeed seeds the generator behind parameter initialization, shuffling,
// dropout and augmentation.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithWindowSize sets the number of recent values each statistic averages.
func WithWindowSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.windowSize = n
		}
	}
}

// WithPredictInterval evaluates one random test sample every n steps. Zero
// disables validation.
func WithPredictInterval(n int) Option {
	return func(o *options) { o.predictInterval = n }
}

// WithStepInterval fires the WhenStepInterval callback every n steps.
func WithStepInterval(n int) Option {
	return func(o *options) { o.stepInterval = n }
}

// WithAugmentation trains on random crop x crop windows of each sample,
// mirrored at random when flip is set. Validation uses the centered window.
// The network input must then be crop x crop.
func WithAugmentation(crop int, flip bool) Option {
	return func(o *options) {
		o.crop = crop
		o.flip = flip
	}
}
