package session

import (
	"errors"
	"fmt"
)

// ErrBadSample marks a dataset entry that does not fit the dataset shape.
var ErrBadSample = errors.New("bad sample")

// Sample is one example. Classification uses Label; regression uses Target
// when it is set.
type Sample struct {
	Data   []float64
	Label  int
	Target []float64
}

// Dataset holds the training and test examples.
type Dataset struct {
	Width, Height, Depth int
	ClassCount           int // 0 for regression data
	Train                []Sample
	Test                 []Sample
}

// Validate checks that every sample has Width*Height*Depth values and, for
// class data, a label in range.
func (d *Dataset) Validate() error {
	if d.Width <= 0 || d.Height <= 0 || d.Depth <= 0 {
		return fmt.Errorf("dataset shape %dx%dx%d: %w", d.Width, d.Height, d.Depth, ErrBadSample)
	}
	n := d.Width * d.Height * d.Depth
	check := func(set string, samples []Sample) error {
		for i, s := range samples {
			if len(s.Data) != n {
				return fmt.Errorf("%s sample %d has %d values, want %d: %w", set, i, len(s.Data), n, ErrBadSample)
			}
			if d.ClassCount > 0 && s.Target == nil && (s.Label < 0 || s.Label >= d.ClassCount) {
				return fmt.Errorf("%s sample %d label %d outside [0,%d): %w", set, i, s.Label, d.ClassCount, ErrBadSample)
			}
		}
		return nil
	}
	if err := check("train", d.Train); err != nil {
		return err
	}
	return check("test", d.Test)
}
