// Package stats provides the moving averages reported by training sessions.
package stats

import "fmt"

// DefaultMinSize is the number of samples a Window needs before it reports
// an average.
const DefaultMinSize = 20

// Window is a moving average over the last Size values.
type Window struct {
	size    int
	minSize int
	values  []float64
	sum     float64
}

// NewWindow creates a Window over size values that reports -1 until it holds
// at least minSize values. A minSize of 0 selects DefaultMinSize.
func NewWindow(size, minSize int) *Window {
	if size <= 0 {
		panic(fmt.Sprintf("stats.NewWindow: size %d", size))
	}
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	return &Window{size: size, minSize: minSize, values: make([]float64, 0, size)}
}

// Size returns the window capacity.
func (w *Window) Size() int { return w.size }

// MinSize returns the number of values needed for an average.
func (w *Window) MinSize() int { return w.minSize }

// Len returns the number of values currently held.
func (w *Window) Len() int { return len(w.values) }

// Add appends x, evicting the oldest value when the window is full.
func (w *Window) Add(x float64) {
	if len(w.values) == w.size {
		w.sum -= w.values[0]
		copy(w.values, w.values[1:])
		w.values = w.values[:len(w.values)-1]
	}
	w.values = append(w.values, x)
	w.sum += x
}

// Average returns the mean of the held values, or -1 if fewer than MinSize
// values have been added.
func (w *Window) Average() float64 {
	if len(w.values) < w.minSize {
		return -1
	}
	return w.sum / float64(len(w.values))
}

// Reset discards every value.
func (w *Window) Reset() {
	w.values = w.values[:0]
	w.sum = 0
}

// Values returns a copy of the held values, oldest first.
func (w *Window) Values() []float64 {
	return append([]float64(nil), w.values...)
}

// Restore replaces the held values. Only the newest Size values are kept.
func (w *Window) Restore(values []float64) {
	w.Reset()
	for _, v := range values {
		w.Add(v)
	}
}
