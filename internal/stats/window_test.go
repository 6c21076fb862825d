package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_AverageNeedsMinSize(t *testing.T) {
	w := NewWindow(5, 3)
	w.Add(1)
	w.Add(2)
	assert.Equal(t, -1.0, w.Average())

	w.Add(3)
	assert.InDelta(t, 2.0, w.Average(), 1e-12)
}

func TestWindow_EvictsOldest(t *testing.T) {
	w := NewWindow(3, 1)
	for _, x := range []float64{10, 1, 2, 3} {
		w.Add(x)
	}
	require.Equal(t, 3, w.Len())
	assert.Equal(t, []float64{1, 2, 3}, w.Values())
	assert.InDelta(t, 2.0, w.Average(), 1e-12)
}

func TestWindow_DefaultMinSize(t *testing.T) {
	w := NewWindow(100, 0)
	assert.Equal(t, DefaultMinSize, w.MinSize())
	for i := 0; i < DefaultMinSize-1; i++ {
		w.Add(1)
	}
	assert.Equal(t, -1.0, w.Average())
	w.Add(1)
	assert.Equal(t, 1.0, w.Average())
}

func TestWindow_ResetAndRestore(t *testing.T) {
	w := NewWindow(2, 1)
	w.Add(5)
	w.Reset()
	assert.Zero(t, w.Len())
	assert.Equal(t, -1.0, w.Average())

	w.Restore([]float64{1, 2, 3})
	assert.Equal(t, []float64{2, 3}, w.Values())
	assert.InDelta(t, 2.5, w.Average(), 1e-12)
}

func TestNewWindow_PanicsOnBadSize(t *testing.T) {
	assert.Panics(t, func() { NewWindow(0, 1) })
}
