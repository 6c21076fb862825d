package session

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/born-ml/volnet/internal/serialization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoPointSpec = `[
	{"type":"input","input_width":2,"input_height":1,"input_depth":1},
	{"type":"fc","neuron_count":2},
	{"type":"softmax","class_count":2},
	{"type":"sgd","learning_rate":0.1}
]`

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func twoPointData() *Dataset {
	return &Dataset{
		Width: 2, Height: 1, Depth: 1, ClassCount: 2,
		Train: []Sample{
			{Data: []float64{0.5, -0.5}, Label: 0},
			{Data: []float64{-0.5, 0.5}, Label: 1},
		},
		Test: []Sample{
			{Data: []float64{0.4, -0.6}, Label: 0},
			{Data: []float64{-0.6, 0.4}, Label: 1},
		},
	}
}

func newTwoPoint(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s := New(append([]Option{quiet()}, opts...)...)
	require.True(t, s.MakeLayers(twoPointSpec))
	require.NoError(t, s.SetDataset(twoPointData()))
	return s
}

func trainIterations(t *testing.T, s *Session, n int) {
	t.Helper()
	for range n {
		require.NoError(t, s.TrainIteration(context.Background()))
	}
}

func TestMakeLayers_FailureLeavesSessionEmpty(t *testing.T) {
	s := New(quiet())
	require.True(t, s.MakeLayers(twoPointSpec))
	require.NotNil(t, s.Net())

	assert.False(t, s.MakeLayers(`[{"type":"fc"}]`))
	assert.Nil(t, s.Net())
	assert.Nil(t, s.Trainer())
	assert.Nil(t, s.Definition())

	assert.False(t, s.MakeLayers(`not json`))
	assert.False(t, s.MakeLayers(`[{"type":"input","input_width":2,"input_height":2,"input_depth":1},{"type":"pool","width":3}]`))
	assert.Nil(t, s.Net())
}

func TestNotConfigured(t *testing.T) {
	s := New(quiet())
	assert.ErrorIs(t, s.TrainIteration(context.Background()), ErrNotConfigured)
	assert.ErrorIs(t, s.StartTraining(context.Background()), ErrNotConfigured)
	assert.ErrorIs(t, s.Save(io.Discard), ErrNotConfigured)
	_, err := s.Predict([]float64{1, 2})
	assert.ErrorIs(t, err, ErrNotConfigured)

	require.True(t, s.MakeLayers(twoPointSpec))
	assert.ErrorIs(t, s.TrainIteration(context.Background()), ErrNotConfigured)
}

func TestSetDataset_Validation(t *testing.T) {
	s := New(quiet())
	d := twoPointData()
	d.Train[1].Data = []float64{1}
	assert.ErrorIs(t, s.SetDataset(d), ErrBadSample)

	d = twoPointData()
	d.Test[0].Label = 2
	assert.ErrorIs(t, s.SetDataset(d), ErrBadSample)
	assert.Nil(t, s.Dataset())
}

func TestTwoPointClassifier(t *testing.T) {
	s := newTwoPoint(t)
	assert.Equal(t, -1.0, s.LossAverage())

	trainIterations(t, s, 500)

	assert.Equal(t, 1000, s.Step())
	assert.Equal(t, 500, s.Iteration())
	assert.GreaterOrEqual(t, s.TrainingAccuracy(), 0.95)
	assert.GreaterOrEqual(t, s.TestAccuracy(), 0.95)
	assert.Less(t, s.LossAverage(), 0.1)
	assert.Equal(t, 0.0, s.L1DecayLossAverage())

	out, err := s.Predict([]float64{0.5, -0.5})
	require.NoError(t, err)
	assert.Greater(t, out.GetAt(0), 0.9)
	assert.InDelta(t, 1.0, out.GetAt(0)+out.GetAt(1), 1e-9)

	_, err = s.Predict([]float64{1})
	assert.Error(t, err)
}

func TestRegressionTargets(t *testing.T) {
	s := New(quiet())
	require.True(t, s.MakeLayers(`[
		{"type":"input","input_width":1,"input_height":1,"input_depth":1},
		{"type":"fc","neuron_count":1},
		{"type":"regression","neuron_count":1},
		{"type":"sgd","learning_rate":0.05,"momentum":0}
	]`))
	require.NoError(t, s.SetDataset(&Dataset{
		Width: 1, Height: 1, Depth: 1,
		Train: []Sample{
			{Data: []float64{1}, Label: 2},
			{Data: []float64{-1}, Target: []float64{-2}},
		},
	}))

	trainIterations(t, s, 300)
	assert.Equal(t, -1.0, s.TrainingAccuracy())
	assert.Less(t, s.LossAverage(), 1e-3)

	out, err := s.Predict([]float64{0.5})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out.GetAt(0), 0.05)
}

func TestCallbacks(t *testing.T) {
	s := newTwoPoint(t, WithStepInterval(3))
	var steps, iterations []int
	s.WhenStepInterval(func(step int) { steps = append(steps, step) })
	s.WhenIterationInterval(func(it int) { iterations = append(iterations, it) })

	trainIterations(t, s, 5)
	assert.Equal(t, []int{3, 6, 9}, steps)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, iterations)
}

func TestTrainIteration_Cancelled(t *testing.T) {
	s := newTwoPoint(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.TrainIteration(ctx), context.Canceled)
	assert.Equal(t, 0, s.Step())
	assert.Equal(t, 0, s.Iteration())
}

func TestStartStopTraining(t *testing.T) {
	s := newTwoPoint(t)
	require.NoError(t, s.StartTraining(context.Background()))
	assert.True(t, s.IsTraining())
	assert.ErrorIs(t, s.StartTraining(context.Background()), ErrAlreadyTraining)

	require.Eventually(t, func() bool { return s.Step() > 20 }, 5*time.Second, time.Millisecond)

	s.Enter()
	n := s.Net().Len()
	s.Leave()
	assert.Equal(t, 3, n)

	s.StopTraining()
	assert.False(t, s.IsTraining())
	step := s.Step()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, step, s.Step())

	s.StopTraining()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.StartTraining(ctx))
	cancel()
	require.Eventually(t, func() bool { return !s.IsTraining() }, 5*time.Second, time.Millisecond)
}

func TestReset(t *testing.T) {
	s := newTwoPoint(t)
	trainIterations(t, s, 20)
	require.NotEqual(t, -1.0, s.LossAverage())

	s.Reset()
	assert.Equal(t, 0, s.Step())
	assert.Equal(t, 0, s.Iteration())
	assert.Equal(t, -1.0, s.LossAverage())
	assert.Equal(t, 0, s.Trainer().IterCount())
	assert.NotNil(t, s.Dataset())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newTwoPoint(t, WithSeed(3))
	trainIterations(t, s, 30)
	s.AddReward(0.25)

	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	loaded := New(quiet(), WithSeed(9))
	calls := 0
	loaded.WhenSessionLoaded(func() { calls++ })
	require.NoError(t, loaded.Load(bytes.NewReader(buf.Bytes())))
	assert.Equal(t, 1, calls)

	assert.Equal(t, s.Step(), loaded.Step())
	assert.Equal(t, s.Iteration(), loaded.Iteration())
	assert.Equal(t, s.LossAverage(), loaded.LossAverage())
	assert.Equal(t, s.TrainingAccuracy(), loaded.TrainingAccuracy())
	assert.Equal(t, s.RewardAverage(), loaded.RewardAverage())
	assert.Equal(t, s.Dataset(), loaded.Dataset())
	assert.Equal(t, s.Definition(), loaded.Definition())
	assert.Equal(t, s.Trainer().Config(), loaded.Trainer().Config())
	assert.Equal(t, s.Trainer().State(), loaded.Trainer().State())

	want := s.Net().ParametersAndGradients()
	got := loaded.Net().ParametersAndGradients()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Volume.Weights(), got[i].Volume.Weights())
	}

	for _, x := range [][]float64{{0.5, -0.5}, {-0.3, 0.9}} {
		a, err := s.Predict(x)
		require.NoError(t, err)
		b, err := loaded.Predict(x)
		require.NoError(t, err)
		assert.Equal(t, a.Weights(), b.Weights())
	}

	trainIterations(t, loaded, 1)
	assert.Equal(t, s.Step()+2, loaded.Step())
}

func TestLoad_Errors(t *testing.T) {
	s := newTwoPoint(t)
	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	corrupt := append([]byte(nil), buf.Bytes()...)
	corrupt[serialization.FixedHeaderSize+3] ^= 0x40
	fresh := New(quiet())
	assert.ErrorIs(t, fresh.Load(bytes.NewReader(corrupt)), serialization.ErrChecksumMismatch)
	assert.Nil(t, fresh.Net())

	var other bytes.Buffer
	require.NoError(t, serialization.WriteContainer(&other, serialization.KindBrain, nil))
	assert.ErrorIs(t, fresh.Load(&other), serialization.ErrUnexpectedKind)

	var empty bytes.Buffer
	require.NoError(t, serialization.WriteContainer(&empty, serialization.KindSession, nil))
	assert.Error(t, fresh.Load(&empty))
	assert.Nil(t, fresh.Net())
}

func TestAugmentation(t *testing.T) {
	s := New(quiet(), WithAugmentation(2, true))
	require.True(t, s.MakeLayers(`[
		{"type":"input","input_width":2,"input_height":2,"input_depth":1},
		{"type":"fc","neuron_count":2},
		{"type":"softmax","class_count":2},
		{"type":"sgd","learning_rate":0.1}
	]`))
	bright := make([]float64, 16)
	for i := range bright {
		bright[i] = 1
	}
	dark := make([]float64, 16)
	require.NoError(t, s.SetDataset(&Dataset{
		Width: 4, Height: 4, Depth: 1, ClassCount: 2,
		Train: []Sample{{Data: bright, Label: 1}, {Data: dark, Label: 0}},
		Test:  []Sample{{Data: bright, Label: 1}},
	}))

	trainIterations(t, s, 100)
	assert.Equal(t, 200, s.Step())
	assert.GreaterOrEqual(t, s.TrainingAccuracy(), 0.95)
}
