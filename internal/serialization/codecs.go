package serialization

import (
	"github.com/born-ml/volnet/internal/optim"
	"github.com/born-ml/volnet/internal/stats"
	"github.com/born-ml/volnet/internal/volume"
	"google.golang.org/protobuf/encoding/protowire"
)

// Volume fields.
const (
	volWidth protowire.Number = iota + 1
	volHeight
	volDepth
	volWeights
	volGradients
)

// PutVolume appends v as a nested record.
func PutVolume(r *Record, num protowire.Number, v *volume.Volume) {
	var sub Record
	sub.PutInt(volWidth, v.Width())
	sub.PutInt(volHeight, v.Height())
	sub.PutInt(volDepth, v.Depth())
	sub.PutFloats(volWeights, v.Weights())
	sub.PutFloats(volGradients, v.Gradients())
	r.PutRecord(num, &sub)
}

// PutVolumes appends each Volume as an occurrence of a repeated field.
func PutVolumes(r *Record, num protowire.Number, vs []*volume.Volume) {
	for _, v := range vs {
		PutVolume(r, num, v)
	}
}

// GetVolume decodes a Volume written by PutVolume. It returns nil and
// records an error in f when the record is malformed.
func GetVolume(f *Fields, num protowire.Number) *volume.Volume {
	return decodeVolume(f, num, f.Record(num))
}

// GetVolumes decodes a repeated Volume field.
func GetVolumes(f *Fields, num protowire.Number) []*volume.Volume {
	subs := f.Records(num)
	out := make([]*volume.Volume, 0, len(subs))
	for _, sub := range subs {
		v := decodeVolume(f, num, sub)
		if v == nil {
			return nil
		}
		out = append(out, v)
	}
	return out
}

func decodeVolume(parent *Fields, num protowire.Number, sub *Fields) *volume.Volume {
	w, h, d := sub.Int(volWidth), sub.Int(volHeight), sub.Int(volDepth)
	weights, grads := sub.Floats(volWeights), sub.Floats(volGradients)
	if sub.Err() != nil {
		return nil
	}
	v, err := volume.Restore(w, h, d, weights, grads)
	if err != nil {
		parent.fail(num, "volume: %v", err)
		return nil
	}
	return v
}

// Window fields.
const (
	winSize protowire.Number = iota + 1
	winMinSize
	winValues
)

// PutWindow appends w as a nested record.
func PutWindow(r *Record, num protowire.Number, w *stats.Window) {
	var sub Record
	sub.PutInt(winSize, w.Size())
	sub.PutInt(winMinSize, w.MinSize())
	sub.PutFloats(winValues, w.Values())
	r.PutRecord(num, &sub)
}

// GetWindow decodes a Window written by PutWindow.
func GetWindow(f *Fields, num protowire.Number) *stats.Window {
	sub := f.Record(num)
	size, minSize, values := sub.Int(winSize), sub.Int(winMinSize), sub.Floats(winValues)
	if f.Err() != nil {
		return nil
	}
	if size <= 0 {
		f.fail(num, "window size %d", size)
		return nil
	}
	w := stats.NewWindow(size, minSize)
	w.Restore(values)
	return w
}

// Trainer fields.
const (
	trMethod protowire.Number = iota + 1
	trLearningRate
	trBatchSize
	trMomentum
	trL1Decay
	trL2Decay
	trBeta1
	trBeta2
	trEps
	trRo
	trIterCount
	trUpdates
	trGsum
	trXsum
)

// PutTrainer appends a Trainer's configuration and optimizer memory.
func PutTrainer(r *Record, num protowire.Number, t *optim.Trainer) {
	cfg, st := t.Config(), t.State()
	var sub Record
	sub.PutInt(trMethod, int(cfg.Method))
	sub.PutFloat(trLearningRate, cfg.LearningRate)
	sub.PutInt(trBatchSize, cfg.BatchSize)
	sub.PutFloat(trMomentum, cfg.Momentum)
	sub.PutFloat(trL1Decay, cfg.L1Decay)
	sub.PutFloat(trL2Decay, cfg.L2Decay)
	sub.PutFloat(trBeta1, cfg.Beta1)
	sub.PutFloat(trBeta2, cfg.Beta2)
	sub.PutFloat(trEps, cfg.Eps)
	sub.PutFloat(trRo, cfg.Ro)
	sub.PutInt(trIterCount, st.IterCount)
	sub.PutInt(trUpdates, st.Updates)
	for i := range st.Gsum {
		sub.PutFloats(trGsum, st.Gsum[i])
		sub.PutFloats(trXsum, st.Xsum[i])
	}
	r.PutRecord(num, &sub)
}

// GetTrainer decodes what PutTrainer wrote. The State must be loaded after
// the returned configuration's Trainer is bound to its parameters.
func GetTrainer(f *Fields, num protowire.Number) (optim.Config, optim.State) {
	sub := f.Record(num)
	cfg := optim.Config{
		Method:       optim.Method(sub.Int(trMethod)),
		LearningRate: sub.Float(trLearningRate),
		BatchSize:    sub.Int(trBatchSize),
		Momentum:     sub.Float(trMomentum),
		L1Decay:      sub.Float(trL1Decay),
		L2Decay:      sub.Float(trL2Decay),
		Beta1:        sub.Float(trBeta1),
		Beta2:        sub.Float(trBeta2),
		Eps:          sub.Float(trEps),
		Ro:           sub.Float(trRo),
	}
	st := optim.State{
		IterCount: sub.Int(trIterCount),
		Updates:   sub.Int(trUpdates),
		Gsum:      sub.FloatsList(trGsum),
		Xsum:      sub.FloatsList(trXsum),
	}
	if _, ok := optim.ParseMethod(cfg.Method.String()); !ok {
		f.fail(num, "unknown trainer method %d", int(cfg.Method))
	}
	return cfg, st
}
