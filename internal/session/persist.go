package session

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/born-ml/volnet/internal/netspec"
	"github.com/born-ml/volnet/internal/nn"
	"github.com/born-ml/volnet/internal/optim"
	"github.com/born-ml/volnet/internal/serialization"
	"github.com/born-ml/volnet/internal/stats"
	"google.golang.org/protobuf/encoding/protowire"
)

// Session record fields.
const (
	fSpec protowire.Number = iota + 1
	fParams
	fTrainer
	fLoss
	fL1Loss
	fL2Loss
	fTrainAcc
	fTestAcc
	fReward
	fStep
	fIteration
	fDataset
)

// Dataset record fields.
const (
	fDataWidth protowire.Number = iota + 1
	fDataHeight
	fDataDepth
	fDataClasses
	fDataTrain
	fDataTest
)

// Sample record fields.
const (
	fSampleData protowire.Number = iota + 1
	fSampleLabel
	fSampleTarget
)

// Save writes the network, trainer state, statistics and dataset.
func (s *Session) Save(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.net == nil {
		return ErrNotConfigured
	}

	spec, err := json.Marshal(s.def)
	if err != nil {
		return fmt.Errorf("encoding network description: %w", err)
	}

	var rec serialization.Record
	rec.PutBytes(fSpec, spec)
	for _, p := range s.net.ParametersAndGradients() {
		serialization.PutVolume(&rec, fParams, p.Volume)
	}
	serialization.PutTrainer(&rec, fTrainer, s.trainer)
	serialization.PutWindow(&rec, fLoss, s.loss)
	serialization.PutWindow(&rec, fL1Loss, s.l1Loss)
	serialization.PutWindow(&rec, fL2Loss, s.l2Loss)
	serialization.PutWindow(&rec, fTrainAcc, s.trainAcc)
	serialization.PutWindow(&rec, fTestAcc, s.testAcc)
	serialization.PutWindow(&rec, fReward, s.reward)
	rec.PutInt(fStep, s.step)
	rec.PutInt(fIteration, s.iteration)
	if s.data != nil {
		rec.PutRecord(fDataset, encodeDataset(s.data))
	}

	return serialization.WriteContainer(w, serialization.KindSession, rec.Bytes())
}

// Load replaces the Session state with one written by Save and then fires
// the WhenSessionLoaded callback. On error the Session is unchanged.
func (s *Session) Load(r io.Reader) error {
	body, err := serialization.ReadKind(r, serialization.KindSession)
	if err != nil {
		return err
	}
	f, err := serialization.Parse(body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	def, err := netspec.Parse(f.Bytes(fSpec))
	if err != nil {
		return fmt.Errorf("saved network description: %w", err)
	}
	net, err := def.BuildNet(s.rng)
	if err != nil {
		return fmt.Errorf("saved network description: %w", err)
	}
	if err := restoreParams(net, f); err != nil {
		return err
	}

	cfg, state := serialization.GetTrainer(f, fTrainer)
	windows := make(map[protowire.Number]*stats.Window, fReward-fLoss+1)
	for num := fLoss; num <= fReward; num++ {
		windows[num] = serialization.GetWindow(f, num)
	}
	step, iteration := f.Int(fStep), f.Int(fIteration)
	var data *Dataset
	if f.Has(fDataset) {
		data = decodeDataset(f.Record(fDataset))
	}
	if err := f.Err(); err != nil {
		return fmt.Errorf("decoding session: %w", err)
	}
	if data != nil {
		if err := data.Validate(); err != nil {
			return err
		}
	}

	def.Trainer = cfg
	trainer := optim.New(cfg)
	trainer.BindNet(net)
	if err := trainer.LoadState(state); err != nil {
		return err
	}

	s.def, s.net, s.trainer = def, net, trainer
	s.loss, s.l1Loss, s.l2Loss = windows[fLoss], windows[fL1Loss], windows[fL2Loss]
	s.trainAcc, s.testAcc, s.reward = windows[fTrainAcc], windows[fTestAcc], windows[fReward]
	s.step, s.iteration = step, iteration
	if data != nil {
		s.data = data
	}

	s.log.Info("session loaded", "layers", net.Len(), "step", step)
	if s.whenLoaded != nil {
		s.whenLoaded()
	}
	return nil
}

func restoreParams(net *nn.Net, f *serialization.Fields) error {
	saved := serialization.GetVolumes(f, fParams)
	if err := f.Err(); err != nil {
		return fmt.Errorf("decoding parameters: %w", err)
	}
	params := net.ParametersAndGradients()
	if len(saved) != len(params) {
		return fmt.Errorf("%d saved parameter volumes, network has %d: %w",
			len(saved), len(params), serialization.ErrMalformedRecord)
	}
	for i, p := range params {
		if !p.Volume.SameShape(saved[i]) {
			return fmt.Errorf("parameter %d: saved %v, network %v: %w",
				i, saved[i], p.Volume, serialization.ErrMalformedRecord)
		}
		p.Volume.SetWeights(saved[i].Weights())
		copy(p.Volume.Gradients(), saved[i].Gradients())
	}
	return nil
}

func encodeDataset(d *Dataset) *serialization.Record {
	var rec serialization.Record
	rec.PutInt(fDataWidth, d.Width)
	rec.PutInt(fDataHeight, d.Height)
	rec.PutInt(fDataDepth, d.Depth)
	rec.PutInt(fDataClasses, d.ClassCount)
	for _, set := range []struct {
		num     protowire.Number
		samples []Sample
	}{{fDataTrain, d.Train}, {fDataTest, d.Test}} {
		for _, sm := range set.samples {
			var sr serialization.Record
			sr.PutFloats(fSampleData, sm.Data)
			sr.PutInt(fSampleLabel, sm.Label)
			if sm.Target != nil {
				sr.PutFloats(fSampleTarget, sm.Target)
			}
			rec.PutRecord(set.num, &sr)
		}
	}
	return &rec
}

func decodeDataset(f *serialization.Fields) *Dataset {
	d := &Dataset{
		Width:      f.Int(fDataWidth),
		Height:     f.Int(fDataHeight),
		Depth:      f.Int(fDataDepth),
		ClassCount: f.Int(fDataClasses),
	}
	decode := func(num protowire.Number) []Sample {
		var out []Sample
		for _, sf := range f.Records(num) {
			sm := Sample{Data: sf.Floats(fSampleData), Label: sf.Int(fSampleLabel)}
			if sf.Has(fSampleTarget) {
				sm.Target = sf.Floats(fSampleTarget)
			}
			out = append(out, sm)
		}
		return out
	}
	d.Train = decode(fDataTrain)
	d.Test = decode(fDataTest)
	return d
}
