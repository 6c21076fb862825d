package rl

import (
	"fmt"
	"io"

	"github.com/born-ml/volnet/internal/optim"
	"github.com/born-ml/volnet/internal/serialization"
	"google.golang.org/protobuf/encoding/protowire"
)

// Experience record fields.
const (
	exState0 protowire.Number = iota + 1
	exAction0
	exReward0
	exState1
	exAction1
)

func putExperiences(r *serialization.Record, num protowire.Number, m *ReplayMemory) {
	for i := range m.Len() {
		e := m.At(i)
		var sub serialization.Record
		sub.PutFloats(exState0, e.State0)
		sub.PutInt(exAction0, e.Action0)
		sub.PutFloat(exReward0, e.Reward0)
		sub.PutFloats(exState1, e.State1)
		sub.PutInt(exAction1, e.Action1)
		r.PutRecord(num, &sub)
	}
}

// getExperiences decodes stored transitions, checking state sizes and
// action ranges.
func getExperiences(f *serialization.Fields, num protowire.Number, stateLen, numActions int) ([]Experience, error) {
	var out []Experience
	for _, sub := range f.Records(num) {
		e := Experience{
			State0:  sub.Floats(exState0),
			Action0: sub.Int(exAction0),
			Reward0: sub.Float(exReward0),
			State1:  sub.Floats(exState1),
			Action1: sub.Int(exAction1),
		}
		if len(e.State0) != stateLen || len(e.State1) != stateLen ||
			e.Action0 < 0 || e.Action0 >= numActions || e.Action1 < 0 || e.Action1 >= numActions {
			return nil, fmt.Errorf("experience %d does not fit %d inputs, %d actions: %w", len(out), stateLen, numActions, ErrStateMismatch)
		}
		out = append(out, e)
	}
	return out, nil
}

// DQNAgent record fields.
const (
	agStates protowire.Number = iota + 1
	agActions
	agGamma
	agEpsilon
	agAlpha
	agAddEvery
	agSize
	agSteps
	agThreshold
	agClamp
	agHidden
	agWeights
	agExperience
	agT
	agTDError
)

// Save writes the configuration, network weights, replay memory and
// counters. The transition in progress is not saved.
func (a *DQNAgent) Save(w io.Writer) error {
	var rec serialization.Record
	rec.PutInt(agStates, a.numStates)
	rec.PutInt(agActions, a.numActions)
	rec.PutFloat(agGamma, a.cfg.Gamma)
	rec.PutFloat(agEpsilon, a.cfg.Epsilon)
	rec.PutFloat(agAlpha, a.cfg.Alpha)
	rec.PutInt(agAddEvery, a.cfg.ExperienceAddEvery)
	rec.PutInt(agSize, a.cfg.ExperienceSize)
	rec.PutInt(agSteps, a.cfg.LearningStepsPerIteration)
	rec.PutInt(agThreshold, a.cfg.StartLearnThreshold)
	rec.PutFloat(agClamp, a.cfg.TDErrorClamp)
	rec.PutInt(agHidden, a.cfg.HiddenUnits)
	serialization.PutVolumes(&rec, agWeights, a.net.Volumes())
	putExperiences(&rec, agExperience, a.memory)
	rec.PutInt(agT, a.t)
	rec.PutFloat(agTDError, a.tdError)
	return serialization.WriteContainer(w, serialization.KindAgent, rec.Bytes())
}

// Load replaces the agent with one written by Save, keeping its random
// source. On error the agent is unchanged.
func (a *DQNAgent) Load(r io.Reader) error {
	body, err := serialization.ReadKind(r, serialization.KindAgent)
	if err != nil {
		return err
	}
	f, err := serialization.Parse(body)
	if err != nil {
		return err
	}

	numStates, numActions := f.Int(agStates), f.Int(agActions)
	cfg := a.cfg
	cfg.Gamma = f.Float(agGamma)
	cfg.Epsilon = f.Float(agEpsilon)
	cfg.Alpha = f.Float(agAlpha)
	cfg.ExperienceAddEvery = f.Int(agAddEvery)
	cfg.ExperienceSize = f.Int(agSize)
	cfg.LearningStepsPerIteration = f.Int(agSteps)
	cfg.StartLearnThreshold = f.Int(agThreshold)
	cfg.TDErrorClamp = f.Float(agClamp)
	cfg.HiddenUnits = f.Int(agHidden)
	saved := serialization.GetVolumes(f, agWeights)
	t, td := f.Int(agT), f.Float(agTDError)
	if err := f.Err(); err != nil {
		return fmt.Errorf("decoding agent: %w", err)
	}
	if numStates <= 0 || numActions <= 0 || cfg.HiddenUnits <= 0 || cfg.ExperienceSize <= 0 || cfg.ExperienceAddEvery <= 0 {
		return fmt.Errorf("%d states, %d actions, %d hidden: %w", numStates, numActions, cfg.HiddenUnits, ErrInvalidConfig)
	}
	experiences, err := getExperiences(f, agExperience, numStates, numActions)
	if err != nil {
		return err
	}
	if err := f.Err(); err != nil {
		return fmt.Errorf("decoding agent: %w", err)
	}

	net := NewQNetwork(numStates, []int{cfg.HiddenUnits}, numActions, Tanh, 0, a.rng)
	if err := net.restore(saved); err != nil {
		return err
	}
	memory := NewReplayMemory(cfg.ExperienceSize, a.rng)
	memory.restore(experiences)

	*a = DQNAgent{
		cfg:        cfg,
		numStates:  numStates,
		numActions: numActions,
		rng:        a.rng,
		net:        net,
		memory:     memory,
		t:          t,
		tdError:    td,
	}
	return nil
}

// Brain record fields.
const (
	brStates protowire.Number = iota + 1
	brActions
	brTemporalWindow
	brExperienceSize
	brStartLearn
	brGamma
	brStepsTotal
	brBurnin
	brEpsilonMin
	brEpsilonTest
	brHidden
	brClamp
	brRandomDist
	brWeights
	brTrainer
	brExperience
	brStateWindow
	brActionWindow
	brRewardWindow
	brNetWindow
	brRewards
	brLosses
	brForwardPasses
	brAge
	brEpsilon
	brLatestReward
	brLearning
)

// Save writes the configuration, network, trainer state, replay memory,
// temporal windows and statistics.
func (b *Brain) Save(w io.Writer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var rec serialization.Record
	rec.PutInt(brStates, b.numStates)
	rec.PutInt(brActions, b.numActions)
	rec.PutInt(brTemporalWindow, b.cfg.TemporalWindow)
	rec.PutInt(brExperienceSize, b.cfg.ExperienceSize)
	rec.PutInt(brStartLearn, b.cfg.StartLearnThreshold)
	rec.PutFloat(brGamma, b.cfg.Gamma)
	rec.PutInt(brStepsTotal, b.cfg.LearningStepsTotal)
	rec.PutInt(brBurnin, b.cfg.LearningStepsBurnin)
	rec.PutFloat(brEpsilonMin, b.cfg.EpsilonMin)
	rec.PutFloat(brEpsilonTest, b.cfg.EpsilonTestTime)
	rec.PutInts(brHidden, b.cfg.Hidden)
	rec.PutFloat(brClamp, b.cfg.TDErrorClamp)
	if b.cfg.RandomActionDistribution != nil {
		rec.PutFloats(brRandomDist, b.cfg.RandomActionDistribution)
	}
	serialization.PutVolumes(&rec, brWeights, b.net.Volumes())
	serialization.PutTrainer(&rec, brTrainer, b.trainer)
	putExperiences(&rec, brExperience, b.memory)
	for i := range b.windowSize {
		rec.PutFloats(brStateWindow, b.stateWindow[i])
		rec.PutFloats(brNetWindow, b.netWindow[i])
	}
	rec.PutInts(brActionWindow, b.actionWindow)
	rec.PutFloats(brRewardWindow, b.rewardWindow)
	serialization.PutWindow(&rec, brRewards, b.rewards)
	serialization.PutWindow(&rec, brLosses, b.losses)
	rec.PutInt(brForwardPasses, b.forwardPasses)
	rec.PutInt(brAge, b.age)
	rec.PutFloat(brEpsilon, b.epsilon)
	rec.PutFloat(brLatestReward, b.latestReward)
	rec.PutBool(brLearning, b.learning)

	return serialization.WriteContainer(w, serialization.KindBrain, rec.Bytes())
}

// Load replaces the Brain with one written by Save. The Seed and Logger of
// the Brain are kept. On error the Brain is unchanged.
func (b *Brain) Load(r io.Reader) error {
	body, err := serialization.ReadKind(r, serialization.KindBrain)
	if err != nil {
		return err
	}
	f, err := serialization.Parse(body)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	numStates, numActions := f.Int(brStates), f.Int(brActions)
	cfg := b.cfg
	cfg.TemporalWindow = f.Int(brTemporalWindow)
	cfg.ExperienceSize = f.Int(brExperienceSize)
	cfg.StartLearnThreshold = f.Int(brStartLearn)
	cfg.Gamma = f.Float(brGamma)
	cfg.LearningStepsTotal = f.Int(brStepsTotal)
	cfg.LearningStepsBurnin = f.Int(brBurnin)
	cfg.EpsilonMin = f.Float(brEpsilonMin)
	cfg.EpsilonTestTime = f.Float(brEpsilonTest)
	cfg.Hidden = f.Ints(brHidden)
	cfg.TDErrorClamp = f.Float(brClamp)
	cfg.RandomActionDistribution = nil
	if f.Has(brRandomDist) {
		cfg.RandomActionDistribution = f.Floats(brRandomDist)
	}
	saved := serialization.GetVolumes(f, brWeights)
	trCfg, trState := serialization.GetTrainer(f, brTrainer)
	stateWindow := f.FloatsList(brStateWindow)
	netWindow := f.FloatsList(brNetWindow)
	actionWindow := f.Ints(brActionWindow)
	rewardWindow := f.Floats(brRewardWindow)
	rewards := serialization.GetWindow(f, brRewards)
	losses := serialization.GetWindow(f, brLosses)
	forwardPasses, age := f.Int(brForwardPasses), f.Int(brAge)
	epsilon, latest := f.Float(brEpsilon), f.Float(brLatestReward)
	learning := f.Bool(brLearning)
	if err := f.Err(); err != nil {
		return fmt.Errorf("decoding brain: %w", err)
	}
	cfg.Trainer = trCfg

	if numStates <= 0 || numActions <= 0 || cfg.ExperienceSize <= 0 || len(cfg.Hidden) == 0 {
		return fmt.Errorf("%d states, %d actions, %d hidden layers: %w", numStates, numActions, len(cfg.Hidden), ErrInvalidConfig)
	}
	if err := cfg.validate(numActions); err != nil {
		return err
	}
	netInputs := numStates*cfg.TemporalWindow + numActions*cfg.TemporalWindow + numStates
	windowSize := max(cfg.TemporalWindow, 2)
	if len(stateWindow) != windowSize || len(netWindow) != windowSize ||
		len(actionWindow) != windowSize || len(rewardWindow) != windowSize {
		return fmt.Errorf("temporal windows do not have %d entries: %w", windowSize, ErrStateMismatch)
	}
	for i := range windowSize {
		if len(stateWindow[i]) != numStates || (len(netWindow[i]) != 0 && len(netWindow[i]) != netInputs) ||
			actionWindow[i] < 0 || actionWindow[i] >= numActions {
			return fmt.Errorf("temporal window entry %d: %w", i, ErrStateMismatch)
		}
		if len(netWindow[i]) == 0 {
			netWindow[i] = nil
		}
	}
	experiences, err := getExperiences(f, brExperience, netInputs, numActions)
	if err != nil {
		return err
	}
	if err := f.Err(); err != nil {
		return fmt.Errorf("decoding brain: %w", err)
	}

	rng := b.rng
	net := NewQNetwork(netInputs, cfg.Hidden, numActions, Relu, 0, rng)
	if err := net.restore(saved); err != nil {
		return err
	}
	trainer := optim.New(cfg.Trainer)
	trainer.Bind(net)
	if err := trainer.LoadState(trState); err != nil {
		return err
	}
	memory := NewReplayMemory(cfg.ExperienceSize, rng)
	memory.restore(experiences)

	b.cfg = cfg
	b.numStates, b.numActions = numStates, numActions
	b.netInputs, b.windowSize = netInputs, windowSize
	b.net, b.trainer, b.memory = net, trainer, memory
	b.stateWindow, b.netWindow = stateWindow, netWindow
	b.actionWindow, b.rewardWindow = actionWindow, rewardWindow
	b.rewards, b.losses = rewards, losses
	b.forwardPasses, b.age = forwardPasses, age
	b.epsilon, b.latestReward = epsilon, latest
	b.learning = learning
	b.log.Info("brain loaded", "age", age, "experiences", memory.Len())
	return nil
}
