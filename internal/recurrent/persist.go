package recurrent

import (
	"fmt"
	"io"

	"github.com/born-ml/volnet/internal/serialization"
	"google.golang.org/protobuf/encoding/protowire"
)

// Session record fields.
const (
	fModel protowire.Number = iota + 1
	fLetterSize
	fHiddenSizes
	fLearningRate
	fRegc
	fClip
	fDecayRate
	fEps
	fLetters
	fSentences
	fParams
	fCache
	fPerplexity
	fTick
)

// Save writes the configuration, vocabulary, training text, weights,
// solver cache and statistics.
func (s *Session) Save(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return ErrNoData
	}

	var rec serialization.Record
	rec.PutInt(fModel, int(s.cfg.Model))
	rec.PutInt(fLetterSize, s.cfg.LetterSize)
	rec.PutInts(fHiddenSizes, s.cfg.HiddenSizes)
	rec.PutFloat(fLearningRate, s.cfg.LearningRate)
	rec.PutFloat(fRegc, s.cfg.Regc)
	rec.PutFloat(fClip, s.cfg.Clip)
	rec.PutFloat(fDecayRate, s.cfg.DecayRate)
	rec.PutFloat(fEps, s.cfg.Eps)
	rec.PutString(fLetters, s.vocab.Letters())
	for _, sent := range s.sentences {
		rec.PutString(fSentences, sent)
	}
	serialization.PutVolumes(&rec, fParams, s.model.volumes())
	for _, c := range s.solver.Cache() {
		rec.PutFloats(fCache, c)
	}
	serialization.PutWindow(&rec, fPerplexity, s.perplexity)
	rec.PutInt(fTick, s.tick)

	return serialization.WriteContainer(w, serialization.KindRecurrent, rec.Bytes())
}

// Load replaces the model with one written by Save. The Seed and Logger of
// the Session are kept. On error the Session is unchanged.
func (s *Session) Load(r io.Reader) error {
	body, err := serialization.ReadKind(r, serialization.KindRecurrent)
	if err != nil {
		return err
	}
	f, err := serialization.Parse(body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg
	cfg.Model = Model(f.Int(fModel))
	cfg.LetterSize = f.Int(fLetterSize)
	cfg.HiddenSizes = f.Ints(fHiddenSizes)
	cfg.LearningRate = f.Float(fLearningRate)
	cfg.Regc = f.Float(fRegc)
	cfg.Clip = f.Float(fClip)
	cfg.DecayRate = f.Float(fDecayRate)
	cfg.Eps = f.Float(fEps)
	letters := f.String(fLetters)
	var sentences []string
	if f.Has(fSentences) {
		sentences = f.Strings(fSentences)
	}
	saved := serialization.GetVolumes(f, fParams)
	cache := f.FloatsList(fCache)
	window := serialization.GetWindow(f, fPerplexity)
	tick := f.Int(fTick)
	if err := f.Err(); err != nil {
		return fmt.Errorf("decoding recurrent session: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	if cfg.LetterSize <= 0 || len(cfg.HiddenSizes) == 0 {
		return fmt.Errorf("letter size %d, %d layers: %w", cfg.LetterSize, len(cfg.HiddenSizes), ErrInvalidConfig)
	}

	vocab := vocabFromLetters(letters)
	if vocab.Len() != len([]rune(letters))+1 {
		return fmt.Errorf("vocabulary has repeated letters: %w", ErrStateMismatch)
	}
	m := newModel(cfg.Model, vocab.Len(), cfg.LetterSize, cfg.HiddenSizes, s.rng)
	params := m.volumes()
	if len(saved) != len(params) {
		return fmt.Errorf("%d saved weights, model has %d: %w", len(saved), len(params), ErrStateMismatch)
	}
	for i, p := range params {
		if !p.SameShape(saved[i]) {
			return fmt.Errorf("%s: saved %v, model %v: %w", m.params[i].name, saved[i], p, ErrStateMismatch)
		}
		p.SetWeights(saved[i].Weights())
	}
	solver := NewSolver(cfg.DecayRate, cfg.Eps)
	if err := solver.SetCache(params, cache); err != nil {
		return err
	}

	s.cfg = cfg
	s.install(vocab, sentences)
	s.model = m
	s.solver = solver
	s.perplexity = window
	s.tick = tick
	s.log.Info("recurrent session loaded", "model", cfg.Model.String(), "tick", tick)
	return nil
}
