package recurrent

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/born-ml/volnet/internal/autodiff"
	"github.com/born-ml/volnet/internal/stats"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrNoData is returned when training before any sentence is set.
	ErrNoData = errors.New("no training sentences")

	// ErrInvalidConfig is returned for a model configuration that cannot be
	// built.
	ErrInvalidConfig = errors.New("invalid recurrent config")

	// ErrStateMismatch is returned when saved state does not fit the model.
	ErrStateMismatch = errors.New("recurrent state does not match model")
)

// TickStats reports one training tick.
type TickStats struct {
	Tick         int
	Cost         float64 // summed negative log-likelihood in nats
	Perplexity   float64
	RatioClipped float64
	Duration     time.Duration
}

// Session trains one character model. Its methods are safe for concurrent
// use.
type Session struct {
	mu  sync.Mutex
	cfg Config
	log *slog.Logger
	rng *rand.Rand

	vocab     *Vocab
	sentences []string
	encoded   [][]int
	model     *model
	solver    *Solver

	perplexity *stats.Window
	tick       int
}

// NewSession creates a Session; SetSentences must be called before Train.
func NewSession(cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Session{
		cfg:        cfg,
		log:        cfg.Logger,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		perplexity: stats.NewWindow(cfg.WindowSize, 1),
	}, nil
}

// Config returns the effective configuration.
func (s *Session) Config() Config { return s.cfg }

// SetSentences replaces the training text, rebuilds the vocabulary and
// reinitializes the model and solver. Empty sentences are dropped.
func (s *Session) SetSentences(sentences []string) error {
	var kept []string
	for _, sent := range sentences {
		if sent != "" {
			kept = append(kept, sent)
		}
	}
	if len(kept) == 0 {
		return ErrNoData
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.install(NewVocab(kept), kept)
	s.model = newModel(s.cfg.Model, s.vocab.Len(), s.cfg.LetterSize, s.cfg.HiddenSizes, s.rng)
	s.solver = NewSolver(s.cfg.DecayRate, s.cfg.Eps)
	s.perplexity.Reset()
	s.tick = 0
	s.log.Info("recurrent model initialized",
		"model", s.cfg.Model.String(), "vocab", s.vocab.Len(), "sentences", len(kept))
	return nil
}

func (s *Session) install(v *Vocab, sentences []string) {
	s.vocab = v
	s.sentences = sentences
	s.encoded = make([][]int, len(sentences))
	for i, sent := range sentences {
		s.encoded[i] = v.Encode(sent)
	}
}

// Vocab returns the current vocabulary, or nil.
func (s *Session) Vocab() *Vocab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vocab
}

// Tick returns the number of completed training ticks.
func (s *Session) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Perplexity returns the windowed mean per-character perplexity, or -1
// before the first tick.
func (s *Session) Perplexity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perplexity.Average()
}

// Train runs one tick: a random sentence is unrolled and backpropagated,
// then the solver updates every weight.
func (s *Session) Train() (TickStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil || len(s.encoded) == 0 {
		return TickStats{}, ErrNoData
	}

	start := time.Now()
	sent := s.encoded[s.rng.Intn(len(s.encoded))]
	cost, ppl := s.cost(sent)
	st := s.solver.Step(s.model.volumes(), s.cfg.LearningRate, s.cfg.Regc, s.cfg.Clip)

	s.perplexity.Add(ppl)
	s.tick++
	return TickStats{
		Tick:         s.tick,
		Cost:         cost,
		Perplexity:   ppl,
		RatioClipped: st.RatioClipped,
		Duration:     time.Since(start),
	}, nil
}

// cost unrolls the model over sent framed by start/end tokens, seeds the
// softmax cross-entropy gradient at every step and backpropagates into the
// weights. It returns the total cost and the per-character perplexity.
func (s *Session) cost(sent []int) (cost, perplexity float64) {
	tree := autodiff.NewGraphTree(true)
	prev := s.model.zeroState()
	n := len(sent)
	var log2ppl float64
	for i := -1; i < n; i++ {
		src, tgt := 0, 0
		if i >= 0 {
			src = sent[i]
		}
		if i < n-1 {
			tgt = sent[i+1]
		}

		g := tree.Add()
		out, next := s.model.step(g, src, prev)
		g.Forward()

		logits := g.Value(out)
		probs := softmax(logits.Weights(), 1)
		p := probs[tgt]
		log2ppl -= math.Log2(p)
		cost -= math.Log(p)

		grads := logits.Gradients()
		copy(grads, probs)
		grads[tgt]--
		prev = next
	}
	tree.Backward()
	return cost, math.Pow(2, log2ppl/float64(n+1))
}

// Predict generates text from the start token until the model emits the end
// token or maxLen characters are produced. With sample set, each character
// is drawn from the softmax at the given temperature; otherwise the most
// likely character is taken.
func (s *Session) Predict(sample bool, temperature float64, maxLen int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return ""
	}
	if temperature <= 0 {
		temperature = 1
	}

	var out []rune
	prev := s.model.zeroState()
	ix := 0
	for len(out) < maxLen {
		g := autodiff.NewGraph(false)
		id, next := s.model.step(g, ix, prev)
		g.Forward()
		prev = next

		logits := g.Value(id).Weights()
		if sample {
			ix = sampleIndex(softmax(logits, temperature), s.rng)
		} else {
			ix = floats.MaxIdx(logits)
		}
		if ix == 0 {
			break
		}
		out = append(out, s.vocab.Letter(ix))
	}
	return string(out)
}

// softmax returns exp(x/temperature) normalized, computed from the maximum
// for stability.
func softmax(x []float64, temperature float64) []float64 {
	maxv := floats.Max(x)
	out := make([]float64, len(x))
	var sum float64
	for i, v := range x {
		out[i] = math.Exp((v - maxv) / temperature)
		sum += out[i]
	}
	floats.Scale(1/sum, out)
	return out
}

// sampleIndex draws an index with the given probabilities.
func sampleIndex(p []float64, rng *rand.Rand) int {
	r := rng.Float64()
	var acc float64
	for i, v := range p {
		acc += v
		if acc > r {
			return i
		}
	}
	return len(p) - 1
}

func (s *Session) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("recurrent.Session{%s %v tick=%d}", s.cfg.Model, s.cfg.HiddenSizes, s.tick)
}
