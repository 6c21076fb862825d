package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/born-ml/volnet/recurrent"
)

func runChar(args []string) error {
	fs := flag.NewFlagSet("char", flag.ExitOnError)
	textPath := fs.String("text", "", "Training text, one sentence per line")
	modelName := fs.String("model", "lstm", "Cell type: lstm or rnn")
	hidden := fs.Int("hidden", 20, "Hidden units per layer")
	layers := fs.Int("layers", 2, "Number of hidden layers")
	lr := fs.Float64("lr", 0.01, "Learning rate")
	ticks := fs.Int("ticks", 2000, "Training ticks")
	every := fs.Int("every", 200, "Report and sample every n ticks")
	temperature := fs.Float64("temperature", 1, "Sampling temperature")
	seed := fs.Int64("seed", 1, "Random seed")
	out := fs.String("out", "", "Write the trained model here")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *textPath == "" {
		return fmt.Errorf("char needs -text")
	}
	model, ok := recurrent.ParseModel(*modelName)
	if !ok {
		return fmt.Errorf("unknown model %q", *modelName)
	}

	raw, err := os.ReadFile(*textPath)
	if err != nil {
		return err
	}
	sizes := make([]int, *layers)
	for i := range sizes {
		sizes[i] = *hidden
	}
	s, err := recurrent.NewSession(recurrent.Config{
		Model:        model,
		HiddenSizes:  sizes,
		LearningRate: *lr,
		Seed:         *seed,
		Logger:       slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})
	if err != nil {
		return err
	}
	if err := s.SetSentences(strings.Split(string(raw), "\n")); err != nil {
		return err
	}

	for range *ticks {
		st, err := s.Train()
		if err != nil {
			return err
		}
		if *every > 0 && st.Tick%*every == 0 {
			fmt.Printf("tick %6d  perplexity %.3f  clipped %.3f\n", st.Tick, s.Perplexity(), st.RatioClipped)
			fmt.Printf("  argmax: %s\n", s.Predict(false, 1, 80))
			fmt.Printf("  sample: %s\n", s.Predict(true, *temperature, 80))
		}
	}

	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		if err := s.Save(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return nil
}
