package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/born-ml/volnet/session"
)

// datasetFile is the JSON layout read by the train command.
type datasetFile struct {
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Depth      int          `json:"depth"`
	ClassCount int          `json:"class_count"`
	Train      []sampleFile `json:"train"`
	Test       []sampleFile `json:"test"`
}

type sampleFile struct {
	Data   []float64 `json:"data"`
	Label  int       `json:"label"`
	Target []float64 `json:"target,omitempty"`
}

func (f *datasetFile) dataset() *session.Dataset {
	conv := func(in []sampleFile) []session.Sample {
		out := make([]session.Sample, len(in))
		for i, s := range in {
			out[i] = session.Sample{Data: s.Data, Label: s.Label, Target: s.Target}
		}
		return out
	}
	return &session.Dataset{
		Width:      f.Width,
		Height:     f.Height,
		Depth:      f.Depth,
		ClassCount: f.ClassCount,
		Train:      conv(f.Train),
		Test:       conv(f.Test),
	}
}

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	netPath := fs.String("net", "", "JSON network description")
	dataPath := fs.String("data", "", "JSON dataset")
	iterations := fs.Int("iterations", 100, "Passes over the training set")
	seed := fs.Int64("seed", 1, "Random seed")
	in := fs.String("resume", "", "Session file to resume from")
	out := fs.String("out", "", "Write the trained session here")
	crop := fs.Int("crop", 0, "Train on random crops of this size (0 = off)")
	flip := fs.Bool("flip", false, "Mirror crops at random")
	verbose := fs.Bool("v", false, "Log training lifecycle events")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []session.Option{session.WithLogger(logger), session.WithSeed(*seed)}
	if *crop > 0 {
		opts = append(opts, session.WithAugmentation(*crop, *flip))
	}
	s := session.New(opts...)

	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			return err
		}
		err = s.Load(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("loading %s: %w", *in, err)
		}
	} else {
		if *netPath == "" || *dataPath == "" {
			return fmt.Errorf("train needs -net and -data, or -resume")
		}
		spec, err := os.ReadFile(*netPath)
		if err != nil {
			return err
		}
		if !s.MakeLayers(string(spec)) {
			return fmt.Errorf("%s: invalid network description", *netPath)
		}
	}
	if *dataPath != "" {
		raw, err := os.ReadFile(*dataPath)
		if err != nil {
			return err
		}
		var df datasetFile
		if err := json.Unmarshal(raw, &df); err != nil {
			return fmt.Errorf("parsing %s: %w", *dataPath, err)
		}
		if err := s.SetDataset(df.dataset()); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for range *iterations {
		if err := s.TrainIteration(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
		fmt.Printf("iteration %4d  step %7d  loss %.4f  train acc %.3f  test acc %.3f\n",
			s.Iteration(), s.Step(), s.LossAverage(), s.TrainingAccuracy(), s.TestAccuracy())
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
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("session written to %s\n", *out)
	}
	return nil
}
