package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/volnet/internal/parallel"
	"github.com/born-ml/volnet/internal/volume"
)

// Deconv implements a transposed convolution: every input cell scatters a
// kernel-weighted copy of itself into the output.
//
// Output size per spatial axis: (in - 1)*stride - 2*pad + kernel, so a Conv
// with the same kernel, stride and pad maps the Deconv output shape back to
// the Deconv input shape.
type Deconv struct {
	base
	decayMuls

	Width       int // kernel width
	Height      int // kernel height
	FilterCount int
	Stride      int
	Pad         int
	BiasPref    float64
	Parallel    parallel.Config

	filters []*volume.Volume
	biases  *volume.Volume
}

// NewDeconv creates a Deconv layer with filterCount output channels.
func NewDeconv(width, height, filterCount int) (*Deconv, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("Deconv: kernel %dx%d: %w", width, height, ErrInvalidArgument)
	}
	if filterCount <= 0 {
		return nil, fmt.Errorf("Deconv: filter count %d: %w", filterCount, ErrInvalidArgument)
	}
	return &Deconv{
		decayMuls:   defaultDecayMuls(),
		Width:       width,
		Height:      height,
		FilterCount: filterCount,
		Stride:      1,
		Parallel:    parallel.DefaultConfig(),
	}, nil
}

// Kind implements Layer.
func (l *Deconv) Kind() Kind { return KindDeconv }

// Init implements Layer.
func (l *Deconv) Init(inW, inH, inD int, rng *rand.Rand) error {
	if err := validateInput("Deconv", inW, inH, inD); err != nil {
		return err
	}
	if l.Stride <= 0 || l.Pad < 0 {
		return fmt.Errorf("Deconv: stride %d pad %d: %w", l.Stride, l.Pad, ErrInvalidArgument)
	}
	outW := (inW-1)*l.Stride - 2*l.Pad + l.Width
	outH := (inH-1)*l.Stride - 2*l.Pad + l.Height
	if outW <= 0 || outH <= 0 {
		return fmt.Errorf("Deconv: padding %d leaves empty output: %w", l.Pad, ErrInvalidArgument)
	}
	l.setShapes(inW, inH, inD, outW, outH, l.FilterCount)

	l.filters = make([]*volume.Volume, l.FilterCount)
	for i := range l.filters {
		l.filters[i] = volume.NewRand(l.Width, l.Height, inD, rng)
	}
	l.biases = volume.NewFilled(1, 1, l.FilterCount, l.BiasPref)
	l.output = volume.New(outW, outH, l.FilterCount)
	return nil
}

// Filters returns the kernel Volumes.
func (l *Deconv) Filters() []*volume.Volume { return l.filters }

// Biases returns the bias Volume.
func (l *Deconv) Biases() *volume.Volume { return l.biases }

// Forward implements Layer.
func (l *Deconv) Forward(in *volume.Volume, _ bool) *volume.Volume {
	l.checkInput("Deconv.Forward", in)
	l.input = in
	work := l.inWidth * l.inHeight * l.Width * l.Height * l.inDepth

	parallel.For(l.FilterCount, work, func(d int) {
		f := l.filters[d]
		bias := l.biases.GetAt(d)
		for oy := 0; oy < l.outHeight; oy++ {
			for ox := 0; ox < l.outWidth; ox++ {
				l.output.Set(ox, oy, d, bias)
			}
		}
		for ay := 0; ay < l.inHeight; ay++ {
			y := ay*l.Stride - l.Pad
			for ax := 0; ax < l.inWidth; ax++ {
				x := ax*l.Stride - l.Pad
				for fy := 0; fy < l.Height; fy++ {
					oy := y + fy
					if oy < 0 || oy >= l.outHeight {
						continue
					}
					for fx := 0; fx < l.Width; fx++ {
						ox := x + fx
						if ox < 0 || ox >= l.outWidth {
							continue
						}
						a := 0.0
						for fd := 0; fd < l.inDepth; fd++ {
							a += f.Get(fx, fy, fd) * in.Get(ax, ay, fd)
						}
						l.output.Add(ox, oy, d, a)
					}
				}
			}
		}
	}, l.Parallel)
	return l.output
}

// Backward implements Layer.
func (l *Deconv) Backward() {
	l.mustHaveInput("Deconv.Backward")
	in := l.input
	in.ZeroGradients()

	for d := 0; d < l.FilterCount; d++ {
		f := l.filters[d]
		for oy := 0; oy < l.outHeight; oy++ {
			for ox := 0; ox < l.outWidth; ox++ {
				l.biases.AddGradientAt(d, l.output.GetGradient(ox, oy, d))
			}
		}
		for ay := 0; ay < l.inHeight; ay++ {
			y := ay*l.Stride - l.Pad
			for ax := 0; ax < l.inWidth; ax++ {
				x := ax*l.Stride - l.Pad
				for fy := 0; fy < l.Height; fy++ {
					oy := y + fy
					if oy < 0 || oy >= l.outHeight {
						continue
					}
					for fx := 0; fx < l.Width; fx++ {
						ox := x + fx
						if ox < 0 || ox >= l.outWidth {
							continue
						}
						chain := l.output.GetGradient(ox, oy, d)
						for fd := 0; fd < l.inDepth; fd++ {
							f.AddGradient(fx, fy, fd, in.Get(ax, ay, fd)*chain)
							in.AddGradient(ax, ay, fd, f.Get(fx, fy, fd)*chain)
						}
					}
				}
			}
		}
	}
}

// ParametersAndGradients implements Layer: filters first, then biases.
func (l *Deconv) ParametersAndGradients() []ParametersAndGradients {
	out := make([]ParametersAndGradients, 0, len(l.filters)+1)
	for _, f := range l.filters {
		out = append(out, l.filterView(f))
	}
	return append(out, l.biasView(l.biases))
}

// Reset implements Layer.
func (l *Deconv) Reset(rng *rand.Rand) {
	for _, f := range l.filters {
		f.Randomize(rng)
		f.ZeroGradients()
	}
	if l.biases != nil {
		l.biases.SetConst(l.BiasPref)
		l.biases.ZeroGradients()
	}
}
