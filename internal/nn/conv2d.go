package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/volnet/internal/parallel"
	"github.com/born-ml/volnet/internal/volume"
)

// Conv implements a 2-D convolution with zero padding.
//
// Output size per spatial axis: floor((in + 2*pad - kernel)/stride) + 1.
// If the strided kernel does not fit exactly the trailing partial window is
// dropped.
type Conv struct {
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

// NewConv creates a Conv layer with filterCount kernels of width x height.
// Stride defaults to 1 and padding to 0.
func NewConv(width, height, filterCount int) (*Conv, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("Conv: kernel %dx%d: %w", width, height, ErrInvalidArgument)
	}
	if filterCount <= 0 {
		return nil, fmt.Errorf("Conv: filter count %d: %w", filterCount, ErrInvalidArgument)
	}
	return &Conv{
		decayMuls:   defaultDecayMuls(),
		Width:       width,
		Height:      height,
		FilterCount: filterCount,
		Stride:      1,
		Parallel:    parallel.DefaultConfig(),
	}, nil
}

// Kind implements Layer.
func (l *Conv) Kind() Kind { return KindConv }

// Init implements Layer.
func (l *Conv) Init(inW, inH, inD int, rng *rand.Rand) error {
	if err := validateInput("Conv", inW, inH, inD); err != nil {
		return err
	}
	if l.Stride <= 0 || l.Pad < 0 {
		return fmt.Errorf("Conv: stride %d pad %d: %w", l.Stride, l.Pad, ErrInvalidArgument)
	}
	if inW+2*l.Pad < l.Width || inH+2*l.Pad < l.Height {
		return fmt.Errorf("Conv: kernel %dx%d larger than padded input %dx%d: %w",
			l.Width, l.Height, inW+2*l.Pad, inH+2*l.Pad, ErrInvalidArgument)
	}
	outW := (inW+2*l.Pad-l.Width)/l.Stride + 1
	outH := (inH+2*l.Pad-l.Height)/l.Stride + 1
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
func (l *Conv) Filters() []*volume.Volume { return l.filters }

// Biases returns the bias Volume.
func (l *Conv) Biases() *volume.Volume { return l.biases }

// Forward implements Layer.
func (l *Conv) Forward(in *volume.Volume, _ bool) *volume.Volume {
	l.checkInput("Conv.Forward", in)
	l.input = in
	work := l.outWidth * l.outHeight * l.Width * l.Height * l.inDepth

	parallel.For(l.FilterCount, work, func(d int) {
		f := l.filters[d]
		bias := l.biases.GetAt(d)
		y := -l.Pad
		for ay := 0; ay < l.outHeight; ay++ {
			x := -l.Pad
			for ax := 0; ax < l.outWidth; ax++ {
				a := 0.0
				for fy := 0; fy < l.Height; fy++ {
					oy := y + fy
					if oy < 0 || oy >= l.inHeight {
						continue
					}
					for fx := 0; fx < l.Width; fx++ {
						ox := x + fx
						if ox < 0 || ox >= l.inWidth {
							continue
						}
						for fd := 0; fd < l.inDepth; fd++ {
							a += f.Get(fx, fy, fd) * in.Get(ox, oy, fd)
						}
					}
				}
				l.output.Set(ax, ay, d, a+bias)
				x += l.Stride
			}
			y += l.Stride
		}
	}, l.Parallel)
	return l.output
}

// Backward implements Layer.
func (l *Conv) Backward() {
	l.mustHaveInput("Conv.Backward")
	in := l.input
	in.ZeroGradients()

	for d := 0; d < l.FilterCount; d++ {
		f := l.filters[d]
		y := -l.Pad
		for ay := 0; ay < l.outHeight; ay++ {
			x := -l.Pad
			for ax := 0; ax < l.outWidth; ax++ {
				chain := l.output.GetGradient(ax, ay, d)
				for fy := 0; fy < l.Height; fy++ {
					oy := y + fy
					if oy < 0 || oy >= l.inHeight {
						continue
					}
					for fx := 0; fx < l.Width; fx++ {
						ox := x + fx
						if ox < 0 || ox >= l.inWidth {
							continue
						}
						for fd := 0; fd < l.inDepth; fd++ {
							f.AddGradient(fx, fy, fd, in.Get(ox, oy, fd)*chain)
							in.AddGradient(ox, oy, fd, f.Get(fx, fy, fd)*chain)
						}
					}
				}
				l.biases.AddGradientAt(d, chain)
				x += l.Stride
			}
			y += l.Stride
		}
	}
}

// ParametersAndGradients implements Layer: filters first, then biases.
func (l *Conv) ParametersAndGradients() []ParametersAndGradients {
	out := make([]ParametersAndGradients, 0, len(l.filters)+1)
	for _, f := range l.filters {
		out = append(out, l.filterView(f))
	}
	return append(out, l.biasView(l.biases))
}

// Reset implements Layer.
func (l *Conv) Reset(rng *rand.Rand) {
	for _, f := range l.filters {
		f.Randomize(rng)
		f.ZeroGradients()
	}
	if l.biases != nil {
		l.biases.SetConst(l.BiasPref)
		l.biases.ZeroGradients()
	}
}
