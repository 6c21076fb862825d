package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/volnet/internal/volume"
)

// Unpool is the geometric inverse of Pool: it upsamples each channel so that
// a Pool with the same window, stride and pad maps the output shape back to
// the input shape.
//
// Output size per spatial axis: (in - 1)*stride + window - 2*pad. Every
// output cell takes the largest input cell whose window covers it and
// records that input as its switch; cells no window covers are 0. Backward
// routes each output gradient to its switch.
type Unpool struct {
	base

	Width  int // window width
	Height int // window height
	Stride int
	Pad    int

	switchX []int
	switchY []int
}

// NewUnpool creates an Unpool layer. Stride defaults to 2 and padding to 0.
func NewUnpool(width, height int) (*Unpool, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("Unpool: window %dx%d: %w", width, height, ErrInvalidArgument)
	}
	return &Unpool{Width: width, Height: height, Stride: 2}, nil
}

// Kind implements Layer.
func (l *Unpool) Kind() Kind { return KindUnpool }

// Init implements Layer.
func (l *Unpool) Init(inW, inH, inD int, _ *rand.Rand) error {
	if err := validateInput("Unpool", inW, inH, inD); err != nil {
		return err
	}
	if l.Stride <= 0 || l.Pad < 0 {
		return fmt.Errorf("Unpool: stride %d pad %d: %w", l.Stride, l.Pad, ErrInvalidArgument)
	}
	outW := (inW-1)*l.Stride + l.Width - 2*l.Pad
	outH := (inH-1)*l.Stride + l.Height - 2*l.Pad
	if outW <= 0 || outH <= 0 {
		return fmt.Errorf("Unpool: padding %d leaves empty output: %w", l.Pad, ErrInvalidArgument)
	}
	l.setShapes(inW, inH, inD, outW, outH, inD)

	n := outW * outH * inD
	l.switchX = make([]int, n)
	l.switchY = make([]int, n)
	l.output = volume.New(outW, outH, inD)
	return nil
}

func (l *Unpool) cell(x, y, d int) int {
	return ((l.outWidth*y)+x)*l.outDepth + d
}

// Forward implements Layer.
func (l *Unpool) Forward(in *volume.Volume, _ bool) *volume.Volume {
	l.checkInput("Unpool.Forward", in)
	l.input = in

	out := l.output.Weights()
	for i := range out {
		out[i] = math.Inf(-1)
		l.switchX[i] = -1
		l.switchY[i] = -1
	}

	for d := 0; d < l.inDepth; d++ {
		for ay := 0; ay < l.inHeight; ay++ {
			y := ay*l.Stride - l.Pad
			for ax := 0; ax < l.inWidth; ax++ {
				x := ax*l.Stride - l.Pad
				v := in.Get(ax, ay, d)
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
						c := l.cell(ox, oy, d)
						if v > out[c] {
							out[c] = v
							l.switchX[c] = ax
							l.switchY[c] = ay
						}
					}
				}
			}
		}
	}

	for i := range out {
		if l.switchX[i] < 0 {
			out[i] = 0
		}
	}
	return l.output
}

// Backward implements Layer.
func (l *Unpool) Backward() {
	l.mustHaveInput("Unpool.Backward")
	in := l.input
	in.ZeroGradients()

	grad := l.output.Gradients()
	for d := 0; d < l.outDepth; d++ {
		for oy := 0; oy < l.outHeight; oy++ {
			for ox := 0; ox < l.outWidth; ox++ {
				c := l.cell(ox, oy, d)
				if sx := l.switchX[c]; sx >= 0 {
					in.AddGradient(sx, l.switchY[c], d, grad[c])
				}
			}
		}
	}
}

// ParametersAndGradients implements Layer.
func (l *Unpool) ParametersAndGradients() []ParametersAndGradients { return nil }

// Reset implements Layer.
func (l *Unpool) Reset(_ *rand.Rand) {}
