package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/volnet/internal/volume"
)

// Pool implements spatial max pooling, channel by channel.
//
// Forward records, per output cell, the input coordinates of the winning
// cell (the switches). Backward routes each output gradient to that single
// cell; every other input cell receives zero. Switches are rebuilt on every
// Forward and are the only state carried from Forward to Backward.
type Pool struct {
	base

	Width  int // window width
	Height int // window height
	Stride int
	Pad    int

	switchX []int
	switchY []int
}

// NewPool creates a max-pooling layer with a width x height window.
// Stride defaults to 2 and padding to 0.
func NewPool(width, height int) (*Pool, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("Pool: window %dx%d: %w", width, height, ErrInvalidArgument)
	}
	return &Pool{Width: width, Height: height, Stride: 2}, nil
}

// Kind implements Layer.
func (l *Pool) Kind() Kind { return KindPool }

// Init implements Layer.
func (l *Pool) Init(inW, inH, inD int, _ *rand.Rand) error {
	if err := validateInput("Pool", inW, inH, inD); err != nil {
		return err
	}
	if l.Stride <= 0 || l.Pad < 0 {
		return fmt.Errorf("Pool: stride %d pad %d: %w", l.Stride, l.Pad, ErrInvalidArgument)
	}
	if inW+2*l.Pad < l.Width || inH+2*l.Pad < l.Height {
		return fmt.Errorf("Pool: window %dx%d larger than padded input: %w", l.Width, l.Height, ErrInvalidArgument)
	}
	outW := (inW+2*l.Pad-l.Width)/l.Stride + 1
	outH := (inH+2*l.Pad-l.Height)/l.Stride + 1
	l.setShapes(inW, inH, inD, outW, outH, inD)

	n := outW * outH * inD
	l.switchX = make([]int, n)
	l.switchY = make([]int, n)
	l.output = volume.New(outW, outH, inD)
	return nil
}

// Switches returns the recorded winner coordinates, indexed like the output.
// A value of -1 marks an output cell whose window saw no input.
func (l *Pool) Switches() (xs, ys []int) { return l.switchX, l.switchY }

// Forward implements Layer.
func (l *Pool) Forward(in *volume.Volume, _ bool) *volume.Volume {
	l.checkInput("Pool.Forward", in)
	l.input = in

	n := 0
	for d := 0; d < l.outDepth; d++ {
		y := -l.Pad
		for ay := 0; ay < l.outHeight; ay++ {
			x := -l.Pad
			for ax := 0; ax < l.outWidth; ax++ {
				best := math.Inf(-1)
				winX, winY := -1, -1
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
						if v := in.Get(ox, oy, d); v > best {
							best, winX, winY = v, ox, oy
						}
					}
				}
				if winX < 0 {
					best = 0
				}
				l.switchX[n] = winX
				l.switchY[n] = winY
				n++
				l.output.Set(ax, ay, d, best)
				x += l.Stride
			}
			y += l.Stride
		}
	}
	return l.output
}

// Backward implements Layer.
func (l *Pool) Backward() {
	l.mustHaveInput("Pool.Backward")
	in := l.input
	in.ZeroGradients()

	n := 0
	for d := 0; d < l.outDepth; d++ {
		for ay := 0; ay < l.outHeight; ay++ {
			for ax := 0; ax < l.outWidth; ax++ {
				if sx := l.switchX[n]; sx >= 0 {
					in.AddGradient(sx, l.switchY[n], d, l.output.GetGradient(ax, ay, d))
				}
				n++
			}
		}
	}
}

// ParametersAndGradients implements Layer.
func (l *Pool) ParametersAndGradients() []ParametersAndGradients { return nil }

// Reset implements Layer.
func (l *Pool) Reset(_ *rand.Rand) {}
