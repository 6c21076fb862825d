package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/volnet/internal/volume"
)

// LRN implements local response normalization across channels:
//
//	S(x,y,i) = k + alpha/n * sum_{j in window(i)} a(x,y,j)^2
//	out(x,y,i) = a(x,y,i) / S(x,y,i)^beta
//
// where window(i) spans n channels centered on i, clipped to the volume.
type LRN struct {
	base

	K     float64
	N     int
	Alpha float64
	Beta  float64

	sCache *volume.Volume
}

// NewLRN creates an LRN layer. n must be odd and positive.
func NewLRN(k float64, n int, alpha, beta float64) (*LRN, error) {
	if n <= 0 || n%2 == 0 {
		return nil, fmt.Errorf("LRN: window n=%d must be odd and positive: %w", n, ErrInvalidArgument)
	}
	return &LRN{K: k, N: n, Alpha: alpha, Beta: beta}, nil
}

// Kind implements Layer.
func (l *LRN) Kind() Kind { return KindLRN }

// Init implements Layer.
func (l *LRN) Init(inW, inH, inD int, _ *rand.Rand) error {
	if err := validateInput("LRN", inW, inH, inD); err != nil {
		return err
	}
	l.setShapes(inW, inH, inD, inW, inH, inD)
	l.sCache = volume.New(inW, inH, inD)
	l.output = volume.New(inW, inH, inD)
	return nil
}

func (l *LRN) window(i int) (lo, hi int) {
	half := l.N / 2
	return max(0, i-half), min(i+half, l.inDepth-1)
}

// Forward implements Layer.
func (l *LRN) Forward(in *volume.Volume, _ bool) *volume.Volume {
	l.checkInput("LRN.Forward", in)
	l.input = in

	for x := 0; x < l.inWidth; x++ {
		for y := 0; y < l.inHeight; y++ {
			for i := 0; i < l.inDepth; i++ {
				lo, hi := l.window(i)
				den := 0.0
				for j := lo; j <= hi; j++ {
					aj := in.Get(x, y, j)
					den += aj * aj
				}
				den = l.K + den*l.Alpha/float64(l.N)
				l.sCache.Set(x, y, i, den)
				l.output.Set(x, y, i, in.Get(x, y, i)/math.Pow(den, l.Beta))
			}
		}
	}
	return l.output
}

// Backward implements Layer.
func (l *LRN) Backward() {
	l.mustHaveInput("LRN.Backward")
	in := l.input
	in.ZeroGradients()
	scale := l.Alpha / float64(l.N)

	for x := 0; x < l.inWidth; x++ {
		for y := 0; y < l.inHeight; y++ {
			for i := 0; i < l.inDepth; i++ {
				chain := l.output.GetGradient(x, y, i)
				s := l.sCache.Get(x, y, i)
				sb := math.Pow(s, l.Beta)
				sb2 := sb * sb
				ai := in.Get(x, y, i)
				lo, hi := l.window(i)
				for j := lo; j <= hi; j++ {
					aj := in.Get(x, y, j)
					g := -ai * l.Beta * math.Pow(s, l.Beta-1) * scale * 2 * aj
					if j == i {
						g += sb
					}
					in.AddGradient(x, y, j, g/sb2*chain)
				}
			}
		}
	}
}

// ParametersAndGradients implements Layer.
func (l *LRN) ParametersAndGradients() []ParametersAndGradients { return nil }

// Reset implements Layer.
func (l *LRN) Reset(_ *rand.Rand) {}
