// Package netspec parses the JSON network description: an array of layer
// objects plus at most one trainer object, each selected by its "type" key.
//
//	[
//	  {"type": "input", "input_width": 2, "input_height": 1, "input_depth": 1},
//	  {"type": "fc", "neuron_count": 8, "activation": "relu"},
//	  {"type": "fc", "neuron_count": 2},
//	  {"type": "softmax", "class_count": 2},
//	  {"type": "adadelta", "batch_size": 4, "l2_decay": 0.001}
//	]
//
// An "activation" on any layer inserts the matching activation layer after
// it; a "drop_prob" on fc or conv then inserts a dropout layer. A loss layer
// not directly preceded by an fc of its input width gets one inserted.
// Parsing expands these, so a Definition always lists every layer
// explicitly and parses back to itself.
package netspec

import (
	"encoding/json"
	"math/rand"

	"github.com/born-ml/volnet/internal/nn"
	"github.com/born-ml/volnet/internal/optim"
	"github.com/pkg/errors"
)

var (
	// ErrRequiredArgument is returned when a layer object lacks a field its
	// type cannot default.
	ErrRequiredArgument = errors.New("required argument missing")

	// ErrUnknownType is returned for an unrecognized layer, trainer or
	// activation name.
	ErrUnknownType = errors.New("unknown type")

	// ErrMalformed is returned for text that is not a JSON array of objects,
	// or a description with more than one trainer object.
	ErrMalformed = errors.New("malformed network description")
)

// Definition is a parsed network description.
type Definition struct {
	Layers  []LayerDef
	Trainer optim.Config
}

// LayerDef is one layer with every default resolved.
type LayerDef struct {
	Kind nn.Kind

	InputWidth, InputHeight, InputDepth int

	Width, Height int // kernel or window
	FilterCount   int
	Stride        int
	Pad           int
	BiasPref      float64
	L1DecayMul    *float64
	L2DecayMul    *float64

	NeuronCount int
	ClassCount  int
	GroupSize   int
	DropProb    float64

	K     float64
	N     int
	Alpha float64
	Beta  float64
}

// object is the wire form of one array element. Pointer fields distinguish
// absent from zero. encoding/json matches keys case-insensitively, so
// "Beta1" and "beta1" both land in Beta1.
type object struct {
	Type string `json:"type"`

	InputWidth  *int `json:"input_width,omitempty"`
	InputHeight *int `json:"input_height,omitempty"`
	InputDepth  *int `json:"input_depth,omitempty"`

	Width       *int     `json:"width,omitempty"`
	Height      *int     `json:"height,omitempty"`
	FilterCount *int     `json:"filter_count,omitempty"`
	Stride      *int     `json:"stride,omitempty"`
	Pad         *int     `json:"pad,omitempty"`
	BiasPref    *float64 `json:"bias_pref,omitempty"`
	L1DecayMul  *float64 `json:"l1_decay_mul,omitempty"`
	L2DecayMul  *float64 `json:"l2_decay_mul,omitempty"`

	NeuronCount *int     `json:"neuron_count,omitempty"`
	ClassCount  *int     `json:"class_count,omitempty"`
	GroupSize   *int     `json:"group_size,omitempty"`
	DropProb    *float64 `json:"drop_prob,omitempty"`
	Activation  string   `json:"activation,omitempty"`

	K     *float64 `json:"k,omitempty"`
	N     *int     `json:"n,omitempty"`
	Alpha *float64 `json:"alpha,omitempty"`
	Beta  *float64 `json:"beta,omitempty"`

	LearningRate *float64 `json:"learning_rate,omitempty"`
	BatchSize    *int     `json:"batch_size,omitempty"`
	Momentum     *float64 `json:"momentum,omitempty"`
	L1Decay      *float64 `json:"l1_decay,omitempty"`
	L2Decay      *float64 `json:"l2_decay,omitempty"`
	Beta1        *float64 `json:"Beta1,omitempty"`
	Beta2        *float64 `json:"Beta2,omitempty"`
	Eps          *float64 `json:"eps,omitempty"`
	Ro           *float64 `json:"ro,omitempty"`
}

// Parse decodes a network description. A description without a trainer
// object gets optim.DefaultConfig.
func Parse(data []byte) (*Definition, error) {
	var objs []object
	if err := json.Unmarshal(data, &objs); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "decoding: %v", err)
	}

	def := &Definition{Trainer: optim.DefaultConfig()}
	trainerSeen := false
	for i, o := range objs {
		if method, ok := optim.ParseMethod(o.Type); ok {
			if trainerSeen {
				return nil, errors.Wrapf(ErrMalformed, "object %d: second trainer %q", i, o.Type)
			}
			trainerSeen = true
			def.Trainer = o.trainerConfig(method)
			continue
		}

		kind, ok := nn.ParseKind(o.Type)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownType, "object %d: layer type %q", i, o.Type)
		}
		layers, err := o.expand(kind)
		if err != nil {
			return nil, errors.Wrapf(err, "object %d (%s)", i, o.Type)
		}
		if n := lossInputs(layers[0]); n > 0 && !endsWithFullyConn(def.Layers, n) {
			def.Layers = append(def.Layers, LayerDef{Kind: nn.KindFullyConn, NeuronCount: n})
		}
		def.Layers = append(def.Layers, layers...)
	}
	return def, nil
}

func (o *object) trainerConfig(method optim.Method) optim.Config {
	cfg := optim.DefaultConfig()
	cfg.Method = method
	setFloat(&cfg.LearningRate, o.LearningRate)
	setInt(&cfg.BatchSize, o.BatchSize)
	setFloat(&cfg.Momentum, o.Momentum)
	setFloat(&cfg.L1Decay, o.L1Decay)
	setFloat(&cfg.L2Decay, o.L2Decay)
	setFloat(&cfg.Beta1, o.Beta1)
	setFloat(&cfg.Beta2, o.Beta2)
	setFloat(&cfg.Eps, o.Eps)
	setFloat(&cfg.Ro, o.Ro)
	return cfg
}

// expand resolves o into its layer and any layers it implies.
func (o *object) expand(kind nn.Kind) ([]LayerDef, error) {
	l := LayerDef{Kind: kind}
	var err error
	switch kind {
	case nn.KindInput:
		if l.InputWidth, err = required("input_width", o.InputWidth); err != nil {
			return nil, err
		}
		if l.InputHeight, err = required("input_height", o.InputHeight); err != nil {
			return nil, err
		}
		if l.InputDepth, err = required("input_depth", o.InputDepth); err != nil {
			return nil, err
		}
	case nn.KindFullyConn:
		if l.NeuronCount, err = required("neuron_count", o.NeuronCount); err != nil {
			return nil, err
		}
	case nn.KindConv, nn.KindDeconv:
		if l.FilterCount, err = required("filter_count", o.FilterCount); err != nil {
			return nil, err
		}
		if err = o.window(&l, 1); err != nil {
			return nil, err
		}
	case nn.KindPool, nn.KindUnpool:
		if err = o.window(&l, 2); err != nil {
			return nil, err
		}
	case nn.KindMaxout:
		l.GroupSize = 2
		setInt(&l.GroupSize, o.GroupSize)
	case nn.KindDropout:
		l.DropProb = 0.5
		setFloat(&l.DropProb, o.DropProb)
	case nn.KindLRN:
		if l.N, err = required("n", o.N); err != nil {
			return nil, err
		}
		l.K, l.Alpha, l.Beta = 2, 1e-4, 0.75
		setFloat(&l.K, o.K)
		setFloat(&l.Alpha, o.Alpha)
		setFloat(&l.Beta, o.Beta)
	case nn.KindSoftmax, nn.KindSVM:
		if l.ClassCount, err = required("class_count", o.ClassCount); err != nil {
			return nil, err
		}
	case nn.KindRegression, nn.KindHeteroscedasticRegression:
		if l.NeuronCount, err = required("neuron_count", o.NeuronCount); err != nil {
			return nil, err
		}
	}

	if kind == nn.KindFullyConn || kind == nn.KindConv || kind == nn.KindDeconv {
		l.L1DecayMul, l.L2DecayMul = o.L1DecayMul, o.L2DecayMul
		if o.BiasPref != nil {
			l.BiasPref = *o.BiasPref
		} else if o.Activation == "relu" {
			l.BiasPref = 0.1
		}
	}

	out := []LayerDef{l}
	if o.Activation != "" {
		act, err := o.activation()
		if err != nil {
			return nil, err
		}
		out = append(out, act)
	}
	if o.DropProb != nil && (kind == nn.KindFullyConn || kind == nn.KindConv) {
		out = append(out, LayerDef{Kind: nn.KindDropout, DropProb: *o.DropProb})
	}
	return out, nil
}

// lossInputs returns the fc width a loss layer reads, or 0 for other kinds.
func lossInputs(l LayerDef) int {
	switch l.Kind {
	case nn.KindSoftmax, nn.KindSVM:
		return l.ClassCount
	case nn.KindRegression:
		return l.NeuronCount
	case nn.KindHeteroscedasticRegression:
		return 2 * l.NeuronCount
	default:
		return 0
	}
}

func endsWithFullyConn(layers []LayerDef, neurons int) bool {
	if len(layers) == 0 {
		return false
	}
	last := layers[len(layers)-1]
	return last.Kind == nn.KindFullyConn && last.NeuronCount == neurons
}

func (o *object) window(l *LayerDef, stride int) error {
	var err error
	if l.Width, err = required("width", o.Width); err != nil {
		return err
	}
	l.Height = l.Width
	setInt(&l.Height, o.Height)
	l.Stride = stride
	setInt(&l.Stride, o.Stride)
	setInt(&l.Pad, o.Pad)
	return nil
}

func (o *object) activation() (LayerDef, error) {
	switch o.Activation {
	case "relu":
		return LayerDef{Kind: nn.KindRelu}, nil
	case "sigmoid":
		return LayerDef{Kind: nn.KindSigmoid}, nil
	case "tanh":
		return LayerDef{Kind: nn.KindTanh}, nil
	case "maxout":
		l := LayerDef{Kind: nn.KindMaxout, GroupSize: 2}
		setInt(&l.GroupSize, o.GroupSize)
		return l, nil
	default:
		return LayerDef{}, errors.Wrapf(ErrUnknownType, "activation %q", o.Activation)
	}
}

func required(field string, v *int) (int, error) {
	if v == nil {
		return 0, errors.Wrap(ErrRequiredArgument, field)
	}
	return *v, nil
}

func setInt(dst, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// Layer constructs the layer l describes. Layer configuration errors wrap
// nn.ErrInvalidArgument.
func (l LayerDef) Layer() (nn.Layer, error) {
	switch l.Kind {
	case nn.KindInput:
		return nn.NewInput(l.InputWidth, l.InputHeight, l.InputDepth)
	case nn.KindFullyConn:
		fc, err := nn.NewFullyConn(l.NeuronCount)
		if err != nil {
			return nil, err
		}
		fc.BiasPref = l.BiasPref
		setFloat(&fc.L1DecayMul, l.L1DecayMul)
		setFloat(&fc.L2DecayMul, l.L2DecayMul)
		return fc, nil
	case nn.KindConv:
		c, err := nn.NewConv(l.Width, l.Height, l.FilterCount)
		if err != nil {
			return nil, err
		}
		c.Stride, c.Pad, c.BiasPref = l.Stride, l.Pad, l.BiasPref
		setFloat(&c.L1DecayMul, l.L1DecayMul)
		setFloat(&c.L2DecayMul, l.L2DecayMul)
		return c, nil
	case nn.KindDeconv:
		c, err := nn.NewDeconv(l.Width, l.Height, l.FilterCount)
		if err != nil {
			return nil, err
		}
		c.Stride, c.Pad, c.BiasPref = l.Stride, l.Pad, l.BiasPref
		setFloat(&c.L1DecayMul, l.L1DecayMul)
		setFloat(&c.L2DecayMul, l.L2DecayMul)
		return c, nil
	case nn.KindPool:
		p, err := nn.NewPool(l.Width, l.Height)
		if err != nil {
			return nil, err
		}
		p.Stride, p.Pad = l.Stride, l.Pad
		return p, nil
	case nn.KindUnpool:
		p, err := nn.NewUnpool(l.Width, l.Height)
		if err != nil {
			return nil, err
		}
		p.Stride, p.Pad = l.Stride, l.Pad
		return p, nil
	case nn.KindRelu:
		return nn.NewRelu(), nil
	case nn.KindSigmoid:
		return nn.NewSigmoid(), nil
	case nn.KindTanh:
		return nn.NewTanh(), nil
	case nn.KindMaxout:
		return nn.NewMaxout(l.GroupSize)
	case nn.KindDropout:
		return nn.NewDropout(l.DropProb)
	case nn.KindLRN:
		return nn.NewLRN(l.K, l.N, l.Alpha, l.Beta)
	case nn.KindSoftmax:
		return nn.NewSoftmax(l.ClassCount)
	case nn.KindSVM:
		return nn.NewSVM(l.ClassCount)
	case nn.KindRegression:
		return nn.NewRegression(l.NeuronCount)
	case nn.KindHeteroscedasticRegression:
		return nn.NewHeteroscedasticRegression(l.NeuronCount)
	default:
		return nil, errors.Wrapf(ErrUnknownType, "layer kind %v", l.Kind)
	}
}

// BuildNet constructs and initializes every layer in order.
func (d *Definition) BuildNet(rng *rand.Rand) (*nn.Net, error) {
	net := nn.NewNet(rng)
	for i, ld := range d.Layers {
		l, err := ld.Layer()
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d (%s)", i, ld.Kind)
		}
		if err := net.AddLayer(l); err != nil {
			return nil, errors.Wrapf(err, "layer %d (%s)", i, ld.Kind)
		}
	}
	return net, nil
}

// MarshalJSON encodes the expanded description, one object per layer and a
// trailing trainer object. Parse of the result yields an equal Definition.
func (d *Definition) MarshalJSON() ([]byte, error) {
	objs := make([]object, 0, len(d.Layers)+1)
	for _, l := range d.Layers {
		objs = append(objs, l.object())
	}
	objs = append(objs, trainerObject(d.Trainer))
	return json.Marshal(objs)
}

func (l LayerDef) object() object {
	o := object{Type: l.Kind.String()}
	switch l.Kind {
	case nn.KindInput:
		o.InputWidth, o.InputHeight, o.InputDepth = &l.InputWidth, &l.InputHeight, &l.InputDepth
	case nn.KindFullyConn:
		o.NeuronCount = &l.NeuronCount
		o.BiasPref, o.L1DecayMul, o.L2DecayMul = &l.BiasPref, l.L1DecayMul, l.L2DecayMul
	case nn.KindConv, nn.KindDeconv:
		o.Width, o.Height, o.FilterCount, o.Stride, o.Pad = &l.Width, &l.Height, &l.FilterCount, &l.Stride, &l.Pad
		o.BiasPref, o.L1DecayMul, o.L2DecayMul = &l.BiasPref, l.L1DecayMul, l.L2DecayMul
	case nn.KindPool, nn.KindUnpool:
		o.Width, o.Height, o.Stride, o.Pad = &l.Width, &l.Height, &l.Stride, &l.Pad
	case nn.KindMaxout:
		o.GroupSize = &l.GroupSize
	case nn.KindDropout:
		o.DropProb = &l.DropProb
	case nn.KindLRN:
		o.K, o.N, o.Alpha, o.Beta = &l.K, &l.N, &l.Alpha, &l.Beta
	case nn.KindSoftmax, nn.KindSVM:
		o.ClassCount = &l.ClassCount
	case nn.KindRegression, nn.KindHeteroscedasticRegression:
		o.NeuronCount = &l.NeuronCount
	}
	return o
}

func trainerObject(c optim.Config) object {
	return object{
		Type:         c.Method.String(),
		LearningRate: &c.LearningRate,
		BatchSize:    &c.BatchSize,
		Momentum:     &c.Momentum,
		L1Decay:      &c.L1Decay,
		L2Decay:      &c.L2Decay,
		Beta1:        &c.Beta1,
		Beta2:        &c.Beta2,
		Eps:          &c.Eps,
		Ro:           &c.Ro,
	}
}
