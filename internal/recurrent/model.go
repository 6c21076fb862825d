package recurrent

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/volnet/internal/autodiff"
	"github.com/born-ml/volnet/internal/volume"
)

// initStd is the standard deviation of the Gaussian weight initialization.
const initStd = 0.08

type param struct {
	name string
	v    *volume.Volume
}

// lstmLayer holds one stacked layer's matrices. For the RNN cell only the
// cell-write triple is used, as Wxh, Whh and bhh.
type lstmLayer struct {
	wix, wih, bi *volume.Volume
	wfx, wfh, bf *volume.Volume
	wox, woh, bo *volume.Volume
	wcx, wch, bc *volume.Volume
}

type model struct {
	kind    Model
	hidden  []int
	wil     *volume.Volume // vocab x letter embedding
	layers  []lstmLayer
	whd, bd *volume.Volume // decoder
	params  []param
}

func randMat(rows, cols int, rng *rand.Rand) *volume.Volume {
	v := volume.New(cols, rows, 1)
	for i := range v.Weights() {
		v.SetAt(i, rng.NormFloat64()*initStd)
	}
	return v
}

func zeroMat(rows, cols int) *volume.Volume { return volume.New(cols, rows, 1) }

func newModel(kind Model, vocab, letterSize int, hidden []int, rng *rand.Rand) *model {
	m := &model{kind: kind, hidden: hidden}
	m.wil = randMat(vocab, letterSize, rng)
	m.add("Wil", m.wil)

	prev := letterSize
	for d, h := range hidden {
		var l lstmLayer
		switch kind {
		case RNN:
			l.wcx, l.wch, l.bc = randMat(h, prev, rng), randMat(h, h, rng), zeroMat(h, 1)
			m.add(fmt.Sprintf("Wxh%d", d), l.wcx)
			m.add(fmt.Sprintf("Whh%d", d), l.wch)
			m.add(fmt.Sprintf("bhh%d", d), l.bc)
		case LSTM:
			for _, gate := range []struct {
				name       string
				wx, wh, bb **volume.Volume
			}{
				{"i", &l.wix, &l.wih, &l.bi},
				{"f", &l.wfx, &l.wfh, &l.bf},
				{"o", &l.wox, &l.woh, &l.bo},
				{"c", &l.wcx, &l.wch, &l.bc},
			} {
				*gate.wx, *gate.wh, *gate.bb = randMat(h, prev, rng), randMat(h, h, rng), zeroMat(h, 1)
				m.add(fmt.Sprintf("W%sx%d", gate.name, d), *gate.wx)
				m.add(fmt.Sprintf("W%sh%d", gate.name, d), *gate.wh)
				m.add(fmt.Sprintf("b%s%d", gate.name, d), *gate.bb)
			}
		}
		m.layers = append(m.layers, l)
		prev = h
	}

	m.whd, m.bd = randMat(vocab, prev, rng), zeroMat(vocab, 1)
	m.add("Whd", m.whd)
	m.add("bd", m.bd)
	return m
}

func (m *model) add(name string, v *volume.Volume) {
	m.params = append(m.params, param{name: name, v: v})
}

// volumes returns the parameters in a fixed order.
func (m *model) volumes() []*volume.Volume {
	out := make([]*volume.Volume, len(m.params))
	for i, p := range m.params {
		out[i] = p.v
	}
	return out
}

// state is the per-layer hidden and cell vectors handed between steps. The
// RNN cell leaves cell nil.
type state struct {
	hidden []*volume.Volume
	cell   []*volume.Volume
}

func (m *model) zeroState() *state {
	s := &state{}
	for _, h := range m.hidden {
		s.hidden = append(s.hidden, zeroMat(h, 1))
		if m.kind == LSTM {
			s.cell = append(s.cell, zeroMat(h, 1))
		}
	}
	return s
}

// step records one time step on g: embed letter ix, run every layer from
// prev, and copy the new hidden and cell vectors into a fresh state. It
// returns the logits node and that state.
func (m *model) step(g *autodiff.Graph, ix int, prev *state) (autodiff.NodeID, *state) {
	leaves := make(map[*volume.Volume]autodiff.NodeID)
	leaf := func(v *volume.Volume) autodiff.NodeID {
		id, ok := leaves[v]
		if !ok {
			id = g.Leaf(v)
			leaves[v] = id
		}
		return id
	}
	// affine returns Wx*x + Wh*h + b.
	affine := func(wx, wh, b *volume.Volume, x, h autodiff.NodeID) autodiff.NodeID {
		return g.Add(g.Add(g.Mul(leaf(wx), x), g.Mul(leaf(wh), h)), leaf(b))
	}

	next := m.zeroState()
	input := g.RowPluck(leaf(m.wil), ix)
	for d, l := range m.layers {
		hPrev := leaf(prev.hidden[d])
		var hidden autodiff.NodeID
		switch m.kind {
		case RNN:
			hidden = g.Relu(affine(l.wcx, l.wch, l.bc, input, hPrev))
		case LSTM:
			cPrev := leaf(prev.cell[d])
			inGate := g.Sigmoid(affine(l.wix, l.wih, l.bi, input, hPrev))
			forgetGate := g.Sigmoid(affine(l.wfx, l.wfh, l.bf, input, hPrev))
			outGate := g.Sigmoid(affine(l.wox, l.woh, l.bo, input, hPrev))
			write := g.Tanh(affine(l.wcx, l.wch, l.bc, input, hPrev))

			cell := g.Add(g.EltMul(forgetGate, cPrev), g.EltMul(inGate, write))
			hidden = g.EltMul(outGate, g.Tanh(cell))
			g.Copy(cell, leaf(next.cell[d]))
		}
		g.Copy(hidden, leaf(next.hidden[d]))
		input = hidden
	}
	return g.Add(g.Mul(leaf(m.whd), input), leaf(m.bd)), next
}
