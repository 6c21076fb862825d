package autodiff

// GraphTree is an ordered set of Graphs, one per time step of an unrolled
// recurrent computation. Later Graphs read earlier Graphs' outputs as
// leaves, so Forward runs the Graphs in order and Backward in reverse.
type GraphTree struct {
	backprop bool
	graphs   []*Graph
}

// NewGraphTree creates an empty GraphTree whose Graphs inherit backprop.
func NewGraphTree(backprop bool) *GraphTree {
	return &GraphTree{backprop: backprop}
}

// Add appends and returns a new Graph.
func (t *GraphTree) Add() *Graph {
	g := NewGraph(t.backprop)
	t.graphs = append(t.graphs, g)
	return g
}

// Graphs returns the Graphs in order.
func (t *GraphTree) Graphs() []*Graph { return t.graphs }

// Len returns the number of Graphs.
func (t *GraphTree) Len() int { return len(t.graphs) }

// Forward runs every Graph's Forward in order.
func (t *GraphTree) Forward() {
	for _, g := range t.graphs {
		g.Forward()
	}
}

// Backward runs every Graph's Backward in reverse order.
func (t *GraphTree) Backward() {
	for i := len(t.graphs) - 1; i >= 0; i-- {
		t.graphs[i].Backward()
	}
}

// Clear drops every Graph.
func (t *GraphTree) Clear() {
	clear(t.graphs)
	t.graphs = t.graphs[:0]
}
