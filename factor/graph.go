package factor

import (
	"sort"
)

// Graph is an append-only collection of factors. A graph is built fresh per
// timestep or phase and handed to a solver as a value; it is never mutated
// after that.
type Graph struct {
	factors []Factor
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// Add appends factors.
func (g *Graph) Add(fs ...Factor) {
	g.factors = append(g.factors, fs...)
}

// AddGraph appends every factor of o, preserving order.
func (g *Graph) AddGraph(o *Graph) {
	g.factors = append(g.factors, o.factors...)
}

// Factors returns the factors in insertion order.
func (g *Graph) Factors() []Factor { return g.factors }

// Size returns the number of factors.
func (g *Graph) Size() int { return len(g.factors) }

// Keys returns the distinct variable keys referenced by the graph, in
// canonical order.
func (g *Graph) Keys() []Key {
	seen := map[Key]struct{}{}
	var keys []Key
	for _, f := range g.factors {
		for _, k := range f.Keys() {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Error returns the total weighted squared residual 0.5*|W e|^2 at v.
func (g *Graph) Error(v *Values) (float64, error) {
	total := 0.0
	for _, f := range g.factors {
		e, err := f.Error(v)
		if err != nil {
			return 0, err
		}
		w := f.Noise().Weights()
		for i := range e {
			we := e[i] * w[i]
			total += 0.5 * we * we
		}
	}
	return total, nil
}

// Linearize evaluates every factor at v and assembles the whitened linear
// system A*delta = b with b = -W*e, in tangent coordinates around v.
func (g *Graph) Linearize(v *Values) (*GaussianGraph, error) {
	out := NewGaussianGraph()
	for _, f := range g.factors {
		lin, err := f.Linearize(v)
		if err != nil {
			return nil, err
		}
		w := f.Noise().Weights()
		b := make([]float64, len(lin.Err))
		for i := range lin.Err {
			b[i] = -lin.Err[i] * w[i]
		}
		gf := newWhitened(lin.Keys, lin.J, b, w)
		out.Add(gf)
	}
	return out, nil
}
