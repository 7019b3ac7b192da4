package factor

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Gaussian is one linear factor A1*x1 + ... + An*xn = b, stored whitened.
// In a graph produced by Graph.Linearize the unknowns are tangent deltas; in
// a directly-built linear dynamics graph they are the variables themselves.
type Gaussian struct {
	keys []Key
	a    []*mat.Dense
	b    []float64
}

// NewGaussian returns a linear factor, whitening the blocks and rhs with the
// given noise model.
func NewGaussian(keys []Key, a []*mat.Dense, b []float64, model Model) *Gaussian {
	w := model.Weights()
	wb := make([]float64, len(b))
	for i := range b {
		wb[i] = b[i] * w[i]
	}
	return newWhitened(keys, a, wb, w)
}

// newWhitened scales Jacobian rows by w; b must already be whitened.
func newWhitened(keys []Key, a []*mat.Dense, b, w []float64) *Gaussian {
	blocks := make([]*mat.Dense, len(a))
	for i, blk := range a {
		r, c := blk.Dims()
		out := mat.NewDense(r, c, nil)
		for ri := 0; ri < r; ri++ {
			for ci := 0; ci < c; ci++ {
				out.Set(ri, ci, blk.At(ri, ci)*w[ri])
			}
		}
		blocks[i] = out
	}
	return &Gaussian{keys: keys, a: blocks, b: b}
}

// Keys returns the factor's variable keys.
func (f *Gaussian) Keys() []Key { return f.keys }

// Dim returns the residual dimension.
func (f *Gaussian) Dim() int { return len(f.b) }

// Blocks returns the whitened Jacobian blocks aligned with Keys.
func (f *Gaussian) Blocks() []*mat.Dense { return f.a }

// Rhs returns the whitened right-hand side.
func (f *Gaussian) Rhs() []float64 { return f.b }

// GaussianGraph is a collection of linear factors solved jointly in the
// least-squares sense.
type GaussianGraph struct {
	factors []*Gaussian
}

// NewGaussianGraph returns an empty linear graph.
func NewGaussianGraph() *GaussianGraph {
	return &GaussianGraph{}
}

// Add appends linear factors.
func (g *GaussianGraph) Add(fs ...*Gaussian) {
	g.factors = append(g.factors, fs...)
}

// AddGraph appends every factor of o.
func (g *GaussianGraph) AddGraph(o *GaussianGraph) {
	g.factors = append(g.factors, o.factors...)
}

// Size returns the number of factors.
func (g *GaussianGraph) Size() int { return len(g.factors) }

// Factors returns the linear factors in insertion order.
func (g *GaussianGraph) Factors() []*Gaussian { return g.factors }

// Variables returns the tangent dimension of every variable in the graph.
func (g *GaussianGraph) Variables() map[Key]int {
	dims := map[Key]int{}
	for _, f := range g.factors {
		for i, k := range f.keys {
			_, c := f.a[i].Dims()
			dims[k] = c
		}
	}
	return dims
}

// Solve assembles the stacked dense system and solves it by QR in the
// least-squares sense. A rank-deficient system returns ErrSingularSystem
// rather than a garbage assignment.
func (g *GaussianGraph) Solve() (map[Key][]float64, error) {
	type varInfo struct {
		dim    int
		offset int
	}
	dims := map[Key]int{}
	var keys []Key
	rows := 0
	for _, f := range g.factors {
		rows += f.Dim()
		for i, k := range f.keys {
			_, c := f.a[i].Dims()
			if prev, ok := dims[k]; ok {
				if prev != c {
					return nil, errors.Errorf("inconsistent dimension for variable %v: %d vs %d", k, prev, c)
				}
				continue
			}
			dims[k] = c
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	info := map[Key]varInfo{}
	cols := 0
	for _, k := range keys {
		info[k] = varInfo{dim: dims[k], offset: cols}
		cols += dims[k]
	}
	if cols == 0 {
		return map[Key][]float64{}, nil
	}
	if rows < cols {
		return nil, errors.Wrap(ErrSingularSystem, "fewer constraint rows than unknowns")
	}

	a := mat.NewDense(rows, cols, nil)
	b := mat.NewDense(rows, 1, nil)
	row := 0
	for _, f := range g.factors {
		for i, k := range f.keys {
			vi := info[k]
			blk := f.a[i]
			r, c := blk.Dims()
			for ri := 0; ri < r; ri++ {
				for ci := 0; ci < c; ci++ {
					a.Set(row+ri, vi.offset+ci, a.At(row+ri, vi.offset+ci)+blk.At(ri, ci))
				}
			}
		}
		for ri, bv := range f.b {
			b.Set(row+ri, 0, bv)
		}
		row += f.Dim()
	}

	var qr mat.QR
	qr.Factorize(a)
	var r mat.Dense
	qr.RTo(&r)
	maxDiag := 0.0
	for i := 0; i < cols; i++ {
		if d := math.Abs(r.At(i, i)); d > maxDiag {
			maxDiag = d
		}
	}
	tol := 1e-10 * math.Max(1, maxDiag)
	for i := 0; i < cols; i++ {
		if math.Abs(r.At(i, i)) < tol {
			return nil, ErrSingularSystem
		}
	}

	var x mat.Dense
	if err := qr.SolveTo(&x, false, b); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, errors.Wrap(ErrSingularSystem, err.Error())
		}
	}

	out := make(map[Key][]float64, len(keys))
	for _, k := range keys {
		vi := info[k]
		sol := make([]float64, vi.dim)
		for i := 0; i < vi.dim; i++ {
			sol[i] = x.At(vi.offset+i, 0)
		}
		out[k] = sol
	}
	return out, nil
}
