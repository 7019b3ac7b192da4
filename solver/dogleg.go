package solver

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.mechdyn.dev/dyngraph/factor"
)

type deltaMap map[factor.Key][]float64

func (d deltaMap) norm() float64 {
	sum := 0.0
	for _, v := range d {
		for _, x := range v {
			sum += x * x
		}
	}
	return math.Sqrt(sum)
}

func (d deltaMap) scale(s float64) deltaMap {
	out := deltaMap{}
	for k, v := range d {
		sv := make([]float64, len(v))
		for i, x := range v {
			sv[i] = s * x
		}
		out[k] = sv
	}
	return out
}

// blend returns a + tau*(b-a) over the union of keys.
func blend(a, b deltaMap, tau float64) deltaMap {
	out := deltaMap{}
	for k, bv := range b {
		av := a[k]
		ov := make([]float64, len(bv))
		for i := range bv {
			var ai float64
			if av != nil {
				ai = av[i]
			}
			ov[i] = ai + tau*(bv[i]-ai)
		}
		out[k] = ov
	}
	return out
}

// gradient returns A^T b of the whitened linear system, the steepest-descent
// direction of the squared error.
func gradient(lin *factor.GaussianGraph) deltaMap {
	out := deltaMap{}
	for _, f := range lin.Factors() {
		for i, k := range f.Keys() {
			blk := f.Blocks()[i]
			_, c := blk.Dims()
			if out[k] == nil {
				out[k] = make([]float64, c)
			}
			var jtb mat.VecDense
			jtb.MulVec(blk.T(), mat.NewVecDense(len(f.Rhs()), f.Rhs()))
			for ci := 0; ci < c; ci++ {
				out[k][ci] += jtb.AtVec(ci)
			}
		}
	}
	return out
}

// applyNormSq returns |A u|^2 for the whitened system.
func applyNormSq(lin *factor.GaussianGraph, u deltaMap) float64 {
	sum := 0.0
	for _, f := range lin.Factors() {
		rows := f.Dim()
		acc := make([]float64, rows)
		for i, k := range f.Keys() {
			uv, ok := u[k]
			if !ok {
				continue
			}
			var ju mat.VecDense
			ju.MulVec(f.Blocks()[i], mat.NewVecDense(len(uv), uv))
			for r := 0; r < rows; r++ {
				acc[r] += ju.AtVec(r)
			}
		}
		for _, a := range acc {
			sum += a * a
		}
	}
	return sum
}

// Dogleg minimizes the graph's weighted squared error with Powell's dogleg
// trust-region strategy, blending the Gauss-Newton and steepest-descent steps.
func Dogleg(g *factor.Graph, initial *factor.Values, opts Options) (*factor.Values, error) {
	opts = opts.withDefaults()
	values := initial
	radius := opts.TrustRadius
	curErr, err := g.Error(values)
	if err != nil {
		return nil, err
	}
	for it := 0; it < opts.MaxIterations; it++ {
		lin, err := g.Linearize(values)
		if err != nil {
			return nil, err
		}
		gnStep, err := lin.Solve()
		if err != nil {
			return nil, errors.Wrap(err, "dogleg gauss-newton step failed")
		}
		grad := gradient(lin)
		gradNormSq := grad.norm() * grad.norm()
		var sd deltaMap
		if denom := applyNormSq(lin, grad); denom > 0 {
			sd = grad.scale(gradNormSq / denom)
		} else {
			sd = grad.scale(0)
		}

		accepted := false
		for try := 0; try < 10; try++ {
			step := doglegStep(deltaMap(gnStep), sd, radius)
			candidate := values.Retract(step)
			candErr, err := g.Error(candidate)
			if err != nil {
				return nil, err
			}
			if candErr < curErr {
				if opts.Logger != nil {
					opts.Logger.Debugf("dogleg iteration %d error %g radius %g", it, candErr, radius)
				}
				if converged(curErr, candErr, opts) {
					return candidate, nil
				}
				values = candidate
				curErr = candErr
				radius = math.Max(radius, 3*step.norm())
				accepted = true
				break
			}
			radius /= 2
		}
		if !accepted {
			return values, &NonConvergedError{Values: values, Iterations: it + 1, FinalError: curErr}
		}
	}
	return values, &NonConvergedError{Values: values, Iterations: opts.MaxIterations, FinalError: curErr}
}

// doglegStep picks the classic dogleg point for the given trust radius.
func doglegStep(gn, sd deltaMap, radius float64) deltaMap {
	if gn.norm() <= radius {
		return gn
	}
	sdNorm := sd.norm()
	if sdNorm >= radius {
		return sd.scale(radius / sdNorm)
	}
	// walk from the steepest-descent point toward the Gauss-Newton point
	// until the trust boundary; tau solves |sd + tau*(gn-sd)| = radius.
	lo, hi := 0.0, 1.0
	for i := 0; i < 50; i++ {
		mid := (lo + hi) / 2
		if blend(sd, gn, mid).norm() > radius {
			hi = mid
		} else {
			lo = mid
		}
	}
	return blend(sd, gn, lo)
}
