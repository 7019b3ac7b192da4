// Package solver provides the nonlinear least-squares solvers that consume
// factor graphs: Gauss-Newton, Levenberg-Marquardt, Dogleg, and a
// penalty-method wrapper for equality-constrained problems.
package solver

import (
	"fmt"
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.mechdyn.dev/dyngraph/factor"
)

// Options configures an optimization run.
type Options struct {
	MaxIterations    int
	AbsoluteErrorTol float64
	RelativeErrorTol float64
	// Levenberg-Marquardt damping schedule.
	InitialLambda float64
	LambdaFactor  float64
	// Dogleg initial trust-region radius.
	TrustRadius float64
	Logger      golog.Logger
}

// DefaultOptions returns the option set used when a zero Options is passed.
func DefaultOptions() Options {
	return Options{
		MaxIterations:    100,
		AbsoluteErrorTol: 1e-12,
		RelativeErrorTol: 1e-9,
		InitialLambda:    1e-5,
		LambdaFactor:     10,
		TrustRadius:      1.0,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.AbsoluteErrorTol <= 0 {
		o.AbsoluteErrorTol = d.AbsoluteErrorTol
	}
	if o.RelativeErrorTol <= 0 {
		o.RelativeErrorTol = d.RelativeErrorTol
	}
	if o.InitialLambda <= 0 {
		o.InitialLambda = d.InitialLambda
	}
	if o.LambdaFactor <= 1 {
		o.LambdaFactor = d.LambdaFactor
	}
	if o.TrustRadius <= 0 {
		o.TrustRadius = d.TrustRadius
	}
	return o
}

// NonConvergedError reports that a solver hit its iteration limit. It carries
// the best assignment found so a caller can retry or accept it explicitly.
type NonConvergedError struct {
	Values     *factor.Values
	Iterations int
	FinalError float64
}

func (e *NonConvergedError) Error() string {
	return fmt.Sprintf("solver did not converge after %d iterations (error %g)", e.Iterations, e.FinalError)
}

func converged(prev, cur float64, opts Options) bool {
	decrease := prev - cur
	if decrease < 0 {
		return false
	}
	if decrease < opts.AbsoluteErrorTol {
		return true
	}
	if prev > 0 && decrease/prev < opts.RelativeErrorTol {
		return true
	}
	return false
}

// GaussNewton minimizes the graph's weighted squared error from the initial
// assignment by iterated linearize-solve-retract.
func GaussNewton(g *factor.Graph, initial *factor.Values, opts Options) (*factor.Values, error) {
	opts = opts.withDefaults()
	values := initial
	prevErr, err := g.Error(values)
	if err != nil {
		return nil, err
	}
	for it := 0; it < opts.MaxIterations; it++ {
		lin, err := g.Linearize(values)
		if err != nil {
			return nil, err
		}
		delta, err := lin.Solve()
		if err != nil {
			return nil, errors.Wrap(err, "gauss-newton linear step failed")
		}
		values = values.Retract(delta)
		curErr, err := g.Error(values)
		if err != nil {
			return nil, err
		}
		if opts.Logger != nil {
			opts.Logger.Debugf("gauss-newton iteration %d error %g", it, curErr)
		}
		if converged(prevErr, curErr, opts) {
			return values, nil
		}
		prevErr = curErr
	}
	return values, &NonConvergedError{Values: values, Iterations: opts.MaxIterations, FinalError: prevErr}
}

// LevenbergMarquardt minimizes the graph's weighted squared error with
// adaptive diagonal damping.
func LevenbergMarquardt(g *factor.Graph, initial *factor.Values, opts Options) (*factor.Values, error) {
	opts = opts.withDefaults()
	values := initial
	lambda := opts.InitialLambda
	curErr, err := g.Error(values)
	if err != nil {
		return nil, err
	}
	for it := 0; it < opts.MaxIterations; it++ {
		lin, err := g.Linearize(values)
		if err != nil {
			return nil, err
		}

		accepted := false
		for try := 0; try < 10; try++ {
			damped := factor.NewGaussianGraph()
			damped.AddGraph(lin)
			for k, dim := range lin.Variables() {
				d := mat.NewDense(dim, dim, nil)
				for i := 0; i < dim; i++ {
					d.Set(i, i, math.Sqrt(lambda))
				}
				damped.Add(factor.NewGaussian([]factor.Key{k}, []*mat.Dense{d}, make([]float64, dim), factor.Unit(dim)))
			}
			delta, err := damped.Solve()
			if err != nil {
				lambda *= opts.LambdaFactor
				continue
			}
			candidate := values.Retract(delta)
			candErr, err := g.Error(candidate)
			if err != nil {
				return nil, err
			}
			if candErr < curErr {
				if opts.Logger != nil {
					opts.Logger.Debugf("lm iteration %d error %g lambda %g", it, candErr, lambda)
				}
				if converged(curErr, candErr, opts) {
					return candidate, nil
				}
				values = candidate
				curErr = candErr
				lambda /= opts.LambdaFactor
				accepted = true
				break
			}
			lambda *= opts.LambdaFactor
		}
		if !accepted {
			// damping exhausted without a downhill step
			return values, &NonConvergedError{Values: values, Iterations: it + 1, FinalError: curErr}
		}
	}
	return values, &NonConvergedError{Values: values, Iterations: opts.MaxIterations, FinalError: curErr}
}
