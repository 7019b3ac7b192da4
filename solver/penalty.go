package solver

import (
	"go.mechdyn.dev/dyngraph/factor"
)

// PenaltyOptions configures the penalty-method schedule.
type PenaltyOptions struct {
	InitialMu      float64
	MuIncreaseRate float64
	NumIterations  int
	Inner          Options
}

// DefaultPenaltyOptions returns the schedule used when a zero options value
// is passed.
func DefaultPenaltyOptions() PenaltyOptions {
	return PenaltyOptions{InitialMu: 1, MuIncreaseRate: 2, NumIterations: 4}
}

// scaledFactor wraps a constraint factor with its noise weights multiplied by
// the current penalty multiplier.
type scaledFactor struct {
	factor.Factor
	mu float64
}

func (s *scaledFactor) Noise() factor.Model {
	base := s.Factor.Noise().Weights()
	sigmas := make([]float64, len(base))
	for i, w := range base {
		sigmas[i] = 1 / (w * s.mu)
	}
	return factor.Sigmas(sigmas)
}

// Penalty runs the penalty method: it repeatedly merges the soft objective
// graph with the equality-constraint factors reweighted by an increasing
// multiplier mu and re-solves with Levenberg-Marquardt. Retrying on inner
// non-convergence is exactly this schedule and nothing else; the caller sees
// the final inner result unchanged.
func Penalty(
	objectives *factor.Graph,
	constraints []factor.Factor,
	initial *factor.Values,
	opts PenaltyOptions,
) (*factor.Values, error) {
	if opts.NumIterations <= 0 {
		opts.NumIterations = DefaultPenaltyOptions().NumIterations
	}
	if opts.InitialMu <= 0 {
		opts.InitialMu = DefaultPenaltyOptions().InitialMu
	}
	if opts.MuIncreaseRate <= 1 {
		opts.MuIncreaseRate = DefaultPenaltyOptions().MuIncreaseRate
	}

	values := initial
	mu := opts.InitialMu
	var lastErr error
	for i := 0; i < opts.NumIterations; i++ {
		merit := factor.NewGraph()
		merit.AddGraph(objectives)
		for _, c := range constraints {
			merit.Add(&scaledFactor{Factor: c, mu: mu})
		}
		result, err := LevenbergMarquardt(merit, values, opts.Inner)
		if result != nil {
			values = result
		}
		lastErr = err
		mu *= opts.MuIncreaseRate
	}
	return values, lastErr
}
