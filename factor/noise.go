package factor

// Model is a diagonal noise/weighting model: it whitens residuals and
// Jacobian rows by the per-dimension inverse standard deviation. Hard
// (constrained) models carry unit weight but are flagged so a builder can
// distinguish exact constraints from soft objectives.
type Model interface {
	Dim() int
	// Weights returns the per-dimension row scaling (1/sigma).
	Weights() []float64
	// Constrained reports whether this models an exact constraint.
	Constrained() bool
}

type diagonal struct {
	weights []float64
	hard    bool
}

func (d *diagonal) Dim() int           { return len(d.weights) }
func (d *diagonal) Weights() []float64 { return d.weights }
func (d *diagonal) Constrained() bool  { return d.hard }

// Unit returns a unit-weight model of the given dimension.
func Unit(dim int) Model {
	w := make([]float64, dim)
	for i := range w {
		w[i] = 1
	}
	return &diagonal{weights: w}
}

// Isotropic returns a model with uniform standard deviation sigma.
func Isotropic(dim int, sigma float64) Model {
	w := make([]float64, dim)
	for i := range w {
		w[i] = 1 / sigma
	}
	return &diagonal{weights: w}
}

// Sigmas returns a model with per-dimension standard deviations.
func Sigmas(sigmas []float64) Model {
	w := make([]float64, len(sigmas))
	for i, s := range sigmas {
		w[i] = 1 / s
	}
	return &diagonal{weights: w}
}

// Constrained returns a hard-constraint model: unit weights, flagged exact.
func Constrained(dim int) Model {
	w := make([]float64, dim)
	for i := range w {
		w[i] = 1
	}
	return &diagonal{weights: w, hard: true}
}
