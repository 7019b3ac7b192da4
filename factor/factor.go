package factor

import (
	"gonum.org/v1/gonum/mat"

	"go.mechdyn.dev/dyngraph/spatialmath"
)

// A Factor encodes one residual equation over a small fixed set of variables.
// Error returns the unwhitened residual; Linearize returns the residual along
// with exact closed-form Jacobian blocks, one per key, evaluated at the given
// assignment. Jacobians are with respect to the Retract tangent of each
// variable (right perturbation for poses).
type Factor interface {
	Keys() []Key
	Dim() int
	Noise() Model
	Error(v *Values) ([]float64, error)
	Linearize(v *Values) (*Linearization, error)
}

// Linearization is a factor evaluated at a point: per-key Jacobian blocks and
// the unwhitened residual.
type Linearization struct {
	Keys []Key
	J    []*mat.Dense
	Err  []float64
}

// PosePrior pins a pose variable to a fixed value.
type PosePrior struct {
	key   Key
	prior spatialmath.Pose
	noise Model
}

// NewPosePrior returns a prior factor on a pose variable.
func NewPosePrior(key Key, prior spatialmath.Pose, noise Model) *PosePrior {
	return &PosePrior{key: key, prior: prior, noise: noise}
}

func (f *PosePrior) Keys() []Key  { return []Key{f.key} }
func (f *PosePrior) Dim() int     { return 6 }
func (f *PosePrior) Noise() Model { return f.noise }

// Error returns the local coordinates of the variable around the prior.
func (f *PosePrior) Error(v *Values) ([]float64, error) {
	p, err := v.Pose(f.key)
	if err != nil {
		return nil, err
	}
	return spatialmath.Log(f.prior.Between(p)), nil
}

func (f *PosePrior) Linearize(v *Values) (*Linearization, error) {
	e, err := f.Error(v)
	if err != nil {
		return nil, err
	}
	return &Linearization{
		Keys: f.Keys(),
		J:    []*mat.Dense{spatialmath.JrInv(e)},
		Err:  e,
	}, nil
}

// VectorPrior pins a vector variable to a fixed value.
type VectorPrior struct {
	key   Key
	prior []float64
	noise Model
}

// NewVectorPrior returns a prior factor on a vector variable.
func NewVectorPrior(key Key, prior []float64, noise Model) *VectorPrior {
	cp := make([]float64, len(prior))
	copy(cp, prior)
	return &VectorPrior{key: key, prior: cp, noise: noise}
}

func (f *VectorPrior) Keys() []Key  { return []Key{f.key} }
func (f *VectorPrior) Dim() int     { return len(f.prior) }
func (f *VectorPrior) Noise() Model { return f.noise }

func (f *VectorPrior) Error(v *Values) ([]float64, error) {
	x, err := v.Vector(f.key)
	if err != nil {
		return nil, err
	}
	e := make([]float64, len(x))
	for i := range x {
		e[i] = x[i] - f.prior[i]
	}
	return e, nil
}

func (f *VectorPrior) Linearize(v *Values) (*Linearization, error) {
	e, err := f.Error(v)
	if err != nil {
		return nil, err
	}
	n := len(f.prior)
	j := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		j.Set(i, i, 1)
	}
	return &Linearization{Keys: f.Keys(), J: []*mat.Dense{j}, Err: e}, nil
}

// DoublePrior pins a scalar variable to a fixed value.
type DoublePrior struct {
	key   Key
	prior float64
	noise Model
}

// NewDoublePrior returns a prior factor on a scalar variable.
func NewDoublePrior(key Key, prior float64, noise Model) *DoublePrior {
	return &DoublePrior{key: key, prior: prior, noise: noise}
}

func (f *DoublePrior) Keys() []Key  { return []Key{f.key} }
func (f *DoublePrior) Dim() int     { return 1 }
func (f *DoublePrior) Noise() Model { return f.noise }

func (f *DoublePrior) Error(v *Values) ([]float64, error) {
	x, err := v.Double(f.key)
	if err != nil {
		return nil, err
	}
	return []float64{x - f.prior}, nil
}

func (f *DoublePrior) Linearize(v *Values) (*Linearization, error) {
	e, err := f.Error(v)
	if err != nil {
		return nil, err
	}
	return &Linearization{
		Keys: f.Keys(),
		J:    []*mat.Dense{mat.NewDense(1, 1, []float64{1})},
		Err:  e,
	}, nil
}

// ScalarAffine encodes sum_i c_i*x_i = rhs over scalar variables. Collocation
// constraints with a fixed timestep are of this form.
type ScalarAffine struct {
	keys   []Key
	coeffs []float64
	rhs    float64
	noise  Model
}

// NewScalarAffine returns an affine equality factor over scalar variables.
func NewScalarAffine(keys []Key, coeffs []float64, rhs float64, noise Model) *ScalarAffine {
	return &ScalarAffine{keys: keys, coeffs: coeffs, rhs: rhs, noise: noise}
}

func (f *ScalarAffine) Keys() []Key  { return f.keys }
func (f *ScalarAffine) Dim() int     { return 1 }
func (f *ScalarAffine) Noise() Model { return f.noise }

func (f *ScalarAffine) Error(v *Values) ([]float64, error) {
	sum := -f.rhs
	for i, k := range f.keys {
		x, err := v.Double(k)
		if err != nil {
			return nil, err
		}
		sum += f.coeffs[i] * x
	}
	return []float64{sum}, nil
}

func (f *ScalarAffine) Linearize(v *Values) (*Linearization, error) {
	e, err := f.Error(v)
	if err != nil {
		return nil, err
	}
	js := make([]*mat.Dense, len(f.keys))
	for i, c := range f.coeffs {
		js[i] = mat.NewDense(1, 1, []float64{c})
	}
	return &Linearization{Keys: f.keys, J: js, Err: e}, nil
}
