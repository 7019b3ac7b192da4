package dynamics

import (
	"gonum.org/v1/gonum/mat"

	"go.mechdyn.dev/dyngraph/factor"
)

// JointLimitFactor is a double-sided hinge penalty on a scalar joint
// variable. It is zero inside [lower+threshold, upper-threshold] and grows
// linearly outside, so it only pushes when the variable nears a limit. The
// same factor serves angles, velocities, accelerations, and torques.
type JointLimitFactor struct {
	key          factor.Key
	lower, upper float64
	threshold    float64
	noise        factor.Model
}

// NewJointLimitFactor returns a hinge limit factor on a scalar variable.
func NewJointLimitFactor(key factor.Key, lower, upper, threshold float64, noise factor.Model) *JointLimitFactor {
	return &JointLimitFactor{key: key, lower: lower, upper: upper, threshold: threshold, noise: noise}
}

func (f *JointLimitFactor) Keys() []factor.Key  { return []factor.Key{f.key} }
func (f *JointLimitFactor) Dim() int            { return 1 }
func (f *JointLimitFactor) Noise() factor.Model { return f.noise }

func (f *JointLimitFactor) hinge(x float64) (float64, float64) {
	lo := f.lower + f.threshold
	hi := f.upper - f.threshold
	switch {
	case x < lo:
		return lo - x, -1
	case x > hi:
		return x - hi, 1
	}
	return 0, 0
}

func (f *JointLimitFactor) Error(v *factor.Values) ([]float64, error) {
	x, err := v.Double(f.key)
	if err != nil {
		return nil, err
	}
	e, _ := f.hinge(x)
	return []float64{e}, nil
}

func (f *JointLimitFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	x, err := v.Double(f.key)
	if err != nil {
		return nil, err
	}
	e, d := f.hinge(x)
	return &factor.Linearization{
		Keys: f.Keys(),
		J:    []*mat.Dense{mat.NewDense(1, 1, []float64{d})},
		Err:  []float64{e},
	}, nil
}
