package dynamics

import (
	"go.mechdyn.dev/dyngraph/factor"
)

// Settings carries the noise models for every factor family a builder emits.
// Dynamics equations default to hard constraints; limits default to a soft
// penalty.
type Settings struct {
	PoseModel         factor.Model
	TwistModel        factor.Model
	AccelModel        factor.Model
	WrenchModel       factor.Model
	TorqueModel       factor.Model
	PlanarModel       factor.Model
	PriorPoseModel    factor.Model
	PriorVecModel     factor.Model
	PriorModel        factor.Model
	CollocationModel  factor.Model
	LimitModel        factor.Model
	ContactModel      factor.Model
	ContactPointModel factor.Model
}

// DefaultSettings returns the constrained-equation defaults.
func DefaultSettings() Settings {
	return Settings{
		PoseModel:         factor.Constrained(6),
		TwistModel:        factor.Constrained(6),
		AccelModel:        factor.Constrained(6),
		WrenchModel:       factor.Constrained(6),
		TorqueModel:       factor.Constrained(1),
		PlanarModel:       factor.Constrained(3),
		PriorPoseModel:    factor.Constrained(6),
		PriorVecModel:     factor.Constrained(6),
		PriorModel:        factor.Constrained(1),
		CollocationModel:  factor.Constrained(1),
		LimitModel:        factor.Isotropic(1, 0.01),
		ContactModel:      factor.Constrained(3),
		ContactPointModel: factor.Constrained(1),
	}
}
