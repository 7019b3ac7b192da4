package dynamics

import (
	"go.mechdyn.dev/dyngraph/factor"
	"go.mechdyn.dev/dyngraph/spatialmath"
)

// InitializeSolutionInterpolation returns an initial trajectory assignment
// where the named link's pose sweeps the SE(3) geodesic from start to goal
// while every other variable starts at zero (optionally jittered with
// Gaussian noise). A smooth task-space sweep is a far better optimizer seed
// than a rest-pose stack when the goal is far from the start.
func (b *Builder) InitializeSolutionInterpolation(
	linkName string,
	start, goal spatialmath.Pose,
	numSteps int,
	contacts []ContactPoint,
	sigma float64,
	seed uint64,
) (*factor.Values, error) {
	l, err := b.robot.Link(linkName)
	if err != nil {
		return nil, err
	}
	vals, err := b.ZeroValuesTrajectory(numSteps, contacts, sigma, seed, nil, 0)
	if err != nil {
		return nil, err
	}
	for t := 0; t <= numSteps; t++ {
		s := 0.0
		if numSteps > 0 {
			s = float64(t) / float64(numSteps)
		}
		vals.InsertPose(PoseKey(l.ID(), t), start.Interpolate(goal, s))
	}
	return vals, nil
}
