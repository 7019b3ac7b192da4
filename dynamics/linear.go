package dynamics

import (
	"go.mechdyn.dev/dyngraph/factor"
	"go.mechdyn.dev/dyngraph/robot"
)

// fkValues returns a full step-t assignment with poses and twists from
// forward kinematics at (q, v) and everything else zero.
func (b *Builder) fkValues(t int, q, v map[string]float64) (*factor.Values, error) {
	fk, err := b.robot.ForwardKinematics(robot.KinematicsInput{JointAngles: q, JointVelocities: v})
	if err != nil {
		return nil, err
	}
	vals, err := b.ZeroValues(t, nil)
	if err != nil {
		return nil, err
	}
	for _, l := range b.robot.Links() {
		vals.InsertPose(PoseKey(l.ID(), t), fk.Poses[l.Name()])
		vals.InsertVector(TwistKey(l.ID(), t), fk.Twists[l.Name()])
	}
	for _, j := range b.robot.Joints() {
		vals.InsertDouble(AngleKey(j.ID(), t), q[j.Name()])
		vals.InsertDouble(VelKey(j.ID(), t), v[j.Name()])
	}
	return vals, nil
}

// knownStatePriors pins the kinematic state that a linear dynamics solve
// treats as given.
func (b *Builder) knownStatePriors(g *factor.Graph, vals *factor.Values, t int) error {
	for _, l := range b.robot.Links() {
		pose, err := vals.Pose(PoseKey(l.ID(), t))
		if err != nil {
			return err
		}
		tw, err := vals.Vector(TwistKey(l.ID(), t))
		if err != nil {
			return err
		}
		g.Add(factor.NewPosePrior(PoseKey(l.ID(), t), pose, b.settings.PriorPoseModel))
		g.Add(factor.NewVectorPrior(TwistKey(l.ID(), t), tw, b.settings.PriorVecModel))
	}
	for _, j := range b.robot.Joints() {
		q, err := vals.Double(AngleKey(j.ID(), t))
		if err != nil {
			return err
		}
		v, err := vals.Double(VelKey(j.ID(), t))
		if err != nil {
			return err
		}
		g.Add(factor.NewDoublePrior(AngleKey(j.ID(), t), q, b.settings.PriorModel))
		g.Add(factor.NewDoublePrior(VelKey(j.ID(), t), v, b.settings.PriorModel))
	}
	return nil
}

// linearSolve assembles the acceleration-level graph at a known kinematic
// state, adds the given input priors, and solves the resulting linear system
// in one shot.
func (b *Builder) linearSolve(t int, vals *factor.Values, inputs map[string]float64, key func(joint, t int) factor.Key) (*factor.Values, error) {
	g, err := b.AFactors(t, nil)
	if err != nil {
		return nil, err
	}
	dyn, err := b.DynamicsFactors(t, nil)
	if err != nil {
		return nil, err
	}
	g.AddGraph(dyn)
	if err := b.knownStatePriors(g, vals, t); err != nil {
		return nil, err
	}
	if err := b.jointPriors(g, t, inputs, key); err != nil {
		return nil, err
	}

	lin, err := g.Linearize(vals)
	if err != nil {
		return nil, err
	}
	delta, err := lin.Solve()
	if err != nil {
		return nil, err
	}
	return vals.Retract(delta), nil
}

// LinearSolveFD computes joint accelerations from angles, velocities, and
// torques with a single linear solve. The dynamics are linear in the
// unknowns once the kinematic state is fixed, so no iteration is needed.
func (b *Builder) LinearSolveFD(t int, q, v, torques map[string]float64) (*factor.Values, error) {
	vals, err := b.fkValues(t, q, v)
	if err != nil {
		return nil, err
	}
	return b.linearSolve(t, vals, torques, TorqueKey)
}

// LinearSolveID computes joint torques from angles, velocities, and
// accelerations with a single linear solve.
func (b *Builder) LinearSolveID(t int, q, v, a map[string]float64) (*factor.Values, error) {
	vals, err := b.fkValues(t, q, v)
	if err != nil {
		return nil, err
	}
	return b.linearSolve(t, vals, a, AccelKey)
}
