package dynamics

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"go.mechdyn.dev/dyngraph/factor"
	"go.mechdyn.dev/dyngraph/robot"
)

// ZeroValues returns an assignment for step t with every link at its rest
// pose and every other variable zero. It covers exactly the variables the
// single-step graph uses, contact wrenches included.
func (b *Builder) ZeroValues(t int, contacts []ContactPoint) (*factor.Values, error) {
	rc, err := b.resolveContacts(contacts)
	if err != nil {
		return nil, err
	}
	v := factor.NewValues()
	for _, l := range b.robot.Links() {
		v.InsertPose(PoseKey(l.ID(), t), l.RestPose())
		v.InsertVector(TwistKey(l.ID(), t), make([]float64, 6))
		v.InsertVector(TwistAccelKey(l.ID(), t), make([]float64, 6))
		for _, k := range b.wrenchKeys(l, t, rc) {
			v.InsertVector(k, make([]float64, 6))
		}
	}
	for _, j := range b.robot.Joints() {
		v.InsertDouble(AngleKey(j.ID(), t), 0)
		v.InsertDouble(VelKey(j.ID(), t), 0)
		v.InsertDouble(AccelKey(j.ID(), t), 0)
		v.InsertDouble(TorqueKey(j.ID(), t), 0)
	}
	return v, nil
}

// ZeroValuesTrajectory returns zero assignments for steps 0..numSteps. When
// sigma > 0 the scalar joint variables are perturbed with Gaussian noise,
// which breaks symmetry for optimizers starting at singular configurations.
// Phase duration variables are included when phaseSteps is non-empty, seeded
// with dtEstimate.
func (b *Builder) ZeroValuesTrajectory(
	numSteps int,
	contacts []ContactPoint,
	sigma float64,
	seed uint64,
	phaseSteps []int,
	dtEstimate float64,
) (*factor.Values, error) {
	sample := func() float64 { return 0 }
	if sigma > 0 {
		dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewSource(seed)}
		sample = dist.Rand
	}

	v := factor.NewValues()
	for t := 0; t <= numSteps; t++ {
		step, err := b.ZeroValues(t, contacts)
		if err != nil {
			return nil, err
		}
		v.Merge(step)
		for _, j := range b.robot.Joints() {
			v.InsertDouble(AngleKey(j.ID(), t), sample())
			v.InsertDouble(VelKey(j.ID(), t), sample())
			v.InsertDouble(AccelKey(j.ID(), t), sample())
			v.InsertDouble(TorqueKey(j.ID(), t), sample())
		}
	}
	for p := range phaseSteps {
		v.InsertDouble(PhaseKey(p), dtEstimate)
	}
	return v, nil
}

// jointScalars extracts one scalar per joint from an assignment.
func jointScalars(r *robot.Robot, v *factor.Values, t int, key func(joint, t int) factor.Key) (map[string]float64, error) {
	out := make(map[string]float64, r.NumJoints())
	for _, j := range r.Joints() {
		x, err := v.Double(key(j.ID(), t))
		if err != nil {
			return nil, err
		}
		out[j.Name()] = x
	}
	return out, nil
}

// JointAngles extracts all joint angles at step t, keyed by joint name.
func JointAngles(r *robot.Robot, v *factor.Values, t int) (map[string]float64, error) {
	return jointScalars(r, v, t, AngleKey)
}

// JointVelocities extracts all joint velocities at step t.
func JointVelocities(r *robot.Robot, v *factor.Values, t int) (map[string]float64, error) {
	return jointScalars(r, v, t, VelKey)
}

// JointAccelerations extracts all joint accelerations at step t.
func JointAccelerations(r *robot.Robot, v *factor.Values, t int) (map[string]float64, error) {
	return jointScalars(r, v, t, AccelKey)
}

// JointTorques extracts all joint torques at step t.
func JointTorques(r *robot.Robot, v *factor.Values, t int) (map[string]float64, error) {
	return jointScalars(r, v, t, TorqueKey)
}
