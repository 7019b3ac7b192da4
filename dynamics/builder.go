package dynamics

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.mechdyn.dev/dyngraph/factor"
	"go.mechdyn.dev/dyngraph/robot"
)

// Builder assembles dynamics factor graphs for one robot under a fixed
// gravity vector. All graph methods are pure; the builder holds no solve
// state.
type Builder struct {
	robot    *robot.Robot
	gravity  r3.Vector
	planar   *PlanarAxis
	settings Settings
}

// NewBuilder returns a graph builder for the robot.
func NewBuilder(r *robot.Robot, gravity r3.Vector, s Settings) *Builder {
	return &Builder{robot: r, gravity: gravity, settings: s}
}

// WithPlanarAxis restricts the robot to the plane normal to the axis; every
// joint wrench gets a planarity factor.
func (b *Builder) WithPlanarAxis(axis PlanarAxis) *Builder {
	b.planar = &axis
	return b
}

// Robot returns the robot the builder was made for.
func (b *Builder) Robot() *robot.Robot { return b.robot }

// Gravity returns the builder's gravity vector.
func (b *Builder) Gravity() r3.Vector { return b.gravity }

// upAxis is the height direction for contact factors, opposing gravity.
func (b *Builder) upAxis() r3.Vector {
	n := b.gravity.Norm()
	if n == 0 {
		return r3.Vector{Z: 1}
	}
	return b.gravity.Mul(-1 / n)
}

type resolvedContact struct {
	link   *robot.Link
	point  r3.Vector
	height float64
}

func (b *Builder) resolveContacts(contacts []ContactPoint) ([]resolvedContact, error) {
	out := make([]resolvedContact, 0, len(contacts))
	for _, c := range contacts {
		l, err := b.robot.Link(c.Link)
		if err != nil {
			return nil, errors.Wrap(err, "contact point")
		}
		out = append(out, resolvedContact{link: l, point: c.Point, height: c.Height})
	}
	return out, nil
}

// QFactors returns the pose-level kinematics graph at step t: priors for
// fixed links, a pose chain factor per joint, and ground height factors for
// the contact points.
func (b *Builder) QFactors(t int, contacts []ContactPoint) (*factor.Graph, error) {
	rc, err := b.resolveContacts(contacts)
	if err != nil {
		return nil, err
	}
	g := factor.NewGraph()
	for _, l := range b.robot.Links() {
		if l.Fixed() {
			g.Add(factor.NewPosePrior(PoseKey(l.ID(), t), l.RestPose(), b.settings.PriorPoseModel))
		}
	}
	for _, j := range b.robot.Joints() {
		g.Add(NewPoseFactor(j, t, b.settings.PoseModel))
	}
	for _, c := range rc {
		g.Add(NewContactPoseFactor(c.link.ID(), t, c.point, b.upAxis(), c.height, b.settings.ContactPointModel))
	}
	return g, nil
}

// VFactors returns the twist-level kinematics graph at step t.
func (b *Builder) VFactors(t int, contacts []ContactPoint) (*factor.Graph, error) {
	rc, err := b.resolveContacts(contacts)
	if err != nil {
		return nil, err
	}
	g := factor.NewGraph()
	for _, l := range b.robot.Links() {
		if l.Fixed() {
			g.Add(factor.NewVectorPrior(TwistKey(l.ID(), t), make([]float64, 6), b.settings.PriorVecModel))
		}
	}
	for _, j := range b.robot.Joints() {
		g.Add(NewTwistFactor(j, t, b.settings.TwistModel))
	}
	for _, c := range rc {
		g.Add(NewContactTwistFactor(c.link.ID(), t, c.point, b.settings.ContactModel))
	}
	return g, nil
}

// AFactors returns the acceleration-level kinematics graph at step t.
func (b *Builder) AFactors(t int, contacts []ContactPoint) (*factor.Graph, error) {
	rc, err := b.resolveContacts(contacts)
	if err != nil {
		return nil, err
	}
	g := factor.NewGraph()
	for _, l := range b.robot.Links() {
		if l.Fixed() {
			g.Add(factor.NewVectorPrior(TwistAccelKey(l.ID(), t), make([]float64, 6), b.settings.PriorVecModel))
		}
	}
	for _, j := range b.robot.Joints() {
		g.Add(NewTwistAccelFactor(j, t, b.settings.AccelModel))
	}
	for _, c := range rc {
		g.Add(NewContactAccelFactor(c.link.ID(), t, c.point, b.settings.ContactModel))
	}
	return g, nil
}

// wrenchKeys lists the wrenches acting on a link at step t: one per incident
// joint plus the contact wrench if the link touches ground.
func (b *Builder) wrenchKeys(l *robot.Link, t int, contacts []resolvedContact) []factor.Key {
	var keys []factor.Key
	for _, jid := range l.Joints() {
		keys = append(keys, WrenchKey(l.ID(), jid, t))
	}
	for _, c := range contacts {
		if c.link.ID() == l.ID() {
			keys = append(keys, ContactWrenchKey(l.ID(), t))
		}
	}
	return keys
}

// DynamicsFactors returns the Newton-Euler graph at step t: wrench balance
// per moving link, reaction and actuation factors per joint, and zero-moment
// factors per contact point.
func (b *Builder) DynamicsFactors(t int, contacts []ContactPoint) (*factor.Graph, error) {
	rc, err := b.resolveContacts(contacts)
	if err != nil {
		return nil, err
	}
	g := factor.NewGraph()
	for _, l := range b.robot.Links() {
		if l.Fixed() {
			continue
		}
		wf, err := NewWrenchFactor(l, b.wrenchKeys(l, t, rc), t, b.gravity, b.settings.WrenchModel)
		if err != nil {
			return nil, err
		}
		g.Add(wf)
	}
	for _, j := range b.robot.Joints() {
		g.Add(NewWrenchEquivalenceFactor(j, t, b.settings.WrenchModel))
		g.Add(NewTorqueFactor(j, t, b.settings.TorqueModel))
		if b.planar != nil {
			g.Add(NewWrenchPlanarFactor(j, *b.planar, t, b.settings.PlanarModel))
		}
	}
	for _, c := range rc {
		g.Add(NewContactMomentFactor(c.link.ID(), t, c.point, b.settings.ContactModel))
	}
	return g, nil
}

// DynamicsGraph returns the full single-step graph: kinematics chains at all
// three orders plus the wrench balance.
func (b *Builder) DynamicsGraph(t int, contacts []ContactPoint) (*factor.Graph, error) {
	g := factor.NewGraph()
	for _, build := range []func(int, []ContactPoint) (*factor.Graph, error){
		b.QFactors, b.VFactors, b.AFactors, b.DynamicsFactors,
	} {
		sub, err := build(t, contacts)
		if err != nil {
			return nil, err
		}
		g.AddGraph(sub)
	}
	return g, nil
}

// CollocationFactors ties steps t and t+1 together with a fixed step
// duration, one angle and one velocity equation per joint.
func (b *Builder) CollocationFactors(t int, dt float64, scheme CollocationScheme) (*factor.Graph, error) {
	g := factor.NewGraph()
	for _, j := range b.robot.Joints() {
		id := j.ID()
		switch scheme {
		case CollocationEuler:
			g.Add(factor.NewScalarAffine(
				[]factor.Key{AngleKey(id, t), VelKey(id, t), AngleKey(id, t+1)},
				[]float64{1, dt, -1}, 0, b.settings.CollocationModel))
			g.Add(factor.NewScalarAffine(
				[]factor.Key{VelKey(id, t), AccelKey(id, t), VelKey(id, t+1)},
				[]float64{1, dt, -1}, 0, b.settings.CollocationModel))
		case CollocationTrapezoidal:
			g.Add(factor.NewScalarAffine(
				[]factor.Key{AngleKey(id, t), VelKey(id, t), VelKey(id, t+1), AngleKey(id, t+1)},
				[]float64{1, dt / 2, dt / 2, -1}, 0, b.settings.CollocationModel))
			g.Add(factor.NewScalarAffine(
				[]factor.Key{VelKey(id, t), AccelKey(id, t), AccelKey(id, t+1), VelKey(id, t+1)},
				[]float64{1, dt / 2, dt / 2, -1}, 0, b.settings.CollocationModel))
		default:
			return nil, NewUnsupportedCollocationError(scheme)
		}
	}
	return g, nil
}

// MultiPhaseCollocationFactors ties steps t and t+1 together with the shared
// duration variable of the given phase.
func (b *Builder) MultiPhaseCollocationFactors(t, phase int, scheme CollocationScheme) (*factor.Graph, error) {
	g := factor.NewGraph()
	pk := PhaseKey(phase)
	for _, j := range b.robot.Joints() {
		id := j.ID()
		switch scheme {
		case CollocationEuler:
			g.Add(NewEulerPhaseFactor(AngleKey(id, t), AngleKey(id, t+1), VelKey(id, t), pk, b.settings.CollocationModel))
			g.Add(NewEulerPhaseFactor(VelKey(id, t), VelKey(id, t+1), AccelKey(id, t), pk, b.settings.CollocationModel))
		case CollocationTrapezoidal:
			g.Add(NewTrapezoidalPhaseFactor(AngleKey(id, t), AngleKey(id, t+1), VelKey(id, t), VelKey(id, t+1), pk, b.settings.CollocationModel))
			g.Add(NewTrapezoidalPhaseFactor(VelKey(id, t), VelKey(id, t+1), AccelKey(id, t), AccelKey(id, t+1), pk, b.settings.CollocationModel))
		default:
			return nil, NewUnsupportedCollocationError(scheme)
		}
	}
	return g, nil
}

// TrajectoryGraph chains numSteps+1 single-step graphs with fixed-step
// collocation.
func (b *Builder) TrajectoryGraph(numSteps int, dt float64, scheme CollocationScheme, contacts []ContactPoint) (*factor.Graph, error) {
	g := factor.NewGraph()
	for t := 0; t <= numSteps; t++ {
		step, err := b.DynamicsGraph(t, contacts)
		if err != nil {
			return nil, err
		}
		g.AddGraph(step)
	}
	for t := 0; t < numSteps; t++ {
		col, err := b.CollocationFactors(t, dt, scheme)
		if err != nil {
			return nil, err
		}
		g.AddGraph(col)
	}
	return g, nil
}

// MultiPhaseTrajectoryGraph chains dynamics graphs across phases with
// per-phase duration variables. Each phase has its own contact set and step
// count; transitionGraphs holds the boundary step graphs (built by the
// caller with the union of adjacent contact sets), one per interior
// boundary.
func (b *Builder) MultiPhaseTrajectoryGraph(
	phaseContacts [][]ContactPoint,
	phaseSteps []int,
	transitionGraphs []*factor.Graph,
	scheme CollocationScheme,
) (*factor.Graph, error) {
	if len(phaseContacts) != len(phaseSteps) {
		return nil, errors.Errorf("got %d contact sets for %d phases", len(phaseContacts), len(phaseSteps))
	}
	if len(transitionGraphs) != len(phaseSteps)-1 {
		return nil, errors.Errorf("got %d transition graphs for %d phases", len(transitionGraphs), len(phaseSteps))
	}

	g, err := b.DynamicsGraph(0, phaseContacts[0])
	if err != nil {
		return nil, err
	}
	t := 0
	for p, n := range phaseSteps {
		for i := 0; i < n; i++ {
			col, err := b.MultiPhaseCollocationFactors(t, p, scheme)
			if err != nil {
				return nil, err
			}
			g.AddGraph(col)
			t++
			if i == n-1 && p < len(phaseSteps)-1 {
				g.AddGraph(transitionGraphs[p])
			} else {
				step, err := b.DynamicsGraph(t, phaseContacts[p])
				if err != nil {
					return nil, err
				}
				g.AddGraph(step)
			}
		}
	}
	return g, nil
}

// jointPriors adds a scalar prior per joint from a name-keyed map.
func (b *Builder) jointPriors(g *factor.Graph, t int, values map[string]float64, key func(joint, t int) factor.Key) error {
	for _, j := range b.robot.Joints() {
		x, ok := values[j.Name()]
		if !ok {
			return errors.Errorf("no value for joint %q", j.Name())
		}
		g.Add(factor.NewDoublePrior(key(j.ID(), t), x, b.settings.PriorModel))
	}
	return nil
}

// ForwardDynamicsPriors pins joint angles, velocities, and torques at step t,
// leaving accelerations to be solved for.
func (b *Builder) ForwardDynamicsPriors(t int, q, v, torques map[string]float64) (*factor.Graph, error) {
	g := factor.NewGraph()
	if err := b.jointPriors(g, t, q, AngleKey); err != nil {
		return nil, err
	}
	if err := b.jointPriors(g, t, v, VelKey); err != nil {
		return nil, err
	}
	if err := b.jointPriors(g, t, torques, TorqueKey); err != nil {
		return nil, err
	}
	return g, nil
}

// InverseDynamicsPriors pins joint angles, velocities, and accelerations at
// step t, leaving torques to be solved for.
func (b *Builder) InverseDynamicsPriors(t int, q, v, a map[string]float64) (*factor.Graph, error) {
	g := factor.NewGraph()
	if err := b.jointPriors(g, t, q, AngleKey); err != nil {
		return nil, err
	}
	if err := b.jointPriors(g, t, v, VelKey); err != nil {
		return nil, err
	}
	if err := b.jointPriors(g, t, a, AccelKey); err != nil {
		return nil, err
	}
	return g, nil
}

// TrajectoryFDPriors pins the initial state and the torque inputs of every
// step, the forward-simulation boundary conditions.
func (b *Builder) TrajectoryFDPriors(numSteps int, q0, v0 map[string]float64, torques []map[string]float64) (*factor.Graph, error) {
	if len(torques) != numSteps+1 {
		return nil, errors.Errorf("got %d torque maps for %d steps", len(torques), numSteps+1)
	}
	g := factor.NewGraph()
	if err := b.jointPriors(g, 0, q0, AngleKey); err != nil {
		return nil, err
	}
	if err := b.jointPriors(g, 0, v0, VelKey); err != nil {
		return nil, err
	}
	for t := 0; t <= numSteps; t++ {
		if err := b.jointPriors(g, t, torques[t], TorqueKey); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// JointLimitFactors returns soft limit factors at step t for every joint
// with a configured position, velocity, or effort limit.
func (b *Builder) JointLimitFactors(t int) *factor.Graph {
	g := factor.NewGraph()
	for _, j := range b.robot.Joints() {
		lim := j.Limit()
		if lim.Min != 0 || lim.Max != 0 {
			g.Add(NewJointLimitFactor(AngleKey(j.ID(), t), lim.Min, lim.Max, lim.Threshold, b.settings.LimitModel))
		}
		if vl := j.VelocityLimit(); vl > 0 {
			g.Add(NewJointLimitFactor(VelKey(j.ID(), t), -vl, vl, 0, b.settings.LimitModel))
		}
		if el := j.EffortLimit(); el > 0 {
			g.Add(NewJointLimitFactor(TorqueKey(j.ID(), t), -el, el, 0, b.settings.LimitModel))
		}
	}
	return g
}
