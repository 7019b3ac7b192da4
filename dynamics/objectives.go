package dynamics

import (
	"go.mechdyn.dev/dyngraph/factor"
	"go.mechdyn.dev/dyngraph/spatialmath"
)

// LinkObjectives accumulates soft goals on one link's variables at one step.
// Methods chain and append directly to the graph given at construction.
type LinkObjectives struct {
	graph *factor.Graph
	link  int
	t     int
}

// NewLinkObjectives starts a chain of objectives on a link at step t.
func NewLinkObjectives(g *factor.Graph, link, t int) *LinkObjectives {
	return &LinkObjectives{graph: g, link: link, t: t}
}

// Pose adds a pose goal.
func (o *LinkObjectives) Pose(p spatialmath.Pose, m factor.Model) *LinkObjectives {
	o.graph.Add(factor.NewPosePrior(PoseKey(o.link, o.t), p, m))
	return o
}

// Twist adds a twist goal.
func (o *LinkObjectives) Twist(tw []float64, m factor.Model) *LinkObjectives {
	o.graph.Add(factor.NewVectorPrior(TwistKey(o.link, o.t), tw, m))
	return o
}

// TwistAccel adds a twist acceleration goal.
func (o *LinkObjectives) TwistAccel(acc []float64, m factor.Model) *LinkObjectives {
	o.graph.Add(factor.NewVectorPrior(TwistAccelKey(o.link, o.t), acc, m))
	return o
}

// JointObjectives accumulates soft goals on one joint's scalars at one step.
type JointObjectives struct {
	graph *factor.Graph
	joint int
	t     int
}

// NewJointObjectives starts a chain of objectives on a joint at step t.
func NewJointObjectives(g *factor.Graph, joint, t int) *JointObjectives {
	return &JointObjectives{graph: g, joint: joint, t: t}
}

// Angle adds an angle goal.
func (o *JointObjectives) Angle(q float64, m factor.Model) *JointObjectives {
	o.graph.Add(factor.NewDoublePrior(AngleKey(o.joint, o.t), q, m))
	return o
}

// Velocity adds a velocity goal.
func (o *JointObjectives) Velocity(v float64, m factor.Model) *JointObjectives {
	o.graph.Add(factor.NewDoublePrior(VelKey(o.joint, o.t), v, m))
	return o
}

// Acceleration adds an acceleration goal.
func (o *JointObjectives) Acceleration(a float64, m factor.Model) *JointObjectives {
	o.graph.Add(factor.NewDoublePrior(AccelKey(o.joint, o.t), a, m))
	return o
}

// Torque adds a torque goal.
func (o *JointObjectives) Torque(tau float64, m factor.Model) *JointObjectives {
	o.graph.Add(factor.NewDoublePrior(TorqueKey(o.joint, o.t), tau, m))
	return o
}

// StandstillObjectives pins every joint's velocity and acceleration to zero
// at step t, the usual trajectory boundary condition.
func (b *Builder) StandstillObjectives(t int, m factor.Model) *factor.Graph {
	g := factor.NewGraph()
	for _, j := range b.robot.Joints() {
		NewJointObjectives(g, j.ID(), t).Velocity(0, m).Acceleration(0, m)
	}
	return g
}

// MinTorqueFactors pulls every actuated joint's torque toward zero at steps
// 0..numSteps, the effort-minimizing objective.
func (b *Builder) MinTorqueFactors(numSteps int, m factor.Model) *factor.Graph {
	g := factor.NewGraph()
	for t := 0; t <= numSteps; t++ {
		for _, j := range b.robot.Joints() {
			if !j.Actuated() {
				continue
			}
			g.Add(factor.NewDoublePrior(TorqueKey(j.ID(), t), 0, m))
		}
	}
	return g
}

// PhaseDurationPriors pins each phase duration variable to an estimate,
// keeping the time allocation of a multi-phase problem near a target.
func PhaseDurationPriors(numPhases int, dt float64, m factor.Model) *factor.Graph {
	g := factor.NewGraph()
	for p := 0; p < numPhases; p++ {
		g.Add(factor.NewDoublePrior(PhaseKey(p), dt, m))
	}
	return g
}
