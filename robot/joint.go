package robot

import (
	"go.mechdyn.dev/dyngraph/spatialmath"
)

// JointType enumerates the supported single-degree-of-freedom joint types.
type JointType uint8

// Supported joint types.
const (
	Revolute JointType = iota
	Prismatic
)

func (t JointType) String() string {
	switch t {
	case Revolute:
		return "revolute"
	case Prismatic:
		return "prismatic"
	}
	return "unknown"
}

// Limit bounds a joint coordinate. Threshold is the margin at which a
// limit objective starts to push back.
type Limit struct {
	Min       float64
	Max       float64
	Threshold float64
}

// Joint is one single-degree-of-freedom connection between two links. The
// screw axis is expressed in the child link's COM frame and fully determines
// the joint motion together with the rest transform.
type Joint struct {
	id     int
	name   string
	jtype  JointType
	parent int
	child  int

	// screwAxis is the unit twist of joint motion in the child COM frame,
	// angular components first.
	screwAxis []float64
	// restCTP is child_T_parent at zero joint coordinate.
	restCTP spatialmath.Pose

	loop     bool
	actuated bool

	spring  float64
	damping float64

	limit    Limit
	velLimit float64
	effLimit float64
}

// ID returns the joint's dense integer id.
func (j *Joint) ID() int { return j.id }

// Name returns the joint name.
func (j *Joint) Name() string { return j.name }

// Type returns the joint type.
func (j *Joint) Type() JointType { return j.jtype }

// Parent returns the parent link id.
func (j *Joint) Parent() int { return j.parent }

// Child returns the child link id.
func (j *Joint) Child() int { return j.child }

// Loop reports whether this joint closes a kinematic loop. Loop joints are
// skipped during tree traversal but still contribute dynamics constraints.
func (j *Joint) Loop() bool { return j.loop }

// Actuated reports whether the joint carries an actuator torque variable.
func (j *Joint) Actuated() bool { return j.actuated }

// SpringCoefficient returns the torsional spring constant.
func (j *Joint) SpringCoefficient() float64 { return j.spring }

// DampingCoefficient returns the viscous damping constant.
func (j *Joint) DampingCoefficient() float64 { return j.damping }

// Limit returns the position limit of the joint coordinate.
func (j *Joint) Limit() Limit { return j.limit }

// VelocityLimit returns the joint velocity limit magnitude.
func (j *Joint) VelocityLimit() float64 { return j.velLimit }

// EffortLimit returns the actuator torque or force limit magnitude.
func (j *Joint) EffortLimit() float64 { return j.effLimit }

// ScrewAxis returns a copy of the 6-vector screw axis in the child COM
// frame, angular components first.
func (j *Joint) ScrewAxis() []float64 {
	out := make([]float64, 6)
	copy(out, j.screwAxis)
	return out
}

// RestTransform returns child_T_parent at zero joint coordinate.
func (j *Joint) RestTransform() spatialmath.Pose { return j.restCTP }

// ChildFromParent returns child_T_parent at coordinate q:
//
//	cTp(q) = Exp(-S q) * restCTP
func (j *Joint) ChildFromParent(q float64) spatialmath.Pose {
	xi := make([]float64, 6)
	for i, s := range j.screwAxis {
		xi[i] = -s * q
	}
	return spatialmath.Exp(xi).Compose(j.restCTP)
}

// ParentFromChild returns parent_T_child at coordinate q.
func (j *Joint) ParentFromChild(q float64) spatialmath.Pose {
	return j.ChildFromParent(q).Invert()
}

// otherLink returns the link on the far side of the joint from the given
// link id.
func (j *Joint) otherLink(id int) int {
	if id == j.parent {
		return j.child
	}
	return j.parent
}
