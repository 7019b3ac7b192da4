// Package robot models one articulated robot as an arena of rigid links and
// single-degree-of-freedom joints, assembled from an already-parsed
// description. The Robot owns every Link and Joint; all cross-references
// between them are integer ids resolved through the Robot, so there are no
// pointer cycles and entities stay immutable after assembly.
package robot

import (
	"gonum.org/v1/gonum/mat"

	"go.mechdyn.dev/dyngraph/spatialmath"
)

// Link is one rigid body. All time-varying quantities (pose, twist,
// acceleration) live in solved variable assignments, never on the Link.
type Link struct {
	id       int
	name     string
	mass     float64
	inertia  *mat.Dense // 3x3 rotational inertia at the center of mass
	restPose spatialmath.Pose
	fixed    bool
	joints   []int
}

// ID returns the link's dense integer id, stable across a robot instance.
func (l *Link) ID() int { return l.id }

// Name returns the link name.
func (l *Link) Name() string { return l.name }

// Mass returns the link mass.
func (l *Link) Mass() float64 { return l.mass }

// Fixed reports whether the link is anchored (zero twist and acceleration).
func (l *Link) Fixed() bool { return l.fixed }

// RestPose returns the world pose of the link's center-of-mass frame at the
// rest (all joint angles zero) configuration.
func (l *Link) RestPose() spatialmath.Pose { return l.restPose }

// Inertia returns a copy of the 3x3 rotational inertia about the COM.
func (l *Link) Inertia() *mat.Dense {
	out := mat.NewDense(3, 3, nil)
	out.Copy(l.inertia)
	return out
}

// SpatialInertia returns the 6x6 spatial inertia
//
//	[ I  0  ]
//	[ 0  mE ]
//
// in the COM frame, angular block first.
func (l *Link) SpatialInertia() *mat.Dense {
	out := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, l.inertia.At(i, j))
		}
		out.Set(i+3, i+3, l.mass)
	}
	return out
}

// Joints returns the ids of all joints incident to this link, in joint
// construction order.
func (l *Link) Joints() []int {
	out := make([]int, len(l.joints))
	copy(out, l.joints)
	return out
}

// NumJoints returns the link degree.
func (l *Link) NumJoints() int { return len(l.joints) }
