// Package dynamics builds factor graphs for articulated rigid-body dynamics:
// kinematics chains, Newton-Euler wrench balance, actuation, contacts, and
// time collocation. Solving the graphs yields forward, inverse, or hybrid
// dynamics depending only on which priors are added.
package dynamics

import (
	"fmt"

	"go.mechdyn.dev/dyngraph/factor"
)

// Variable role bytes. A variable key is (role, id, sub, t); links and joints
// use their dense ids, wrenches carry both the link and the joint id.
const (
	RolePose        byte = 'p'
	RoleTwist       byte = 'V'
	RoleTwistAccel  byte = 'A'
	RoleAngle       byte = 'q'
	RoleVel         byte = 'v'
	RoleAccel       byte = 'a'
	RoleTorque      byte = 'T'
	RoleWrench      byte = 'F'
	RoleContact     byte = 'C'
	RolePhaseLength byte = 'd'
)

// PoseKey is the world pose of a link's COM frame at step t.
func PoseKey(link, t int) factor.Key { return factor.NewKey(RolePose, link, 0, t) }

// TwistKey is a link's body twist at step t.
func TwistKey(link, t int) factor.Key { return factor.NewKey(RoleTwist, link, 0, t) }

// TwistAccelKey is a link's body twist acceleration at step t.
func TwistAccelKey(link, t int) factor.Key { return factor.NewKey(RoleTwistAccel, link, 0, t) }

// AngleKey is a joint coordinate at step t.
func AngleKey(joint, t int) factor.Key { return factor.NewKey(RoleAngle, joint, 0, t) }

// VelKey is a joint velocity at step t.
func VelKey(joint, t int) factor.Key { return factor.NewKey(RoleVel, joint, 0, t) }

// AccelKey is a joint acceleration at step t.
func AccelKey(joint, t int) factor.Key { return factor.NewKey(RoleAccel, joint, 0, t) }

// TorqueKey is a joint actuation torque or force at step t.
func TorqueKey(joint, t int) factor.Key { return factor.NewKey(RoleTorque, joint, 0, t) }

// WrenchKey is the wrench a joint exerts on a link, in the link's COM frame.
func WrenchKey(link, joint, t int) factor.Key {
	return factor.NewKey(RoleWrench, link, joint, t)
}

// ContactWrenchKey is the reaction wrench at a link's contact point.
func ContactWrenchKey(link, t int) factor.Key { return factor.NewKey(RoleContact, link, 0, t) }

// PhaseKey is the shared step duration of one trajectory phase.
func PhaseKey(phase int) factor.Key { return factor.NewKey(RolePhaseLength, phase, 0, 0) }

// DescribeKey renders a key for graph exports and debugging.
func DescribeKey(k factor.Key) string {
	switch k.Role {
	case RoleWrench:
		return fmt.Sprintf("F[%d,%d]@%d", k.ID, k.Sub, k.T)
	case RolePhaseLength:
		return fmt.Sprintf("dt[%d]", k.ID)
	default:
		return fmt.Sprintf("%c[%d]@%d", k.Role, k.ID, k.T)
	}
}
