// Package ik solves inverse kinematics two ways: over the pose-level factor
// graph with Levenberg-Marquardt, and with a gradient-based nlopt solver on
// the joint coordinates directly.
package ik

import (
	"github.com/pkg/errors"

	"go.mechdyn.dev/dyngraph/dynamics"
	"go.mechdyn.dev/dyngraph/factor"
	"go.mechdyn.dev/dyngraph/robot"
	"go.mechdyn.dev/dyngraph/solver"
	"go.mechdyn.dev/dyngraph/spatialmath"
)

// GraphOptions configures a factor-graph IK solve.
type GraphOptions struct {
	// Seed holds initial joint angles by name; missing joints start at zero.
	Seed map[string]float64
	// GoalModel weights the pose goal. Nil means Isotropic(6, 1e-3).
	GoalModel factor.Model
	Solver    solver.Options
}

// SolveGraph finds joint angles putting the named link at the goal pose. The
// kinematic chain is enforced exactly and the goal enters as a tight soft
// prior, so an unreachable goal yields the closest reachable pose rather
// than an error.
func SolveGraph(b *dynamics.Builder, linkName string, goal spatialmath.Pose, opts GraphOptions) (map[string]float64, error) {
	l, err := b.Robot().Link(linkName)
	if err != nil {
		return nil, err
	}

	g, err := b.QFactors(0, nil)
	if err != nil {
		return nil, err
	}
	g.AddGraph(b.JointLimitFactors(0))
	goalModel := opts.GoalModel
	if goalModel == nil {
		goalModel = factor.Isotropic(6, 1e-3)
	}
	g.Add(factor.NewPosePrior(dynamics.PoseKey(l.ID(), 0), goal, goalModel))

	seed := make(map[string]float64, b.Robot().NumJoints())
	for _, j := range b.Robot().Joints() {
		seed[j.Name()] = opts.Seed[j.Name()]
	}
	initial, err := b.ZeroValues(0, nil)
	if err != nil {
		return nil, err
	}
	fk, err := b.Robot().ForwardKinematics(robot.KinematicsInput{JointAngles: seed})
	if err != nil {
		return nil, err
	}
	for _, lk := range b.Robot().Links() {
		initial.InsertPose(dynamics.PoseKey(lk.ID(), 0), fk.Poses[lk.Name()])
	}
	for _, j := range b.Robot().Joints() {
		initial.InsertDouble(dynamics.AngleKey(j.ID(), 0), seed[j.Name()])
	}

	sol, err := solver.LevenbergMarquardt(g, initial, opts.Solver)
	if err != nil {
		return nil, errors.Wrap(err, "graph ik")
	}
	return dynamics.JointAngles(b.Robot(), sol, 0)
}
