package ik

import (
	"context"
	"math"

	"github.com/edaniels/golog"
	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"go.mechdyn.dev/dyngraph/robot"
	"go.mechdyn.dev/dyngraph/spatialmath"
)

// NloptIK solves for the joint angles placing one link at a goal pose using
// SLSQP over the tree joints. The objective is the squared norm of the pose
// log error and the gradient is exact, computed from the body Jacobian.
type NloptIK struct {
	robot    *robot.Robot
	linkName string
	joints   []string
	lower    []float64
	upper    []float64
	epsilon  float64
	opt      *nlopt.NLopt
	logger   golog.Logger

	goal spatialmath.Pose
}

// NewNloptIK returns a solver for the named link. The decision variables are
// all tree joints, bounded by their configured position limits.
func NewNloptIK(r *robot.Robot, linkName string, logger golog.Logger) (*NloptIK, error) {
	if _, err := r.Link(linkName); err != nil {
		return nil, err
	}
	ik := &NloptIK{
		robot:    r,
		linkName: linkName,
		epsilon:  1e-6,
		logger:   logger,
	}
	for _, j := range r.TreeJoints() {
		ik.joints = append(ik.joints, j.Name())
		lim := j.Limit()
		if lim.Min == 0 && lim.Max == 0 {
			ik.lower = append(ik.lower, math.Inf(-1))
			ik.upper = append(ik.upper, math.Inf(1))
		} else {
			ik.lower = append(ik.lower, lim.Min)
			ik.upper = append(ik.upper, lim.Max)
		}
	}

	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, uint(len(ik.joints)))
	if err != nil {
		return nil, errors.Wrap(err, "nlopt creation")
	}
	ik.opt = opt

	floatEpsilon := math.Nextafter(1, 2) - 1
	err = multierr.Combine(
		opt.SetFtolAbs(floatEpsilon),
		opt.SetFtolRel(floatEpsilon),
		opt.SetLowerBounds(ik.lower),
		opt.SetUpperBounds(ik.upper),
		opt.SetMinObjective(ik.objective),
		opt.SetStopVal(ik.epsilon),
		opt.SetXtolAbs1(floatEpsilon),
		opt.SetXtolRel(floatEpsilon),
		opt.SetMaxEval(4001),
	)
	if err != nil {
		opt.Destroy()
		return nil, err
	}
	return ik, nil
}

// Close releases the underlying optimizer.
func (ik *NloptIK) Close() {
	ik.opt.Destroy()
}

func (ik *NloptIK) anglesOf(x []float64) map[string]float64 {
	m := make(map[string]float64, len(ik.joints))
	for i, name := range ik.joints {
		m[name] = x[i]
	}
	return m
}

// objective is the squared pose log error at x. When nlopt asks for the
// gradient it is filled in place from the chain rule
//
//	d|e|^2/dq = 2 e^T Jr^-1(e) J_body
//
// with e the error twist of the current pose against the goal.
func (ik *NloptIK) objective(x, gradient []float64) float64 {
	angles := ik.anglesOf(x)
	fk, err := ik.robot.ForwardKinematics(robot.KinematicsInput{JointAngles: angles})
	if err != nil {
		ik.logger.Errorf("forward kinematics failed inside nlopt: %v", err)
		if serr := ik.opt.ForceStop(); serr != nil {
			ik.logger.Errorf("force stop failed: %v", serr)
		}
		return math.Inf(1)
	}
	e := spatialmath.Log(ik.goal.Between(fk.Poses[ik.linkName]))
	dist := 0.0
	for _, c := range e {
		dist += c * c
	}

	if len(gradient) > 0 {
		jac, names, err := ik.robot.BodyJacobian(ik.linkName, angles)
		if err != nil {
			ik.logger.Errorf("jacobian failed inside nlopt: %v", err)
			if serr := ik.opt.ForceStop(); serr != nil {
				ik.logger.Errorf("force stop failed: %v", serr)
			}
			return math.Inf(1)
		}
		var et mat.VecDense
		et.MulVec(spatialmath.JrInv(e).T(), mat.NewVecDense(6, e))

		cols := map[string]int{}
		for c, n := range names {
			cols[n] = c
		}
		for i, name := range ik.joints {
			gradient[i] = 0
			c, onPath := cols[name]
			if !onPath {
				continue
			}
			for r := 0; r < 6; r++ {
				gradient[i] += 2 * et.AtVec(r) * jac.At(r, c)
			}
		}
	}
	return dist
}

// Solve finds joint angles placing the link at the goal, starting from the
// seed angles. Missing seed entries start at zero.
func (ik *NloptIK) Solve(ctx context.Context, goal spatialmath.Pose, seed map[string]float64) (map[string]float64, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ik.goal = goal
	x0 := make([]float64, len(ik.joints))
	for i, name := range ik.joints {
		x0[i] = seed[name]
	}

	x, result, err := ik.opt.Optimize(x0)
	if err != nil && x == nil {
		return nil, errors.Wrap(err, "nlopt ik")
	}
	if result > ik.epsilon {
		return nil, errors.Errorf("ik did not reach the goal, residual %g", result)
	}
	return ik.anglesOf(x), nil
}
