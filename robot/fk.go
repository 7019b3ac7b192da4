package robot

import (
	"gonum.org/v1/gonum/mat"

	"go.mechdyn.dev/dyngraph/spatialmath"
)

// KinematicsInput carries joint coordinates for a kinematics query. A nil
// velocity or acceleration map means all zero; inside a non-nil map every
// tree joint must be present.
type KinematicsInput struct {
	JointAngles        map[string]float64
	JointVelocities    map[string]float64
	JointAccelerations map[string]float64

	// AnchorLink names the link the traversal starts from; empty means the
	// base. AnchorPose overrides the anchor's rest pose when set.
	AnchorLink string
	AnchorPose *spatialmath.Pose
}

// KinematicsResult holds propagated link states keyed by link name. Twists
// and accelerations are 6-vectors in each link's COM frame, angular first.
// Accelerations is nil unless joint accelerations were supplied.
type KinematicsResult struct {
	Poses         map[string]spatialmath.Pose
	Twists        map[string][]float64
	Accelerations map[string][]float64
}

// ForwardKinematics propagates poses, twists, and optionally accelerations
// from the anchor link outward across all tree joints. Loop joints do not
// participate; their closure is a constraint for the optimizer, not the
// traversal.
func (r *Robot) ForwardKinematics(in KinematicsInput) (*KinematicsResult, error) {
	anchor := r.base
	if in.AnchorLink != "" {
		l, err := r.Link(in.AnchorLink)
		if err != nil {
			return nil, err
		}
		anchor = l.ID()
	}
	anchorPose := r.links[anchor].restPose
	if in.AnchorPose != nil {
		anchorPose = *in.AnchorPose
	}

	withAccel := in.JointAccelerations != nil
	res := &KinematicsResult{
		Poses:  map[string]spatialmath.Pose{r.links[anchor].name: anchorPose},
		Twists: map[string][]float64{r.links[anchor].name: make([]float64, 6)},
	}
	if withAccel {
		res.Accelerations = map[string][]float64{r.links[anchor].name: make([]float64, 6)}
	}

	type state struct {
		pose  spatialmath.Pose
		twist []float64
		accel []float64
	}
	states := map[int]*state{anchor: {
		pose:  anchorPose,
		twist: make([]float64, 6),
		accel: make([]float64, 6),
	}}

	queue := []int{anchor}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		curState := states[cur]
		for _, jid := range r.links[cur].joints {
			j := r.joints[jid]
			if j.loop {
				continue
			}
			next := j.otherLink(cur)
			if _, done := states[next]; done {
				continue
			}

			q, ok := in.JointAngles[j.name]
			if !ok {
				return nil, NewMissingInputError(j.name)
			}
			v, err := lookupOptional(in.JointVelocities, j.name)
			if err != nil {
				return nil, err
			}
			a := 0.0
			if withAccel {
				a, err = lookupOptional(in.JointAccelerations, j.name)
				if err != nil {
					return nil, err
				}
			}

			cTp := j.ChildFromParent(q)
			sv := scaleVec(j.screwAxis, v)
			sa := scaleVec(j.screwAxis, a)

			ns := &state{}
			if next == j.child {
				adj := spatialmath.Adjoint(cTp)
				ns.pose = curState.pose.Compose(cTp.Invert())
				ns.twist = addVec(applyMat(adj, curState.twist), sv)
				if withAccel {
					ns.accel = addVec(applyMat(adj, curState.accel),
						addVec(applyMat(spatialmath.Ad(ns.twist), sv), sa))
				}
			} else {
				adj := spatialmath.Adjoint(cTp.Invert())
				ns.pose = curState.pose.Compose(cTp)
				ns.twist = applyMat(adj, subVec(curState.twist, sv))
				if withAccel {
					ns.accel = applyMat(adj, subVec(curState.accel,
						addVec(applyMat(spatialmath.Ad(curState.twist), sv), sa)))
				}
			}
			if ns.accel == nil {
				ns.accel = make([]float64, 6)
			}

			states[next] = ns
			res.Poses[r.links[next].name] = ns.pose
			res.Twists[r.links[next].name] = ns.twist
			if withAccel {
				res.Accelerations[r.links[next].name] = ns.accel
			}
			queue = append(queue, next)
		}
	}
	return res, nil
}

// BodyJacobian returns the geometric Jacobian of the named link's COM frame
// in its own body coordinates, one column per tree joint on the path from
// the base, together with the joint names in column order.
func (r *Robot) BodyJacobian(linkName string, angles map[string]float64) (*mat.Dense, []string, error) {
	target, err := r.Link(linkName)
	if err != nil {
		return nil, nil, err
	}
	fk, err := r.ForwardKinematics(KinematicsInput{JointAngles: angles})
	if err != nil {
		return nil, nil, err
	}

	// parent pointers of the tree rooted at the base
	type hop struct {
		prev    int
		joint   int
		forward bool // traversal went joint parent to joint child
	}
	hops := map[int]hop{r.base: {prev: -1}}
	queue := []int{r.base}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, jid := range r.links[cur].joints {
			j := r.joints[jid]
			if j.loop {
				continue
			}
			next := j.otherLink(cur)
			if _, done := hops[next]; done {
				continue
			}
			hops[next] = hop{prev: cur, joint: jid, forward: next == j.child}
			queue = append(queue, next)
		}
	}

	var path []hop
	for cur := target.ID(); cur != r.base; cur = hops[cur].prev {
		path = append([]hop{hops[cur]}, path...)
	}

	targetPose := fk.Poses[linkName]
	jac := mat.NewDense(6, len(path), nil)
	names := make([]string, len(path))
	for c, h := range path {
		j := r.joints[h.joint]
		names[c] = j.name
		q := angles[j.name]
		var frame spatialmath.Pose
		sign := 1.0
		if h.forward {
			frame = fk.Poses[r.links[j.child].name]
		} else {
			// motion enters the chain as Exp(-S q) right of the child pose
			xi := scaleVec(j.screwAxis, -q)
			frame = fk.Poses[r.links[j.child].name].Compose(spatialmath.Exp(xi))
			sign = -1
		}
		col := applyMat(spatialmath.Adjoint(targetPose.Between(frame)), j.screwAxis)
		for rr := 0; rr < 6; rr++ {
			jac.Set(rr, c, sign*col[rr])
		}
	}
	return jac, names, nil
}

func lookupOptional(m map[string]float64, name string) (float64, error) {
	if m == nil {
		return 0, nil
	}
	v, ok := m[name]
	if !ok {
		return 0, NewMissingInputError(name)
	}
	return v, nil
}

func scaleVec(v []float64, s float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = s * x
	}
	return out
}

func addVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func subVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// applyMat multiplies a dense matrix by a plain vector.
func applyMat(m *mat.Dense, v []float64) []float64 {
	rows, _ := m.Dims()
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(len(v), v))
	res := make([]float64, rows)
	for i := range res {
		res[i] = out.AtVec(i)
	}
	return res
}
