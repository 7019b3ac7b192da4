package robot

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// Robot is an immutable assembled robot. It owns all links and joints and
// resolves every name and id lookup.
type Robot struct {
	name   string
	links  []*Link
	joints []*Joint

	linkIdx  map[string]int
	jointIdx map[string]int
	base     int
}

// New assembles and validates a robot from a description. All structural
// problems are reported together via a combined error.
func New(cfg Config) (*Robot, error) {
	r := &Robot{
		name:     cfg.Name,
		linkIdx:  map[string]int{},
		jointIdx: map[string]int{},
		base:     -1,
	}

	var err error
	for _, lc := range cfg.Links {
		if _, ok := r.linkIdx[lc.Name]; ok {
			err = multierr.Combine(err, NewDuplicateNameError("link", lc.Name))
			continue
		}
		inertia, ierr := inertiaMatrix(lc.Inertia)
		if ierr != nil {
			err = multierr.Combine(err, errors.Wrapf(ierr, "link %q", lc.Name))
			continue
		}
		r.linkIdx[lc.Name] = len(r.links)
		r.links = append(r.links, &Link{
			id:       len(r.links),
			name:     lc.Name,
			mass:     lc.Mass,
			inertia:  mat.NewDense(3, 3, inertia),
			restPose: lc.Pose.Pose(),
			fixed:    lc.Fixed,
		})
	}

	if cfg.Base == "" {
		err = multierr.Combine(err, errors.New("robot description has no base link"))
	} else if idx, ok := r.linkIdx[cfg.Base]; ok {
		r.base = idx
	} else {
		err = multierr.Combine(err, NewLinkNotFoundError(cfg.Base))
	}

	for _, jc := range cfg.Joints {
		if _, ok := r.jointIdx[jc.Name]; ok {
			err = multierr.Combine(err, NewDuplicateNameError("joint", jc.Name))
			continue
		}
		j, jerr := r.assembleJoint(jc)
		if jerr != nil {
			err = multierr.Combine(err, jerr)
			continue
		}
		j.id = len(r.joints)
		r.jointIdx[jc.Name] = j.id
		r.joints = append(r.joints, j)
		r.links[j.parent].joints = append(r.links[j.parent].joints, j.id)
		r.links[j.child].joints = append(r.links[j.child].joints, j.id)
	}

	if err != nil {
		return nil, err
	}
	if cerr := r.checkConnected(); cerr != nil {
		return nil, cerr
	}
	return r, nil
}

// assembleJoint resolves a joint description against already-built links and
// derives the screw axis in the child COM frame.
func (r *Robot) assembleJoint(jc JointConfig) (*Joint, error) {
	var jtype JointType
	switch jc.Type {
	case "revolute":
		jtype = Revolute
	case "prismatic":
		jtype = Prismatic
	default:
		return nil, errors.Errorf("joint %q has unsupported type %q", jc.Name, jc.Type)
	}

	parent, ok := r.linkIdx[jc.Parent]
	if !ok {
		return nil, NewDanglingReferenceError(jc.Name, jc.Parent)
	}
	child, ok := r.linkIdx[jc.Child]
	if !ok {
		return nil, NewDanglingReferenceError(jc.Name, jc.Child)
	}
	if parent == child {
		return nil, errors.Errorf("joint %q connects link %q to itself", jc.Name, jc.Parent)
	}
	if jc.Axis.Norm() == 0 {
		return nil, errors.Errorf("joint %q has a zero axis", jc.Name)
	}

	childRest := r.links[child].restPose
	axisWorld := normalized(jc.Axis)
	axisChild := childRest.Invert().RotatePoint(axisWorld)

	screw := make([]float64, 6)
	switch jtype {
	case Revolute:
		// linear part -w x p for a point p on the axis, in the child COM frame
		pChild := childRest.Invert().TransformPoint(jc.Origin)
		lin := pChild.Cross(axisChild)
		screw[0], screw[1], screw[2] = axisChild.X, axisChild.Y, axisChild.Z
		screw[3], screw[4], screw[5] = lin.X, lin.Y, lin.Z
	case Prismatic:
		screw[3], screw[4], screw[5] = axisChild.X, axisChild.Y, axisChild.Z
	}

	restCTP := childRest.Invert().Compose(r.links[parent].restPose)

	actuated := !jc.Loop
	if jc.Actuated != nil {
		actuated = *jc.Actuated
	}

	j := &Joint{
		name:      jc.Name,
		jtype:     jtype,
		parent:    parent,
		child:     child,
		screwAxis: screw,
		restCTP:   restCTP,
		loop:      jc.Loop,
		actuated:  actuated,
		spring:    jc.SpringCoefficient,
		damping:   jc.DampingCoefficient,
		velLimit:  jc.VelocityLimit,
		effLimit:  jc.EffortLimit,
	}
	if jc.Limit != nil {
		j.limit = Limit{Min: jc.Limit.Min, Max: jc.Limit.Max, Threshold: jc.Limit.Threshold}
	}
	return j, nil
}

// checkConnected verifies that tree joints span every link from the base.
func (r *Robot) checkConnected() error {
	visited := make([]bool, len(r.links))
	queue := []int{r.base}
	visited[r.base] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, jid := range r.links[cur].joints {
			j := r.joints[jid]
			if j.loop {
				continue
			}
			next := j.otherLink(cur)
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	for i, v := range visited {
		if !v {
			return errors.Wrapf(ErrDisconnected, "link %q unreachable", r.links[i].name)
		}
	}
	return nil
}

// Name returns the robot name.
func (r *Robot) Name() string { return r.name }

// NumLinks returns the number of links.
func (r *Robot) NumLinks() int { return len(r.links) }

// NumJoints returns the number of joints, loop joints included.
func (r *Robot) NumJoints() int { return len(r.joints) }

// Base returns the base link.
func (r *Robot) Base() *Link { return r.links[r.base] }

// Links returns all links in id order. The slice is shared; do not modify.
func (r *Robot) Links() []*Link { return r.links }

// Joints returns all joints in id order. The slice is shared; do not modify.
func (r *Robot) Joints() []*Joint { return r.joints }

// Link looks a link up by name.
func (r *Robot) Link(name string) (*Link, error) {
	idx, ok := r.linkIdx[name]
	if !ok {
		return nil, NewLinkNotFoundError(name)
	}
	return r.links[idx], nil
}

// Joint looks a joint up by name.
func (r *Robot) Joint(name string) (*Joint, error) {
	idx, ok := r.jointIdx[name]
	if !ok {
		return nil, NewJointNotFoundError(name)
	}
	return r.joints[idx], nil
}

// LinkByID returns the link with the given id.
func (r *Robot) LinkByID(id int) (*Link, error) {
	if id < 0 || id >= len(r.links) {
		return nil, errors.Errorf("no link with id %d", id)
	}
	return r.links[id], nil
}

// JointByID returns the joint with the given id.
func (r *Robot) JointByID(id int) (*Joint, error) {
	if id < 0 || id >= len(r.joints) {
		return nil, errors.Errorf("no joint with id %d", id)
	}
	return r.joints[id], nil
}

// TreeJoints returns the non-loop joints in id order.
func (r *Robot) TreeJoints() []*Joint {
	out := make([]*Joint, 0, len(r.joints))
	for _, j := range r.joints {
		if !j.loop {
			out = append(out, j)
		}
	}
	return out
}
