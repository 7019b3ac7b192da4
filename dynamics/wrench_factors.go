package dynamics

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.mechdyn.dev/dyngraph/factor"
	"go.mechdyn.dev/dyngraph/robot"
	"go.mechdyn.dev/dyngraph/spatialmath"
)

// maxLinkWrenches bounds how many wrenches may act on one link in a single
// balance factor.
const maxLinkWrenches = 4

// WrenchFactor is the Newton-Euler balance of one link: the inertial wrench
// must equal the sum of joint and contact wrenches plus gravity, all in the
// link's COM frame.
//
//	G A - ad(V)^T G V - sum_k F_k - grav(R) = 0
type WrenchFactor struct {
	twistKey, accelKey, poseKey factor.Key
	wrenchKeys                  []factor.Key
	inertia                     *mat.Dense
	mass                        float64
	gravity                     r3.Vector
	noise                       factor.Model
}

// NewWrenchFactor returns the wrench balance factor for a link at step t. The
// wrench keys are the joint and contact wrenches acting on the link; at most
// maxLinkWrenches are supported.
func NewWrenchFactor(
	l *robot.Link,
	wrenchKeys []factor.Key,
	t int,
	gravity r3.Vector,
	noise factor.Model,
) (*WrenchFactor, error) {
	if len(wrenchKeys) > maxLinkWrenches {
		return nil, NewUnsupportedLinkDegreeError(l.Name(), len(wrenchKeys))
	}
	keys := make([]factor.Key, len(wrenchKeys))
	copy(keys, wrenchKeys)
	return &WrenchFactor{
		twistKey:   TwistKey(l.ID(), t),
		accelKey:   TwistAccelKey(l.ID(), t),
		poseKey:    PoseKey(l.ID(), t),
		wrenchKeys: keys,
		inertia:    l.SpatialInertia(),
		mass:       l.Mass(),
		gravity:    gravity,
		noise:      noise,
	}, nil
}

func (f *WrenchFactor) Keys() []factor.Key {
	keys := []factor.Key{f.twistKey, f.accelKey}
	keys = append(keys, f.wrenchKeys...)
	return append(keys, f.poseKey)
}
func (f *WrenchFactor) Dim() int            { return 6 }
func (f *WrenchFactor) Noise() factor.Model { return f.noise }

// bodyGravity returns R^T g, gravity seen from the link frame.
func (f *WrenchFactor) bodyGravity(p spatialmath.Pose) r3.Vector {
	return p.Invert().RotatePoint(f.gravity)
}

func (f *WrenchFactor) Error(v *factor.Values) ([]float64, error) {
	tw, err := v.Vector(f.twistKey)
	if err != nil {
		return nil, err
	}
	acc, err := v.Vector(f.accelKey)
	if err != nil {
		return nil, err
	}
	pose, err := v.Pose(f.poseKey)
	if err != nil {
		return nil, err
	}

	e := applyMat(f.inertia, acc)
	e = subVec(e, applyMat(transposed(spatialmath.Ad(tw)), applyMat(f.inertia, tw)))
	for _, wk := range f.wrenchKeys {
		w, err := v.Vector(wk)
		if err != nil {
			return nil, err
		}
		e = subVec(e, w)
	}
	g := f.bodyGravity(pose)
	e[3] -= f.mass * g.X
	e[4] -= f.mass * g.Y
	e[5] -= f.mass * g.Z
	return e, nil
}

func (f *WrenchFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	e, err := f.Error(v)
	if err != nil {
		return nil, err
	}
	tw, err := v.Vector(f.twistKey)
	if err != nil {
		return nil, err
	}
	pose, err := v.Pose(f.poseKey)
	if err != nil {
		return nil, err
	}

	// d/dV [ad(V)^T w] for fixed w, column k = ad(e_k)^T w
	gv := applyMat(f.inertia, tw)
	bilinear := mat.NewDense(6, 6, nil)
	for k := 0; k < 6; k++ {
		ek := make([]float64, 6)
		ek[k] = 1
		col := applyMat(transposed(spatialmath.Ad(ek)), gv)
		for r := 0; r < 6; r++ {
			bilinear.Set(r, k, col[r])
		}
	}
	var hTwist mat.Dense
	hTwist.Mul(transposed(spatialmath.Ad(tw)), f.inertia)
	hTwist.Add(&hTwist, bilinear)
	hTwist.Scale(-1, &hTwist)

	hPose := mat.NewDense(6, 6, nil)
	gBody := f.bodyGravity(pose)
	gSkew := spatialmath.Skew(gBody)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			hPose.Set(r+3, c, -f.mass*gSkew.At(r, c))
		}
	}

	js := []*mat.Dense{&hTwist, f.inertia}
	for range f.wrenchKeys {
		js = append(js, negEye(6))
	}
	js = append(js, hPose)

	return &factor.Linearization{Keys: f.Keys(), J: js, Err: e}, nil
}

// WrenchEquivalenceFactor ties the two reaction wrenches of one joint
// together across the joint transform:
//
//	F_parent + Ad(cTp(q))^T F_child = 0
type WrenchEquivalenceFactor struct {
	parentKey, childKey, angleKey factor.Key
	geom                          jointGeometry
	noise                         factor.Model
}

// NewWrenchEquivalenceFactor returns the reaction factor for a joint at step t.
func NewWrenchEquivalenceFactor(j *robot.Joint, t int, noise factor.Model) *WrenchEquivalenceFactor {
	return &WrenchEquivalenceFactor{
		parentKey: WrenchKey(j.Parent(), j.ID(), t),
		childKey:  WrenchKey(j.Child(), j.ID(), t),
		angleKey:  AngleKey(j.ID(), t),
		geom:      geometryOf(j),
		noise:     noise,
	}
}

func (f *WrenchEquivalenceFactor) Keys() []factor.Key {
	return []factor.Key{f.parentKey, f.childKey, f.angleKey}
}
func (f *WrenchEquivalenceFactor) Dim() int            { return 6 }
func (f *WrenchEquivalenceFactor) Noise() factor.Model { return f.noise }

func (f *WrenchEquivalenceFactor) Error(v *factor.Values) ([]float64, error) {
	e, _, _, err := f.eval(v)
	return e, err
}

func (f *WrenchEquivalenceFactor) eval(v *factor.Values) ([]float64, *mat.Dense, []float64, error) {
	fp, err := v.Vector(f.parentKey)
	if err != nil {
		return nil, nil, nil, err
	}
	fc, err := v.Vector(f.childKey)
	if err != nil {
		return nil, nil, nil, err
	}
	q, err := v.Double(f.angleKey)
	if err != nil {
		return nil, nil, nil, err
	}
	adjT := transposed(spatialmath.Adjoint(f.geom.childFromParent(q)))
	e := addVec(fp, applyMat(adjT, fc))
	return e, adjT, fc, nil
}

func (f *WrenchEquivalenceFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	e, adjT, fc, err := f.eval(v)
	if err != nil {
		return nil, err
	}
	hq := scaledMat(columnMat(applyMat(adjT, applyMat(transposed(spatialmath.Ad(f.geom.axis)), fc))), -1)
	return &factor.Linearization{
		Keys: f.Keys(),
		J:    []*mat.Dense{eye6(), adjT, hq},
		Err:  e,
	}, nil
}

// TorqueFactor projects a joint's child-side wrench onto the screw axis and
// equates it with the actuation torque: S^T F = tau.
type TorqueFactor struct {
	wrenchKey, torqueKey factor.Key
	axis                 []float64
	noise                factor.Model
}

// NewTorqueFactor returns the actuation factor for a joint at step t.
func NewTorqueFactor(j *robot.Joint, t int, noise factor.Model) *TorqueFactor {
	return &TorqueFactor{
		wrenchKey: WrenchKey(j.Child(), j.ID(), t),
		torqueKey: TorqueKey(j.ID(), t),
		axis:      j.ScrewAxis(),
		noise:     noise,
	}
}

func (f *TorqueFactor) Keys() []factor.Key  { return []factor.Key{f.wrenchKey, f.torqueKey} }
func (f *TorqueFactor) Dim() int            { return 1 }
func (f *TorqueFactor) Noise() factor.Model { return f.noise }

func (f *TorqueFactor) Error(v *factor.Values) ([]float64, error) {
	w, err := v.Vector(f.wrenchKey)
	if err != nil {
		return nil, err
	}
	tau, err := v.Double(f.torqueKey)
	if err != nil {
		return nil, err
	}
	sum := -tau
	for i := range f.axis {
		sum += f.axis[i] * w[i]
	}
	return []float64{sum}, nil
}

func (f *TorqueFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	e, err := f.Error(v)
	if err != nil {
		return nil, err
	}
	hw := mat.NewDense(1, 6, nil)
	for i, s := range f.axis {
		hw.Set(0, i, s)
	}
	return &factor.Linearization{
		Keys: f.Keys(),
		J:    []*mat.Dense{hw, mat.NewDense(1, 1, []float64{-1})},
		Err:  e,
	}, nil
}

// PlanarAxis names the normal of the plane a planar robot moves in.
type PlanarAxis uint8

// Planar axes.
const (
	PlanarX PlanarAxis = iota
	PlanarY
	PlanarZ
)

// outOfPlaneRows lists the wrench components that must vanish for motion in
// the plane normal to the axis, angular components first.
func (a PlanarAxis) outOfPlaneRows() [3]int {
	switch a {
	case PlanarX:
		return [3]int{1, 2, 3}
	case PlanarY:
		return [3]int{0, 2, 4}
	default:
		return [3]int{0, 1, 5}
	}
}

// WrenchPlanarFactor zeroes the out-of-plane components of a joint wrench for
// planar robots.
type WrenchPlanarFactor struct {
	wrenchKey factor.Key
	axis      PlanarAxis
	noise     factor.Model
}

// NewWrenchPlanarFactor returns the planarity factor for a joint's child-side
// wrench at step t.
func NewWrenchPlanarFactor(j *robot.Joint, axis PlanarAxis, t int, noise factor.Model) *WrenchPlanarFactor {
	return &WrenchPlanarFactor{wrenchKey: WrenchKey(j.Child(), j.ID(), t), axis: axis, noise: noise}
}

func (f *WrenchPlanarFactor) Keys() []factor.Key  { return []factor.Key{f.wrenchKey} }
func (f *WrenchPlanarFactor) Dim() int            { return 3 }
func (f *WrenchPlanarFactor) Noise() factor.Model { return f.noise }

func (f *WrenchPlanarFactor) Error(v *factor.Values) ([]float64, error) {
	w, err := v.Vector(f.wrenchKey)
	if err != nil {
		return nil, err
	}
	rows := f.axis.outOfPlaneRows()
	return []float64{w[rows[0]], w[rows[1]], w[rows[2]]}, nil
}

func (f *WrenchPlanarFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	e, err := f.Error(v)
	if err != nil {
		return nil, err
	}
	h := mat.NewDense(3, 6, nil)
	for i, r := range f.axis.outOfPlaneRows() {
		h.Set(i, r, 1)
	}
	return &factor.Linearization{Keys: f.Keys(), J: []*mat.Dense{h}, Err: e}, nil
}
