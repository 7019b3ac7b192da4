package dynamics

import (
	"gonum.org/v1/gonum/mat"

	"go.mechdyn.dev/dyngraph/factor"
	"go.mechdyn.dev/dyngraph/robot"
	"go.mechdyn.dev/dyngraph/spatialmath"
)

// jointGeometry is the per-joint data every chain factor needs: the screw
// axis in the child COM frame and the rest transform.
type jointGeometry struct {
	axis []float64
	rest spatialmath.Pose
}

func geometryOf(j *robot.Joint) jointGeometry {
	return jointGeometry{axis: j.ScrewAxis(), rest: j.RestTransform()}
}

// childFromParent evaluates cTp(q) = Exp(-S q) * rest.
func (g jointGeometry) childFromParent(q float64) spatialmath.Pose {
	return spatialmath.Exp(scaleVec(g.axis, -q)).Compose(g.rest)
}

// PoseFactor relates the world poses of a joint's two links through the joint
// coordinate: wTc = wTp * cTp(q)^-1.
type PoseFactor struct {
	parentKey, childKey, angleKey factor.Key
	geom                          jointGeometry
	noise                         factor.Model
}

// NewPoseFactor returns the pose chain factor for a joint at step t.
func NewPoseFactor(j *robot.Joint, t int, noise factor.Model) *PoseFactor {
	return &PoseFactor{
		parentKey: PoseKey(j.Parent(), t),
		childKey:  PoseKey(j.Child(), t),
		angleKey:  AngleKey(j.ID(), t),
		geom:      geometryOf(j),
		noise:     noise,
	}
}

func (f *PoseFactor) Keys() []factor.Key {
	return []factor.Key{f.parentKey, f.childKey, f.angleKey}
}
func (f *PoseFactor) Dim() int            { return 6 }
func (f *PoseFactor) Noise() factor.Model { return f.noise }

func (f *PoseFactor) eval(v *factor.Values) ([]float64, spatialmath.Pose, error) {
	wTp, err := v.Pose(f.parentKey)
	if err != nil {
		return nil, spatialmath.Pose{}, err
	}
	wTc, err := v.Pose(f.childKey)
	if err != nil {
		return nil, spatialmath.Pose{}, err
	}
	q, err := v.Double(f.angleKey)
	if err != nil {
		return nil, spatialmath.Pose{}, err
	}
	cTp := f.geom.childFromParent(q)
	pred := wTp.Compose(cTp.Invert())
	return spatialmath.Log(pred.Between(wTc)), cTp, nil
}

func (f *PoseFactor) Error(v *factor.Values) ([]float64, error) {
	e, _, err := f.eval(v)
	return e, err
}

func (f *PoseFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	e, cTp, err := f.eval(v)
	if err != nil {
		return nil, err
	}
	jlInv := spatialmath.JlInv(e)

	var hp mat.Dense
	hp.Mul(jlInv, spatialmath.Adjoint(cTp))
	hp.Scale(-1, &hp)

	hq := scaledMat(columnMat(applyMat(jlInv, f.geom.axis)), -1)

	return &factor.Linearization{
		Keys: f.Keys(),
		J:    []*mat.Dense{&hp, spatialmath.JrInv(e), hq},
		Err:  e,
	}, nil
}

// TwistFactor propagates body twists across a joint:
// V_c = Ad(cTp(q)) V_p + S * qdot.
type TwistFactor struct {
	parentKey, childKey, angleKey, velKey factor.Key
	geom                                  jointGeometry
	noise                                 factor.Model
}

// NewTwistFactor returns the twist chain factor for a joint at step t.
func NewTwistFactor(j *robot.Joint, t int, noise factor.Model) *TwistFactor {
	return &TwistFactor{
		parentKey: TwistKey(j.Parent(), t),
		childKey:  TwistKey(j.Child(), t),
		angleKey:  AngleKey(j.ID(), t),
		velKey:    VelKey(j.ID(), t),
		geom:      geometryOf(j),
		noise:     noise,
	}
}

func (f *TwistFactor) Keys() []factor.Key {
	return []factor.Key{f.parentKey, f.childKey, f.angleKey, f.velKey}
}
func (f *TwistFactor) Dim() int            { return 6 }
func (f *TwistFactor) Noise() factor.Model { return f.noise }

func (f *TwistFactor) Error(v *factor.Values) ([]float64, error) {
	e, _, _, err := f.eval(v)
	return e, err
}

func (f *TwistFactor) eval(v *factor.Values) ([]float64, *mat.Dense, []float64, error) {
	vp, err := v.Vector(f.parentKey)
	if err != nil {
		return nil, nil, nil, err
	}
	vc, err := v.Vector(f.childKey)
	if err != nil {
		return nil, nil, nil, err
	}
	q, err := v.Double(f.angleKey)
	if err != nil {
		return nil, nil, nil, err
	}
	qdot, err := v.Double(f.velKey)
	if err != nil {
		return nil, nil, nil, err
	}
	adj := spatialmath.Adjoint(f.geom.childFromParent(q))
	carried := applyMat(adj, vp)
	e := subVec(subVec(vc, carried), scaleVec(f.geom.axis, qdot))
	return e, adj, carried, nil
}

func (f *TwistFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	e, adj, carried, err := f.eval(v)
	if err != nil {
		return nil, err
	}
	hq := columnMat(applyMat(spatialmath.Ad(f.geom.axis), carried))
	return &factor.Linearization{
		Keys: f.Keys(),
		J: []*mat.Dense{
			scaledMat(adj, -1),
			eye6(),
			hq,
			scaledMat(columnMat(f.geom.axis), -1),
		},
		Err: e,
	}, nil
}

// TwistAccelFactor propagates twist accelerations across a joint:
// A_c = Ad(cTp(q)) A_p + ad(V_c)(S qdot) + S qddot.
type TwistAccelFactor struct {
	childTwistKey, parentKey, childKey factor.Key
	angleKey, velKey, accelKey         factor.Key
	geom                               jointGeometry
	noise                              factor.Model
}

// NewTwistAccelFactor returns the acceleration chain factor for a joint at
// step t.
func NewTwistAccelFactor(j *robot.Joint, t int, noise factor.Model) *TwistAccelFactor {
	return &TwistAccelFactor{
		childTwistKey: TwistKey(j.Child(), t),
		parentKey:     TwistAccelKey(j.Parent(), t),
		childKey:      TwistAccelKey(j.Child(), t),
		angleKey:      AngleKey(j.ID(), t),
		velKey:        VelKey(j.ID(), t),
		accelKey:      AccelKey(j.ID(), t),
		geom:          geometryOf(j),
		noise:         noise,
	}
}

func (f *TwistAccelFactor) Keys() []factor.Key {
	return []factor.Key{f.childTwistKey, f.parentKey, f.childKey, f.angleKey, f.velKey, f.accelKey}
}
func (f *TwistAccelFactor) Dim() int            { return 6 }
func (f *TwistAccelFactor) Noise() factor.Model { return f.noise }

func (f *TwistAccelFactor) Error(v *factor.Values) ([]float64, error) {
	e, _, _, _, _, err := f.eval(v)
	return e, err
}

func (f *TwistAccelFactor) eval(v *factor.Values) ([]float64, *mat.Dense, []float64, []float64, float64, error) {
	vc, err := v.Vector(f.childTwistKey)
	if err != nil {
		return nil, nil, nil, nil, 0, err
	}
	ap, err := v.Vector(f.parentKey)
	if err != nil {
		return nil, nil, nil, nil, 0, err
	}
	ac, err := v.Vector(f.childKey)
	if err != nil {
		return nil, nil, nil, nil, 0, err
	}
	q, err := v.Double(f.angleKey)
	if err != nil {
		return nil, nil, nil, nil, 0, err
	}
	qdot, err := v.Double(f.velKey)
	if err != nil {
		return nil, nil, nil, nil, 0, err
	}
	qddot, err := v.Double(f.accelKey)
	if err != nil {
		return nil, nil, nil, nil, 0, err
	}
	adj := spatialmath.Adjoint(f.geom.childFromParent(q))
	carried := applyMat(adj, ap)
	sv := scaleVec(f.geom.axis, qdot)
	e := subVec(subVec(subVec(ac, carried), applyMat(spatialmath.Ad(vc), sv)), scaleVec(f.geom.axis, qddot))
	return e, adj, carried, vc, qdot, nil
}

func (f *TwistAccelFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	e, adj, carried, vc, qdot, err := f.eval(v)
	if err != nil {
		return nil, err
	}
	hq := columnMat(applyMat(spatialmath.Ad(f.geom.axis), carried))
	hvel := scaledMat(columnMat(applyMat(spatialmath.Ad(vc), f.geom.axis)), -1)
	return &factor.Linearization{
		Keys: f.Keys(),
		J: []*mat.Dense{
			spatialmath.Ad(scaleVec(f.geom.axis, qdot)),
			scaledMat(adj, -1),
			eye6(),
			hq,
			hvel,
			scaledMat(columnMat(f.geom.axis), -1),
		},
		Err: e,
	}, nil
}

func eye6() *mat.Dense {
	out := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		out.Set(i, i, 1)
	}
	return out
}
