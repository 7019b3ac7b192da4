package dynamics

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.mechdyn.dev/dyngraph/factor"
	"go.mechdyn.dev/dyngraph/spatialmath"
)

// ContactPoint fixes a point on a link, in the link's COM frame, that touches
// the ground during a stance phase.
type ContactPoint struct {
	Link  string
	Point r3.Vector
	// Height is the ground height along the world up axis.
	Height float64
}

// pointJacobian is d(wT*p)/d(pose) for a right pose perturbation:
// [-R [p]x | R].
func pointJacobian(pose spatialmath.Pose, p r3.Vector) *mat.Dense {
	r := spatialmath.RotationMatrix(pose.R)
	var rp mat.Dense
	rp.Mul(r, spatialmath.Skew(p))
	out := mat.NewDense(3, 6, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, -rp.At(i, j))
			out.Set(i, j+3, r.At(i, j))
		}
	}
	return out
}

// ContactPoseFactor constrains a link's contact point to the ground height
// along the world up axis.
type ContactPoseFactor struct {
	poseKey factor.Key
	point   r3.Vector
	up      r3.Vector
	height  float64
	noise   factor.Model
}

// NewContactPoseFactor returns the ground-contact position factor for a link
// at step t. The up vector selects the height axis (usually against gravity).
func NewContactPoseFactor(link int, t int, point, up r3.Vector, height float64, noise factor.Model) *ContactPoseFactor {
	n := up.Norm()
	if n > 0 {
		up = up.Mul(1 / n)
	}
	return &ContactPoseFactor{poseKey: PoseKey(link, t), point: point, up: up, height: height, noise: noise}
}

func (f *ContactPoseFactor) Keys() []factor.Key  { return []factor.Key{f.poseKey} }
func (f *ContactPoseFactor) Dim() int            { return 1 }
func (f *ContactPoseFactor) Noise() factor.Model { return f.noise }

func (f *ContactPoseFactor) Error(v *factor.Values) ([]float64, error) {
	pose, err := v.Pose(f.poseKey)
	if err != nil {
		return nil, err
	}
	world := pose.TransformPoint(f.point)
	return []float64{world.Dot(f.up) - f.height}, nil
}

func (f *ContactPoseFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	e, err := f.Error(v)
	if err != nil {
		return nil, err
	}
	pose, err := v.Pose(f.poseKey)
	if err != nil {
		return nil, err
	}
	pj := pointJacobian(pose, f.point)
	h := mat.NewDense(1, 6, nil)
	upv := []float64{f.up.X, f.up.Y, f.up.Z}
	for c := 0; c < 6; c++ {
		sum := 0.0
		for r := 0; r < 3; r++ {
			sum += upv[r] * pj.At(r, c)
		}
		h.Set(0, c, sum)
	}
	return &factor.Linearization{Keys: f.Keys(), J: []*mat.Dense{h}, Err: e}, nil
}

// contactPointMap is the 3x6 map from a body twist to the linear velocity of
// a body-fixed point: [-[p]x | I].
func contactPointMap(p r3.Vector) *mat.Dense {
	out := mat.NewDense(3, 6, nil)
	sk := spatialmath.Skew(p)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, -sk.At(i, j))
		}
		out.Set(i, i+3, 1)
	}
	return out
}

// ContactTwistFactor pins the velocity of a link's contact point to zero
// during stance.
type ContactTwistFactor struct {
	twistKey factor.Key
	point    r3.Vector
	noise    factor.Model
}

// NewContactTwistFactor returns the no-slip velocity factor for a link at
// step t.
func NewContactTwistFactor(link int, t int, point r3.Vector, noise factor.Model) *ContactTwistFactor {
	return &ContactTwistFactor{twistKey: TwistKey(link, t), point: point, noise: noise}
}

func (f *ContactTwistFactor) Keys() []factor.Key  { return []factor.Key{f.twistKey} }
func (f *ContactTwistFactor) Dim() int            { return 3 }
func (f *ContactTwistFactor) Noise() factor.Model { return f.noise }

func (f *ContactTwistFactor) Error(v *factor.Values) ([]float64, error) {
	tw, err := v.Vector(f.twistKey)
	if err != nil {
		return nil, err
	}
	return applyMat(contactPointMap(f.point), tw), nil
}

func (f *ContactTwistFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	e, err := f.Error(v)
	if err != nil {
		return nil, err
	}
	return &factor.Linearization{Keys: f.Keys(), J: []*mat.Dense{contactPointMap(f.point)}, Err: e}, nil
}

// ContactAccelFactor pins the acceleration of a link's contact point to zero
// during stance.
type ContactAccelFactor struct {
	accelKey factor.Key
	point    r3.Vector
	noise    factor.Model
}

// NewContactAccelFactor returns the no-slip acceleration factor for a link at
// step t.
func NewContactAccelFactor(link int, t int, point r3.Vector, noise factor.Model) *ContactAccelFactor {
	return &ContactAccelFactor{accelKey: TwistAccelKey(link, t), point: point, noise: noise}
}

func (f *ContactAccelFactor) Keys() []factor.Key  { return []factor.Key{f.accelKey} }
func (f *ContactAccelFactor) Dim() int            { return 3 }
func (f *ContactAccelFactor) Noise() factor.Model { return f.noise }

func (f *ContactAccelFactor) Error(v *factor.Values) ([]float64, error) {
	acc, err := v.Vector(f.accelKey)
	if err != nil {
		return nil, err
	}
	return applyMat(contactPointMap(f.point), acc), nil
}

func (f *ContactAccelFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	e, err := f.Error(v)
	if err != nil {
		return nil, err
	}
	return &factor.Linearization{Keys: f.Keys(), J: []*mat.Dense{contactPointMap(f.point)}, Err: e}, nil
}

// ContactMomentFactor requires the contact wrench to act through the contact
// point: the moment transported to the point must vanish.
type ContactMomentFactor struct {
	wrenchKey factor.Key
	point     r3.Vector
	noise     factor.Model
}

// NewContactMomentFactor returns the zero-moment factor for a link's contact
// wrench at step t.
func NewContactMomentFactor(link int, t int, point r3.Vector, noise factor.Model) *ContactMomentFactor {
	return &ContactMomentFactor{wrenchKey: ContactWrenchKey(link, t), point: point, noise: noise}
}

func (f *ContactMomentFactor) Keys() []factor.Key  { return []factor.Key{f.wrenchKey} }
func (f *ContactMomentFactor) Dim() int            { return 3 }
func (f *ContactMomentFactor) Noise() factor.Model { return f.noise }

// momentMap transports the moment rows of a wrench to the contact point:
// [I | -[p]x].
func (f *ContactMomentFactor) momentMap() *mat.Dense {
	out := mat.NewDense(3, 6, nil)
	sk := spatialmath.Skew(f.point)
	for i := 0; i < 3; i++ {
		out.Set(i, i, 1)
		for j := 0; j < 3; j++ {
			out.Set(i, j+3, -sk.At(i, j))
		}
	}
	return out
}

func (f *ContactMomentFactor) Error(v *factor.Values) ([]float64, error) {
	w, err := v.Vector(f.wrenchKey)
	if err != nil {
		return nil, err
	}
	return applyMat(f.momentMap(), w), nil
}

func (f *ContactMomentFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	e, err := f.Error(v)
	if err != nil {
		return nil, err
	}
	return &factor.Linearization{Keys: f.Keys(), J: []*mat.Dense{f.momentMap()}, Err: e}, nil
}

// PointGoalFactor pulls a body-fixed point toward a world goal position. Used
// for end-effector and swing-foot objectives.
type PointGoalFactor struct {
	poseKey factor.Key
	point   r3.Vector
	goal    r3.Vector
	noise   factor.Model
}

// NewPointGoalFactor returns a task-space position factor on a link pose.
func NewPointGoalFactor(poseKey factor.Key, point, goal r3.Vector, noise factor.Model) *PointGoalFactor {
	return &PointGoalFactor{poseKey: poseKey, point: point, goal: goal, noise: noise}
}

func (f *PointGoalFactor) Keys() []factor.Key  { return []factor.Key{f.poseKey} }
func (f *PointGoalFactor) Dim() int            { return 3 }
func (f *PointGoalFactor) Noise() factor.Model { return f.noise }

func (f *PointGoalFactor) Error(v *factor.Values) ([]float64, error) {
	pose, err := v.Pose(f.poseKey)
	if err != nil {
		return nil, err
	}
	world := pose.TransformPoint(f.point)
	return []float64{world.X - f.goal.X, world.Y - f.goal.Y, world.Z - f.goal.Z}, nil
}

func (f *PointGoalFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	e, err := f.Error(v)
	if err != nil {
		return nil, err
	}
	pose, err := v.Pose(f.poseKey)
	if err != nil {
		return nil, err
	}
	return &factor.Linearization{Keys: f.Keys(), J: []*mat.Dense{pointJacobian(pose, f.point)}, Err: e}, nil
}
