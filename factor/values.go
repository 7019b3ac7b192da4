package factor

import (
	"sort"

	"go.mechdyn.dev/dyngraph/spatialmath"
)

// Values is a sparse assignment from variable keys to typed values (poses,
// fixed-length vectors, scalars). A solve treats the Values it receives and
// returns as immutable snapshots: Retract and solver iterations always build
// new assignments. Inserts overwrite.
type Values struct {
	m map[Key]interface{}
}

// NewValues returns an empty assignment.
func NewValues() *Values {
	return &Values{m: map[Key]interface{}{}}
}

// Copy returns a deep copy.
func (v *Values) Copy() *Values {
	out := NewValues()
	for k, val := range v.m {
		if vec, ok := val.([]float64); ok {
			cp := make([]float64, len(vec))
			copy(cp, vec)
			out.m[k] = cp
			continue
		}
		out.m[k] = val
	}
	return out
}

// Len returns the number of assigned variables.
func (v *Values) Len() int { return len(v.m) }

// Has reports whether the key is assigned.
func (v *Values) Has(k Key) bool {
	_, ok := v.m[k]
	return ok
}

// Keys returns all assigned keys in canonical order.
func (v *Values) Keys() []Key {
	keys := make([]Key, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// InsertPose assigns a pose variable.
func (v *Values) InsertPose(k Key, p spatialmath.Pose) { v.m[k] = p }

// InsertVector assigns a vector variable.
func (v *Values) InsertVector(k Key, vec []float64) {
	cp := make([]float64, len(vec))
	copy(cp, vec)
	v.m[k] = cp
}

// InsertDouble assigns a scalar variable.
func (v *Values) InsertDouble(k Key, d float64) { v.m[k] = d }

// Merge copies every assignment from o into v.
func (v *Values) Merge(o *Values) {
	for k, val := range o.m {
		if vec, ok := val.([]float64); ok {
			cp := make([]float64, len(vec))
			copy(cp, vec)
			v.m[k] = cp
			continue
		}
		v.m[k] = val
	}
}

// Pose returns a pose variable.
func (v *Values) Pose(k Key) (spatialmath.Pose, error) {
	val, ok := v.m[k]
	if !ok {
		return spatialmath.Pose{}, NewKeyNotFoundError(k)
	}
	p, ok := val.(spatialmath.Pose)
	if !ok {
		return spatialmath.Pose{}, NewWrongTypeError(k, "pose")
	}
	return p, nil
}

// Vector returns a copy of a vector variable.
func (v *Values) Vector(k Key) ([]float64, error) {
	val, ok := v.m[k]
	if !ok {
		return nil, NewKeyNotFoundError(k)
	}
	vec, ok := val.([]float64)
	if !ok {
		return nil, NewWrongTypeError(k, "vector")
	}
	cp := make([]float64, len(vec))
	copy(cp, vec)
	return cp, nil
}

// Double returns a scalar variable.
func (v *Values) Double(k Key) (float64, error) {
	val, ok := v.m[k]
	if !ok {
		return 0, NewKeyNotFoundError(k)
	}
	d, ok := val.(float64)
	if !ok {
		return 0, NewWrongTypeError(k, "double")
	}
	return d, nil
}

// Dim returns the tangent dimension of the variable, or 0 if unassigned.
func (v *Values) Dim(k Key) int {
	switch val := v.m[k].(type) {
	case spatialmath.Pose:
		_ = val
		return 6
	case []float64:
		return len(val)
	case float64:
		return 1
	}
	return 0
}

// Retract applies per-variable tangent updates and returns a new snapshot.
// Poses update by right multiplication with the twist exponential, vectors and
// scalars by addition. Keys absent from delta carry over unchanged.
func (v *Values) Retract(delta map[Key][]float64) *Values {
	out := v.Copy()
	for k, d := range delta {
		val, ok := v.m[k]
		if !ok {
			continue
		}
		switch cur := val.(type) {
		case spatialmath.Pose:
			out.m[k] = cur.Compose(spatialmath.Exp(d))
		case []float64:
			next := make([]float64, len(cur))
			for i := range cur {
				next[i] = cur[i] + d[i]
			}
			out.m[k] = next
		case float64:
			out.m[k] = cur + d[0]
		}
	}
	return out
}
