// Package factor provides the factor-graph core: typed variable keys, value
// assignments, noise models, nonlinear factors with exact Jacobians, and the
// linear (Gaussian) system they reduce to.
package factor

import "fmt"

// Key identifies one variable: a semantic role tag, up to two entity ids, and
// a timestep. Wrench keys use both ids (link, joint); most roles use only ID.
type Key struct {
	Role byte
	ID   int32
	Sub  int32
	T    int32
}

// NewKey builds a key from untyped ints for convenience.
func NewKey(role byte, id, sub, t int) Key {
	return Key{Role: role, ID: int32(id), Sub: int32(sub), T: int32(t)}
}

func (k Key) String() string {
	if k.Sub != 0 {
		return fmt.Sprintf("%c%d%d_%d", k.Role, k.ID, k.Sub, k.T)
	}
	return fmt.Sprintf("%c%d_%d", k.Role, k.ID, k.T)
}

// Less imposes the canonical variable ordering used for deterministic
// linear-system assembly.
func (k Key) Less(o Key) bool {
	if k.Role != o.Role {
		return k.Role < o.Role
	}
	if k.ID != o.ID {
		return k.ID < o.ID
	}
	if k.Sub != o.Sub {
		return k.Sub < o.Sub
	}
	return k.T < o.T
}
