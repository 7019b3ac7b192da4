package factor

import (
	"github.com/pkg/errors"
)

// ErrSingularSystem is returned when a linear solve encounters a
// rank-deficient (underdetermined or inconsistent) system.
var ErrSingularSystem = errors.New("linear system is singular or rank-deficient")

// NewKeyNotFoundError returns an error for a lookup of an unassigned variable.
func NewKeyNotFoundError(k Key) error {
	return errors.Errorf("no value assigned to variable %v", k)
}

// NewWrongTypeError returns an error for a typed get against a variable of a
// different kind.
func NewWrongTypeError(k Key, want string) error {
	return errors.Errorf("variable %v is not a %s", k, want)
}
