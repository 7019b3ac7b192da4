package robot

import (
	"github.com/pkg/errors"
)

// ErrDisconnected is returned when the link graph minus loop joints does not
// span every link from the base.
var ErrDisconnected = errors.New("robot links are not connected to the base by tree joints")

// NewLinkNotFoundError returns an error for a link name absent from the robot.
func NewLinkNotFoundError(name string) error {
	return errors.Errorf("no link with name %q", name)
}

// NewJointNotFoundError returns an error for a joint name absent from the robot.
func NewJointNotFoundError(name string) error {
	return errors.Errorf("no joint with name %q", name)
}

// NewDuplicateNameError returns an error for a repeated entity name in a
// description.
func NewDuplicateNameError(kind, name string) error {
	return errors.Errorf("duplicate %s name %q", kind, name)
}

// NewDanglingReferenceError returns an error for a joint referring to a link
// name that the description never defines.
func NewDanglingReferenceError(joint, link string) error {
	return errors.Errorf("joint %q references undefined link %q", joint, link)
}

// NewMissingInputError is returned by kinematics when a joint coordinate the
// traversal needs is absent from the input map.
func NewMissingInputError(joint string) error {
	return errors.Errorf("no input value for joint %q", joint)
}
