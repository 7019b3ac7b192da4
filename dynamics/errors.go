package dynamics

import (
	"github.com/pkg/errors"
)

// NewUnsupportedLinkDegreeError reports a link with more incident wrenches
// than the balance factor supports.
func NewUnsupportedLinkDegreeError(link string, degree int) error {
	return errors.Errorf("link %q has %d wrenches acting on it, at most %d are supported", link, degree, maxLinkWrenches)
}

// NewUnsupportedCollocationError reports an unknown collocation scheme.
func NewUnsupportedCollocationError(s CollocationScheme) error {
	return errors.Errorf("unsupported collocation scheme %d", s)
}
