package robot

import (
	"encoding/json"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.mechdyn.dev/dyngraph/spatialmath"
)

// AxisAngleConfig is a rotation given as a (not necessarily unit) axis and an
// angle in radians.
type AxisAngleConfig struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Theta float64 `json:"th"`
}

// PoseConfig is a rigid transform in a robot description.
type PoseConfig struct {
	Translation r3.Vector       `json:"translation"`
	Rotation    AxisAngleConfig `json:"rotation"`
}

// Pose converts the config entry to a pose. A zero axis means no rotation.
func (p PoseConfig) Pose() spatialmath.Pose {
	axis := r3.Vector{X: p.Rotation.X, Y: p.Rotation.Y, Z: p.Rotation.Z}
	if axis.Norm() == 0 {
		return spatialmath.NewPoseFromPoint(p.Translation)
	}
	return spatialmath.NewPoseFromAxisAngle(axis, p.Rotation.Theta, p.Translation)
}

// LinkConfig describes one rigid body.
type LinkConfig struct {
	Name string  `json:"name"`
	Mass float64 `json:"mass"`
	// Inertia is the rotational inertia about the COM, either 3 diagonal
	// entries or 9 row-major entries.
	Inertia []float64 `json:"inertia"`
	// Pose is the world pose of the COM frame at the rest configuration.
	Pose  PoseConfig `json:"pose"`
	Fixed bool       `json:"fixed,omitempty"`
}

// JointLimitConfig bounds a joint coordinate.
type JointLimitConfig struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Threshold float64 `json:"threshold,omitempty"`
}

// JointConfig describes one single-degree-of-freedom joint. The axis is given
// in world coordinates at the rest configuration, together with a point the
// axis passes through; the screw axis in the child COM frame is derived
// during assembly.
type JointConfig struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Parent string `json:"parent"`
	Child  string `json:"child"`

	Axis   r3.Vector `json:"axis"`
	Origin r3.Vector `json:"origin"`

	Loop     bool  `json:"loop,omitempty"`
	Actuated *bool `json:"actuated,omitempty"`

	SpringCoefficient  float64           `json:"spring_coefficient,omitempty"`
	DampingCoefficient float64           `json:"damping_coefficient,omitempty"`
	Limit              *JointLimitConfig `json:"limit,omitempty"`
	VelocityLimit      float64           `json:"velocity_limit,omitempty"`
	EffortLimit        float64           `json:"effort_limit,omitempty"`
}

// Config is a full robot description.
type Config struct {
	Name   string        `json:"name"`
	Base   string        `json:"base"`
	Links  []LinkConfig  `json:"links"`
	Joints []JointConfig `json:"joints"`
}

// ParseConfig parses a JSON robot description. Validation happens in New.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse robot description")
	}
	return cfg, nil
}

// ParseConfigFile reads and parses a JSON robot description file.
func ParseConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read robot description %q", path)
	}
	return ParseConfig(data)
}

// NewFromFile assembles a robot directly from a JSON description file.
func NewFromFile(path string) (*Robot, error) {
	cfg, err := ParseConfigFile(path)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// inertiaMatrix expands the config inertia entry into 9 row-major values.
func inertiaMatrix(entries []float64) ([]float64, error) {
	switch len(entries) {
	case 0:
		return make([]float64, 9), nil
	case 3:
		out := make([]float64, 9)
		out[0], out[4], out[8] = entries[0], entries[1], entries[2]
		return out, nil
	case 9:
		out := make([]float64, 9)
		copy(out, entries)
		return out, nil
	}
	return nil, errors.Errorf("inertia must have 3 or 9 entries, got %d", len(entries))
}

// normalized returns v scaled to unit length.
func normalized(v r3.Vector) r3.Vector {
	n := v.Norm()
	if n == 0 || math.IsNaN(n) {
		return v
	}
	return v.Mul(1 / n)
}
