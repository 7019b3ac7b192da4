// Package sim steps a robot forward in time by solving forward dynamics at
// each step and integrating the joint state.
package sim

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.mechdyn.dev/dyngraph/dynamics"
	"go.mechdyn.dev/dyngraph/robot"
)

// Record is one integrated simulation step.
type Record struct {
	Time          float64
	Angles        map[string]float64
	Velocities    map[string]float64
	Accelerations map[string]float64
	Torques       map[string]float64
}

// Simulator integrates a robot forward under commanded joint torques. Each
// step solves the linear forward dynamics at the current state and applies a
// semi-implicit position update:
//
//	v' = v + a dt
//	q' = q + v dt + a dt^2 / 2
type Simulator struct {
	builder *dynamics.Builder
	robot   *robot.Robot
	logger  golog.Logger

	initialQ, initialV map[string]float64

	time    float64
	angles  map[string]float64
	vels    map[string]float64
	records []Record
}

// NewSimulator returns a simulator starting from the given joint state.
func NewSimulator(r *robot.Robot, gravity r3.Vector, initialQ, initialV map[string]float64, logger golog.Logger) *Simulator {
	s := &Simulator{
		builder:  dynamics.NewBuilder(r, gravity, dynamics.DefaultSettings()),
		robot:    r,
		logger:   logger,
		initialQ: copyState(initialQ),
		initialV: copyState(initialV),
	}
	s.Reset()
	return s
}

// Reset discards all integrated state and recorded steps.
func (s *Simulator) Reset() {
	s.time = 0
	s.angles = copyState(s.initialQ)
	s.vels = copyState(s.initialV)
	s.records = nil
}

// Time returns the current simulation time.
func (s *Simulator) Time() float64 { return s.time }

// Angles returns a copy of the current joint angles.
func (s *Simulator) Angles() map[string]float64 { return copyState(s.angles) }

// Velocities returns a copy of the current joint velocities.
func (s *Simulator) Velocities() map[string]float64 { return copyState(s.vels) }

// Records returns all integrated steps so far. The slice is shared; do not
// modify.
func (s *Simulator) Records() []Record { return s.records }

// Step solves forward dynamics under the given torques and integrates one
// step of duration dt.
func (s *Simulator) Step(torques map[string]float64, dt float64) error {
	if dt <= 0 {
		return errors.Errorf("step duration must be positive, got %g", dt)
	}
	vals, err := s.builder.LinearSolveFD(0, s.angles, s.vels, torques)
	if err != nil {
		return errors.Wrapf(err, "forward dynamics failed at t=%g", s.time)
	}
	accs, err := dynamics.JointAccelerations(s.robot, vals, 0)
	if err != nil {
		return err
	}

	s.records = append(s.records, Record{
		Time:          s.time,
		Angles:        copyState(s.angles),
		Velocities:    copyState(s.vels),
		Accelerations: accs,
		Torques:       copyState(torques),
	})

	next := make(map[string]float64, len(s.angles))
	nextV := make(map[string]float64, len(s.vels))
	for name, q := range s.angles {
		v := s.vels[name]
		a := accs[name]
		next[name] = q + v*dt + a*dt*dt/2
		nextV[name] = v + a*dt
	}
	s.angles = next
	s.vels = nextV
	s.time += dt
	if s.logger != nil {
		s.logger.Debugf("stepped to t=%g", s.time)
	}
	return nil
}

// Simulate runs one Step per torque map and returns the recorded trace.
func (s *Simulator) Simulate(torques []map[string]float64, dt float64) ([]Record, error) {
	for i, tau := range torques {
		if err := s.Step(tau, dt); err != nil {
			return nil, errors.Wrapf(err, "step %d", i)
		}
	}
	return s.Records(), nil
}

func copyState(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
