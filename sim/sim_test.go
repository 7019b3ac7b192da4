package sim

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.mechdyn.dev/dyngraph/robot"
)

func pendulum(t *testing.T) *robot.Robot {
	t.Helper()
	r, err := robot.New(robot.Config{
		Name: "pendulum",
		Base: "base",
		Links: []robot.LinkConfig{
			{Name: "base", Mass: 1, Inertia: []float64{0.1, 0.1, 0.1},
				Pose: robot.PoseConfig{Translation: r3.Vector{X: 1}}, Fixed: true},
			{Name: "bob", Mass: 1, Inertia: []float64{0.1, 0.1, 0.1},
				Pose: robot.PoseConfig{Translation: r3.Vector{X: 3}}},
		},
		Joints: []robot.JointConfig{
			{Name: "pivot", Type: "revolute", Parent: "base", Child: "bob",
				Axis: r3.Vector{Z: 1}, Origin: r3.Vector{X: 2}},
		},
	})
	test.That(t, err, test.ShouldBeNil)
	return r
}

func TestSimulatorStep(t *testing.T) {
	r := pendulum(t)
	s := NewSimulator(r, r3.Vector{Y: -9.8},
		map[string]float64{"pivot": 0},
		map[string]float64{"pivot": 0},
		golog.NewTestLogger(t))

	const dt = 0.01
	err := s.Step(map[string]float64{"pivot": 0}, dt)
	test.That(t, err, test.ShouldBeNil)

	// horizontal pendulum: a = -9.8 / (Izz + m r^2) = -9.8 / 1.1
	a := -9.8 / 1.1
	test.That(t, s.Velocities()["pivot"], test.ShouldAlmostEqual, a*dt, 1e-9)
	test.That(t, s.Angles()["pivot"], test.ShouldAlmostEqual, a*dt*dt/2, 1e-9)
	test.That(t, s.Time(), test.ShouldAlmostEqual, dt)

	rec := s.Records()
	test.That(t, len(rec), test.ShouldEqual, 1)
	test.That(t, rec[0].Accelerations["pivot"], test.ShouldAlmostEqual, a, 1e-9)

	err = s.Step(map[string]float64{"pivot": 0}, -1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSimulatorReplayDeterminism(t *testing.T) {
	r := pendulum(t)
	torques := make([]map[string]float64, 5)
	for i := range torques {
		torques[i] = map[string]float64{"pivot": 0.5}
	}

	run := func() []Record {
		s := NewSimulator(r, r3.Vector{Y: -9.8},
			map[string]float64{"pivot": 0.2},
			map[string]float64{"pivot": -0.1},
			golog.NewTestLogger(t))
		trace, err := s.Simulate(torques, 0.01)
		test.That(t, err, test.ShouldBeNil)
		return trace
	}

	t1 := run()
	t2 := run()
	test.That(t, len(t1), test.ShouldEqual, len(t2))
	for i := range t1 {
		test.That(t, t1[i].Angles["pivot"], test.ShouldEqual, t2[i].Angles["pivot"])
		test.That(t, t1[i].Accelerations["pivot"], test.ShouldEqual, t2[i].Accelerations["pivot"])
	}
}

func TestSimulatorReset(t *testing.T) {
	r := pendulum(t)
	s := NewSimulator(r, r3.Vector{Y: -9.8},
		map[string]float64{"pivot": 0.3},
		map[string]float64{"pivot": 0},
		golog.NewTestLogger(t))

	_, err := s.Simulate([]map[string]float64{{"pivot": 0}, {"pivot": 0}}, 0.01)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(s.Records()), test.ShouldEqual, 2)

	s.Reset()
	test.That(t, s.Time(), test.ShouldEqual, 0)
	test.That(t, len(s.Records()), test.ShouldEqual, 0)
	test.That(t, s.Angles()["pivot"], test.ShouldEqual, 0.3)
}
