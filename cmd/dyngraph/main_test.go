package main

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	body := `
robot: pendulum.json
gravity: {x: 0, y: -9.8, z: 0}
dt: 0.01
steps: 100
initial:
  angles: {pivot: 0.1}
  velocities: {pivot: 0}
torques: {pivot: 0.5}
output:
  trace: trace.json
  angles_plot: angles.png
`
	test.That(t, os.WriteFile(path, []byte(body), 0o644), test.ShouldBeNil)

	s, err := loadScenario(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Robot, test.ShouldEqual, "pendulum.json")
	test.That(t, s.Gravity.r3().Y, test.ShouldEqual, -9.8)
	test.That(t, s.Steps, test.ShouldEqual, 100)
	test.That(t, s.Initial.Angles["pivot"], test.ShouldEqual, 0.1)
	test.That(t, s.Torques["pivot"], test.ShouldEqual, 0.5)
	test.That(t, s.Output.AnglesPlot, test.ShouldEqual, "angles.png")

	bad := filepath.Join(dir, "bad.yaml")
	test.That(t, os.WriteFile(bad, []byte("robot: x\ndt: 0\nsteps: 1\n"), 0o644), test.ShouldBeNil)
	_, err = loadScenario(bad)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = loadScenario(filepath.Join(dir, "missing.yaml"))
	test.That(t, err, test.ShouldNotBeNil)
}
