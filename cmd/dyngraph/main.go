// Command dyngraph runs dynamics tooling from the command line: simulating a
// robot under scripted torques and exporting factor graph structure.
package main

import (
	"encoding/json"
	"os"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"go.mechdyn.dev/dyngraph/dynamics"
	"go.mechdyn.dev/dyngraph/export"
	"go.mechdyn.dev/dyngraph/ik"
	"go.mechdyn.dev/dyngraph/robot"
	"go.mechdyn.dev/dyngraph/sim"
	"go.mechdyn.dev/dyngraph/spatialmath"
)

// Scenario is a yaml simulation script: a robot model, gravity, the initial
// joint state, and constant torques applied for a number of fixed steps.
type Scenario struct {
	Robot   string  `yaml:"robot"`
	Gravity Vector3 `yaml:"gravity"`
	DT      float64 `yaml:"dt"`
	Steps   int     `yaml:"steps"`

	Initial struct {
		Angles     map[string]float64 `yaml:"angles"`
		Velocities map[string]float64 `yaml:"velocities"`
	} `yaml:"initial"`
	Torques map[string]float64 `yaml:"torques"`

	Output struct {
		Trace      string `yaml:"trace"`
		AnglesPlot string `yaml:"angles_plot"`
	} `yaml:"output"`
}

// Vector3 is a yaml-friendly 3-vector.
type Vector3 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

func (v Vector3) r3() r3.Vector { return r3.Vector{X: v.X, Y: v.Y, Z: v.Z} }

func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading scenario")
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "parsing scenario")
	}
	if s.Robot == "" {
		return nil, errors.New("scenario names no robot model")
	}
	if s.DT <= 0 {
		return nil, errors.Errorf("scenario dt must be positive, got %g", s.DT)
	}
	if s.Steps <= 0 {
		return nil, errors.Errorf("scenario steps must be positive, got %d", s.Steps)
	}
	return &s, nil
}

func runSimulate(logger golog.Logger, scenarioPath string) error {
	s, err := loadScenario(scenarioPath)
	if err != nil {
		return err
	}
	r, err := robot.NewFromFile(s.Robot)
	if err != nil {
		return err
	}
	logger.Infow("loaded robot", "name", r.Name(), "links", r.NumLinks(), "joints", r.NumJoints())

	simulator := sim.NewSimulator(r, s.Gravity.r3(), s.Initial.Angles, s.Initial.Velocities, logger)
	torques := make([]map[string]float64, s.Steps)
	for i := range torques {
		torques[i] = s.Torques
	}
	trace, err := simulator.Simulate(torques, s.DT)
	if err != nil {
		return err
	}
	logger.Infow("simulation finished", "steps", len(trace), "time", simulator.Time())

	if s.Output.Trace != "" {
		data, err := json.MarshalIndent(trace, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(s.Output.Trace, data, 0o644); err != nil {
			return errors.Wrap(err, "writing trace")
		}
		logger.Infow("wrote trace", "path", s.Output.Trace)
	}
	if s.Output.AnglesPlot != "" {
		if err := export.PlotJointAngles(trace, s.Output.AnglesPlot); err != nil {
			return err
		}
		logger.Infow("wrote plot", "path", s.Output.AnglesPlot)
	}
	return nil
}

func runGraph(logger golog.Logger, modelPath, outPath string, gravity Vector3) error {
	r, err := robot.NewFromFile(modelPath)
	if err != nil {
		return err
	}
	b := dynamics.NewBuilder(r, gravity.r3(), dynamics.DefaultSettings())
	g, err := b.DynamicsGraph(0, nil)
	if err != nil {
		return err
	}
	if err := export.SaveGraphJSON(g, outPath); err != nil {
		return err
	}
	logger.Infow("wrote graph", "path", outPath, "factors", g.Size(), "variables", len(g.Keys()))
	return nil
}

func runIK(logger golog.Logger, modelPath, linkName string, target, axis []float64, theta float64) error {
	r, err := robot.NewFromFile(modelPath)
	if err != nil {
		return err
	}
	b := dynamics.NewBuilder(r, r3.Vector{Z: -9.8}, dynamics.DefaultSettings())

	goal := spatialmath.NewPoseFromPoint(r3.Vector{X: target[0], Y: target[1], Z: target[2]})
	if theta != 0 {
		goal = spatialmath.NewPoseFromAxisAngle(
			r3.Vector{X: axis[0], Y: axis[1], Z: axis[2]}, theta,
			r3.Vector{X: target[0], Y: target[1], Z: target[2]})
	}
	angles, err := ik.SolveGraph(b, linkName, goal, ik.GraphOptions{})
	if err != nil {
		return err
	}
	for name, q := range angles {
		logger.Infow("solved joint", "joint", name, "angle", q)
	}
	return nil
}

func main() {
	logger := golog.NewDevelopmentLogger("dyngraph")

	rootCmd := &cobra.Command{
		Use:          "dyngraph",
		Short:        "factor graph dynamics tooling",
		SilenceUsage: true,
	}

	simulateCmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "integrate a robot forward under scripted torques",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(logger, args[0])
		},
	}

	var graphOut string
	var gravity []float64
	graphCmd := &cobra.Command{
		Use:   "graph <robot.json>",
		Short: "export a robot's single-step dynamics graph as json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(gravity) != 3 {
				return errors.Errorf("gravity needs 3 components, got %d", len(gravity))
			}
			return runGraph(logger, args[0], graphOut, Vector3{X: gravity[0], Y: gravity[1], Z: gravity[2]})
		},
	}
	graphCmd.Flags().StringVar(&graphOut, "out", "graph.json", "output path")
	graphCmd.Flags().Float64SliceVar(&gravity, "gravity", []float64{0, 0, -9.8}, "gravity vector")

	var ikLink string
	var ikTarget, ikAxis []float64
	var ikTheta float64
	ikCmd := &cobra.Command{
		Use:   "ik <robot.json>",
		Short: "solve joint angles placing a link at a goal pose",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ikLink == "" {
				return errors.New("a target link is required")
			}
			if len(ikTarget) != 3 || len(ikAxis) != 3 {
				return errors.New("target and axis need 3 components")
			}
			return runIK(logger, args[0], ikLink, ikTarget, ikAxis, ikTheta)
		},
	}
	ikCmd.Flags().StringVar(&ikLink, "link", "", "link to place")
	ikCmd.Flags().Float64SliceVar(&ikTarget, "target", []float64{0, 0, 0}, "goal position")
	ikCmd.Flags().Float64SliceVar(&ikAxis, "axis", []float64{0, 0, 1}, "goal rotation axis")
	ikCmd.Flags().Float64Var(&ikTheta, "theta", 0, "goal rotation angle [rad]")

	rootCmd.AddCommand(simulateCmd, graphCmd, ikCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
