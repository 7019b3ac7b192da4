// Package trajectory plans multi-phase motions: walk cycles made of contact
// phases, the factor graphs spanning them, and the task-space objectives that
// shape stance and swing feet.
package trajectory

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.mechdyn.dev/dyngraph/dynamics"
	"go.mechdyn.dev/dyngraph/factor"
)

// A ConstraintSpec describes what holds the robot during one phase. The
// interface is closed; FootContactSpec is the only implementation today and
// consumers switch on the concrete type.
type ConstraintSpec interface {
	isConstraintSpec()
}

// FootContactSpec is a stance phase: the listed contact points stay on the
// ground.
type FootContactSpec struct {
	Contacts []dynamics.ContactPoint
}

func (*FootContactSpec) isConstraintSpec() {}

// NewFootContactSpec returns a stance spec over the given contact points.
func NewFootContactSpec(contacts ...dynamics.ContactPoint) *FootContactSpec {
	return &FootContactSpec{Contacts: contacts}
}

// Phase is one segment of a walk cycle with a fixed constraint regime.
type Phase struct {
	NumSteps int
	Spec     ConstraintSpec
}

// contacts returns the phase's contact points, nil for non-contact specs.
func (p Phase) contacts() []dynamics.ContactPoint {
	if fc, ok := p.Spec.(*FootContactSpec); ok {
		return fc.Contacts
	}
	return nil
}

// WalkCycle is one repeatable sequence of phases.
type WalkCycle struct {
	Phases []Phase
}

// AllContacts returns every contact point appearing anywhere in the cycle,
// deduplicated by link name, in first-appearance order.
func (w WalkCycle) AllContacts() []dynamics.ContactPoint {
	seen := map[string]bool{}
	var out []dynamics.ContactPoint
	for _, p := range w.Phases {
		for _, c := range p.contacts() {
			if !seen[c.Link] {
				seen[c.Link] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Trajectory is a walk cycle repeated a number of times.
type Trajectory struct {
	cycle  WalkCycle
	repeat int
}

// New returns a trajectory repeating the cycle the given number of times.
func New(cycle WalkCycle, repeat int) Trajectory {
	return Trajectory{cycle: cycle, repeat: repeat}
}

// Phases returns the flattened phase sequence.
func (t Trajectory) Phases() []Phase {
	out := make([]Phase, 0, len(t.cycle.Phases)*t.repeat)
	for i := 0; i < t.repeat; i++ {
		out = append(out, t.cycle.Phases...)
	}
	return out
}

// PhaseSteps returns the step count of each flattened phase.
func (t Trajectory) PhaseSteps() []int {
	phases := t.Phases()
	out := make([]int, len(phases))
	for i, p := range phases {
		out[i] = p.NumSteps
	}
	return out
}

// NumSteps returns the total number of integration steps.
func (t Trajectory) NumSteps() int {
	sum := 0
	for _, p := range t.Phases() {
		sum += p.NumSteps
	}
	return sum
}

// PhaseContacts returns the contact set of each flattened phase.
func (t Trajectory) PhaseContacts() [][]dynamics.ContactPoint {
	phases := t.Phases()
	out := make([][]dynamics.ContactPoint, len(phases))
	for i, p := range phases {
		out[i] = p.contacts()
	}
	return out
}

// PhaseStartSteps returns the first time step of each flattened phase.
func (t Trajectory) PhaseStartSteps() []int {
	steps := t.PhaseSteps()
	out := make([]int, len(steps))
	acc := 0
	for i, n := range steps {
		out[i] = acc
		acc += n
	}
	return out
}

// mergedContacts unions two contact sets, deduplicating by link name.
func mergedContacts(a, b []dynamics.ContactPoint) []dynamics.ContactPoint {
	seen := map[string]bool{}
	var out []dynamics.ContactPoint
	for _, c := range append(append([]dynamics.ContactPoint{}, a...), b...) {
		if !seen[c.Link] {
			seen[c.Link] = true
			out = append(out, c)
		}
	}
	return out
}

// TransitionGraphs builds the boundary-step dynamics graphs between adjacent
// phases. The boundary step obeys the union of both phases' contacts.
func (t Trajectory) TransitionGraphs(b *dynamics.Builder) ([]*factor.Graph, error) {
	phases := t.Phases()
	starts := t.PhaseStartSteps()
	out := make([]*factor.Graph, 0, len(phases)-1)
	for i := 0; i+1 < len(phases); i++ {
		boundary := starts[i] + phases[i].NumSteps
		union := mergedContacts(phases[i].contacts(), phases[i+1].contacts())
		g, err := b.DynamicsGraph(boundary, union)
		if err != nil {
			return nil, errors.Wrapf(err, "transition %d", i)
		}
		out = append(out, g)
	}
	return out, nil
}

// MultiPhaseGraph assembles the full trajectory optimization graph with
// per-phase duration variables.
func (t Trajectory) MultiPhaseGraph(b *dynamics.Builder, scheme dynamics.CollocationScheme) (*factor.Graph, error) {
	trans, err := t.TransitionGraphs(b)
	if err != nil {
		return nil, err
	}
	return b.MultiPhaseTrajectoryGraph(t.PhaseContacts(), t.PhaseSteps(), trans, scheme)
}

// StanceTrajectory returns numSteps+1 copies of a fixed world goal, the foot
// target while it carries load.
func StanceTrajectory(goal r3.Vector, numSteps int) []r3.Vector {
	out := make([]r3.Vector, numSteps+1)
	for i := range out {
		out[i] = goal
	}
	return out
}

// SimpleSwingTrajectory advances a foot from start by one step vector over
// numSteps, lifting it along a parabola of the given apex height.
func SimpleSwingTrajectory(start, step r3.Vector, height float64, numSteps int) []r3.Vector {
	out := make([]r3.Vector, numSteps+1)
	for i := range out {
		s := float64(i) / float64(numSteps)
		p := start.Add(step.Mul(s))
		p.Z += 4 * height * s * (1 - s)
		out[i] = p
	}
	return out
}

// ContactPointObjectives pins each foot's contact point to its per-step
// target: the resting spot during stance, a swing arc otherwise. Every swing
// phase advances the foot by the step vector.
func (t Trajectory) ContactPointObjectives(
	b *dynamics.Builder,
	step r3.Vector,
	swingHeight float64,
	model factor.Model,
) (*factor.Graph, error) {
	g := factor.NewGraph()
	phases := t.Phases()
	starts := t.PhaseStartSteps()

	for _, foot := range t.cycle.AllContacts() {
		l, err := b.Robot().Link(foot.Link)
		if err != nil {
			return nil, err
		}
		goal := l.RestPose().TransformPoint(foot.Point)

		for pi, phase := range phases {
			inStance := false
			for _, c := range phase.contacts() {
				if c.Link == foot.Link {
					inStance = true
					break
				}
			}

			var targets []r3.Vector
			if inStance {
				targets = StanceTrajectory(goal, phase.NumSteps)
			} else {
				targets = SimpleSwingTrajectory(goal, step, swingHeight, phase.NumSteps)
				goal = goal.Add(step)
			}
			for i, target := range targets {
				// the phase's first step coincides with the previous
				// phase's last; skip it except at the very start
				if i == 0 && pi > 0 {
					continue
				}
				g.Add(dynamics.NewPointGoalFactor(
					dynamics.PoseKey(l.ID(), starts[pi]+i), foot.Point, target, model))
			}
		}
	}
	return g, nil
}

// BoundaryConditions requires the robot to start and end at standstill.
func (t Trajectory) BoundaryConditions(b *dynamics.Builder, model factor.Model) *factor.Graph {
	g := factor.NewGraph()
	g.AddGraph(b.StandstillObjectives(0, model))
	g.AddGraph(b.StandstillObjectives(t.NumSteps(), model))
	return g
}

// MinTorqueObjectives pulls all actuation torques toward zero across the
// whole trajectory.
func (t Trajectory) MinTorqueObjectives(b *dynamics.Builder, model factor.Model) *factor.Graph {
	return b.MinTorqueFactors(t.NumSteps(), model)
}

// PhaseDurationPriors pins every phase duration to the estimate.
func (t Trajectory) PhaseDurationPriors(dt float64, model factor.Model) *factor.Graph {
	return dynamics.PhaseDurationPriors(len(t.Phases()), dt, model)
}

// InitialValues seeds the optimizer: zero state across all steps plus phase
// durations, with optional Gaussian jitter on the joint scalars.
func (t Trajectory) InitialValues(b *dynamics.Builder, sigma float64, seed uint64, dtEstimate float64) (*factor.Values, error) {
	vals, err := b.ZeroValuesTrajectory(t.NumSteps(), t.AllCycleContacts(), sigma, seed, t.PhaseSteps(), dtEstimate)
	if err != nil {
		return nil, err
	}
	return vals, nil
}

// AllCycleContacts returns every contact point in the underlying cycle.
func (t Trajectory) AllCycleContacts() []dynamics.ContactPoint {
	return t.cycle.AllContacts()
}
