package export

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.mechdyn.dev/dyngraph/sim"
)

// plotSeries draws one line per joint from a per-record scalar selector.
func plotSeries(records []sim.Record, selector func(sim.Record) map[string]float64, title, ylabel, path string) error {
	if len(records) == 0 {
		return errors.New("no records to plot")
	}

	names := make([]string, 0, len(selector(records[0])))
	for name := range selector(records[0]) {
		names = append(names, name)
	}
	sort.Strings(names)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time [s]"
	p.Y.Label.Text = ylabel

	for _, name := range names {
		pts := make(plotter.XYs, len(records))
		for i, rec := range records {
			pts[i].X = rec.Time
			pts[i].Y = selector(rec)[name]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "line for %q", name)
		}
		p.Add(line)
		p.Legend.Add(name, line)
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrap(err, "saving plot")
	}
	return nil
}

// PlotJointAngles writes a PNG of every joint angle across the trace.
func PlotJointAngles(records []sim.Record, path string) error {
	return plotSeries(records, func(r sim.Record) map[string]float64 { return r.Angles },
		"joint angles", "angle [rad]", path)
}

// PlotJointVelocities writes a PNG of every joint velocity across the trace.
func PlotJointVelocities(records []sim.Record, path string) error {
	return plotSeries(records, func(r sim.Record) map[string]float64 { return r.Velocities },
		"joint velocities", "velocity [rad/s]", path)
}

// PlotJointTorques writes a PNG of every joint torque across the trace.
func PlotJointTorques(records []sim.Record, path string) error {
	return plotSeries(records, func(r sim.Record) map[string]float64 { return r.Torques },
		"joint torques", "torque [Nm]", path)
}
