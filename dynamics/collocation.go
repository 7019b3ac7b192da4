package dynamics

import (
	"gonum.org/v1/gonum/mat"

	"go.mechdyn.dev/dyngraph/factor"
)

// CollocationScheme selects the integration rule tying consecutive time
// steps together.
type CollocationScheme uint8

// Supported collocation schemes.
const (
	CollocationEuler CollocationScheme = iota
	CollocationTrapezoidal
)

func (s CollocationScheme) String() string {
	switch s {
	case CollocationEuler:
		return "euler"
	case CollocationTrapezoidal:
		return "trapezoidal"
	}
	return "unknown"
}

// EulerPhaseFactor is Euler collocation with the step duration as a variable
// shared across a trajectory phase: x1 = x0 + dt * rate.
type EulerPhaseFactor struct {
	x0Key, x1Key, rateKey, phaseKey factor.Key
	noise                           factor.Model
}

// NewEulerPhaseFactor returns a variable-step Euler collocation factor.
func NewEulerPhaseFactor(x0, x1, rate, phase factor.Key, noise factor.Model) *EulerPhaseFactor {
	return &EulerPhaseFactor{x0Key: x0, x1Key: x1, rateKey: rate, phaseKey: phase, noise: noise}
}

func (f *EulerPhaseFactor) Keys() []factor.Key {
	return []factor.Key{f.x0Key, f.x1Key, f.rateKey, f.phaseKey}
}
func (f *EulerPhaseFactor) Dim() int            { return 1 }
func (f *EulerPhaseFactor) Noise() factor.Model { return f.noise }

func (f *EulerPhaseFactor) eval(v *factor.Values) (e, rate, dt float64, err error) {
	x0, err := v.Double(f.x0Key)
	if err != nil {
		return 0, 0, 0, err
	}
	x1, err := v.Double(f.x1Key)
	if err != nil {
		return 0, 0, 0, err
	}
	rate, err = v.Double(f.rateKey)
	if err != nil {
		return 0, 0, 0, err
	}
	dt, err = v.Double(f.phaseKey)
	if err != nil {
		return 0, 0, 0, err
	}
	return x0 + dt*rate - x1, rate, dt, nil
}

func (f *EulerPhaseFactor) Error(v *factor.Values) ([]float64, error) {
	e, _, _, err := f.eval(v)
	if err != nil {
		return nil, err
	}
	return []float64{e}, nil
}

func (f *EulerPhaseFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	e, rate, dt, err := f.eval(v)
	if err != nil {
		return nil, err
	}
	return &factor.Linearization{
		Keys: f.Keys(),
		J: []*mat.Dense{
			mat.NewDense(1, 1, []float64{1}),
			mat.NewDense(1, 1, []float64{-1}),
			mat.NewDense(1, 1, []float64{dt}),
			mat.NewDense(1, 1, []float64{rate}),
		},
		Err: []float64{e},
	}, nil
}

// TrapezoidalPhaseFactor is trapezoidal collocation with a variable step
// duration: x1 = x0 + dt/2 * (rate0 + rate1).
type TrapezoidalPhaseFactor struct {
	x0Key, x1Key, rate0Key, rate1Key, phaseKey factor.Key
	noise                                      factor.Model
}

// NewTrapezoidalPhaseFactor returns a variable-step trapezoidal collocation
// factor.
func NewTrapezoidalPhaseFactor(x0, x1, rate0, rate1, phase factor.Key, noise factor.Model) *TrapezoidalPhaseFactor {
	return &TrapezoidalPhaseFactor{x0Key: x0, x1Key: x1, rate0Key: rate0, rate1Key: rate1, phaseKey: phase, noise: noise}
}

func (f *TrapezoidalPhaseFactor) Keys() []factor.Key {
	return []factor.Key{f.x0Key, f.x1Key, f.rate0Key, f.rate1Key, f.phaseKey}
}
func (f *TrapezoidalPhaseFactor) Dim() int            { return 1 }
func (f *TrapezoidalPhaseFactor) Noise() factor.Model { return f.noise }

func (f *TrapezoidalPhaseFactor) eval(v *factor.Values) (e, avgRate, dt float64, err error) {
	x0, err := v.Double(f.x0Key)
	if err != nil {
		return 0, 0, 0, err
	}
	x1, err := v.Double(f.x1Key)
	if err != nil {
		return 0, 0, 0, err
	}
	r0, err := v.Double(f.rate0Key)
	if err != nil {
		return 0, 0, 0, err
	}
	r1, err := v.Double(f.rate1Key)
	if err != nil {
		return 0, 0, 0, err
	}
	dt, err = v.Double(f.phaseKey)
	if err != nil {
		return 0, 0, 0, err
	}
	avgRate = (r0 + r1) / 2
	return x0 + dt*avgRate - x1, avgRate, dt, nil
}

func (f *TrapezoidalPhaseFactor) Error(v *factor.Values) ([]float64, error) {
	e, _, _, err := f.eval(v)
	if err != nil {
		return nil, err
	}
	return []float64{e}, nil
}

func (f *TrapezoidalPhaseFactor) Linearize(v *factor.Values) (*factor.Linearization, error) {
	e, avgRate, dt, err := f.eval(v)
	if err != nil {
		return nil, err
	}
	return &factor.Linearization{
		Keys: f.Keys(),
		J: []*mat.Dense{
			mat.NewDense(1, 1, []float64{1}),
			mat.NewDense(1, 1, []float64{-1}),
			mat.NewDense(1, 1, []float64{dt / 2}),
			mat.NewDense(1, 1, []float64{dt / 2}),
			mat.NewDense(1, 1, []float64{avgRate}),
		},
		Err: []float64{e},
	}, nil
}
