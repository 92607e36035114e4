package integrate

import (
	"math"

	"github.com/mhaeusl/pendel/internal/phys"
)

// Deriv computes the instantaneous derivative of a state vector.
type Deriv func(x phys.State, p phys.Params) phys.State

// RK4Step performs one classical 4th-order Runge-Kutta step. Works for any
// state dimension; pure, the input state is not modified.
func RK4Step(x phys.State, dt float64, p phys.Params, f Deriv) phys.State {
	n := len(x)

	k1 := f(x, p)

	scratch := make(phys.State, n)
	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*0.5*k1[i]
	}
	k2 := f(scratch, p)

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*0.5*k2[i]
	}
	k3 := f(scratch, p)

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*k3[i]
	}
	k4 := f(scratch, p)

	result := make(phys.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return result
}

// SymplecticStep performs one semi-implicit Euler step: a single derivative
// evaluation at the current position, velocity updated first, position
// updated with the new velocity. The state is treated as (angle, velocity)
// pairs; an odd-length state falls back to explicit Euler.
func SymplecticStep(x phys.State, dt float64, p phys.Params, f Deriv) phys.State {
	n := len(x)
	d := f(x, p)

	result := make(phys.State, n)
	if n%2 != 0 {
		for i := 0; i < n; i++ {
			result[i] = x[i] + dt*d[i]
		}
		return result
	}

	for i := 0; i < n; i += 2 {
		w := x[i+1] + dt*d[i+1]
		result[i+1] = w
		result[i] = x[i] + dt*w
	}
	return result
}

// RK4Substeps integrates dtTotal with RK4 split into ceil(|dtTotal|/dtMax)
// equal sub-steps (at least one), bounding local truncation error
// independently of the requested delta.
func RK4Substeps(x phys.State, dtTotal, dtMax float64, p phys.Params, f Deriv) phys.State {
	steps := substepCount(dtTotal, dtMax)
	dt := dtTotal / float64(steps)

	s := x.Clone()
	for i := 0; i < steps; i++ {
		s = RK4Step(s, dt, p, f)
	}
	return s
}

// SymplecticSubsteps is the semi-implicit Euler counterpart of RK4Substeps.
func SymplecticSubsteps(x phys.State, dtTotal, dtMax float64, p phys.Params, f Deriv) phys.State {
	steps := substepCount(dtTotal, dtMax)
	dt := dtTotal / float64(steps)

	s := x.Clone()
	for i := 0; i < steps; i++ {
		s = SymplecticStep(s, dt, p, f)
	}
	return s
}

func substepCount(dtTotal, dtMax float64) int {
	steps := int(math.Ceil(math.Abs(dtTotal) / math.Max(1e-9, dtMax)))
	if steps < 1 {
		steps = 1
	}
	return steps
}

// ChooseDtMax picks a safe sub-step ceiling from the largest angular
// velocity magnitude in the state. Slow motion tolerates the full ceiling;
// otherwise the step shrinks hyperbolically with angular speed, floored at
// 1e-4 s.
func ChooseDtMax(x phys.State, baseDt, ceiling float64) float64 {
	var wMax float64
	if len(x) >= 4 {
		wMax = math.Max(math.Abs(x[1]), math.Abs(x[3]))
	} else if len(x) > 1 {
		wMax = math.Abs(x[1])
	}

	if wMax <= 0.1 {
		return ceiling
	}
	return math.Max(1e-4, math.Min(ceiling, baseDt/(1.0+wMax)))
}
