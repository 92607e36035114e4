package phys

import "math"

// State is a generalized coordinate vector: [theta, omega] for a single
// pendulum, [theta1, omega1, theta2, omega2] for a double pendulum.
// Angles are measured from the downward vertical in radians, angular
// velocities in rad/s.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Params holds the physical parameters of the pendulum. For a single
// pendulum only M1, L1, G and Damping are read.
type Params struct {
	M1, M2  float64 // bob masses, kg
	L1, L2  float64 // rod lengths, m
	G       float64 // gravitational acceleration, m/s^2
	Damping float64 // linear angular-velocity damping coefficient
}

func DefaultParams() Params {
	return Params{M1: 1.0, M2: 1.0, L1: 1.0, L2: 1.0, G: 9.81}
}

// minLength and minDenom floor degenerate geometry instead of failing:
// derivative evaluation must stay finite for any finite input.
const (
	minLength = 1e-9
	minDenom  = 1e-9
)

// SingleDeriv returns [dtheta, domega] for a simple pendulum.
func SingleDeriv(x State, p Params) State {
	theta, omega := x[0], x[1]

	l := math.Max(minLength, p.L1)
	alpha := -(p.G / l) * math.Sin(theta)
	if p.Damping != 0 {
		alpha -= p.Damping * omega
	}
	return State{omega, alpha}
}

// DoubleDeriv returns [dth1, dw1, dth2, dw2] for a double pendulum of two
// point masses on rigid massless rods. The shared denominator
// 2*m1 + m2 - m2*cos(2*delta) is floored near the alignment singularity.
func DoubleDeriv(x State, p Params) State {
	th1, w1, th2, w2 := x[0], x[1], x[2], x[3]
	m1, m2 := p.M1, p.M2
	l1 := math.Max(minLength, p.L1)
	l2 := math.Max(minLength, p.L2)
	g := p.G

	delta := th1 - th2
	sinD, cosD := math.Sin(delta), math.Cos(delta)

	denom := 2.0*m1 + m2 - m2*math.Cos(2.0*delta)
	if math.Abs(denom) < minDenom {
		denom = minDenom
	}

	num1 := -g*(2.0*m1+m2)*math.Sin(th1) -
		m2*g*math.Sin(th1-2.0*th2) -
		2.0*sinD*m2*(w2*w2*l2+w1*w1*l1*cosD)
	a1 := num1 / (l1 * denom)

	num2 := 2.0 * sinD * (w1*w1*l1*(m1+m2) +
		g*(m1+m2)*math.Cos(th1) +
		w2*w2*l2*m2*cosD)
	a2 := num2 / (l2 * denom)

	if p.Damping != 0 {
		a1 -= p.Damping * w1
		a2 -= p.Damping * w2
	}

	return State{w1, a1, w2, a2}
}

// Energy returns total mechanical energy (kinetic + potential) with y=0 at
// the pivot. A 4-component state is treated as a double pendulum, anything
// else as a single pendulum.
func Energy(x State, p Params) float64 {
	if len(x) >= 4 {
		th1, w1, th2, w2 := x[0], x[1], x[2], x[3]
		l1, l2 := p.L1, p.L2

		x1dot := l1 * w1 * math.Cos(th1)
		y1dot := -l1 * w1 * math.Sin(th1)
		x2dot := x1dot + l2*w2*math.Cos(th2)
		y2dot := y1dot - l2*w2*math.Sin(th2)

		ke := 0.5*p.M1*(x1dot*x1dot+y1dot*y1dot) + 0.5*p.M2*(x2dot*x2dot+y2dot*y2dot)

		y1 := -l1 * math.Cos(th1)
		y2 := y1 - l2*math.Cos(th2)
		pe := p.M1*p.G*y1 + p.M2*p.G*y2

		return ke + pe
	}

	th, w := x[0], x[1]
	xdot := p.L1 * w * math.Cos(th)
	ydot := -p.L1 * w * math.Sin(th)
	ke := 0.5 * p.M1 * (xdot*xdot + ydot*ydot)
	pe := p.M1 * p.G * (-p.L1 * math.Cos(th))
	return ke + pe
}

// Positions returns bob coordinates in meters relative to the pivot at
// (0, 0), with y positive downwards. For a single pendulum the second bob
// coincides with the first.
func Positions(x State, p Params) (x1, y1, x2, y2 float64) {
	if len(x) >= 4 {
		th1, th2 := x[0], x[2]
		x1 = p.L1 * math.Sin(th1)
		y1 = p.L1 * math.Cos(th1)
		x2 = x1 + p.L2*math.Sin(th2)
		y2 = y1 + p.L2*math.Cos(th2)
		return
	}
	th := x[0]
	x1 = p.L1 * math.Sin(th)
	y1 = p.L1 * math.Cos(th)
	return x1, y1, x1, y1
}

// WrapAngle maps an angle into (-pi, pi].
func WrapAngle(theta float64) float64 {
	twoPi := 2.0 * math.Pi
	a := math.Mod(theta+math.Pi, twoPi)
	if a < 0 {
		a += twoPi
	}
	if a == 0 {
		// theta was an odd multiple of pi; keep the closed upper bound.
		return math.Pi
	}
	return a - math.Pi
}

// NormalizeAngles wraps the angular positions of x in place, leaving
// angular velocities untouched.
func NormalizeAngles(x State) {
	if len(x) >= 2 {
		x[0] = WrapAngle(x[0])
	}
	if len(x) >= 4 {
		x[2] = WrapAngle(x[2])
	}
}
