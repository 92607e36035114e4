package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/mhaeusl/pendel/internal/integrate"
	"github.com/mhaeusl/pendel/internal/phys"
)

// Mode selects the simulated system.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeDouble Mode = "double"
)

// Integrator selects the active stepping scheme.
type Integrator string

const (
	RK4        Integrator = "rk4"
	Symplectic Integrator = "symplectic"
)

var (
	ErrUnknownMode       = errors.New("engine: unknown mode")
	ErrUnknownIntegrator = errors.New("engine: unknown integrator")
)

// Step-size tunables and energy-monitor policy. The thresholds and
// adjustment rates are empirical constants carried over unchanged.
const (
	DefaultBaseDt = 0.004
	DefaultDtMax  = 0.015

	SymplecticBaseDt = 0.008
	SymplecticDtCeil = 0.03
	RK4DtCeil        = 0.015

	// Host-facing clamp for manually supplied tunables.
	TunableMin = 5e-4
	TunableMax = 5e-2

	energyCheckInterval = 0.5
	energyThreshold     = 0.1
	dtMaxShrink         = 0.85
	dtMaxGrow           = 1.05
	dtMaxFloor          = 1e-3
)

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }

func initialState(mode Mode) phys.State {
	if mode == ModeSingle {
		return phys.State{radians(120), 0}
	}
	return phys.State{radians(120), 0, radians(-10), 0}
}

// Session holds the canonical simulation state. Fields are exported where
// the host reads them directly; mutation goes through the Set* methods and
// Step.
type Session struct {
	Mode       Mode
	State      phys.State
	Params     phys.Params
	Integrator Integrator

	BaseDt    float64
	DtMax     float64
	TimeScale float64
	SimTime   float64

	Autoswitch bool

	// EnergyErr is the last sampled relative drift; zero until the first
	// sample after the baseline capture.
	EnergyErr float64

	energyRef   float64
	hasRef      bool
	energyAccum float64
}

// NewSession creates a session at the canonical initial condition for mode
// with default parameters, RK4 stepping and autoswitch enabled.
func NewSession(mode Mode) *Session {
	if mode != ModeSingle {
		mode = ModeDouble
	}
	return &Session{
		Mode:       mode,
		State:      initialState(mode),
		Params:     phys.DefaultParams(),
		Integrator: RK4,
		BaseDt:     DefaultBaseDt,
		DtMax:      DefaultDtMax,
		TimeScale:  1.0,
		Autoswitch: true,
	}
}

func (s *Session) deriv() integrate.Deriv {
	if s.Mode == ModeSingle {
		return phys.SingleDeriv
	}
	return phys.DoubleDeriv
}

// Step advances the simulation by realDt seconds of host time (scaled by
// TimeScale), sub-stepping under the effective dt ceiling, and returns the
// new state. The returned slice is the session's own state; callers that
// retain it across steps must clone it.
func (s *Session) Step(realDt float64) phys.State {
	dt := realDt * s.TimeScale
	f := s.deriv()

	if s.Integrator == Symplectic {
		// The symplectic path runs a looser base step: one derivative
		// evaluation per sub-step tolerates roughly twice the RK4 base.
		base := math.Max(SymplecticBaseDt, 2.0*s.BaseDt)
		dtmx := math.Min(s.DtMax, integrate.ChooseDtMax(s.State, base, s.DtMax))
		s.State = integrate.SymplecticSubsteps(s.State, dt, dtmx, s.Params, f)
	} else {
		dtmx := math.Min(s.DtMax, integrate.ChooseDtMax(s.State, s.BaseDt, s.DtMax))
		s.State = integrate.RK4Substeps(s.State, dt, dtmx, s.Params, f)
	}

	phys.NormalizeAngles(s.State)
	s.SimTime += dt

	if s.Params.Damping == 0 {
		s.monitorEnergy(dt)
	}

	return s.State
}

// monitorEnergy tracks relative drift against the captured baseline and
// adjusts DtMax or the integrator. Only called with damping disabled:
// dissipation would make conservation a meaningless proxy.
func (s *Session) monitorEnergy(dt float64) {
	s.energyAccum += dt

	if !s.hasRef {
		s.energyRef = phys.Energy(s.State, s.Params)
		s.hasRef = true
		return
	}

	if s.energyAccum < energyCheckInterval {
		return
	}
	s.energyAccum = 0

	e := phys.Energy(s.State, s.Params)
	s.EnergyErr = math.Abs(e-s.energyRef) / math.Max(1e-9, math.Abs(s.energyRef))

	switch {
	case s.Autoswitch && s.Integrator == Symplectic && s.EnergyErr > energyThreshold:
		// Drift past the hard threshold: fall back to the accurate scheme
		// and re-baseline, since each integrator has its own error profile.
		s.Integrator = RK4
		s.BaseDt = DefaultBaseDt
		s.DtMax = DefaultDtMax
		s.energyRef = e
	case s.EnergyErr > energyThreshold*0.5:
		s.DtMax = math.Max(dtMaxFloor, s.DtMax*dtMaxShrink)
	default:
		s.DtMax = math.Min(s.dtCeil(), s.DtMax*dtMaxGrow)
	}
}

func (s *Session) dtCeil() float64 {
	if s.Integrator == Symplectic {
		return SymplecticDtCeil
	}
	return RK4DtCeil
}

// Energy returns the current total mechanical energy.
func (s *Session) Energy() float64 {
	return phys.Energy(s.State, s.Params)
}

// Positions returns the bob coordinates for the current state.
func (s *Session) Positions() (x1, y1, x2, y2 float64) {
	return phys.Positions(s.State, s.Params)
}

// Reset restores the canonical initial condition for the current mode,
// zeroes simulated time and clears the energy baseline.
func (s *Session) Reset() {
	s.State = initialState(s.Mode)
	s.SimTime = 0
	s.clearEnergyBaseline()
}

func (s *Session) clearEnergyBaseline() {
	s.hasRef = false
	s.energyRef = 0
	s.EnergyErr = 0
	s.energyAccum = 0
}

// SetMode converts the state vector to the requested mode. Double to single
// keeps the first pendulum; single to double appends the default second
// sub-state. The energy baseline is cleared because the energy functional
// changes with the mode. The return value tells the host whether its
// visualization state (trail) must be discarded.
func (s *Session) SetMode(next Mode) bool {
	if next != ModeSingle && next != ModeDouble {
		return false
	}
	if next == s.Mode {
		return false
	}

	if next == ModeSingle {
		s.State = phys.State{s.State[0], s.State[1]}
	} else {
		s.State = phys.State{s.State[0], s.State[1], radians(-10), 0}
	}
	s.Mode = next
	s.clearEnergyBaseline()
	return true
}

// SetIntegrator switches the stepping scheme, restores that scheme's
// default tunables and clears the energy baseline.
func (s *Session) SetIntegrator(kind Integrator) error {
	switch kind {
	case RK4:
		s.Integrator = RK4
		s.BaseDt = DefaultBaseDt
		s.DtMax = DefaultDtMax
	case Symplectic:
		s.Integrator = Symplectic
		s.BaseDt = SymplecticBaseDt
		s.DtMax = SymplecticDtCeil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownIntegrator, kind)
	}
	s.clearEnergyBaseline()
	return nil
}

// SetParam merges a single physical parameter; it takes effect on the next
// Step. Values are not validated here; derivative evaluation is
// epsilon-guarded against degenerate geometry.
func (s *Session) SetParam(name string, value float64) error {
	switch name {
	case "m1":
		s.Params.M1 = value
	case "m2":
		s.Params.M2 = value
	case "l1":
		s.Params.L1 = value
	case "l2":
		s.Params.L2 = value
	case "g":
		s.Params.G = value
	case "damping":
		s.Params.Damping = value
	default:
		return fmt.Errorf("engine: unknown param: %s", name)
	}
	return nil
}

// SetParams merges a partial parameter set.
func (s *Session) SetParams(params map[string]float64) error {
	for name, value := range params {
		if err := s.SetParam(name, value); err != nil {
			return err
		}
	}
	return nil
}

// SetState overwrites the generalized state, the hook for host-side drag
// editing between steps. The vector is cloned and angle-normalized; the
// energy baseline is cleared because the imposed state carries arbitrary
// energy.
func (s *Session) SetState(x phys.State) {
	s.State = x.Clone()
	phys.NormalizeAngles(s.State)
	s.clearEnergyBaseline()
}

// SetStepBounds sets the manual step tunables, clamped to the safe
// interval. NaN maps to the lower bound.
func (s *Session) SetStepBounds(baseDt, dtMax float64) {
	s.BaseDt = clampTunable(baseDt)
	s.DtMax = clampTunable(dtMax)
}

func clampTunable(v float64) float64 {
	if math.IsNaN(v) || v < TunableMin {
		return TunableMin
	}
	if v > TunableMax {
		return TunableMax
	}
	return v
}

// ParseMode maps a user-supplied mode name, defaulting to double.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "single":
		return ModeSingle, nil
	case "double", "":
		return ModeDouble, nil
	default:
		return ModeDouble, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// ParseIntegrator maps a user-supplied integrator name.
func ParseIntegrator(name string) (Integrator, error) {
	switch name {
	case "rk4", "":
		return RK4, nil
	case "symplectic":
		return Symplectic, nil
	default:
		return RK4, fmt.Errorf("%w: %q", ErrUnknownIntegrator, name)
	}
}
