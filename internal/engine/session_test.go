package engine

import (
	"math"
	"testing"

	"github.com/mhaeusl/pendel/internal/phys"
)

const frameDt = 1.0 / 60.0

func TestNewSessionCanonical(t *testing.T) {
	s := NewSession(ModeDouble)

	if s.Mode != ModeDouble {
		t.Errorf("expected double mode, got %s", s.Mode)
	}
	if len(s.State) != 4 {
		t.Fatalf("expected 4 components, got %d", len(s.State))
	}
	if math.Abs(s.State[0]-radians(120)) > 1e-12 || math.Abs(s.State[2]-radians(-10)) > 1e-12 {
		t.Errorf("unexpected initial angles: %v", s.State)
	}
	if s.Integrator != RK4 || !s.Autoswitch {
		t.Errorf("expected rk4 with autoswitch on")
	}

	single := NewSession(ModeSingle)
	if len(single.State) != 2 {
		t.Errorf("expected 2 components for single mode, got %d", len(single.State))
	}
}

func TestStepAdvancesSimTime(t *testing.T) {
	s := NewSession(ModeSingle)

	s.Step(frameDt)
	if math.Abs(s.SimTime-frameDt) > 1e-12 {
		t.Errorf("expected simTime %f, got %f", frameDt, s.SimTime)
	}

	s.TimeScale = 2.0
	s.Step(frameDt)
	if math.Abs(s.SimTime-3*frameDt) > 1e-12 {
		t.Errorf("expected simTime %f, got %f", 3*frameDt, s.SimTime)
	}
}

func TestStepNormalizesAngles(t *testing.T) {
	s := NewSession(ModeDouble)
	s.State = phys.State{10 * math.Pi, 3.0, -10 * math.Pi, -3.0}

	state := s.Step(frameDt)

	if !(state[0] > -math.Pi && state[0] <= math.Pi) {
		t.Errorf("theta1 not normalized: %f", state[0])
	}
	if !(state[2] > -math.Pi && state[2] <= math.Pi) {
		t.Errorf("theta2 not normalized: %f", state[2])
	}
}

func TestEnergyConservationRK4Single(t *testing.T) {
	s := NewSession(ModeSingle)
	s.SetState(phys.State{math.Pi / 3, 0})

	e0 := s.Energy()
	for i := 0; i < 300; i++ { // 5 simulated seconds
		s.Step(frameDt)
	}

	drift := math.Abs(s.Energy()-e0) / math.Abs(e0)
	if drift > 0.01 {
		t.Errorf("energy drift %.4f exceeds 1%%", drift)
	}
}

func TestScenarioCanonicalDouble(t *testing.T) {
	s := NewSession(ModeDouble)

	s.Step(frameDt)
	e1 := s.Energy()

	for i := 1; i < 600; i++ { // ~10 simulated seconds total
		s.Step(frameDt)
	}

	drift := math.Abs(s.Energy()-e1) / math.Abs(math.Max(1e-9, math.Abs(e1)))
	if drift > 0.02 {
		t.Errorf("energy drift %.4f exceeds 2%% after 600 frames", drift)
	}
}

func TestDeterminism(t *testing.T) {
	a := NewSession(ModeDouble)
	b := NewSession(ModeDouble)

	for i := 0; i < 200; i++ {
		sa := a.Step(frameDt)
		sb := b.Step(frameDt)
		for j := range sa {
			if sa[j] != sb[j] {
				t.Fatalf("trajectories diverged at step %d, component %d: %v != %v", i, j, sa[j], sb[j])
			}
		}
	}
	if a.DtMax != b.DtMax || a.Integrator != b.Integrator {
		t.Error("controller state diverged between identical runs")
	}
}

func TestSetModeDoubleToSingle(t *testing.T) {
	s := NewSession(ModeDouble)
	s.State = phys.State{1.1, 2.2, 0.5, -0.5}

	if !s.SetMode(ModeSingle) {
		t.Fatal("expected trail-reset signal on mode change")
	}
	if len(s.State) != 2 {
		t.Fatalf("expected 2 components, got %d", len(s.State))
	}
	if s.State[0] != 1.1 || s.State[1] != 2.2 {
		t.Errorf("first pendulum not preserved: %v", s.State)
	}
}

func TestSetModeSingleToDouble(t *testing.T) {
	s := NewSession(ModeSingle)
	s.State = phys.State{0.7, -1.5}

	if !s.SetMode(ModeDouble) {
		t.Fatal("expected trail-reset signal on mode change")
	}
	if len(s.State) != 4 {
		t.Fatalf("expected 4 components, got %d", len(s.State))
	}
	if s.State[0] != 0.7 || s.State[1] != -1.5 {
		t.Errorf("first pendulum not preserved: %v", s.State)
	}
	if math.Abs(s.State[2]-radians(-10)) > 1e-12 || s.State[3] != 0 {
		t.Errorf("unexpected appended sub-state: %v", s.State)
	}
}

func TestSetModeNoop(t *testing.T) {
	s := NewSession(ModeDouble)
	before := s.State.Clone()

	if s.SetMode(ModeDouble) {
		t.Error("same-mode switch should not signal a trail reset")
	}
	for i := range before {
		if s.State[i] != before[i] {
			t.Errorf("state changed on no-op mode switch")
		}
	}
}

func TestReset(t *testing.T) {
	s := NewSession(ModeDouble)
	for i := 0; i < 100; i++ {
		s.Step(frameDt)
	}

	s.Reset()

	if s.SimTime != 0 {
		t.Errorf("simTime not zeroed: %f", s.SimTime)
	}
	if s.hasRef || s.EnergyErr != 0 || s.energyAccum != 0 {
		t.Error("energy baseline not cleared")
	}
	init := initialState(ModeDouble)
	for i := range init {
		if s.State[i] != init[i] {
			t.Errorf("state not restored: %v", s.State)
		}
	}
}

func TestSetIntegratorDefaults(t *testing.T) {
	s := NewSession(ModeDouble)
	s.Step(frameDt) // capture a baseline

	if err := s.SetIntegrator(Symplectic); err != nil {
		t.Fatal(err)
	}
	if s.BaseDt != SymplecticBaseDt || s.DtMax != SymplecticDtCeil {
		t.Errorf("symplectic tunables not applied: %f, %f", s.BaseDt, s.DtMax)
	}
	if s.hasRef {
		t.Error("energy baseline survives an integrator switch")
	}

	if err := s.SetIntegrator(RK4); err != nil {
		t.Fatal(err)
	}
	if s.BaseDt != DefaultBaseDt || s.DtMax != DefaultDtMax {
		t.Errorf("rk4 tunables not applied: %f, %f", s.BaseDt, s.DtMax)
	}

	if err := s.SetIntegrator("rk45"); err == nil {
		t.Error("expected error for unknown integrator")
	}
}

func TestSetParams(t *testing.T) {
	s := NewSession(ModeDouble)

	if err := s.SetParams(map[string]float64{"m2": 2.5, "l1": 0.5, "damping": 0.1}); err != nil {
		t.Fatal(err)
	}
	if s.Params.M2 != 2.5 || s.Params.L1 != 0.5 || s.Params.Damping != 0.1 {
		t.Errorf("params not merged: %+v", s.Params)
	}
	if s.Params.M1 != 1.0 {
		t.Errorf("untouched param changed: %f", s.Params.M1)
	}

	if err := s.SetParam("mass", 1.0); err == nil {
		t.Error("expected error for unknown param name")
	}
}

func TestSetStateClearsBaselineAndNormalizes(t *testing.T) {
	s := NewSession(ModeDouble)
	s.Step(frameDt)

	external := phys.State{5 * math.Pi, 1.0, -5 * math.Pi, -1.0}
	s.SetState(external)

	if s.hasRef {
		t.Error("baseline should be cleared by an external overwrite")
	}
	if !(s.State[0] > -math.Pi && s.State[0] <= math.Pi) {
		t.Errorf("imposed angle not normalized: %f", s.State[0])
	}

	// Engine must keep stepping from arbitrary imposed state.
	if st := s.Step(frameDt); !st.IsValid() {
		t.Errorf("step after overwrite produced invalid state: %v", st)
	}

	external[1] = 99 // caller keeps its own copy
	if s.State[1] == 99 {
		t.Error("SetState aliased the caller's slice")
	}
}

func TestAutoswitchOnDrift(t *testing.T) {
	s := NewSession(ModeDouble)
	if err := s.SetIntegrator(Symplectic); err != nil {
		t.Fatal(err)
	}

	s.Step(0.01) // baseline capture
	if !s.hasRef {
		t.Fatal("expected baseline after first undamped step")
	}

	// Force apparent drift far beyond the 10% switch threshold.
	s.energyRef = s.energyRef + 100

	for i := 0; i < 60 && s.Integrator == Symplectic; i++ {
		s.Step(0.01)
	}

	if s.Integrator != RK4 {
		t.Fatal("expected switch to rk4 on forced drift")
	}
	if s.BaseDt != DefaultBaseDt || s.DtMax != DefaultDtMax {
		t.Errorf("accurate-mode tunables not restored: %f, %f", s.BaseDt, s.DtMax)
	}
	if math.Abs(s.energyRef-s.Energy()) > math.Abs(s.Energy())*0.1+1.0 {
		t.Errorf("baseline not recaptured near current energy: ref %f, e %f", s.energyRef, s.Energy())
	}
}

func TestMonitorShrinksDtMaxOnModerateDrift(t *testing.T) {
	s := NewSession(ModeDouble)
	s.Step(0.01)

	// Fake ~7% relative drift: above the shrink breach, below the switch
	// threshold (which would not apply to rk4 anyway).
	s.energyRef = s.Energy() / 0.93

	before := s.DtMax
	for i := 0; i < 60; i++ {
		s.Step(0.01)
	}

	if s.DtMax >= before {
		t.Errorf("dtMax should shrink on moderate drift: %f >= %f", s.DtMax, before)
	}
	if s.Integrator != RK4 {
		t.Error("rk4 must not be switched away from")
	}
}

func TestMonitorGrowsDtMaxWhenStable(t *testing.T) {
	s := NewSession(ModeDouble)
	s.DtMax = 0.01

	for i := 0; i < 60; i++ { // 0.6s: baseline + one sample
		s.Step(0.01)
	}

	if s.DtMax <= 0.01 {
		t.Errorf("dtMax should grow while drift is low: %f", s.DtMax)
	}
	if s.DtMax > RK4DtCeil {
		t.Errorf("dtMax exceeded rk4 ceiling: %f", s.DtMax)
	}
}

func TestDampingDisablesMonitor(t *testing.T) {
	s := NewSession(ModeDouble)
	s.SetParam("damping", 0.2)

	for i := 0; i < 120; i++ {
		s.Step(0.01)
	}

	if s.hasRef || s.EnergyErr != 0 {
		t.Error("energy monitor ran despite damping")
	}
}

func TestSetStepBoundsClamped(t *testing.T) {
	s := NewSession(ModeSingle)

	s.SetStepBounds(math.NaN(), 1.0)
	if s.BaseDt != TunableMin {
		t.Errorf("NaN should clamp to minimum, got %f", s.BaseDt)
	}
	if s.DtMax != TunableMax {
		t.Errorf("oversized dtMax should clamp to maximum, got %f", s.DtMax)
	}

	s.SetStepBounds(0.004, 0.015)
	if s.BaseDt != 0.004 || s.DtMax != 0.015 {
		t.Errorf("in-range tunables altered: %f, %f", s.BaseDt, s.DtMax)
	}
}

func TestParseHelpers(t *testing.T) {
	if m, err := ParseMode("single"); err != nil || m != ModeSingle {
		t.Errorf("ParseMode(single) = %v, %v", m, err)
	}
	if _, err := ParseMode("triple"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if k, err := ParseIntegrator("symplectic"); err != nil || k != Symplectic {
		t.Errorf("ParseIntegrator(symplectic) = %v, %v", k, err)
	}
	if _, err := ParseIntegrator("euler"); err == nil {
		t.Error("expected error for unknown integrator")
	}
}
