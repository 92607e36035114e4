package integrate

import (
	"math"
	"testing"

	"github.com/mhaeusl/pendel/internal/phys"
)

// Harmonic oscillator x'' = -x with exact solution cos/sin.
func harmonic(x phys.State, p phys.Params) phys.State {
	return phys.State{x[1], -x[0]}
}

func TestRK4Accuracy(t *testing.T) {
	x := phys.State{1.0, 0.0}
	p := phys.Params{}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = RK4Step(x, dt, p, harmonic)
	}

	tEnd := float64(steps) * dt
	if math.Abs(x[0]-math.Cos(tEnd)) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], math.Cos(tEnd))
	}
	if math.Abs(x[1]-(-math.Sin(tEnd))) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], -math.Sin(tEnd))
	}
}

func TestRK4StepPure(t *testing.T) {
	x := phys.State{1.0, 2.0}
	_ = RK4Step(x, 0.05, phys.Params{}, harmonic)

	if x[0] != 1.0 || x[1] != 2.0 {
		t.Errorf("input state modified: %v", x)
	}
}

func TestSymplecticStepVelocityFirst(t *testing.T) {
	// One semi-implicit step by hand: w' = w + dt*a(x), th' = th + dt*w'.
	x := phys.State{1.0, 0.0}
	dt := 0.1

	next := SymplecticStep(x, dt, phys.Params{}, harmonic)

	wantW := 0.0 + dt*(-1.0)
	wantTh := 1.0 + dt*wantW

	if next[1] != wantW {
		t.Errorf("expected velocity %f, got %f", wantW, next[1])
	}
	if next[0] != wantTh {
		t.Errorf("expected position %f, got %f", wantTh, next[0])
	}
}

func TestSymplecticBoundedDrift(t *testing.T) {
	p := phys.DefaultParams()
	x := phys.State{math.Pi / 3, 0}

	e0 := phys.Energy(x, p)
	dt := 0.005

	maxDrift := 0.0
	drifts := make([]float64, 0, 1000)
	for i := 0; i < 1000; i++ { // 5 simulated seconds
		x = SymplecticStep(x, dt, p, phys.SingleDeriv)
		drift := math.Abs(phys.Energy(x, p)-e0) / math.Abs(e0)
		drifts = append(drifts, drift)
		maxDrift = math.Max(maxDrift, drift)
	}

	if maxDrift > 0.05 {
		t.Errorf("symplectic drift not bounded: max %.4f", maxDrift)
	}

	// Oscillatory, not monotonic: the error must come back down somewhere.
	decreased := false
	for i := 1; i < len(drifts); i++ {
		if drifts[i] < drifts[i-1] {
			decreased = true
			break
		}
	}
	if !decreased {
		t.Error("energy error grew monotonically; expected oscillatory drift")
	}
}

func TestRK4EnergyConservation(t *testing.T) {
	p := phys.DefaultParams()
	x := phys.State{math.Pi / 3, 0}

	e0 := phys.Energy(x, p)
	end := RK4Substeps(x, 5.0, 0.015, p, phys.SingleDeriv)

	drift := math.Abs(phys.Energy(end, p)-e0) / math.Abs(e0)
	if drift > 0.01 {
		t.Errorf("RK4 energy drift %.4f exceeds 1%%", drift)
	}
}

func TestRK4SubstepsZeroDt(t *testing.T) {
	p := phys.DefaultParams()
	x := phys.State{1.0, 2.0, 3.0, 4.0}

	end := RK4Substeps(x, 0, 0.015, p, phys.DoubleDeriv)

	if len(end) != len(x) {
		t.Fatalf("state length changed: %d", len(end))
	}
	for i := range x {
		if end[i] != x[i] {
			t.Errorf("component %d changed for zero dt: %f != %f", i, end[i], x[i])
		}
	}
}

func TestRK4SubstepsMatchesManualChain(t *testing.T) {
	p := phys.DefaultParams()
	x := phys.State{2.0, 0, -0.2, 0}

	// 0.1 / 0.03 -> 4 equal sub-steps of 0.025.
	got := RK4Substeps(x, 0.1, 0.03, p, phys.DoubleDeriv)

	want := x.Clone()
	for i := 0; i < 4; i++ {
		want = RK4Step(want, 0.025, p, phys.DoubleDeriv)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("component %d: %v != %v", i, got[i], want[i])
		}
	}
}

func TestChooseDtMax(t *testing.T) {
	tests := []struct {
		name    string
		state   phys.State
		baseDt  float64
		ceiling float64
		want    float64
	}{
		{"slow motion returns ceiling", phys.State{1.0, 0.05}, 0.004, 0.02, 0.02},
		{"fast motion shrinks", phys.State{0, 9.0}, 0.004, 0.02, 0.004 / 10.0},
		{"floored at 1e-4", phys.State{0, 1e6}, 0.004, 0.02, 1e-4},
		{"capped at ceiling", phys.State{0, 0.2}, 0.1, 0.02, 0.02},
		{"double uses max velocity", phys.State{0, 0.01, 0, 9.0}, 0.004, 0.02, 0.004 / 10.0},
	}

	for _, tt := range tests {
		got := ChooseDtMax(tt.state, tt.baseDt, tt.ceiling)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s: expected %g, got %g", tt.name, tt.want, got)
		}
	}
}
