package integrate

import (
	"testing"

	"github.com/mhaeusl/pendel/internal/phys"
)

func BenchmarkRK4Single(b *testing.B) {
	p := phys.DefaultParams()
	x := phys.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = RK4Step(x, 0.004, p, phys.SingleDeriv)
	}
}

func BenchmarkRK4Double(b *testing.B) {
	p := phys.DefaultParams()
	x := phys.State{2.0, 0.0, -0.2, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = RK4Step(x, 0.004, p, phys.DoubleDeriv)
	}
}

func BenchmarkSymplecticDouble(b *testing.B) {
	p := phys.DefaultParams()
	x := phys.State{2.0, 0.0, -0.2, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = SymplecticStep(x, 0.008, p, phys.DoubleDeriv)
	}
}

func BenchmarkRK4SubstepsFrame(b *testing.B) {
	p := phys.DefaultParams()
	x := phys.State{2.0, 0.0, -0.2, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = RK4Substeps(x, 1.0/60.0, 0.015, p, phys.DoubleDeriv)
	}
}
