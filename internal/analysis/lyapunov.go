package analysis

import (
	"math"

	"github.com/mhaeusl/pendel/internal/integrate"
	"github.com/mhaeusl/pendel/internal/phys"
)

// LyapunovExponent estimates the largest Lyapunov exponent by the
// trajectory-separation method: integrate two nearby trajectories with RK4,
// renormalize the separation to avoid overflow, and average
// ln(|δx(t)|/|δx(0)|) per unit time. A clearly positive value indicates
// chaos.
func LyapunovExponent(x0 phys.State, p phys.Params, f integrate.Deriv, dt, duration, perturbation float64) float64 {
	if len(x0) == 0 || dt <= 0 || perturbation <= 0 {
		return 0
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += perturbation

	d0 := perturbation
	sumLog := 0.0
	count := 0

	for t := 0.0; t < duration; t += dt {
		x = integrate.RK4Step(x, dt, p, f)
		xp = integrate.RK4Step(xp, dt, p, f)

		sep := 0.0
		for i := range x {
			diff := xp[i] - x[i]
			sep += diff * diff
		}
		sep = math.Sqrt(sep)

		if sep > 0 {
			sumLog += math.Log(sep / d0)
			count++
		}

		// Renormalize back to the reference separation so the divergence
		// stays in the linear regime.
		if sep > 1.0 {
			scale := d0 / sep
			for i := range xp {
				xp[i] = x[i] + (xp[i]-x[i])*scale
			}
		}
	}

	if count == 0 {
		return 0
	}
	return sumLog / (float64(count) * dt)
}
