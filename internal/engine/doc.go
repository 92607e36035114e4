// Package engine owns the canonical simulation session for single and
// double pendulum runs.
//
// A [Session] is an explicit value owned by the caller:
//
//	s := engine.NewSession(engine.ModeDouble)
//	for range ticker {
//	    state := s.Step(frameDt)
//	    render(state)
//	}
//
// Step advances the state under the active integrator with bounded
// sub-stepping, normalizes angles into (-pi, pi], and, when damping is
// zero, monitors relative energy drift against a rolling baseline. The
// monitor may tighten the step ceiling or switch a drifting symplectic run
// over to RK4 on its own.
//
// # Thread Safety
//
// Session is not safe for concurrent use. The host serializes calls; there
// is exactly one logical owner per session and Step is never re-entered.
package engine
