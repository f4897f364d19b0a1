// Package dynamo provides the core primitives shared by the lander packages.
//
// The package defines the vector types and interfaces used by the plant,
// the integrators and the closed-loop driver:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical integrator interface
//   - [Sample]: one tick of telemetry (actual, predicted, applied control)
//   - [Metric], [Observer]: consumers of telemetry samples
//
// It is also the home of the error taxonomy. Solver, cost and bound failures
// are reported with the typed errors [SolveError], [DomainError] and
// [BoundError]; each unwraps to one of the sentinels so callers can branch with
// errors.Is:
//
//	tick, err := ctrl.Step(ctx, pose, target, dt)
//	if errors.Is(err, dynamo.ErrNonConvergence) {
//	    // hold the previous control
//	}
package dynamo
