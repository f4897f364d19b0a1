// Package integrators provides the ODE integrators used by the plant and the
// horizon rollout.
//
// [Step] is the generic Runge-Kutta 4 step used both by the optimizer's
// differentiable rollout and, through [RK4], by the plant and the one-step
// prediction. [EulerStep] and [VerletStep] are generic in the same way. [RK45]
// is float-only since its step control needs a real error estimate. Verlet
// assumes the state is laid out as positions then velocities, which holds for
// the vehicle pose.
package integrators
