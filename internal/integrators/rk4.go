package integrators

import (
	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/scalar"
)

// Derivative is a right-hand side evaluated in the field of the integrator.
// Controls are captured by the closure and held over the whole step.
type Derivative[T any] func(s []T, t float64) []T

// Step advances s by one classical fourth-order Runge-Kutta step:
//
//	k1 = f(s)
//	k2 = f(s + dt/2 k1)
//	k3 = f(s + dt/2 k2)
//	k4 = f(s + dt k3)
//	s' = s + dt/6 (k1 + 2k2 + 2k3 + k4)
func Step[T any](f scalar.Field[T], s []T, t, dt float64, deriv Derivative[T]) []T {
	half := dt * 0.5

	k1 := deriv(s, t)
	k2 := deriv(axpy(f, s, half, k1), t+half)
	k3 := deriv(axpy(f, s, half, k2), t+half)
	k4 := deriv(axpy(f, s, dt, k3), t+dt)

	result := make([]T, len(s))
	dt6 := dt / 6.0
	for i := range s {
		sum := f.Add(f.Add(f.Add(k1[i], f.Scale(2, k2[i])), f.Scale(2, k3[i])), k4[i])
		result[i] = f.Add(s[i], f.Scale(dt6, sum))
	}
	return result
}

func axpy[T any](f scalar.Field[T], x []T, a float64, k []T) []T {
	out := make([]T, len(x))
	for i := range x {
		out[i] = f.Add(x[i], f.Scale(a, k[i]))
	}
	return out
}

// RK4 is the float64 Runge-Kutta integrator used by the plant and by
// prediction. It shares Step with the differentiable rollout.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return Step[float64](scalar.Real{}, x, t, dt, func(s []float64, ts float64) []float64 {
		return dyn.Derive(s, u, ts)
	})
}
