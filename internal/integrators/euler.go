package integrators

import (
	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/scalar"
)

// EulerStep is the explicit first-order step s' = s + dt f(s).
func EulerStep[T any](f scalar.Field[T], s []T, t, dt float64, deriv Derivative[T]) []T {
	return axpy(f, s, dt, deriv(s, t))
}

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return EulerStep[float64](scalar.Real{}, x, t, dt, func(s []float64, ts float64) []float64 {
		return dyn.Derive(s, u, ts)
	})
}
