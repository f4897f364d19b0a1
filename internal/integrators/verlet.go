package integrators

import (
	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/scalar"
)

// VerletStep is velocity Verlet for states laid out as positions followed by
// their velocities. The acceleration may depend on the positions and the
// held control but not on the velocities.
func VerletStep[T any](f scalar.Field[T], s []T, t, dt float64, deriv Derivative[T]) []T {
	half := len(s) / 2
	acc := deriv(s, t)

	next := make([]T, len(s))
	copy(next, s)
	for i := 0; i < half; i++ {
		drift := f.Add(f.Scale(dt, s[half+i]), f.Scale(0.5*dt*dt, acc[half+i]))
		next[i] = f.Add(s[i], drift)
	}

	accNext := deriv(next, t+dt)
	for i := 0; i < half; i++ {
		next[half+i] = f.Add(s[half+i], f.Scale(0.5*dt, f.Add(acc[half+i], accNext[half+i])))
	}
	return next
}

type Verlet struct{}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return VerletStep[float64](scalar.Real{}, x, t, dt, func(s []float64, ts float64) []float64 {
		return dyn.Derive(s, u, ts)
	})
}
