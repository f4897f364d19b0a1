// Package cost implements the quadratic horizon cost of the landing
// controller: a constant stage weight and a terminal weight with two entries
// adapted to the current residual.
package cost

import (
	"github.com/san-kum/lander/internal/physics"
	"github.com/san-kum/lander/internal/scalar"
)

// Weights are the diagonals of the stage (Q, R) and terminal (QF, RF) weight
// matrices.
type Weights struct {
	Q       [physics.StateDim]float64
	R       [physics.ControlDim]float64
	QF      [physics.StateDim]float64
	RF      [physics.ControlDim]float64
	Clamped bool
}

// Quadratic returns sum w_i r_i^2, i.e. r' diag(w) r.
func Quadratic[T any](f scalar.Field[T], r []T, w []float64) T {
	acc := f.Const(0)
	for i := range r {
		acc = f.Add(acc, f.Scale(w[i], f.Mul(r[i], r[i])))
	}
	return acc
}

// Residual returns x - z lifted into the field.
func Residual[T any](f scalar.Field[T], x []T, z [physics.StateDim]float64) []T {
	out := make([]T, len(x))
	for i := range x {
		out[i] = f.Sub(x[i], f.Const(z[i]))
	}
	return out
}

// Stage is (x - z)' Q (x - z) + u' R u.
func Stage[T any](f scalar.Field[T], w Weights, x []T, z [physics.StateDim]float64, u []T) T {
	return f.Add(Quadratic(f, Residual(f, x, z), w.Q[:]), Quadratic(f, u, w.R[:]))
}

// Terminal is (x - z)' QF (x - z) + u' RF u.
func Terminal[T any](f scalar.Field[T], w Weights, x []T, z [physics.StateDim]float64, u []T) T {
	return f.Add(Quadratic(f, Residual(f, x, z), w.QF[:]), Quadratic(f, u, w.RF[:]))
}
