// Package scalar abstracts the arithmetic used by the dynamics and cost
// models so that one definition serves both plain float64 evaluation and
// forward-mode differentiation.
//
// A [Field] supplies the handful of operations the equations of motion and the
// quadratic costs need. [Real] evaluates on float64, [Dual] carries one
// directional derivative (gonum num/dual) and [Hyperdual] carries the mixed
// second derivative (gonum num/hyperdual). The real parts of Dual and
// Hyperdual results are computed with exactly the float64 operations [Real]
// uses, so all three forms agree bit for bit on the value.
package scalar

import (
	"math"

	"gonum.org/v1/gonum/num/dual"
	"gonum.org/v1/gonum/num/hyperdual"
)

type Field[T any] interface {
	Const(v float64) T
	Add(a, b T) T
	Sub(a, b T) T
	Mul(a, b T) T
	Scale(k float64, a T) T
	Sin(a T) T
	Cos(a T) T
	Real(a T) float64
}

type Real struct{}

func (Real) Const(v float64) float64            { return v }
func (Real) Add(a, b float64) float64           { return a + b }
func (Real) Sub(a, b float64) float64           { return a - b }
func (Real) Mul(a, b float64) float64           { return a * b }
func (Real) Scale(k float64, a float64) float64 { return k * a }
func (Real) Sin(a float64) float64              { return math.Sin(a) }
func (Real) Cos(a float64) float64              { return math.Cos(a) }
func (Real) Real(a float64) float64             { return a }

type Dual struct{}

func (Dual) Const(v float64) dual.Number { return dual.Number{Real: v} }

func (Dual) Add(a, b dual.Number) dual.Number {
	return dual.Number{Real: a.Real + b.Real, Emag: a.Emag + b.Emag}
}

func (Dual) Sub(a, b dual.Number) dual.Number {
	return dual.Number{Real: a.Real - b.Real, Emag: a.Emag - b.Emag}
}

func (Dual) Mul(a, b dual.Number) dual.Number           { return dual.Mul(a, b) }
func (Dual) Scale(k float64, a dual.Number) dual.Number { return dual.Scale(k, a) }
func (Dual) Real(a dual.Number) float64                 { return a.Real }

// Sin and Cos take their real parts from math.Sin and math.Cos, the same
// calls Real makes, rather than from a combined sincos.
func (Dual) Sin(a dual.Number) dual.Number {
	return dual.Number{Real: math.Sin(a.Real), Emag: math.Cos(a.Real) * a.Emag}
}

func (Dual) Cos(a dual.Number) dual.Number {
	return dual.Number{Real: math.Cos(a.Real), Emag: -math.Sin(a.Real) * a.Emag}
}

type Hyperdual struct{}

func (Hyperdual) Const(v float64) hyperdual.Number { return hyperdual.Number{Real: v} }

func (Hyperdual) Add(a, b hyperdual.Number) hyperdual.Number {
	return hyperdual.Number{
		Real:    a.Real + b.Real,
		E1mag:   a.E1mag + b.E1mag,
		E2mag:   a.E2mag + b.E2mag,
		E1E2mag: a.E1E2mag + b.E1E2mag,
	}
}

func (Hyperdual) Sub(a, b hyperdual.Number) hyperdual.Number {
	return hyperdual.Number{
		Real:    a.Real - b.Real,
		E1mag:   a.E1mag - b.E1mag,
		E2mag:   a.E2mag - b.E2mag,
		E1E2mag: a.E1E2mag - b.E1E2mag,
	}
}

func (Hyperdual) Mul(a, b hyperdual.Number) hyperdual.Number           { return hyperdual.Mul(a, b) }
func (Hyperdual) Scale(k float64, a hyperdual.Number) hyperdual.Number { return hyperdual.Scale(k, a) }
func (Hyperdual) Real(a hyperdual.Number) float64                      { return a.Real }

func (Hyperdual) Sin(a hyperdual.Number) hyperdual.Number {
	return chain(a, math.Sin(a.Real), math.Cos(a.Real), -math.Sin(a.Real))
}

func (Hyperdual) Cos(a hyperdual.Number) hyperdual.Number {
	return chain(a, math.Cos(a.Real), -math.Sin(a.Real), -math.Cos(a.Real))
}

// chain applies a scalar function with value fn, first derivative d1 and
// second derivative d2 at a.Real to the hyperdual a.
func chain(a hyperdual.Number, fn, d1, d2 float64) hyperdual.Number {
	return hyperdual.Number{
		Real:    fn,
		E1mag:   d1 * a.E1mag,
		E2mag:   d1 * a.E2mag,
		E1E2mag: d1*a.E1E2mag + d2*a.E1mag*a.E2mag,
	}
}

// Consts lifts a float64 vector into the field.
func Consts[T any](f Field[T], v []float64) []T {
	out := make([]T, len(v))
	for i, x := range v {
		out[i] = f.Const(x)
	}
	return out
}

// Reals projects a field vector back onto its real parts.
func Reals[T any](f Field[T], v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = f.Real(x)
	}
	return out
}
