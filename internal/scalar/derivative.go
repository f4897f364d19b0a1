package scalar

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/dual"
	"gonum.org/v1/gonum/num/hyperdual"
)

// Gradient fills grad with the exact gradient of fn at x, one dual pass per
// coordinate.
func Gradient(grad, x []float64, fn func([]dual.Number) dual.Number) {
	if len(grad) != len(x) {
		panic("scalar: gradient length mismatch")
	}
	v := make([]dual.Number, len(x))
	for i := range x {
		for k, xk := range x {
			v[k] = dual.Number{Real: xk}
		}
		v[i].Emag = 1
		grad[i] = fn(v).Emag
	}
}

// Hessian fills hess with the exact Hessian of fn at x. Each entry of the
// upper triangle costs one hyperdual evaluation.
func Hessian(hess *mat.SymDense, x []float64, fn func([]hyperdual.Number) hyperdual.Number) {
	n := len(x)
	if hess.SymmetricDim() != n {
		panic("scalar: hessian size mismatch")
	}
	v := make([]hyperdual.Number, n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			for k, xk := range x {
				v[k] = hyperdual.Number{Real: xk}
			}
			v[i].E1mag = 1
			v[j].E2mag = 1
			hess.SetSym(i, j, fn(v).E1E2mag)
		}
	}
}
