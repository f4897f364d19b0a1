// Package horizon builds and solves the finite-horizon landing problem. A
// Problem is immutable and self-contained: it is built from the measured
// pose of one tick and shares nothing with problems of other ticks.
package horizon

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/dual"
	"gonum.org/v1/gonum/num/hyperdual"

	"github.com/san-kum/lander/internal/cost"
	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/integrators"
	"github.com/san-kum/lander/internal/physics"
	"github.com/san-kum/lander/internal/scalar"
)

type Problem struct {
	rocket  physics.Rocket
	steps   int
	dt      float64
	start   [physics.StateDim]float64
	target  [physics.StateDim]float64
	weights cost.Weights
	lower   []float64
	upper   []float64
}

// Build returns the problem of steering current toward target with N control
// pairs held for dt each. The variables are laid out [F0, theta0, F1, ...].
func Build(r physics.Rocket, cfg Config, tu cost.Tuning, current, target physics.Pose, dt float64) (*Problem, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := tu.Validate(); err != nil {
		return nil, err
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("time step must be positive, got %g: %w", dt, dynamo.ErrParameterBounds)
	}
	w, err := tu.Weights(current, target)
	if err != nil {
		return nil, err
	}

	n := cfg.Steps * physics.ControlDim
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := 0; i < cfg.Steps; i++ {
		lower[2*i+physics.IdxThrust], upper[2*i+physics.IdxThrust] = cfg.MaxThrust, 0
		lower[2*i+physics.IdxGimbal], upper[2*i+physics.IdxGimbal] = -cfg.GimbalLimit, cfg.GimbalLimit
	}

	return &Problem{
		rocket:  r,
		steps:   cfg.Steps,
		dt:      dt,
		start:   current.Vector(),
		target:  target.Vector(),
		weights: w,
		lower:   lower,
		upper:   upper,
	}, nil
}

func (p *Problem) Steps() int            { return p.steps }
func (p *Problem) Dim() int              { return len(p.lower) }
func (p *Problem) Dt() float64           { return p.dt }
func (p *Problem) Weights() cost.Weights { return p.weights }

// Bounds returns copies of the box bounds.
func (p *Problem) Bounds() (lower, upper []float64) {
	lower = append([]float64(nil), p.lower...)
	upper = append([]float64(nil), p.upper...)
	return lower, upper
}

// Objective evaluates the horizon cost of the flattened control sequence u.
func (p *Problem) Objective(u []float64) float64 {
	return objective[float64](scalar.Real{}, p, u)
}

// Gradient writes the exact gradient of Objective at u into grad.
func (p *Problem) Gradient(grad, u []float64) {
	scalar.Gradient(grad, u, func(v []dual.Number) dual.Number {
		return objective[dual.Number](scalar.Dual{}, p, v)
	})
}

// Hessian writes the exact Hessian of Objective at u into hess.
func (p *Problem) Hessian(hess *mat.SymDense, u []float64) {
	scalar.Hessian(hess, u, func(v []hyperdual.Number) hyperdual.Number {
		return objective[hyperdual.Number](scalar.Hyperdual{}, p, v)
	})
}

// Rollout returns the planned states X_0..X_N for the control sequence u;
// X_N is the state the terminal cost is evaluated at.
func (p *Problem) Rollout(u []float64) []physics.Pose {
	f := scalar.Real{}
	x := p.start[:]
	poses := []physics.Pose{poseOf(x)}
	for i := 0; i < p.steps; i++ {
		ui := p.control(u, min(i, p.steps-2))
		x = integrators.Step[float64](f, x, float64(i)*p.dt, p.dt, derivative[float64](f, p.rocket, ui))
		poses = append(poses, poseOf(x))
	}
	return poses
}

func poseOf(x []float64) physics.Pose {
	return physics.Pose{
		X:        x[physics.IdxX],
		Y:        x[physics.IdxY],
		Alpha:    x[physics.IdxAlpha],
		XDot:     x[physics.IdxXDot],
		YDot:     x[physics.IdxYDot],
		AlphaDot: x[physics.IdxAlphaDot],
	}
}

func (p *Problem) control(u []float64, i int) []float64 {
	return u[physics.ControlDim*i : physics.ControlDim*(i+1)]
}

func derivative[T any](f scalar.Field[T], r physics.Rocket, u []T) integrators.Derivative[T] {
	return func(s []T, _ float64) []T {
		return physics.Derive(f, r, s, u)
	}
}

// objective accumulates the stage cost of X_i under u_i for i < N-1, steps
// once more with u_{N-2} and adds the terminal cost. u_{N-1} does not enter
// the cost.
func objective[T any](f scalar.Field[T], p *Problem, u []T) T {
	x := scalar.Consts(f, p.start[:])
	total := f.Const(0)
	for i := 0; i < p.steps-1; i++ {
		ui := u[physics.ControlDim*i : physics.ControlDim*(i+1)]
		total = f.Add(total, cost.Stage(f, p.weights, x, p.target, ui))
		x = integrators.Step(f, x, float64(i)*p.dt, p.dt, derivative(f, p.rocket, ui))
	}
	last := u[physics.ControlDim*(p.steps-2) : physics.ControlDim*(p.steps-1)]
	x = integrators.Step(f, x, float64(p.steps-1)*p.dt, p.dt, derivative(f, p.rocket, last))
	return f.Add(total, cost.Terminal(f, p.weights, x, p.target, last))
}
