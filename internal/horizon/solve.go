package horizon

import (
	"context"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/optim"
	"github.com/san-kum/lander/internal/physics"
)

// Solution is the control sequence returned by a solve. When Solve also
// returns a non-convergence error, Controls holds the best iterate.
type Solution struct {
	Controls   []physics.Control
	Objective  float64
	Iterations int
	Status     optim.Status
	KKTError   float64
}

// First is the control applied this tick.
func (s *Solution) First() physics.Control { return s.Controls[0] }

// Vector flattens the controls in the problem's variable layout.
func (s *Solution) Vector() []float64 {
	v := make([]float64, 0, len(s.Controls)*physics.ControlDim)
	for _, c := range s.Controls {
		v = append(v, c.Thrust, c.Gimbal)
	}
	return v
}

// Solve minimizes the horizon cost from the center of the control box.
//
// A control more than BoundTolerance outside its box yields a
// *dynamo.BoundError and no solution. Controls within tolerance are clamped
// onto the box. A solve that stops short of the tolerance yields a
// *dynamo.SolveError together with the best iterate.
func (p *Problem) Solve(ctx context.Context, sc SolverConfig) (*Solution, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	res, err := optim.Minimize(ctx, optim.Problem{
		Lower: p.lower,
		Upper: p.upper,
		Func:  p.Objective,
		Grad:  p.Gradient,
		Hess:  p.Hessian,
	}, sc.settings())
	if err != nil {
		return nil, err
	}

	u, err := p.checkBounds(res.X, sc.BoundTolerance)
	if err != nil {
		return nil, err
	}

	sol := &Solution{
		Controls:   make([]physics.Control, p.steps),
		Objective:  p.Objective(u),
		Iterations: res.Iterations,
		Status:     res.Status,
		KKTError:   res.KKTError,
	}
	for i := range sol.Controls {
		c := p.control(u, i)
		sol.Controls[i] = physics.Control{Thrust: c[physics.IdxThrust], Gimbal: c[physics.IdxGimbal]}
	}

	if res.Status != optim.Success {
		serr := &dynamo.SolveError{
			Status:     res.Status.String(),
			Iterations: res.Iterations,
			KKTError:   res.KKTError,
		}
		if res.Status == optim.Canceled {
			serr.Wrapped = ctx.Err()
		}
		return sol, serr
	}
	return sol, nil
}

// checkBounds returns a copy of x clamped onto the box, or a BoundError for
// the first component farther than tol outside it.
func (p *Problem) checkBounds(x []float64, tol float64) ([]float64, error) {
	u := make([]float64, len(x))
	for i, v := range x {
		lo, hi := p.lower[i], p.upper[i]
		if !(v >= lo-tol && v <= hi+tol) {
			return nil, &dynamo.BoundError{
				Step:      i / physics.ControlDim,
				Component: componentName(i % physics.ControlDim),
				Value:     v,
				Lower:     lo,
				Upper:     hi,
			}
		}
		u[i] = min(max(v, lo), hi)
	}
	return u, nil
}

func componentName(i int) string {
	if i == physics.IdxThrust {
		return "thrust"
	}
	return "gimbal"
}
