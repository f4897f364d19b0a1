package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Interior-point constants, following the usual primal-dual choices for
// bound-constrained problems.
const (
	maxGradient    = 100.0 // objective is scaled so the initial gradient inf-norm is at most this
	boundPush      = 0.01  // initial distance from the bounds in the unit box
	kappaEps       = 10.0  // barrier subproblem is solved once its error is below kappaEps*mu
	kappaMu        = 0.2   // linear barrier decrease
	thetaMu        = 1.5   // superlinear barrier decrease
	tauMin         = 0.99  // fraction-to-boundary parameter floor
	kappaSigma     = 1e10  // bound multipliers stay within this factor of mu/slack
	armijo         = 1e-4
	roundoff       = 1e-14 // tolerated barrier increase relative to its magnitude
	maxBacktracks  = 60
	deltaInit      = 1e-4
	deltaGrowth    = 10.0
	maxRegularizes = 40
)

var ErrBadProblem = errors.New("optim: invalid problem definition")

// Problem is a box-constrained minimization problem. Func, Grad and Hess are
// evaluated in the original variables. Initial may be nil, in which case the
// solve starts at the center of the box.
type Problem struct {
	Lower, Upper []float64
	Initial      []float64

	Func func(x []float64) float64
	Grad func(grad, x []float64)
	Hess func(hess *mat.SymDense, x []float64)
}

type Settings struct {
	MaxIterations  int
	Tolerance      float64
	InitialBarrier float64
	Timeout        time.Duration
	Logger         kitlog.Logger
}

func DefaultSettings() Settings {
	return Settings{
		MaxIterations:  50,
		Tolerance:      1e-8,
		InitialBarrier: 0.1,
	}
}

type Status int

const (
	NotTerminated Status = iota
	Success
	IterationLimit
	Timeout
	Canceled
	LinesearchFailure
	NumericalFailure
)

func (s Status) String() string {
	switch s {
	case NotTerminated:
		return "not terminated"
	case Success:
		return "success"
	case IterationLimit:
		return "iteration limit"
	case Timeout:
		return "timeout"
	case Canceled:
		return "canceled"
	case LinesearchFailure:
		return "linesearch failure"
	case NumericalFailure:
		return "numerical failure"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result holds the last iterate of a solve. X always lies strictly inside the
// box.
type Result struct {
	X          []float64
	F          float64
	Iterations int
	Status     Status
	Barrier    float64
	KKTError   float64
}

// Minimize solves p with a primal-dual log-barrier interior-point method. The
// variables are mapped onto the unit box and every bound carries a
// multiplier. Each iteration takes a Newton step on the barrier subproblem
// using the exact Hessian, backtracks on the barrier function and reduces the
// barrier parameter superlinearly once the subproblem is solved. Nothing is
// retained between calls.
//
// The returned error is non-nil only for malformed problems; solve outcomes
// are reported through Result.Status.
func Minimize(ctx context.Context, p Problem, settings Settings) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if settings.MaxIterations <= 0 || !(settings.Tolerance > 0) || !(settings.InitialBarrier > 0) {
		return nil, fmt.Errorf("%w: settings %+v", ErrBadProblem, settings)
	}
	logger := settings.Logger
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	var deadline time.Time
	if settings.Timeout > 0 {
		deadline = time.Now().Add(settings.Timeout)
	}

	sp := newScaled(p)
	n := sp.dim()
	z := sp.start()
	trial := newIterate(n)
	dual := newMultipliers(n)
	grad := make([]float64, n)
	phiGrad := make([]float64, n)
	hess := mat.NewSymDense(n, nil)

	sp.grad(grad, z)
	if gmax := floats.Norm(grad, math.Inf(1)); gmax > maxGradient {
		sp.fscale = maxGradient / gmax
		floats.Scale(sp.fscale, grad)
	}

	mu := settings.InitialBarrier
	muMin := settings.Tolerance / 10
	status := NotTerminated
	iter := 0
	kkt := math.Inf(1)

	for {
		if floats.HasNaN(grad) {
			status = NumericalFailure
			break
		}
		kkt = optimalityError(grad, z, dual, 0)
		if kkt <= settings.Tolerance {
			status = Success
			break
		}
		for mu > muMin && optimalityError(grad, z, dual, mu) <= kappaEps*mu {
			mu = math.Max(muMin, math.Min(kappaMu*mu, math.Pow(mu, thetaMu)))
		}
		if iter >= settings.MaxIterations {
			status = IterationLimit
			break
		}
		if ctx.Err() != nil {
			status = Canceled
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			status = Timeout
			break
		}

		barrierGradient(phiGrad, grad, z, mu)
		sp.hess(hess, z)
		for i := 0; i < n; i++ {
			sigma := dual.lo[i]/z.lo[i] + dual.hi[i]/z.hi[i]
			hess.SetSym(i, i, hess.At(i, i)+sigma)
		}
		dir, delta, err := newtonDirection(hess, phiGrad)
		if err != nil {
			status = NumericalFailure
			break
		}
		dual.direction(z, dir, mu)

		tau := math.Max(tauMin, 1-mu)
		step := fractionToBoundary(z, dir, tau)
		dualStep := dual.fractionToBoundary(tau)
		phi0 := sp.barrier(z, mu)
		slope := floats.Dot(phiGrad, dir)

		accepted := false
		for k := 0; k < maxBacktracks; k++ {
			trial.advance(z, step, dir)
			if phiT := sp.barrier(trial, mu); phiT <= phi0+armijo*step*slope+roundoff*math.Abs(phi0) {
				accepted = true
				break
			}
			step *= 0.5
		}
		if !accepted {
			status = LinesearchFailure
			break
		}
		z.copyFrom(trial)
		dual.advance(dualStep)
		dual.safeguard(z, mu)
		iter++

		sp.grad(grad, z)
		level.Debug(logger).Log(
			"iter", iter,
			"phi", phi0,
			"mu", mu,
			"kkt", kkt,
			"step", step,
			"dual_step", dualStep,
			"delta", delta,
		)
	}

	x := sp.toX(z)
	return &Result{
		X:          x,
		F:          p.Func(x),
		Iterations: iter,
		Status:     status,
		Barrier:    mu,
		KKTError:   kkt,
	}, nil
}

func (p Problem) validate() error {
	n := len(p.Lower)
	if n == 0 || len(p.Upper) != n {
		return fmt.Errorf("%w: bounds of length %d and %d", ErrBadProblem, len(p.Lower), len(p.Upper))
	}
	if p.Initial != nil && len(p.Initial) != n {
		return fmt.Errorf("%w: initial point of length %d, want %d", ErrBadProblem, len(p.Initial), n)
	}
	if p.Func == nil || p.Grad == nil || p.Hess == nil {
		return fmt.Errorf("%w: func, grad and hess are required", ErrBadProblem)
	}
	for i := range p.Lower {
		lo, hi := p.Lower[i], p.Upper[i]
		if math.IsInf(lo, 0) || math.IsInf(hi, 0) || !(lo < hi) {
			return fmt.Errorf("%w: bound %d is [%g, %g]", ErrBadProblem, i, lo, hi)
		}
	}
	return nil
}

// barrierGradient computes grad - mu/lo + mu/hi, the gradient of the barrier
// function in the unit box.
func barrierGradient(dst, grad []float64, z iterate, mu float64) {
	for i := range dst {
		dst[i] = grad[i] - mu/z.lo[i] + mu/z.hi[i]
	}
}

// optimalityError is the largest violation of the perturbed optimality
// conditions grad - vlo + vhi = 0, lo*vlo = mu and hi*vhi = mu.
func optimalityError(grad []float64, z iterate, v multipliers, mu float64) float64 {
	e := 0.0
	for i := range grad {
		e = math.Max(e, math.Abs(grad[i]-v.lo[i]+v.hi[i]))
		e = math.Max(e, math.Abs(z.lo[i]*v.lo[i]-mu))
		e = math.Max(e, math.Abs(z.hi[i]*v.hi[i]-mu))
	}
	return e
}

// fractionToBoundary returns the largest step in (0, 1] that keeps every
// coordinate at least a (1-tau) fraction of its distance from the bounds.
func fractionToBoundary(z iterate, dir []float64, tau float64) float64 {
	step := 1.0
	for i, d := range dir {
		switch {
		case d < 0:
			step = math.Min(step, -tau*z.lo[i]/d)
		case d > 0:
			step = math.Min(step, tau*z.hi[i]/d)
		}
	}
	return step
}

// newtonDirection solves (H + delta I) d = -g, increasing delta until the
// regularized matrix is positive definite.
func newtonDirection(h *mat.SymDense, g []float64) ([]float64, float64, error) {
	n := len(g)
	if floats.Norm(g, math.Inf(1)) == 0 {
		return make([]float64, n), 0, nil
	}
	rhs := mat.NewVecDense(n, nil)
	for i, v := range g {
		rhs.SetVec(i, -v)
	}
	reg := mat.NewSymDense(n, nil)
	var chol mat.Cholesky
	var d mat.VecDense

	delta := 0.0
	for attempt := 0; attempt < maxRegularizes; attempt++ {
		reg.CopySym(h)
		if delta > 0 {
			for i := 0; i < n; i++ {
				reg.SetSym(i, i, reg.At(i, i)+delta)
			}
		}
		if chol.Factorize(reg) {
			err := chol.SolveVecTo(&d, rhs)
			var cond mat.Condition
			if err == nil || errors.As(err, &cond) {
				dir := make([]float64, n)
				copy(dir, d.RawVector().Data)
				if !floats.HasNaN(dir) && floats.Dot(dir, g) < 0 {
					return dir, delta, nil
				}
			}
		}
		if delta == 0 {
			delta = deltaInit
		} else {
			delta *= deltaGrowth
		}
	}
	return nil, delta, fmt.Errorf("optim: newton system not positive definite after regularization %g", delta)
}
