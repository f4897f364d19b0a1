package horizon

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/lander/internal/cost"
	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/physics"
	"github.com/san-kum/lander/internal/scalar"
)

var (
	scenarioStart  = physics.Pose{X: 250, Y: 200, Alpha: physics.Radians(-70)}
	scenarioTarget = physics.Pose{X: 400, Y: 780}
)

func scenarioRocket() physics.Rocket {
	r := physics.NewRocket()
	r.Mass = 30
	return r
}

func buildScenario(t *testing.T) *Problem {
	t.Helper()
	p, err := Build(scenarioRocket(), DefaultConfig(), cost.DefaultTuning(), scenarioStart, scenarioTarget, 0.02)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return p
}

// sample is an interior control sequence away from the box center.
func sample(p *Problem) []float64 {
	u := make([]float64, p.Dim())
	for i := 0; i < p.Steps(); i++ {
		u[2*i] = -150 - 80*float64(i)
		u[2*i+1] = 0.3 - 0.25*float64(i)
	}
	return u
}

func TestBuildBounds(t *testing.T) {
	p := buildScenario(t)
	if p.Dim() != 2*DefaultSteps {
		t.Fatalf("dim = %d, want %d", p.Dim(), 2*DefaultSteps)
	}
	lower, upper := p.Bounds()
	limit := physics.Radians(60)
	for i := 0; i < p.Steps(); i++ {
		if lower[2*i] != -600 || upper[2*i] != 0 {
			t.Errorf("thrust %d bounds [%v, %v]", i, lower[2*i], upper[2*i])
		}
		if lower[2*i+1] != -limit || upper[2*i+1] != limit {
			t.Errorf("gimbal %d bounds [%v, %v]", i, lower[2*i+1], upper[2*i+1])
		}
	}
	lower[0] = 5
	if again, _ := p.Bounds(); again[0] != -600 {
		t.Error("Bounds exposes internal storage")
	}
}

func TestBuildRejectsBadInputs(t *testing.T) {
	r, cfg, tu := scenarioRocket(), DefaultConfig(), cost.DefaultTuning()
	short := cfg
	short.Steps = 1
	positive := cfg
	positive.MaxThrust = 10

	tests := []struct {
		name string
		err  error
		call func() error
	}{
		{"one step", dynamo.ErrParameterBounds, func() error {
			_, err := Build(r, short, tu, scenarioStart, scenarioTarget, 0.02)
			return err
		}},
		{"positive thrust bound", dynamo.ErrParameterBounds, func() error {
			_, err := Build(r, positive, tu, scenarioStart, scenarioTarget, 0.02)
			return err
		}},
		{"zero dt", dynamo.ErrParameterBounds, func() error {
			_, err := Build(r, cfg, tu, scenarioStart, scenarioTarget, 0)
			return err
		}},
		{"massless", dynamo.ErrParameterBounds, func() error {
			_, err := Build(physics.Rocket{Height: 1}, cfg, tu, scenarioStart, scenarioTarget, 0.02)
			return err
		}},
		{"degenerate target", dynamo.ErrNumericalDomain, func() error {
			_, err := Build(r, cfg, tu, scenarioStart, physics.Pose{Y: -tu.Epsilon}, 0.02)
			return err
		}},
		{"nan state", dynamo.ErrNumericalDomain, func() error {
			bad := scenarioStart
			bad.XDot = math.NaN()
			_, err := Build(r, cfg, tu, bad, scenarioTarget, 0.02)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.err) {
				t.Errorf("err = %v, want %v", err, tt.err)
			}
		})
	}
}

func TestObjectiveMatchesRollout(t *testing.T) {
	p := buildScenario(t)
	u := sample(p)
	poses := p.Rollout(u)
	if len(poses) != p.Steps()+1 {
		t.Fatalf("rollout has %d poses, want %d", len(poses), p.Steps()+1)
	}

	f := scalar.Real{}
	w := p.Weights()
	z := scenarioTarget.Vector()
	want := 0.0
	for i := 0; i < p.Steps()-1; i++ {
		x := poses[i].Vector()
		want += cost.Stage[float64](f, w, x[:], z, u[2*i:2*i+2])
	}
	x := poses[p.Steps()].Vector()
	last := 2 * (p.Steps() - 2)
	want += cost.Terminal[float64](f, w, x[:], z, u[last:last+2])

	if got := p.Objective(u); got != want {
		t.Errorf("objective = %v, want %v", got, want)
	}
}

func TestLastControlDoesNotEnterCost(t *testing.T) {
	p := buildScenario(t)
	u := sample(p)
	base := p.Objective(u)
	n := p.Dim()
	u[n-2], u[n-1] = -599, -1
	if got := p.Objective(u); got != base {
		t.Errorf("objective changed with the final control: %v vs %v", got, base)
	}
}

func TestGradientMatchesFiniteDifferences(t *testing.T) {
	p := buildScenario(t)
	u := sample(p)
	grad := make([]float64, p.Dim())
	p.Gradient(grad, u)
	scale := 0.0
	for _, g := range grad {
		scale = math.Max(scale, math.Abs(g))
	}

	for i := range u {
		h := 1e-4 * math.Max(1, math.Abs(u[i]))
		up := append([]float64(nil), u...)
		dn := append([]float64(nil), u...)
		up[i] += h
		dn[i] -= h
		fd := (p.Objective(up) - p.Objective(dn)) / (2 * h)
		if math.Abs(fd-grad[i]) > 1e-4*math.Abs(grad[i])+1e-6*scale {
			t.Errorf("grad[%d] = %v, finite difference %v", i, grad[i], fd)
		}
	}
}

func TestHessianMatchesGradientDifferences(t *testing.T) {
	p := buildScenario(t)
	u := sample(p)
	n := p.Dim()
	hess := mat.NewSymDense(n, nil)
	p.Hessian(hess, u)

	scale := mat.Norm(hess, math.Inf(1))
	gu := make([]float64, n)
	gd := make([]float64, n)
	for j := range u {
		h := 1e-5 * math.Max(1, math.Abs(u[j]))
		up := append([]float64(nil), u...)
		dn := append([]float64(nil), u...)
		up[j] += h
		dn[j] -= h
		p.Gradient(gu, up)
		p.Gradient(gd, dn)
		for i := range u {
			fd := (gu[i] - gd[i]) / (2 * h)
			if math.Abs(fd-hess.At(i, j)) > 1e-5*scale {
				t.Errorf("hess[%d][%d] = %v, finite difference %v", i, j, hess.At(i, j), fd)
			}
		}
	}
}

func TestSolveScenario(t *testing.T) {
	p := buildScenario(t)
	sol, err := p.Solve(context.Background(), DefaultSolverConfig())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(sol.Controls) != p.Steps() {
		t.Fatalf("got %d controls, want %d", len(sol.Controls), p.Steps())
	}
	lower, upper := p.Bounds()
	for i, v := range sol.Vector() {
		if v < lower[i] || v > upper[i] {
			t.Errorf("variable %d = %v outside [%v, %v]", i, v, lower[i], upper[i])
		}
	}
	center := make([]float64, p.Dim())
	for i := range center {
		center[i] = 0.5 * (lower[i] + upper[i])
	}
	if sol.Objective >= p.Objective(center) {
		t.Errorf("solution objective %v not below the box center %v", sol.Objective, p.Objective(center))
	}
	if sol.First().Gimbal >= 0 {
		t.Errorf("first gimbal %v should rotate the nose toward upright", sol.First().Gimbal)
	}
}

func TestSolveIsRepeatable(t *testing.T) {
	a, err := buildScenario(t).Solve(context.Background(), DefaultSolverConfig())
	if err != nil {
		t.Fatal(err)
	}
	b, err := buildScenario(t).Solve(context.Background(), DefaultSolverConfig())
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Controls {
		if a.Controls[i] != b.Controls[i] {
			t.Errorf("control %d differs: %v vs %v", i, a.Controls[i], b.Controls[i])
		}
	}
}

func TestSolveReportsNonConvergence(t *testing.T) {
	p := buildScenario(t)
	sc := DefaultSolverConfig()
	sc.MaxIterations = 1
	sol, err := p.Solve(context.Background(), sc)
	if !errors.Is(err, dynamo.ErrNonConvergence) {
		t.Fatalf("err = %v, want ErrNonConvergence", err)
	}
	var serr *dynamo.SolveError
	if !errors.As(err, &serr) || serr.Iterations != 1 {
		t.Fatalf("err = %#v", err)
	}
	if sol == nil || len(sol.Controls) != p.Steps() {
		t.Fatal("best iterate missing from failed solve")
	}
}

func TestSolveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := buildScenario(t).Solve(ctx, DefaultSolverConfig())
	if !errors.Is(err, dynamo.ErrNonConvergence) || !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want non-convergence wrapping context.Canceled", err)
	}
}

func TestCheckBounds(t *testing.T) {
	p := buildScenario(t)
	lower, upper := p.Bounds()
	x := make([]float64, p.Dim())
	copy(x, lower)
	x[0] = lower[0] - 1e-12
	x[3] = upper[3] + 1e-12

	u, err := p.checkBounds(x, DefaultBoundTolerance)
	if err != nil {
		t.Fatalf("in-tolerance values rejected: %v", err)
	}
	if u[0] != lower[0] || u[3] != upper[3] {
		t.Errorf("values not clamped: %v", u)
	}

	x[3] = upper[3] + 1e-3
	_, err = p.checkBounds(x, DefaultBoundTolerance)
	var berr *dynamo.BoundError
	if !errors.As(err, &berr) {
		t.Fatalf("err = %v, want BoundError", err)
	}
	if berr.Step != 1 || berr.Component != "gimbal" {
		t.Errorf("bound error %+v", berr)
	}
	if !errors.Is(err, dynamo.ErrConstraintViolation) {
		t.Error("bound error does not match ErrConstraintViolation")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatal(err)
	}
	if err := DefaultSolverConfig().Validate(); err != nil {
		t.Fatal(err)
	}
	sc := DefaultSolverConfig()
	sc.Tolerance = 0
	if err := sc.Validate(); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("err = %v", err)
	}
}
