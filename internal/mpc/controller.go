// Package mpc is the receding-horizon landing controller. Every tick builds a
// fresh horizon problem from the measured pose, solves it from scratch and
// applies the first control.
package mpc

import (
	"context"
	"errors"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/san-kum/lander/internal/cost"
	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/horizon"
	"github.com/san-kum/lander/internal/integrators"
	"github.com/san-kum/lander/internal/physics"
)

type Config struct {
	Horizon horizon.Config
	Solver  horizon.SolverConfig
	Tuning  cost.Tuning
}

func DefaultConfig() Config {
	return Config{
		Horizon: horizon.DefaultConfig(),
		Solver:  horizon.DefaultSolverConfig(),
		Tuning:  cost.DefaultTuning(),
	}
}

func (c Config) Validate() error {
	if err := c.Horizon.Validate(); err != nil {
		return err
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	return c.Tuning.Validate()
}

// Controller holds immutable configuration only. Separate goroutines may use
// separate controllers, or one controller for independent runs.
type Controller struct {
	rocket     physics.Rocket
	cfg        Config
	integrator dynamo.Integrator
	logger     kitlog.Logger
}

type Option func(*Controller)

func WithLogger(l kitlog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(r physics.Rocket, cfg Config, opts ...Option) (*Controller, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		rocket:     r,
		cfg:        cfg,
		integrator: integrators.NewRK4(),
		logger:     kitlog.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg.Solver.Logger = kitlog.With(c.logger, "component", "solver")
	return c, nil
}

func (c *Controller) Rocket() physics.Rocket { return c.rocket }
func (c *Controller) Config() Config         { return c.cfg }

// Handle is a built problem together with the pose and step it was built
// from. Prediction uses these rather than anything inside the solver.
type Handle struct {
	problem *horizon.Problem
	current physics.Pose
	target  physics.Pose
	dt      float64
}

func (h *Handle) Problem() *horizon.Problem { return h.problem }
func (h *Handle) Current() physics.Pose     { return h.current }
func (h *Handle) Target() physics.Pose      { return h.target }
func (h *Handle) Dt() float64               { return h.dt }

// Tick is the outcome of one solve.
type Tick struct {
	Control    physics.Control
	Predicted  physics.Pose
	Plan       []physics.Control
	Iterations int
	Objective  float64
	Clamped    bool
}

// Build depends only on its arguments and the controller configuration.
func (c *Controller) Build(current, target physics.Pose, dt float64) (*Handle, error) {
	p, err := horizon.Build(c.rocket, c.cfg.Horizon, c.cfg.Tuning, current, target, dt)
	if err != nil {
		return nil, err
	}
	return &Handle{problem: p, current: current, target: target, dt: dt}, nil
}

// Solve solves h and predicts the pose one step ahead of h's current pose
// under the first control. On a *dynamo.SolveError the returned Tick still
// carries the best iterate so the caller can decide what to apply. Bound
// violations return an empty Tick.
func (c *Controller) Solve(ctx context.Context, h *Handle) (Tick, error) {
	sol, err := h.problem.Solve(ctx, c.cfg.Solver)
	if sol == nil {
		level.Error(c.logger).Log("msg", "horizon solve failed", "err", err)
		return Tick{}, err
	}

	first := sol.First()
	predicted, perr := Predict(c.integrator, c.rocket, h.current, first, h.dt)
	if perr != nil {
		return Tick{}, perr
	}
	tick := Tick{
		Control:    first,
		Predicted:  predicted,
		Plan:       sol.Controls,
		Iterations: sol.Iterations,
		Objective:  sol.Objective,
		Clamped:    h.problem.Weights().Clamped,
	}

	if err != nil {
		var serr *dynamo.SolveError
		if errors.As(err, &serr) {
			level.Warn(c.logger).Log("msg", "horizon solve did not converge", "status", serr.Status, "iterations", serr.Iterations, "kkt", serr.KKTError)
		}
		return tick, err
	}
	level.Debug(c.logger).Log(
		"msg", "tick",
		"iterations", tick.Iterations,
		"objective", tick.Objective,
		"thrust", first.Thrust,
		"gimbal_deg", physics.Degrees(first.Gimbal),
		"clamped", tick.Clamped,
	)
	return tick, nil
}

// Step is Build followed by Solve.
func (c *Controller) Step(ctx context.Context, current, target physics.Pose, dt float64) (Tick, error) {
	h, err := c.Build(current, target, dt)
	if err != nil {
		return Tick{}, err
	}
	return c.Solve(ctx, h)
}

// Predict advances current by one plain numeric step of integ under u.
func Predict(integ dynamo.Integrator, r physics.Rocket, current physics.Pose, u physics.Control, dt float64) (physics.Pose, error) {
	next := integ.Step(r, current.State(), u.Vector(), 0, dt)
	return physics.PoseFromState(next)
}
