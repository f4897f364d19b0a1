// Package experiment assembles a closed-loop run from a configuration: the
// controller, the plant, its integrator, the fallback policy and metrics.
package experiment

import (
	"context"
	"fmt"
	"math"

	kitlog "github.com/go-kit/log"

	"github.com/san-kum/lander/internal/config"
	"github.com/san-kum/lander/internal/cost"
	"github.com/san-kum/lander/internal/mpc"
	"github.com/san-kum/lander/internal/optim"
	"github.com/san-kum/lander/internal/physics"
	"github.com/san-kum/lander/internal/sim"
)

// scoreWeights rank finished runs for tuning: position in pixels, attitude
// heavily, velocities moderately.
var scoreWeights = [physics.StateDim]float64{1, 1, 1e3, 1, 4, 1e2}

// fallbackPenalty is added to a run's score for each tick served by a
// fallback policy.
const fallbackPenalty = 5.0

type Experiment struct {
	cfg        *config.Config
	controller *mpc.Controller
	plant      *physics.Plant
	loop       *sim.Loop
}

type Option func(*options)

type options struct {
	registry *Registry
	logger   kitlog.Logger
}

func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

func WithLogger(l kitlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	o := options{logger: kitlog.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	controller, err := mpc.New(cfg.Rocket(), cfg.MPC(), mpc.WithLogger(kitlog.With(o.logger, "component", "mpc")))
	if err != nil {
		return nil, err
	}
	integrator, err := o.registry.GetIntegrator(cfg.Plant.Integrator)
	if err != nil {
		return nil, err
	}
	fallback, err := o.registry.GetFallback(cfg.Run.Fallback, cfg)
	if err != nil {
		return nil, err
	}

	plant := cfg.PlantModel()
	loop := sim.New(plant, integrator, controller, fallback)
	loop.SetLogger(kitlog.With(o.logger, "component", "loop"))
	for _, m := range o.registry.DefaultMetrics(plant) {
		loop.AddMetric(m)
	}

	return &Experiment{
		cfg:        cfg,
		controller: controller,
		plant:      plant,
		loop:       loop,
	}, nil
}

func (e *Experiment) Config() *config.Config      { return e.cfg }
func (e *Experiment) Controller() *mpc.Controller { return e.controller }
func (e *Experiment) Plant() *physics.Plant       { return e.plant }
func (e *Experiment) Loop() *sim.Loop             { return e.loop }

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return e.loop.Run(ctx, e.cfg.Initial(), e.cfg.Target(), e.cfg.Sim())
}

// Score ranks a finished run; lower is better.
func Score(res *sim.Result, target physics.Pose) float64 {
	if res == nil || !res.Final.IsValid() {
		return math.Inf(1)
	}
	return physics.WeightedDistance(res.Final, target, scoreWeights) + fallbackPenalty*float64(res.Fallbacks)
}

// TuneEvaluator scores tuning gains by running base with the gains applied.
// Each call builds its own controller, so evaluations may run concurrently.
func TuneEvaluator(base *config.Config) optim.Evaluator {
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		cfg := *base
		tuning := cfg.Tuning
		for name, v := range params {
			if err := tuning.SetParam(name, v); err != nil {
				return 0, err
			}
		}
		cfg.Tuning = tuning

		exp, err := New(&cfg)
		if err != nil {
			return 0, err
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return 0, fmt.Errorf("run with %v: %w", params, err)
		}
		return Score(res, cfg.Target()), nil
	}
}

// TuningRanges returns the default search grid used by the tune command.
func TuningRanges(t cost.Tuning) ([]string, [][]float64) {
	params := []string{"alpha_penalty", "dot_y_gain", "x_penalty"}
	scale := []float64{0.25, 1, 4}
	current := t.GetParams()
	ranges := make([][]float64, len(params))
	for i, name := range params {
		for _, s := range scale {
			ranges[i] = append(ranges[i], current[name]*s)
		}
	}
	return params, ranges
}
