// Package sim closes the loop between a planner and a plant: every tick the
// planner sees the measured pose, its control is held over the tick and the
// plant integrates the authoritative next state.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/san-kum/lander/internal/control"
	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/physics"
)

type Loop struct {
	plant      dynamo.System
	integrator dynamo.Integrator
	planner    Planner
	fallback   control.Fallback
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	logger     kitlog.Logger
}

func New(plant dynamo.System, integrator dynamo.Integrator, planner Planner, fallback control.Fallback) *Loop {
	if fallback == nil {
		fallback = control.NewAbort()
	}
	return &Loop{
		plant:      plant,
		integrator: integrator,
		planner:    planner,
		fallback:   fallback,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
		logger:     kitlog.NewNopLogger(),
	}
}

func (l *Loop) AddMetric(m dynamo.Metric)     { l.metrics = append(l.metrics, m) }
func (l *Loop) AddObserver(o dynamo.Observer) { l.observers = append(l.observers, o) }

func (l *Loop) SetLogger(logger kitlog.Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// Run drives the plant from initial toward target for cfg.Duration or until
// touchdown. A failed solve is handed to the fallback policy, except for
// bound violations which always end the run. The partial result is returned
// together with any error.
func (l *Loop) Run(ctx context.Context, initial, target physics.Pose, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l.plant.StateDim() != physics.StateDim || l.plant.ControlDim() != physics.ControlDim {
		return nil, fmt.Errorf("plant is %dx%d: %w", l.plant.StateDim(), l.plant.ControlDim(), dynamo.ErrDimensionMismatch)
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		Samples: make([]dynamo.Sample, 0, steps),
		Metrics: make(map[string]float64),
	}
	for _, m := range l.metrics {
		m.Reset()
	}
	if r, ok := l.fallback.(interface{ Reset() }); ok {
		r.Reset()
	}

	x := initial.State()
	pose := initial
	t := 0.0
	h := cfg.Dt / float64(cfg.Substeps)
	var previous physics.Control
	initialEnergy := l.computeEnergy(x)

	defer func() {
		result.Final = pose
		result.Time = t
		if initialEnergy != 0 {
			result.EnergyDrift = math.Abs(l.computeEnergy(x)-initialEnergy) / math.Abs(initialEnergy)
		}
		for _, m := range l.metrics {
			result.Metrics[m.Name()] = m.Value()
		}
	}()

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())}
		default:
		}

		sample := dynamo.Sample{Time: t, State: x.Clone()}
		tick, err := l.planner.Step(ctx, pose, target, cfg.Dt)
		u := tick.Control
		if err != nil {
			if errors.Is(err, dynamo.ErrConstraintViolation) {
				level.Error(l.logger).Log("msg", "control outside bounds", "t", t, "err", err)
				return result, &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: err}
			}
			sit := control.Situation{Time: t, Pose: pose, Previous: previous, Err: err}
			if len(tick.Plan) > 0 {
				best := tick.Control
				sit.Best = &best
			}
			u, err = l.fallback.Recover(sit)
			if err != nil {
				level.Error(l.logger).Log("msg", "fallback aborted run", "t", t, "err", err)
				return result, &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: err}
			}
			level.Warn(l.logger).Log("msg", "fallback applied", "policy", l.fallback.Name(), "t", t, "cause", sit.Err)
			sample.Fallback = true
			sample.Err = sit.Err
			result.Fallbacks++
		} else {
			sample.Predicted = tick.Predicted.State()
		}
		sample.Control = u.Vector()

		for _, m := range l.metrics {
			m.Observe(sample)
		}
		for _, obs := range l.observers {
			obs.OnTick(sample)
		}
		result.Samples = append(result.Samples, sample)

		next := x
		for k := 0; k < cfg.Substeps; k++ {
			next = l.integrator.Step(l.plant, next, sample.Control, t+float64(k)*h, h)
		}
		if cfg.ValidateState && !next.IsValid() {
			return result, &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: dynamo.ErrInvalidState}
		}

		x = next
		t = float64(i+1) * cfg.Dt
		pose, _ = physics.PoseFromState(x)
		previous = u
		result.StepsTaken++

		if cfg.Touchdown.Enabled && pose.Y >= cfg.Touchdown.Height {
			result.Touchdown = true
			level.Info(l.logger).Log("msg", "touchdown", "t", t, "y_dot", pose.YDot, "x_dot", pose.XDot, "alpha_deg", physics.Degrees(pose.Alpha))
			break
		}
	}
	return result, nil
}

func (l *Loop) computeEnergy(x dynamo.State) float64 {
	if ec, ok := l.plant.(EnergyComputer); ok {
		return ec.Energy(x)
	}
	return 0
}
