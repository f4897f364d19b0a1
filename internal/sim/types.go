package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/mpc"
	"github.com/san-kum/lander/internal/physics"
)

// Planner computes the control for one tick. *mpc.Controller implements it.
type Planner interface {
	Step(ctx context.Context, current, target physics.Pose, dt float64) (mpc.Tick, error)
}

// EnergyComputer is implemented by plants that can report mechanical energy.
type EnergyComputer interface {
	Energy(x dynamo.State) float64
}

type Touchdown struct {
	Enabled bool    `yaml:"enabled"`
	Height  float64 `yaml:"height"` // y of the resting pose; y grows downward
}

type Config struct {
	Dt            float64
	Duration      float64
	Substeps      int
	Touchdown     Touchdown
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.02,
		Duration:      10,
		Substeps:      4,
		ValidateState: true,
	}
}

func (c Config) Validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("dt must be positive, got %g: %w", c.Dt, dynamo.ErrParameterBounds)
	}
	if !(c.Duration > 0) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("duration must be positive, got %g: %w", c.Duration, dynamo.ErrParameterBounds)
	}
	if c.Substeps < 1 {
		return fmt.Errorf("substeps must be at least 1, got %d: %w", c.Substeps, dynamo.ErrParameterBounds)
	}
	return nil
}

type Result struct {
	Samples     []dynamo.Sample
	Final       physics.Pose
	Time        float64
	StepsTaken  int
	Fallbacks   int
	Touchdown   bool
	EnergyDrift float64
	Metrics     map[string]float64
}
