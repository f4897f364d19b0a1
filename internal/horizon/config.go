package horizon

import (
	"fmt"
	"math"
	"time"

	kitlog "github.com/go-kit/log"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/optim"
	"github.com/san-kum/lander/internal/physics"
)

const (
	DefaultSteps          = 5
	DefaultMaxThrust      = -600.0
	DefaultGimbalLimitDeg = 60.0
	DefaultBoundTolerance = 1e-9
)

// Config fixes the shape and box bounds of every horizon problem. Thrust is
// attractive: it ranges over [MaxThrust, 0] with MaxThrust negative.
type Config struct {
	Steps       int
	MaxThrust   float64
	GimbalLimit float64 // radians
}

func DefaultConfig() Config {
	return Config{
		Steps:       DefaultSteps,
		MaxThrust:   DefaultMaxThrust,
		GimbalLimit: physics.Radians(DefaultGimbalLimitDeg),
	}
}

func (c Config) Validate() error {
	if c.Steps < 2 {
		return fmt.Errorf("horizon needs at least 2 steps, got %d: %w", c.Steps, dynamo.ErrParameterBounds)
	}
	if !(c.MaxThrust < 0) || math.IsInf(c.MaxThrust, 0) {
		return fmt.Errorf("max thrust must be finite and negative, got %g: %w", c.MaxThrust, dynamo.ErrParameterBounds)
	}
	if !(c.GimbalLimit > 0) || c.GimbalLimit >= math.Pi/2 {
		return fmt.Errorf("gimbal limit must be in (0, pi/2), got %g: %w", c.GimbalLimit, dynamo.ErrParameterBounds)
	}
	return nil
}

// SolverConfig controls a single horizon solve.
type SolverConfig struct {
	MaxIterations  int
	Tolerance      float64
	Timeout        time.Duration // zero disables the wall-clock limit
	BoundTolerance float64
	Logger         kitlog.Logger
}

func DefaultSolverConfig() SolverConfig {
	s := optim.DefaultSettings()
	return SolverConfig{
		MaxIterations:  s.MaxIterations,
		Tolerance:      s.Tolerance,
		BoundTolerance: DefaultBoundTolerance,
	}
}

func (c SolverConfig) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("solver max iterations must be positive, got %d: %w", c.MaxIterations, dynamo.ErrParameterBounds)
	}
	if !(c.Tolerance > 0) {
		return fmt.Errorf("solver tolerance must be positive, got %g: %w", c.Tolerance, dynamo.ErrParameterBounds)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("solver timeout must not be negative, got %v: %w", c.Timeout, dynamo.ErrParameterBounds)
	}
	if c.BoundTolerance < 0 || math.IsNaN(c.BoundTolerance) {
		return fmt.Errorf("bound tolerance must not be negative, got %g: %w", c.BoundTolerance, dynamo.ErrParameterBounds)
	}
	return nil
}

func (c SolverConfig) settings() optim.Settings {
	s := optim.DefaultSettings()
	s.MaxIterations = c.MaxIterations
	s.Tolerance = c.Tolerance
	s.Timeout = c.Timeout
	s.Logger = c.Logger
	return s
}
