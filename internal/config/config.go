// Package config loads and validates the YAML run configuration and maps it
// onto the controller, plant and loop settings.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/lander/internal/control"
	"github.com/san-kum/lander/internal/cost"
	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/horizon"
	"github.com/san-kum/lander/internal/mpc"
	"github.com/san-kum/lander/internal/physics"
	"github.com/san-kum/lander/internal/sim"
)

const (
	DefaultDt       = 0.02
	DefaultDuration = 10.0
	DefaultSubsteps = 4
	DefaultMass     = 30.0
)

var (
	Integrators = []string{"rk4", "rk45", "verlet", "euler"}
	Fallbacks   = []string{"hold", "safe", "attitude", "abort"}
)

type Config struct {
	Vehicle    VehicleConfig    `yaml:"vehicle"`
	Controller ControllerConfig `yaml:"controller"`
	Tuning     cost.Tuning      `yaml:"tuning"`
	Solver     SolverConfig     `yaml:"solver"`
	Plant      PlantConfig      `yaml:"plant"`
	Scenario   ScenarioConfig   `yaml:"scenario"`
	Run        RunConfig        `yaml:"run"`
}

type VehicleConfig struct {
	Mass    float64 `yaml:"mass"`
	Height  float64 `yaml:"height"`
	Gravity float64 `yaml:"gravity"`
}

type ControllerConfig struct {
	Horizon        int     `yaml:"horizon"`
	MaxThrust      float64 `yaml:"max_thrust"`
	GimbalLimitDeg float64 `yaml:"gimbal_limit_deg"`
	Dt             float64 `yaml:"dt"`
}

type SolverConfig struct {
	MaxIterations  int           `yaml:"max_iterations"`
	Tolerance      float64       `yaml:"tolerance"`
	Timeout        time.Duration `yaml:"timeout"`
	BoundTolerance float64       `yaml:"bound_tolerance"`
}

// PlantConfig describes the simulated vehicle. A zero mass means the plant
// matches the controller's model.
type PlantConfig struct {
	Integrator string     `yaml:"integrator"`
	Substeps   int        `yaml:"substeps"`
	Mass       float64    `yaml:"mass"`
	Wind       [2]float64 `yaml:"wind"`
}

// PoseConfig is a pose with angles in degrees.
type PoseConfig struct {
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
	AlphaDeg    float64 `yaml:"alpha_deg"`
	XDot        float64 `yaml:"x_dot"`
	YDot        float64 `yaml:"y_dot"`
	AlphaDotDeg float64 `yaml:"alpha_dot_deg"`
}

func (p PoseConfig) Pose() physics.Pose {
	return physics.Pose{
		X:        p.X,
		Y:        p.Y,
		Alpha:    physics.Radians(p.AlphaDeg),
		XDot:     p.XDot,
		YDot:     p.YDot,
		AlphaDot: physics.Radians(p.AlphaDotDeg),
	}
}

type ScenarioConfig struct {
	Name    string     `yaml:"name"`
	Initial PoseConfig `yaml:"initial"`
	Target  PoseConfig `yaml:"target"`
}

type RunConfig struct {
	Duration  float64               `yaml:"duration"`
	Fallback  string                `yaml:"fallback"`
	Safe      SafeControl           `yaml:"safe"`
	Attitude  control.AttitudeGains `yaml:"attitude"`
	Touchdown sim.Touchdown         `yaml:"touchdown"`
}

// SafeControl is the fixed command the "safe" fallback applies.
type SafeControl struct {
	Thrust    float64 `yaml:"thrust"`
	GimbalDeg float64 `yaml:"gimbal_deg"`
}

func (s SafeControl) Control() physics.Control {
	return physics.Control{Thrust: s.Thrust, Gimbal: physics.Radians(s.GimbalDeg)}
}

func DefaultConfig() *Config {
	solver := horizon.DefaultSolverConfig()
	return &Config{
		Vehicle: VehicleConfig{
			Mass:    DefaultMass,
			Height:  physics.DefaultHeight,
			Gravity: physics.DefaultGravity,
		},
		Controller: ControllerConfig{
			Horizon:        horizon.DefaultSteps,
			MaxThrust:      horizon.DefaultMaxThrust,
			GimbalLimitDeg: horizon.DefaultGimbalLimitDeg,
			Dt:             DefaultDt,
		},
		Tuning: cost.DefaultTuning(),
		Solver: SolverConfig{
			MaxIterations:  solver.MaxIterations,
			Tolerance:      solver.Tolerance,
			BoundTolerance: solver.BoundTolerance,
		},
		Plant: PlantConfig{
			Integrator: "rk4",
			Substeps:   DefaultSubsteps,
		},
		Scenario: ScenarioConfig{
			Name:    "descent",
			Initial: PoseConfig{X: 250, Y: 200, AlphaDeg: -70},
			Target:  PoseConfig{X: 400, Y: 780},
		},
		Run: RunConfig{
			Duration: DefaultDuration,
			Fallback: "hold",
			Safe:     SafeControl{Thrust: -300},
			Attitude: control.DefaultAttitudeGains(),
			Touchdown: sim.Touchdown{
				Enabled: true,
				Height:  780,
			},
		},
	}
}

// Load reads path over the defaults, so a file only needs the keys it
// changes.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := Overlay(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay applies the keys present in path on top of cfg.
func Overlay(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.Rocket().Validate(); err != nil {
		return fmt.Errorf("vehicle: %w", err)
	}
	if err := c.MPC().Validate(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	if err := c.Sim().Validate(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if !slices.Contains(Integrators, c.Plant.Integrator) {
		return fmt.Errorf("plant: unknown integrator %q (want one of %v): %w", c.Plant.Integrator, Integrators, dynamo.ErrParameterBounds)
	}
	if c.Plant.Mass < 0 {
		return fmt.Errorf("plant: mass must not be negative, got %g: %w", c.Plant.Mass, dynamo.ErrParameterBounds)
	}
	if !slices.Contains(Fallbacks, c.Run.Fallback) {
		return fmt.Errorf("run: unknown fallback %q (want one of %v): %w", c.Run.Fallback, Fallbacks, dynamo.ErrParameterBounds)
	}
	if !c.Scenario.Initial.Pose().IsValid() || !c.Scenario.Target.Pose().IsValid() {
		return fmt.Errorf("scenario: poses must be finite: %w", dynamo.ErrInvalidState)
	}
	return nil
}

// Rocket is the vehicle model the controller plans with.
func (c *Config) Rocket() physics.Rocket {
	return physics.Rocket{
		Mass:    c.Vehicle.Mass,
		Height:  c.Vehicle.Height,
		Gravity: c.Vehicle.Gravity,
	}
}

// PlantModel is the simulated vehicle, which may differ from Rocket in mass and
// feel a constant wind.
func (c *Config) PlantModel() *physics.Plant {
	r := c.Rocket()
	if c.Plant.Mass > 0 {
		r.Mass = c.Plant.Mass
	}
	p := physics.NewPlant(r)
	p.Wind = c.Plant.Wind
	return p
}

func (c *Config) MPC() mpc.Config {
	return mpc.Config{
		Horizon: horizon.Config{
			Steps:       c.Controller.Horizon,
			MaxThrust:   c.Controller.MaxThrust,
			GimbalLimit: physics.Radians(c.Controller.GimbalLimitDeg),
		},
		Solver: horizon.SolverConfig{
			MaxIterations:  c.Solver.MaxIterations,
			Tolerance:      c.Solver.Tolerance,
			Timeout:        c.Solver.Timeout,
			BoundTolerance: c.Solver.BoundTolerance,
		},
		Tuning: c.Tuning,
	}
}

func (c *Config) Sim() sim.Config {
	return sim.Config{
		Dt:            c.Controller.Dt,
		Duration:      c.Run.Duration,
		Substeps:      c.Plant.Substeps,
		Touchdown:     c.Run.Touchdown,
		ValidateState: true,
	}
}

func (c *Config) Limits() control.Limits {
	return control.Limits{
		MaxThrust:   c.Controller.MaxThrust,
		GimbalLimit: physics.Radians(c.Controller.GimbalLimitDeg),
	}
}

func (c *Config) Initial() physics.Pose { return c.Scenario.Initial.Pose() }
func (c *Config) Target() physics.Pose  { return c.Scenario.Target.Pose() }
