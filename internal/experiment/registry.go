package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/lander/internal/config"
	"github.com/san-kum/lander/internal/control"
	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/integrators"
	"github.com/san-kum/lander/internal/metrics"
	"github.com/san-kum/lander/internal/physics"
)

// Registry maps configuration names to plant integrators and fallback
// policies.
type Registry struct {
	integrators map[string]func() dynamo.Integrator
	fallbacks   map[string]func(cfg *config.Config) control.Fallback
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
		fallbacks:   make(map[string]func(*config.Config) control.Fallback),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }
	r.integrators["verlet"] = func() dynamo.Integrator { return integrators.NewVerlet() }

	r.fallbacks["hold"] = func(*config.Config) control.Fallback { return control.NewHold() }
	r.fallbacks["safe"] = func(cfg *config.Config) control.Fallback {
		return control.NewSafe(cfg.Run.Safe.Control(), cfg.Limits())
	}
	r.fallbacks["attitude"] = func(cfg *config.Config) control.Fallback {
		return control.NewAttitude(cfg.Rocket(), cfg.Run.Attitude, cfg.Limits())
	}
	r.fallbacks["abort"] = func(*config.Config) control.Fallback { return control.NewAbort() }

	return r
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetFallback(name string, cfg *config.Config) (control.Fallback, error) {
	fn, ok := r.fallbacks[name]
	if !ok {
		return nil, fmt.Errorf("unknown fallback: %s", name)
	}
	return fn(cfg), nil
}

func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
func (r *Registry) ListFallbacks() []string   { return sortedKeys(r.fallbacks) }

// DefaultMetrics is the metric set every run reports.
func (r *Registry) DefaultMetrics(plant *physics.Plant) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewThrustEffort(),
		metrics.NewGimbalEffort(),
		metrics.NewPredictionError(),
		metrics.NewFallbackRate(),
		metrics.NewDescentRate(),
		metrics.NewUpright(physics.Radians(15)),
		metrics.NewEnergyDrift(plant),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
