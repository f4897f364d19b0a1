package config

import "sort"

// Presets adjust the default scenario. Each one is applied to a fresh
// DefaultConfig, so callers may modify what GetPreset returns.
var Presets = map[string]func(*Config){
	"descent": func(c *Config) {},
	"offset": func(c *Config) {
		c.Scenario.Initial = PoseConfig{X: 100, Y: 150, AlphaDeg: 30, XDot: 5}
		c.Scenario.Target = PoseConfig{X: 500, Y: 780}
		c.Run.Duration = 14
	},
	"hover": func(c *Config) {
		c.Scenario.Initial = PoseConfig{X: 395, Y: 700, AlphaDeg: 5}
		c.Scenario.Target = PoseConfig{X: 400, Y: 780}
		c.Run.Duration = 6
	},
	"spin": func(c *Config) {
		c.Scenario.Initial = PoseConfig{X: 300, Y: 300, AlphaDeg: -20, AlphaDotDeg: 45}
		c.Run.Fallback = "attitude"
	},
	"windy": func(c *Config) {
		c.Plant.Mass = 33
		c.Plant.Wind = [2]float64{0.8, 0}
		c.Plant.Integrator = "rk45"
	},
}

// GetPreset returns the named preset, or nil if there is none.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Scenario.Name = name
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
