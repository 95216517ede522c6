package config

import (
	"sort"

	"github.com/san-kum/flocksim/internal/physics"
)

func preset(kind physics.Kind, mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	cfg.Model = physics.DefaultConfig(kind)
	mutate(cfg)
	return cfg
}

var Presets = map[string]map[string]*Config{
	"vicsek": {
		"ordered": preset(physics.KindVicsek, func(c *Config) {
			c.Model.Noise = 0.1
			c.Density = 2
		}),
		"disordered": preset(physics.KindVicsek, func(c *Config) {
			c.Model.Noise = 0.8
			c.Density = 0.5
		}),
		"polar": preset(physics.KindVicsek, func(c *Config) {
			c.Formation.Kind = "polar"
			c.Model.Noise = 0.3
		}),
	},
	"vicsek-velocity": {
		"crowded": preset(physics.KindVicsekVelocity, func(c *Config) {
			c.Density = 4
		}),
	},
	"continuous": {
		"chiral": preset(physics.KindContinuous, func(c *Config) {
			c.Model.Continuous.Alpha = 0.8
		}),
		"vortex": preset(physics.KindContinuous, func(c *Config) {
			c.Formation.Kind = "single-vortex"
		}),
	},
	"zoned": {
		"lyapunov": preset(physics.KindZoned, func(c *Config) {
			c.Formation.Kind = "polar"
			c.Model.Zoned.DPhi = 0.1
		}),
		"anti-aligning": preset(physics.KindZoned, func(c *Config) {
			c.Model.Zoned.XiA = 0.5
			c.Model.Zoned.MuMinus = 2
		}),
	},
	"yukawa": {
		"lattice": preset(physics.KindYukawa, func(c *Config) {
			c.Formation.Kind = "lattice"
			c.Formation.Spacing = 1
			c.Density = 0.5
		}),
	},
	"phase": {
		"swirl": preset(physics.KindPhase, func(c *Config) {
			c.Formation.Kind = "four-vortex"
		}),
		"diffusive": preset(physics.KindPhase, func(c *Config) {
			c.Model.Phase.Dr = 0.05
			c.Model.Phase.DPhi = 0.05
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, name string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
