package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/lyapunov"
	"github.com/san-kum/flocksim/internal/physics"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.Kind != physics.KindVicsek {
		t.Errorf("expected model vicsek, got %s", cfg.Model.Kind)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.N() != 1024 {
		t.Errorf("expected 1024 particles, got %d", cfg.N())
	}
	if cfg.Points() != DefaultTotalSteps/(DefaultSavingPeriod*DefaultRebuildPeriod) {
		t.Errorf("unexpected point count %d", cfg.Points())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative density", func(c *Config) { c.Density = -1 }},
		{"zero rebuild period", func(c *Config) { c.RebuildPeriod = 0 }},
		{"track id out of range", func(c *Config) { c.TrackID = c.N() }},
		{"unknown formation", func(c *Config) { c.Formation.Kind = "spiral" }},
		{"unknown topology", func(c *Config) { c.Lyapunov.Topology = "mirror" }},
		{"unknown renorm", func(c *Config) { c.Lyapunov.Renorm = "qr" }},
		{"no directions", func(c *Config) { c.Lyapunov.Directions = 0 }},
		{"renorm without interval", func(c *Config) {
			c.Lyapunov.Renorm = string(lyapunov.RenormGramSchmidt)
			c.Lyapunov.RenormEvery = 0
		}},
		{"bad amplitude", func(c *Config) { c.Lyapunov.Perturb.Amplitude = 0 }},
		{"bad model", func(c *Config) { c.Model.Kind = "boids" }},
		{"bad domain", func(c *Config) { c.Domain.Lx = 0 }},
		{"unknown layout", func(c *Config) { c.Layout = "xyz" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, dynamo.ErrConfig) {
				t.Errorf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := `
model:
  kind: zoned
  zoned:
    kappa: 20
density: 0.5
domain:
  lx: 16
  ly: 16
lyapunov:
  nodes: 2
  topology: reference
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Model.Kind != physics.KindZoned || cfg.Model.Zoned.Kappa != 20 {
		t.Errorf("model section not decoded: %+v", cfg.Model)
	}
	if cfg.N() != 128 {
		t.Errorf("expected 128 particles, got %d", cfg.N())
	}
	if cfg.Lyapunov.Nodes != 2 || cfg.Lyapunov.Topology != "reference" {
		t.Errorf("lyapunov section not decoded: %+v", cfg.Lyapunov)
	}
	if cfg.Dt != DefaultDt {
		t.Errorf("unset fields should keep defaults, dt = %g", cfg.Dt)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.toml")
	data := `
density = 2.0
seed = 7

[model]
kind = "vicsek"
noise = 0.4

[lyapunov]
renorm = "independent"
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Model.Noise != 0.4 || cfg.Seed != 7 || cfg.Density != 2 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.RenormMode() != lyapunov.RenormIndependent {
		t.Errorf("expected independent renorm, got %s", cfg.RenormMode())
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, ext := range []string{".yaml", ".toml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "run"+ext)
			cfg := DefaultConfig()
			cfg.Model = physics.DefaultConfig(physics.KindPhase)
			cfg.Seed = 99

			if err := Save(path, cfg); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if got.Model != cfg.Model || got.Seed != 99 {
				t.Errorf("round trip changed config: %+v", got)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("vicsek", "disordered")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Model.Noise != 0.8 {
		t.Errorf("expected noise 0.8, got %f", cfg.Model.Noise)
	}

	cfg.Model.Noise = 0
	if Presets["vicsek"]["disordered"].Model.Noise != 0.8 {
		t.Error("preset should be returned by copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("vicsek", "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "ordered") != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestPresetsValidate(t *testing.T) {
	for model, presets := range Presets {
		for name, cfg := range presets {
			if string(cfg.Model.Kind) != model {
				t.Errorf("%s/%s: kind %s", model, name, cfg.Model.Kind)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", model, name, err)
			}
		}
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("vicsek")
	if len(presets) != 3 || presets[0] != "disordered" {
		t.Errorf("unexpected vicsek presets %v", presets)
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent model")
	}
}
