package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/flocksim/internal/checkpoint"
	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/formation"
	"github.com/san-kum/flocksim/internal/lyapunov"
	"github.com/san-kum/flocksim/internal/physics"
)

const (
	DefaultDt               = 0.01
	DefaultL                = 32.0
	DefaultDensity          = 1.0
	DefaultEquilibriumSteps = 10000
	DefaultTotalSteps       = 50000
	DefaultRebuildPeriod    = 10
	DefaultSavingPeriod     = 10
	DefaultTrackID          = 15
	DefaultDirections       = 10
	DefaultNodes            = 4
)

type Config struct {
	Model     physics.Config  `yaml:"model" toml:"model"`
	Formation FormationConfig `yaml:"formation" toml:"formation"`
	Domain    DomainConfig    `yaml:"domain" toml:"domain"`

	Density float64 `yaml:"density" toml:"density"`
	Dt      float64 `yaml:"dt" toml:"dt"`
	Seed    int64   `yaml:"seed" toml:"seed"`

	EquilibriumSteps int `yaml:"equilibrium_steps" toml:"equilibrium_steps"`
	TotalSteps       int `yaml:"total_steps" toml:"total_steps"`
	RebuildPeriod    int `yaml:"rebuild_period" toml:"rebuild_period"`
	SavingPeriod     int `yaml:"saving_period" toml:"saving_period"`
	TrackID          int `yaml:"track_id" toml:"track_id"`

	Layout        string `yaml:"layout" toml:"layout"`
	OutputDir     string `yaml:"output_dir" toml:"output_dir"`
	ValidateState bool   `yaml:"validate_state" toml:"validate_state"`

	Lyapunov LyapunovConfig `yaml:"lyapunov" toml:"lyapunov"`
}

type FormationConfig struct {
	Kind    string  `yaml:"kind" toml:"kind"`
	Wall    float64 `yaml:"wall" toml:"wall"`       // random
	Spacing float64 `yaml:"spacing" toml:"spacing"` // lattice
	Radius  float64 `yaml:"radius" toml:"radius"`   // circle
}

type DomainConfig struct {
	Lx        float64 `yaml:"lx" toml:"lx"`
	Ly        float64 `yaml:"ly" toml:"ly"`
	CellWidth float64 `yaml:"cell_width" toml:"cell_width"`
}

type LyapunovConfig struct {
	Nodes       int              `yaml:"nodes" toml:"nodes"`
	Directions  int              `yaml:"directions" toml:"directions"`
	Topology    string           `yaml:"topology" toml:"topology"`
	Renorm      string           `yaml:"renorm" toml:"renorm"`
	RenormEvery int              `yaml:"renorm_every" toml:"renorm_every"`
	Perturb     lyapunov.Options `yaml:"perturb" toml:"perturb"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:            physics.DefaultConfig(physics.KindVicsek),
		Formation:        FormationConfig{Kind: "random", Wall: 1, Spacing: 1, Radius: DefaultL/2 - 1},
		Domain:           DomainConfig{Lx: DefaultL, Ly: DefaultL},
		Density:          DefaultDensity,
		Dt:               DefaultDt,
		Seed:             1,
		EquilibriumSteps: DefaultEquilibriumSteps,
		TotalSteps:       DefaultTotalSteps,
		RebuildPeriod:    DefaultRebuildPeriod,
		SavingPeriod:     DefaultSavingPeriod,
		TrackID:          DefaultTrackID,
		Layout:           "position-velocity",
		OutputDir:        "runs",
		Lyapunov: LyapunovConfig{
			Nodes:       DefaultNodes,
			Directions:  DefaultDirections,
			Topology:    string(TopologyOwn),
			Renorm:      string(lyapunov.RenormNone),
			RenormEvery: 10,
			Perturb:     lyapunov.DefaultOptions(),
		},
	}
}

// Load reads a YAML or TOML file (by extension) over the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Box() dynamo.Box {
	return dynamo.NewBox(c.Domain.Lx, c.Domain.Ly)
}

// N is the particle count implied by density and domain.
func (c *Config) N() int {
	return formation.Count(c.Density, c.Box())
}

// SampleInterval is the number of steps between two saved samples.
func (c *Config) SampleInterval() int {
	return c.SavingPeriod * c.RebuildPeriod
}

// Points is the number of samples in the data-gathering phase.
func (c *Config) Points() int {
	if c.SampleInterval() == 0 {
		return 0
	}
	return c.TotalSteps / c.SampleInterval()
}

func (c *Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", dynamo.ErrConfig, fmt.Sprintf(format, args...))
	}

	if err := c.Model.Validate(); err != nil {
		return err
	}
	if err := c.Box().Validate(); err != nil {
		return err
	}
	if c.Dt <= 0 {
		return bad("dt must be positive, got %g", c.Dt)
	}
	if c.Density <= 0 {
		return bad("density must be positive, got %g", c.Density)
	}
	if c.EquilibriumSteps < 0 || c.TotalSteps < 0 {
		return bad("step counts must be non-negative")
	}
	if c.RebuildPeriod <= 0 || c.SavingPeriod <= 0 {
		return bad("rebuild and saving periods must be positive")
	}
	if n := c.N(); c.TrackID < 0 || c.TrackID >= n {
		return bad("track id %d outside a population of %d", c.TrackID, n)
	}
	if _, err := lyapunov.ParseMode(c.Lyapunov.Renorm); err != nil {
		return err
	}
	if _, err := checkpoint.ParseLayout(c.Layout); err != nil {
		return err
	}
	if !validFormation(c.Formation.Kind) {
		return bad("unknown formation %q", c.Formation.Kind)
	}
	if _, err := ParseTopology(c.Lyapunov.Topology); err != nil {
		return err
	}

	l := c.Lyapunov
	if l.Nodes <= 0 || l.Directions <= 0 {
		return bad("lyapunov runs need nodes and directions, got %d and %d", l.Nodes, l.Directions)
	}
	if l.Renorm != string(lyapunov.RenormNone) && l.RenormEvery <= 0 {
		return bad("renorm_every must be positive, got %d", l.RenormEvery)
	}
	return l.Perturb.Validate()
}

// RenormMode returns the parsed renormalization mode.
func (c *Config) RenormMode() lyapunov.Mode {
	m, _ := lyapunov.ParseMode(c.Lyapunov.Renorm)
	return m
}

// FrameLayout returns the parsed checkpoint layout.
func (c *Config) FrameLayout() checkpoint.Layout {
	l, _ := checkpoint.ParseLayout(c.Layout)
	return l
}

// Topology selects how a follower engine obtains its cell lists.
type Topology string

const (
	// TopologyOwn rebuilds the grid from the engine's own particles.
	TopologyOwn Topology = "own"
	// TopologyReference adopts the grid of a co-evolved reference twin.
	TopologyReference Topology = "reference"
)

func ParseTopology(s string) (Topology, error) {
	switch t := Topology(s); t {
	case TopologyOwn, TopologyReference:
		return t, nil
	case "":
		return TopologyOwn, nil
	default:
		return "", fmt.Errorf("%w: topology must be own or reference, got %q", dynamo.ErrConfig, s)
	}
}

var formations = []string{"random", "polar", "lattice", "circle", "single-vortex", "four-vortex"}

// Formations lists the accepted initial formation names.
func Formations() []string {
	return append([]string(nil), formations...)
}

func validFormation(name string) bool {
	for _, f := range formations {
		if f == name {
			return true
		}
	}
	return false
}
