package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/formation"
	"github.com/san-kum/flocksim/internal/metrics"
	"github.com/san-kum/flocksim/internal/physics"
	"github.com/san-kum/flocksim/internal/sim"
)

// FormationFunc places n particles on box.
type FormationFunc func(n int, box dynamo.Box, f config.FormationConfig, rng *dynamo.Rand) ([]physics.Particle, error)

type Registry struct {
	formations map[string]FormationFunc
}

func NewRegistry() *Registry {
	r := &Registry{formations: make(map[string]FormationFunc)}

	r.formations["random"] = func(n int, box dynamo.Box, f config.FormationConfig, rng *dynamo.Rand) ([]physics.Particle, error) {
		return formation.Random(n, box, f.Wall, rng)
	}
	r.formations["polar"] = func(n int, box dynamo.Box, _ config.FormationConfig, rng *dynamo.Rand) ([]physics.Particle, error) {
		return formation.Polar(n, box, rng), nil
	}
	r.formations["lattice"] = func(n int, box dynamo.Box, f config.FormationConfig, rng *dynamo.Rand) ([]physics.Particle, error) {
		return formation.TriangleLattice(n, box, f.Spacing, rng)
	}
	r.formations["circle"] = func(n int, box dynamo.Box, f config.FormationConfig, rng *dynamo.Rand) ([]physics.Particle, error) {
		return formation.Circle(n, box, f.Radius, rng)
	}
	r.formations["single-vortex"] = func(n int, box dynamo.Box, _ config.FormationConfig, rng *dynamo.Rand) ([]physics.Particle, error) {
		return formation.SingleVortex(n, box, rng), nil
	}
	r.formations["four-vortex"] = func(n int, box dynamo.Box, _ config.FormationConfig, rng *dynamo.Rand) ([]physics.Particle, error) {
		return formation.FourVortex(n, box, rng), nil
	}

	return r
}

func (r *Registry) GetFormation(name string) (FormationFunc, error) {
	fn, ok := r.formations[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown formation: %s", dynamo.ErrConfig, name)
	}
	return fn, nil
}

// GetModel builds the interaction model described by cfg.
func (r *Registry) GetModel(cfg physics.Config, dt float64) (physics.Model, error) {
	return physics.New(cfg, dt)
}

func (r *Registry) ListModels() []string {
	kinds := physics.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

func (r *Registry) ListFormations() []string {
	names := make([]string, 0, len(r.formations))
	for name := range r.formations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics() []sim.Metric {
	return metrics.Standard()
}

// Populate seeds the initial population of cfg.
func (r *Registry) Populate(cfg *config.Config) ([]physics.Particle, error) {
	fn, err := r.GetFormation(cfg.Formation.Kind)
	if err != nil {
		return nil, err
	}
	return fn(cfg.N(), cfg.Box(), cfg.Formation, dynamo.NewRand(cfg.Seed))
}

// NewEngine builds an engine for cfg over ps, with the default metrics
// attached. seed drives the model noise.
func (r *Registry) NewEngine(cfg *config.Config, ps []physics.Particle, seed int64) (*sim.Engine, error) {
	model, err := r.GetModel(cfg.Model, cfg.Dt)
	if err != nil {
		return nil, err
	}
	eng, err := sim.New(model, cfg.Box(), ps, sim.Options{
		Dt:            cfg.Dt,
		Seed:          seed,
		CellWidth:     cfg.Domain.CellWidth,
		ValidateState: cfg.ValidateState,
	})
	if err != nil {
		return nil, err
	}
	for _, m := range r.DefaultMetrics() {
		eng.AddMetric(m)
	}
	return eng, nil
}
