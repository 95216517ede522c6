package sim

import (
	"fmt"

	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/grid"
	"github.com/san-kum/flocksim/internal/physics"
)

// Engine owns a particle population and the cell grid used to pair it.
//
// Each step resets the accumulators, applies the deltas of every candidate
// pair, then advances every particle. The grid is only rebuilt by Rebuild
// and MultiStep, so between rebuilds it is allowed to go stale.
type Engine struct {
	model physics.Model
	box   dynamo.Box
	ps    []physics.Particle
	grid  *grid.Grid
	rng   *dynamo.Rand
	opts  Options

	step int
	time float64

	metrics   []Metric
	observers []Observer
	traj      []Sample
}

func New(model physics.Model, box dynamo.Box, ps []physics.Particle, opts Options) (*Engine, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	g, err := grid.New(box, model.Cutoff(), opts.CellWidth)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		model: model,
		box:   box,
		grid:  g,
		rng:   dynamo.NewRand(opts.Seed),
		opts:  opts,
	}
	e.Load(ps)
	return e, nil
}

func validateOptions(opts Options) error {
	if opts.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrConfig, opts.Dt)
	}
	if opts.CellWidth < 0 {
		return fmt.Errorf("%w: cell width must be non-negative, got %f", dynamo.ErrConfig, opts.CellWidth)
	}
	return nil
}

func (e *Engine) AddMetric(m Metric)     { e.metrics = append(e.metrics, m) }
func (e *Engine) AddObserver(o Observer) { e.observers = append(e.observers, o) }

func (e *Engine) Model() physics.Model { return e.model }
func (e *Engine) Box() dynamo.Box      { return e.box }
func (e *Engine) Grid() *grid.Grid     { return e.grid }
func (e *Engine) Dt() float64          { return e.opts.Dt }
func (e *Engine) Steps() int           { return e.step }
func (e *Engine) Time() float64        { return e.time }

// Particles exposes the live population. Callers must not keep it across
// steps if they need a stable view; use Snapshot for that.
func (e *Engine) Particles() []physics.Particle { return e.ps }

func (e *Engine) Snapshot() []physics.Particle { return physics.Clone(e.ps) }

// Load replaces the population with a copy of ps, wraps every position into
// the domain, prepares it for the model and rebuilds the grid.
func (e *Engine) Load(ps []physics.Particle) {
	e.ps = physics.Clone(ps)
	for i := range e.ps {
		p := &e.ps[i]
		p.Pos = e.box.Wrap(p.Pos)
		p.SetHeading(p.Theta)
		e.model.Init(p)
	}
	e.grid.Rebuild(e.ps)
}

// Rebuild rebins every particle.
func (e *Engine) Rebuild() {
	e.grid.Rebuild(e.ps)
}

// AdoptTopology replaces the current cell assignment by the one of g.
// It lasts until the next Rebuild.
func (e *Engine) AdoptTopology(g *grid.Grid) error {
	if g.Len() != len(e.ps) {
		return fmt.Errorf("%w: topology holds %d particles, engine has %d",
			dynamo.ErrDimensionMismatch, g.Len(), len(e.ps))
	}
	return e.grid.Adopt(g)
}

// Step advances exactly n steps without touching the grid.
func (e *Engine) Step(n int) error {
	for k := 0; k < n; k++ {
		if err := e.singleStep(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) singleStep() error {
	ps := e.ps
	for i := range ps {
		e.model.Reset(&ps[i])
	}

	e.grid.ForEachCandidatePair(func(i, j int) {
		da, db, ok := e.model.Interact(&ps[i], &ps[j], e.box)
		if !ok {
			return
		}
		ps[i].Acc.Apply(da)
		ps[j].Acc.Apply(db)
	})

	for i := range ps {
		e.model.Advance(&ps[i], e.box, e.rng, e.opts.Dt)
	}

	e.step++
	e.time += e.opts.Dt

	if e.opts.ValidateState {
		for i := range ps {
			if !ps[i].IsValid() {
				return &dynamo.SimulationError{Step: e.step, Time: e.time, Wrapped: dynamo.ErrInvalidState}
			}
		}
	}

	for _, m := range e.metrics {
		m.Observe(ps, e.time)
	}
	for _, obs := range e.observers {
		obs.OnStep(ps, e.step, e.time)
	}
	return nil
}

// MultiStep advances total steps, rebuilding the grid at the start of every
// period of rebuildPeriod steps.
func (e *Engine) MultiStep(total, rebuildPeriod int) error {
	if rebuildPeriod <= 0 {
		return fmt.Errorf("%w: rebuild period must be positive, got %d", dynamo.ErrConfig, rebuildPeriod)
	}
	for done := 0; done < total; done += rebuildPeriod {
		e.Rebuild()
		if err := e.Step(min(rebuildPeriod, total-done)); err != nil {
			return err
		}
	}
	return nil
}

// MultiStepFollowing advances ref and the followers in lockstep. At every
// period boundary ref rebuilds its grid and each follower adopts it instead
// of building its own.
func MultiStepFollowing(ref *Engine, total, rebuildPeriod int, followers ...*Engine) error {
	if rebuildPeriod <= 0 {
		return fmt.Errorf("%w: rebuild period must be positive, got %d", dynamo.ErrConfig, rebuildPeriod)
	}
	for done := 0; done < total; done += rebuildPeriod {
		n := min(rebuildPeriod, total-done)
		ref.Rebuild()
		for _, f := range followers {
			if err := f.AdoptTopology(ref.Grid()); err != nil {
				return err
			}
		}
		if err := ref.Step(n); err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		for _, f := range followers {
			if err := f.Step(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// TrackParticle appends the current state of particle id to the trajectory.
func (e *Engine) TrackParticle(id int) error {
	if id < 0 || id >= len(e.ps) {
		return fmt.Errorf("%w: particle %d not in [0,%d)", dynamo.ErrConfig, id, len(e.ps))
	}
	p := e.ps[id]
	e.traj = append(e.traj, Sample{Pos: p.Pos, Theta: p.Theta})
	return nil
}

func (e *Engine) Trajectory() []Sample { return e.traj }

func (e *Engine) ResetMetrics() {
	for _, m := range e.metrics {
		m.Reset()
	}
}

// MetricValues returns the current value of every registered metric.
func (e *Engine) MetricValues() map[string]float64 {
	out := make(map[string]float64, len(e.metrics))
	for _, m := range e.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}
