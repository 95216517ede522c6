package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/san-kum/flocksim/internal/checkpoint"
	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/logging"
	"github.com/san-kum/flocksim/internal/metrics"
	"github.com/san-kum/flocksim/internal/physics"
	"github.com/san-kum/flocksim/internal/sim"
)

type Phase string

const (
	PhaseEquilibrium Phase = "equilibrium"
	PhaseGathering   Phase = "gathering"
	PhaseDeviation   Phase = "deviation"
)

// Progress is reported once per rebuild period.
type Progress struct {
	Phase        Phase
	Step         int
	Total        int
	Elapsed      time.Duration
	Remaining    time.Duration
	Polarization float64
}

func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Step) / float64(p.Total)
}

type ProgressFunc func(Progress)

// FrameFunc receives the population at every saved frame of the gathering
// phase. The slice is only valid during the call.
type FrameFunc func(ps []physics.Particle) error

type Experiment struct {
	cfg      *config.Config
	reg      *Registry
	engine   *sim.Engine
	logger   *slog.Logger
	progress ProgressFunc
}

func New(cfg *config.Config, reg *Registry, logger *slog.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Experiment{cfg: cfg, reg: reg, logger: logger}, nil
}

func (e *Experiment) OnProgress(fn ProgressFunc) { e.progress = fn }

func (e *Experiment) Config() *config.Config { return e.cfg }

// Engine returns the engine built by Setup, or nil before it.
func (e *Experiment) Engine() *sim.Engine { return e.engine }

// Setup builds the engine. With initial nil the configured formation is
// seeded; otherwise initial must hold N particles.
func (e *Experiment) Setup(initial []physics.Particle) error {
	ps := initial
	if ps == nil {
		var err error
		if ps, err = e.reg.Populate(e.cfg); err != nil {
			return err
		}
	} else if len(ps) != e.cfg.N() {
		return fmt.Errorf("initial state holds %d particles, configuration implies %d", len(ps), e.cfg.N())
	}

	eng, err := e.reg.NewEngine(e.cfg, ps, e.cfg.Seed)
	if err != nil {
		return err
	}
	e.engine = eng
	e.logger.Info("setup", "model", e.cfg.Model.Kind, "particles", len(ps), "name", RunName(e.cfg))
	return nil
}

// SetNoise swaps the model for one with the given noise amplitude and
// keeps the current population.
func (e *Experiment) SetNoise(noise float64) error {
	if e.engine == nil {
		return fmt.Errorf("experiment not setup")
	}
	e.cfg.Model.Noise = noise
	eng, err := e.reg.NewEngine(e.cfg, e.engine.Snapshot(), e.cfg.Seed)
	if err != nil {
		return err
	}
	e.engine = eng
	return nil
}

// Equilibrate runs the equilibrium phase.
func (e *Experiment) Equilibrate(ctx context.Context) (time.Duration, error) {
	e.logger.Info("equilibrium", "steps", e.cfg.EquilibriumSteps)
	d, err := e.advance(ctx, PhaseEquilibrium, e.cfg.EquilibriumSteps, nil)
	if err == nil {
		e.logger.Info("equilibrium finished", "elapsed", d.Round(time.Millisecond))
	}
	return d, err
}

// Gather runs the data-gathering phase, handing the population to save
// after the first period and then every SavingPeriod periods.
func (e *Experiment) Gather(ctx context.Context, save FrameFunc) (time.Duration, error) {
	if e.engine != nil {
		e.engine.ResetMetrics()
	}
	e.logger.Info("gathering data", "steps", e.cfg.TotalSteps)
	d, err := e.advance(ctx, PhaseGathering, e.cfg.TotalSteps, save)
	if err == nil {
		e.logger.Info("gathering finished", "elapsed", d.Round(time.Millisecond))
	}
	return d, err
}

func (e *Experiment) advance(ctx context.Context, phase Phase, total int, save FrameFunc) (time.Duration, error) {
	if e.engine == nil {
		return 0, fmt.Errorf("experiment not setup")
	}
	start := time.Now()
	period := e.cfg.RebuildPeriod

	for i, k := 0, 0; i < total; i, k = i+period, k+1 {
		if err := ctx.Err(); err != nil {
			return time.Since(start), err
		}
		if err := e.engine.MultiStep(min(period, total-i), period); err != nil {
			return time.Since(start), fmt.Errorf("%s: %w", phase, err)
		}
		if save != nil && k%e.cfg.SavingPeriod == 0 {
			if err := save(e.engine.Particles()); err != nil {
				return time.Since(start), err
			}
		}
		e.report(phase, min(i+period, total), total, start)
	}
	return time.Since(start), nil
}

func (e *Experiment) report(phase Phase, done, total int, start time.Time) {
	if e.progress == nil {
		return
	}
	elapsed := time.Since(start)
	var remaining time.Duration
	if done > 0 {
		remaining = time.Duration(float64(elapsed) * float64(total-done) / float64(done))
	}
	e.progress(Progress{
		Phase:        phase,
		Step:         done,
		Total:        total,
		Elapsed:      elapsed,
		Remaining:    remaining,
		Polarization: metrics.OrderParameter(e.engine.Particles()),
	})
}

// Metrics returns the metric values accumulated since the last Gather began.
func (e *Experiment) Metrics() map[string]float64 {
	if e.engine == nil {
		return nil
	}
	return e.engine.MetricValues()
}

// RunParams lists the parameters encoded in run file names: density first,
// then the model parameters by key, then the domain size.
func RunParams(cfg *config.Config) checkpoint.Params {
	params := checkpoint.Params{{Key: "rho", Value: cfg.Density}}

	model := cfg.Model.Params()
	keys := make([]string, 0, len(model))
	for k := range model {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		params = append(params, checkpoint.Param{Key: k, Value: model[k]})
	}

	if cfg.Domain.Lx == cfg.Domain.Ly {
		return append(params, checkpoint.Param{Key: "L", Value: cfg.Domain.Lx})
	}
	return append(params,
		checkpoint.Param{Key: "Lx", Value: cfg.Domain.Lx},
		checkpoint.Param{Key: "Ly", Value: cfg.Domain.Ly})
}

// RunName is the reference-frame file name of cfg.
func RunName(cfg *config.Config) string {
	return checkpoint.EncodeName(RunParams(cfg))
}
