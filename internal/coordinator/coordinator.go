// Package coordinator runs the distributed deviation experiment: rank 0
// equilibrates a reference population, every rank evolves the perturbed
// copies assigned to it, and rank 0 collects the tracked trajectories.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/san-kum/flocksim/internal/checkpoint"
	"github.com/san-kum/flocksim/internal/cluster"
	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/experiment"
	"github.com/san-kum/flocksim/internal/logging"
	"github.com/san-kum/flocksim/internal/lyapunov"
	"github.com/san-kum/flocksim/internal/metrics"
	"github.com/san-kum/flocksim/internal/physics"
	"github.com/san-kum/flocksim/internal/sim"
	"github.com/san-kum/flocksim/internal/storage"
)

// TrajectoryFile is written by rank 0 into the output directory.
const TrajectoryFile = "traj-r-v.bin"

// deviationTag offsets the tags of renormalization messages so they never
// collide with trajectory tags, which are direction indices.
const deviationTag = 1 << 20

type Result struct {
	Name         string
	Trajectories [][]sim.Sample
	Separation   []float64
	GrowthRate   float64
	Exponents    []float64

	Equilibrium time.Duration
	Deviation   time.Duration

	ReferencePath  string
	TrajectoryPath string
	ReportPath     string
}

type Coordinator struct {
	cfg      *config.Config
	reg      *experiment.Registry
	logger   *slog.Logger
	initial  []physics.Particle
	outDir   string
	progress experiment.ProgressFunc

	result *Result
}

func New(cfg *config.Config, reg *experiment.Registry, logger *slog.Logger) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Lyapunov.Directions >= deviationTag {
		return nil, fmt.Errorf("%w: at most %d directions, got %d", dynamo.ErrConfig, deviationTag-1, cfg.Lyapunov.Directions)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Coordinator{cfg: cfg, reg: reg, logger: logger, outDir: cfg.OutputDir}, nil
}

// SetInitial makes rank 0 start from ps instead of seeding a formation.
func (c *Coordinator) SetInitial(ps []physics.Particle) { c.initial = ps }

// SetOutputDir changes where rank 0 writes its files. Empty disables
// writing.
func (c *Coordinator) SetOutputDir(dir string) { c.outDir = dir }

// OnProgress registers a callback invoked on rank 0 only.
func (c *Coordinator) OnProgress(fn experiment.ProgressFunc) { c.progress = fn }

// Run executes the protocol on Lyapunov.Nodes in-process ranks and returns
// what rank 0 gathered.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	c.result = nil
	if err := cluster.Run(ctx, c.cfg.Lyapunov.Nodes, c.node); err != nil {
		return nil, err
	}
	return c.result, nil
}

// node is the protocol as seen by one rank.
func (c *Coordinator) node(ctx context.Context, comm cluster.Comm) error {
	logger := logging.ForRank(c.logger, comm.Rank())
	cfg := c.cfg
	box := cfg.Box()
	n := cfg.N()
	count := cfg.Lyapunov.Directions
	res := &Result{Name: experiment.RunName(cfg)}

	// 1. equilibrium on rank 0
	var (
		ref []physics.Particle
		set *lyapunov.Set
	)
	if cluster.IsRoot(comm) {
		exp, err := experiment.New(cfg, c.reg, logger)
		if err != nil {
			return err
		}
		exp.OnProgress(c.progress)
		if err := exp.Setup(c.initial); err != nil {
			return err
		}
		if res.Equilibrium, err = exp.Equilibrate(ctx); err != nil {
			return err
		}
		ref = exp.Engine().Snapshot()
	}
	if err := comm.Barrier(ctx); err != nil {
		return err
	}

	// 2. reference snapshot and deviation set
	if cluster.IsRoot(comm) {
		if c.outDir != "" {
			if err := os.MkdirAll(c.outDir, 0755); err != nil {
				return err
			}
			res.ReferencePath = filepath.Join(c.outDir, res.Name)
			if err := checkpoint.Save(res.ReferencePath, ref, cfg.FrameLayout()); err != nil {
				return err
			}
		}
		var err error
		set, err = lyapunov.Initialize(count, n, cfg.Lyapunov.Perturb, dynamo.NewRand(cfg.Seed+1))
		if err != nil {
			return err
		}
		logger.Info("deviation set", "directions", count, "nodes", comm.Size(), "topology", cfg.Lyapunov.Topology)
	}
	if err := comm.Barrier(ctx); err != nil {
		return err
	}

	// 3. broadcast
	ref, set, err := broadcast(ctx, comm, ref, set, n, count)
	if err != nil {
		return err
	}

	// 4. evolve the assigned directions
	if err := comm.Barrier(ctx); err != nil {
		return err
	}
	start := time.Now()
	run, err := c.newRun(comm, ref, set, logger)
	if err != nil {
		return err
	}
	if err := run.evolve(ctx, c.progress); err != nil {
		return err
	}
	res.Deviation = time.Since(start)

	// 5. gather trajectories on rank 0
	if err := comm.Barrier(ctx); err != nil {
		return err
	}
	trajs, err := run.gather(ctx)
	if err != nil {
		return err
	}
	if !cluster.IsRoot(comm) {
		logger.Debug("done", "elapsed", res.Deviation.Round(time.Millisecond))
		return nil
	}

	// 6. results
	res.Trajectories = trajs
	res.Separation = lyapunov.SeparationSeries(trajs, box)
	res.GrowthRate = lyapunov.GrowthRate(res.Separation, run.sampleTime())
	if run.est != nil {
		res.Exponents = run.est.Exponents()
	}
	if c.outDir != "" {
		if err := c.write(res, run); err != nil {
			return err
		}
	}
	logger.Info("deviation finished", "elapsed", res.Deviation.Round(time.Millisecond), "growth_rate", res.GrowthRate)
	c.result = res
	return nil
}

// broadcast hands rank 0's reference state and deviation set to every rank.
func broadcast(ctx context.Context, comm cluster.Comm, ref []physics.Particle, set *lyapunov.Set, n, count int) ([]physics.Particle, *lyapunov.Set, error) {
	var state, dirs []float64
	if cluster.IsRoot(comm) {
		state = lyapunov.PackState(ref)
		dirs = set.Pack()
	}
	if err := comm.Bcast(ctx, 0, &state); err != nil {
		return nil, nil, err
	}
	if err := comm.Bcast(ctx, 0, &dirs); err != nil {
		return nil, nil, err
	}
	if cluster.IsRoot(comm) {
		return ref, set, nil
	}

	ref, err := lyapunov.UnpackState(state)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", cluster.ErrProtocol, err)
	}
	set, err = lyapunov.UnpackSet(dirs)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", cluster.ErrProtocol, err)
	}
	if len(ref) != n || set.Len() != count {
		return nil, nil, fmt.Errorf("%w: received %d particles and %d directions, expected %d and %d",
			cluster.ErrProtocol, len(ref), set.Len(), n, count)
	}
	return ref, set, nil
}

func (c *Coordinator) write(res *Result, run *run) error {
	res.TrajectoryPath = filepath.Join(c.outDir, TrajectoryFile)
	if err := checkpoint.SaveTrajectories(res.TrajectoryPath, res.Trajectories); err != nil {
		return err
	}

	l := c.cfg.Lyapunov
	report := &storage.Report{
		Name:       res.Name,
		Model:      string(c.cfg.Model.Kind),
		Params:     c.cfg.Model.Params(),
		Lx:         c.cfg.Domain.Lx,
		Ly:         c.cfg.Domain.Ly,
		Nodes:      l.Nodes,
		Directions: l.Directions,
		Topology:   l.Topology,
		Renorm:     l.Renorm,
		TrackID:    c.cfg.TrackID,
		Points:     c.cfg.Points(),
		Interval:   run.sampleTime(),
		Separation: finite(res.Separation),
		GrowthRate: res.GrowthRate,
		Exponents:  res.Exponents,
		Metrics:    run.metrics(),
		Elapsed:    (res.Equilibrium + res.Deviation).Seconds(),
	}
	res.ReportPath = filepath.Join(c.outDir, storage.ReportFile)
	return storage.SaveReport(res.ReportPath, report)
}

// finite clamps the -Inf samples of coinciding directions, which JSON
// cannot encode.
func finite(series []float64) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		if math.IsInf(v, -1) {
			v = -math.MaxFloat64
		}
		out[i] = v
	}
	return out
}

// metrics reports the order parameter of the reference twin, or of the
// first local direction when there is no twin.
func (r *run) metrics() map[string]float64 {
	eng := r.twin
	if eng == nil && len(r.engines) > 0 {
		eng = r.engines[0]
	}
	if eng == nil {
		return nil
	}
	return map[string]float64{"polarization": metrics.OrderParameter(eng.Particles())}
}
