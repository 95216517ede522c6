package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/flocksim/internal/cluster"
	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/experiment"
	"github.com/san-kum/flocksim/internal/logging"
	"github.com/san-kum/flocksim/internal/lyapunov"
	"github.com/san-kum/flocksim/internal/metrics"
	"github.com/san-kum/flocksim/internal/physics"
	"github.com/san-kum/flocksim/internal/sim"
)

// run holds the engines one rank evolves.
type run struct {
	cfg    *config.Config
	comm   cluster.Comm
	logger *slog.Logger
	box    dynamo.Box

	owned   []int         // direction indices, ascending
	engines []*sim.Engine // one per owned direction

	// twin is the co-evolved reference. It exists when the topology is
	// taken from the reference or when deviations are renormalized.
	twin *sim.Engine
	mode lyapunov.Mode

	// est lives on rank 0 only, and only when renormalizing.
	est *lyapunov.Estimator
}

func (c *Coordinator) newRun(comm cluster.Comm, ref []physics.Particle, set *lyapunov.Set, logger *slog.Logger) (*run, error) {
	cfg := c.cfg
	r := &run{
		cfg:    cfg,
		comm:   comm,
		logger: logger,
		box:    cfg.Box(),
		owned:  lyapunov.AssignDirections(comm.Rank(), comm.Size(), set.Len()),
		mode:   cfg.RenormMode(),
	}

	// every copy shares one noise realization
	seed := cfg.Seed + 2
	for _, d := range r.owned {
		ps, err := set.State(d, ref, r.box)
		if err != nil {
			return nil, err
		}
		eng, err := c.reg.NewEngine(cfg, ps, seed)
		if err != nil {
			return nil, err
		}
		r.engines = append(r.engines, eng)
	}

	topology, err := config.ParseTopology(cfg.Lyapunov.Topology)
	if err != nil {
		return nil, err
	}
	if topology == config.TopologyReference || r.mode != lyapunov.RenormNone {
		if r.twin, err = c.reg.NewEngine(cfg, ref, seed); err != nil {
			return nil, err
		}
	}
	if r.mode != lyapunov.RenormNone && cluster.IsRoot(comm) {
		if r.est, err = lyapunov.NewEstimator(r.mode, set.Norms()); err != nil {
			return nil, err
		}
	}

	logger.Debug("assigned directions", "directions", r.owned, "twin", r.twin != nil)
	return r, nil
}

func (r *run) adoptsTopology() bool {
	return r.cfg.Lyapunov.Topology == string(config.TopologyReference)
}

// sampleTime is the simulated time between two tracked samples.
func (r *run) sampleTime() float64 {
	return float64(r.cfg.SampleInterval()) * r.cfg.Dt
}

// evolve advances every owned direction through the sampling points,
// tracking the configured particle after each one.
func (r *run) evolve(ctx context.Context, progress experiment.ProgressFunc) error {
	points := r.cfg.Points()
	interval := r.cfg.SampleInterval()
	start := time.Now()

	for p := 0; p < points; p++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.step(interval); err != nil {
			return err
		}
		for _, eng := range r.engines {
			if err := eng.TrackParticle(r.cfg.TrackID); err != nil {
				return err
			}
		}

		if r.mode != lyapunov.RenormNone && (p+1)%r.cfg.Lyapunov.RenormEvery == 0 {
			if err := r.renormalize(ctx); err != nil {
				return fmt.Errorf("renormalization after point %d: %w", p+1, err)
			}
		}

		r.logger.Log(ctx, logging.LevelTrace, "point", "index", p+1, "of", points)
		if progress != nil && cluster.IsRoot(r.comm) {
			elapsed := time.Since(start)
			progress(experiment.Progress{
				Phase:        experiment.PhaseDeviation,
				Step:         p + 1,
				Total:        points,
				Elapsed:      elapsed,
				Remaining:    time.Duration(float64(elapsed) * float64(points-p-1) / float64(p+1)),
				Polarization: r.polarization(),
			})
		}
	}
	return nil
}

func (r *run) step(total int) error {
	period := r.cfg.RebuildPeriod
	if r.adoptsTopology() {
		return sim.MultiStepFollowing(r.twin, total, period, r.engines...)
	}
	if r.twin != nil {
		if err := r.twin.MultiStep(total, period); err != nil {
			return fmt.Errorf("reference: %w", err)
		}
	}
	for _, eng := range r.engines {
		if err := eng.MultiStep(total, period); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) polarization() float64 {
	if len(r.engines) == 0 {
		return 0
	}
	return metrics.OrderParameter(r.engines[0].Particles())
}

// renormalize sends every deviation from the twin to rank 0, which rescales
// them and sends each one back to its owner. Owners then restart their
// copies from the twin displaced by the rescaled deviation.
func (r *run) renormalize(ctx context.Context) error {
	if err := r.comm.Barrier(ctx); err != nil {
		return err
	}

	ref := r.twin.Particles()
	width := 3 * len(ref)
	local := make(map[int]lyapunov.Vector, len(r.owned))
	for k, d := range r.owned {
		v, err := lyapunov.Deviation(ref, r.engines[k].Particles(), r.box)
		if err != nil {
			return err
		}
		local[d] = v
	}

	if cluster.IsRoot(r.comm) {
		count := r.cfg.Lyapunov.Directions
		nodes := r.comm.Size()
		devs := make([]lyapunov.Vector, count)
		for d := range devs {
			if owner := lyapunov.Owner(d, nodes); owner != 0 {
				data, err := cluster.RecvExact(ctx, r.comm, owner, deviationTag+d, width)
				if err != nil {
					return err
				}
				devs[d] = data
			} else {
				devs[d] = local[d]
			}
		}
		interval := float64(r.cfg.Lyapunov.RenormEvery) * r.sampleTime()
		if err := r.est.Renormalize(devs, interval); err != nil {
			return err
		}
		for d, v := range devs {
			if owner := lyapunov.Owner(d, nodes); owner != 0 {
				if err := r.comm.Send(ctx, owner, deviationTag+d, v); err != nil {
					return err
				}
			} else {
				local[d] = v
			}
		}
	} else {
		for _, d := range r.owned {
			if err := r.comm.Send(ctx, 0, deviationTag+d, local[d]); err != nil {
				return err
			}
		}
		for _, d := range r.owned {
			data, err := cluster.RecvExact(ctx, r.comm, 0, deviationTag+d, width)
			if err != nil {
				return err
			}
			local[d] = data
		}
	}

	for k, d := range r.owned {
		ps, err := lyapunov.Apply(ref, local[d], r.box)
		if err != nil {
			return err
		}
		r.engines[k].Load(ps)
	}
	return nil
}

// gather collects every direction's trajectory on rank 0, in direction
// order. Other ranks send theirs and return nil.
func (r *run) gather(ctx context.Context) ([][]sim.Sample, error) {
	points := r.cfg.Points()

	if !cluster.IsRoot(r.comm) {
		for k, d := range r.owned {
			if err := r.comm.Send(ctx, 0, d, packTrajectory(r.engines[k].Trajectory())); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	count := r.cfg.Lyapunov.Directions
	nodes := r.comm.Size()
	trajs := make([][]sim.Sample, count)
	for k, d := range r.owned {
		trajs[d] = r.engines[k].Trajectory()
	}
	for d := 0; d < count; d++ {
		owner := lyapunov.Owner(d, nodes)
		if owner == 0 {
			continue
		}
		data, err := cluster.RecvExact(ctx, r.comm, owner, d, 3*points)
		if err != nil {
			return nil, err
		}
		trajs[d] = unpackTrajectory(data)
	}
	return trajs, nil
}

// packTrajectory flattens samples as x, y, θ triples.
func packTrajectory(traj []sim.Sample) []float64 {
	buf := make([]float64, 0, 3*len(traj))
	for _, s := range traj {
		buf = append(buf, s.Pos.X, s.Pos.Y, s.Theta)
	}
	return buf
}

func unpackTrajectory(buf []float64) []sim.Sample {
	traj := make([]sim.Sample, len(buf)/3)
	for i := range traj {
		traj[i] = sim.Sample{Pos: dynamo.Vec2{X: buf[3*i], Y: buf[3*i+1]}, Theta: buf[3*i+2]}
	}
	return traj
}
