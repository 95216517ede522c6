package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/flocksim/internal/checkpoint"
	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/physics"
)

// Sink stores the frames of one run.
type Sink interface {
	Append(ps []physics.Particle) error
	Close() error
}

// SinkFactory opens the sink of the run with the given file name.
type SinkFactory func(name string) (Sink, error)

type SweepPoint struct {
	Noise       float64
	Name        string
	Frames      int
	Equilibrium time.Duration
	Gathering   time.Duration
	Metrics     map[string]float64
}

// Sweep runs one equilibrium and gathering phase per noise value, carrying
// the population over from one value to the next. Setup must have run.
func (e *Experiment) Sweep(ctx context.Context, noises []float64, open SinkFactory) ([]SweepPoint, error) {
	points := make([]SweepPoint, 0, len(noises))
	for _, noise := range noises {
		if err := e.SetNoise(noise); err != nil {
			return points, err
		}
		pt := SweepPoint{Noise: noise, Name: RunName(e.cfg)}
		e.logger.Info("sweep", "noise", noise, "name", pt.Name)

		sink, err := open(pt.Name)
		if err != nil {
			return points, err
		}
		if pt.Equilibrium, err = e.Equilibrate(ctx); err != nil {
			sink.Close()
			return points, err
		}
		pt.Gathering, err = e.Gather(ctx, func(ps []physics.Particle) error {
			pt.Frames++
			return sink.Append(ps)
		})
		if cerr := sink.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return points, err
		}
		pt.Metrics = e.Metrics()
		points = append(points, pt)
	}
	return points, nil
}

// ApplyRunParams copies decoded run-name parameters onto cfg: rho sets the
// density, L or Lx/Ly the domain, everything else the model parameters of
// cfg's model kind.
func ApplyRunParams(cfg *config.Config, params checkpoint.Params) error {
	for _, p := range params {
		switch p.Key {
		case "rho":
			cfg.Density = p.Value
		case "L":
			cfg.Domain.Lx, cfg.Domain.Ly = p.Value, p.Value
		case "Lx":
			cfg.Domain.Lx = p.Value
		case "Ly":
			cfg.Domain.Ly = p.Value
		default:
			if !cfg.Model.SetParam(p.Key, p.Value) {
				return fmt.Errorf("%w: %s has no parameter %q", dynamo.ErrConfig, cfg.Model.Kind, p.Key)
			}
		}
	}
	return nil
}

// Resume prepares cfg from a run file: parameters are decoded from its
// name, its domain is checked against box, and the last frame is returned.
func Resume(cfg *config.Config, path string, box dynamo.Box, layout checkpoint.Layout) ([]physics.Particle, error) {
	params, err := checkpoint.DecodeName(path)
	if err != nil {
		return nil, err
	}
	if err := checkpoint.CheckDomain(params, box); err != nil {
		return nil, err
	}
	if err := ApplyRunParams(cfg, params); err != nil {
		return nil, err
	}
	return checkpoint.Load(path, layout)
}
