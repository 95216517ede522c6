package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/flocksim/internal/checkpoint"
	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/experiment"
	"github.com/san-kum/flocksim/internal/storage"
	"github.com/san-kum/flocksim/internal/tui"
)

func newMetadata(cfg *config.Config, command string) *storage.RunMetadata {
	box := cfg.Box()
	return &storage.RunMetadata{
		Name:      experiment.RunName(cfg),
		Command:   command,
		Model:     string(cfg.Model.Kind),
		Seed:      cfg.Seed,
		Dt:        cfg.Dt,
		Particles: cfg.N(),
		Lx:        box.Lx,
		Ly:        box.Ly,
		Steps:     cfg.EquilibriumSteps + cfg.TotalSteps,
		Params:    cfg.Model.Params(),
	}
}

// openRun opens the store and creates the directory of a new run, with the
// resolved configuration saved next to its outputs.
func openRun(ctx context.Context, cfg *config.Config, command string) (*storage.Store, *storage.RunMetadata, string, error) {
	st := storage.New(dataDir)
	if err := st.Open(ctx); err != nil {
		return nil, nil, "", err
	}
	meta := newMetadata(cfg, command)
	dir, err := st.Create(meta)
	if err != nil {
		st.Close()
		return nil, nil, "", err
	}
	if err := config.Save(filepath.Join(dir, "config.yaml"), cfg); err != nil {
		st.Close()
		return nil, nil, "", err
	}
	return st, meta, dir, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	model := ""
	if len(args) > 0 {
		model = args[0]
	}
	cfg, err := loadConfig(cmd, model)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, meta, dir, err := openRun(ctx, cfg, "run")
	if err != nil {
		return err
	}
	defer st.Close()

	framePath := filepath.Join(dir, experiment.RunName(cfg))
	logger.Info("run", "model", cfg.Model.Kind, "particles", cfg.N(), "frames", framePath)

	start := time.Now()
	err = withProgress(string(cfg.Model.Kind), func(ctx context.Context, report experiment.ProgressFunc) error {
		exp.OnProgress(report)
		if err := exp.Setup(nil); err != nil {
			return err
		}
		if _, err := exp.Equilibrate(ctx); err != nil {
			return err
		}

		out, err := checkpoint.Create(framePath, cfg.FrameLayout(), false)
		if err != nil {
			return err
		}
		_, err = exp.Gather(ctx, out.Append)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		return err
	})
	if err != nil {
		return err
	}

	meta.Metrics = exp.Metrics()
	meta.Elapsed = time.Since(start)
	if err := st.Save(ctx, meta); err != nil {
		return err
	}

	printMetrics(meta.ID, meta.Metrics, meta.Elapsed)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		fmt.Println("arguments are: \n density,\tnoise list")
		return nil
	}
	values, err := parseFloats(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, "")
	if err != nil {
		return err
	}
	cfg.Density = values[0]
	noises := values[1:]
	cfg.Model.Noise = noises[0]

	exp, err := experiment.New(cfg, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, meta, dir, err := openRun(ctx, cfg, "sweep")
	if err != nil {
		return err
	}
	defer st.Close()
	meta.Steps *= len(noises)

	layout := cfg.FrameLayout()
	open := func(name string) (experiment.Sink, error) {
		a, err := checkpoint.Create(filepath.Join(dir, name), layout, false)
		if err != nil {
			return nil, err
		}
		return a, nil
	}

	start := time.Now()
	var points []experiment.SweepPoint
	err = withProgress("sweep", func(ctx context.Context, report experiment.ProgressFunc) error {
		exp.OnProgress(report)
		if err := exp.Setup(nil); err != nil {
			return err
		}
		var err error
		points, err = exp.Sweep(ctx, noises, open)
		return err
	})
	if err != nil {
		return err
	}

	for _, pt := range points {
		fmt.Printf("%s  %s %s  %s %d\n",
			tui.MetricLabel.Render("noise"), tui.MetricValue.Render(strconv.FormatFloat(pt.Noise, 'g', -1, 64)),
			tui.Subtle.Render(pt.Name), tui.MetricLabel.Render("frames"), pt.Frames)
		for k, v := range pt.Metrics {
			fmt.Printf("    %s: %.6f\n", k, v)
		}
	}

	meta.Metrics = points[len(points)-1].Metrics
	meta.Elapsed = time.Since(start)
	return st.Save(ctx, meta)
}

func resumeRun(cmd *cobra.Command, args []string) error {
	model, _ := cmd.Flags().GetString("model")
	cfg, err := loadConfig(cmd, model)
	if err != nil {
		return err
	}

	path := args[0]
	ps, err := experiment.Resume(cfg, path, cfg.Box(), cfg.FrameLayout())
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}
	if err := exp.Setup(ps); err != nil {
		return err
	}
	logger.Info("resume", "file", path, "particles", len(ps))

	start := time.Now()
	var frames int
	err = withProgress("resume", func(ctx context.Context, report experiment.ProgressFunc) error {
		exp.OnProgress(report)
		out, err := checkpoint.Create(path, cfg.FrameLayout(), true)
		if err != nil {
			return err
		}
		_, err = exp.Gather(ctx, out.Append)
		frames = out.Frames()
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("appended %d frames to %s\n", frames, path)
	printMetrics("", exp.Metrics(), time.Since(start))
	return nil
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

func printMetrics(id string, metrics map[string]float64, elapsed time.Duration) {
	fmt.Println()
	if id != "" {
		fmt.Printf("%s %s\n", tui.MetricLabel.Render("run"), tui.MetricValue.Render(id))
	}
	for k, v := range metrics {
		fmt.Printf("  %s: %.6f\n", k, v)
	}
	fmt.Printf("%s\n", tui.Subtle.Render("elapsed "+elapsed.Round(time.Millisecond).String()))
}
