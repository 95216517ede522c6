package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/flocksim/internal/coordinator"
	"github.com/san-kum/flocksim/internal/experiment"
	"github.com/san-kum/flocksim/internal/physics"
	"github.com/san-kum/flocksim/internal/tui"
)

func runLyapunov(cmd *cobra.Command, args []string) error {
	if len(args) < 5 {
		fmt.Println("arguments are: \ndensity,\tkappa,\tmu+,\tmu-,\tDphi")
		return nil
	}
	values, err := parseFloats(args[:5])
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, string(physics.KindZoned))
	if err != nil {
		return err
	}
	cfg.Density = values[0]
	cfg.Model.Zoned.Kappa = values[1]
	cfg.Model.Zoned.MuPlus = values[2]
	cfg.Model.Zoned.MuMinus = values[3]
	cfg.Model.Zoned.DPhi = values[4]

	co, err := coordinator.New(cfg, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, meta, dir, err := openRun(ctx, cfg, "lyapunov")
	if err != nil {
		return err
	}
	defer st.Close()
	co.SetOutputDir(dir)

	l := cfg.Lyapunov
	logger.Info("lyapunov", "particles", cfg.N(), "nodes", l.Nodes, "directions", l.Directions,
		"topology", l.Topology, "renorm", l.Renorm)

	start := time.Now()
	var res *coordinator.Result
	err = withProgress("lyapunov", func(ctx context.Context, report experiment.ProgressFunc) error {
		co.OnProgress(report)
		var err error
		res, err = co.Run(ctx)
		return err
	})
	if err != nil {
		return err
	}

	meta.Elapsed = time.Since(start)
	meta.Metrics = map[string]float64{"growth_rate": res.GrowthRate}
	for i, e := range res.Exponents {
		meta.Metrics[fmt.Sprintf("exponent_%d", i)] = e
	}
	if err := st.Save(ctx, meta); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("%s %s\n", tui.MetricLabel.Render("run"), tui.MetricValue.Render(meta.ID))
	fmt.Printf("  reference:    %s\n", res.ReferencePath)
	fmt.Printf("  trajectories: %s\n", res.TrajectoryPath)
	fmt.Printf("  report:       %s\n", res.ReportPath)
	fmt.Printf("  growth rate:  %.6f\n", res.GrowthRate)
	for i, e := range res.Exponents {
		fmt.Printf("  lambda_%d:     %.6f\n", i, e)
	}
	fmt.Printf("%s\n", tui.Subtle.Render(fmt.Sprintf("equilibrium %s, deviation %s",
		res.Equilibrium.Round(time.Millisecond), res.Deviation.Round(time.Millisecond))))
	return nil
}
