package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/experiment"
	"github.com/san-kum/flocksim/internal/logging"
	"github.com/san-kum/flocksim/internal/physics"
	"github.com/san-kum/flocksim/internal/tui"
)

var (
	dataDir  string
	logLevel string
	useTUI   bool

	configFile string
	preset     string

	density     float64
	noise       float64
	lx          float64
	ly          float64
	cellWidth   float64
	dt          float64
	seed        int64
	eqSteps     int
	totalSteps  int
	rebuild     int
	saving      int
	trackID     int
	formationK  string
	layout      string
	validate    bool

	// lyapunov
	nodes       int
	directions  int
	topology    string
	renorm      string
	renormEvery int

	// inspect
	interval float64

	logger *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "flocksim",
		Short:        "active matter flocking simulations and deviation growth",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewLogger(logLevel, os.Stderr)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".flocksim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "equilibrate a population and record reference frames",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep [density] [noise...]",
		Short: "run one population through a list of noise amplitudes",
		RunE:  runSweep,
	}
	addSimFlags(sweepCmd)

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [density kappa mu+ mu- Dphi]",
		Short: "evolve perturbed copies of an equilibrated population",
		RunE:  runLyapunov,
	}
	addSimFlags(lyapunovCmd)
	lyapunovCmd.Flags().IntVar(&nodes, "nodes", config.DefaultNodes, "number of ranks")
	lyapunovCmd.Flags().IntVar(&directions, "directions", config.DefaultDirections, "number of perturbed copies")
	lyapunovCmd.Flags().StringVar(&topology, "topology", "own", "neighbor topology of the copies (own, reference)")
	lyapunovCmd.Flags().StringVar(&renorm, "renorm", "none", "renormalization (none, independent, gram-schmidt)")
	lyapunovCmd.Flags().IntVar(&renormEvery, "renorm-every", 10, "sampling points between renormalizations")

	resumeCmd := &cobra.Command{
		Use:   "resume [checkpoint]",
		Short: "continue a run from the last frame of its reference file",
		Args:  cobra.ExactArgs(1),
		RunE:  resumeRun,
	}
	addSimFlags(resumeCmd)
	resumeCmd.Flags().String("model", string(physics.KindVicsek), "model kind of the checkpoint")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect [traj-file]",
		Short: "plot the mean log separation of a trajectory file",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectTrajectories,
	}
	inspectCmd.Flags().Float64Var(&lx, "lx", config.DefaultL, "domain width")
	inspectCmd.Flags().Float64Var(&ly, "ly", config.DefaultL, "domain height")
	inspectCmd.Flags().Float64Var(&interval, "interval", 0, "time between samples (default: from report.json or the default config)")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, sweepCmd, lyapunovCmd, resumeCmd, listCmd, inspectCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&density, "density", def.Density, "particles per unit area")
	f.Float64Var(&noise, "noise", def.Model.Noise, "noise amplitude")
	f.Float64Var(&lx, "lx", def.Domain.Lx, "domain width")
	f.Float64Var(&ly, "ly", def.Domain.Ly, "domain height")
	f.Float64Var(&cellWidth, "cell-width", 0, "cell list width (0 derives it from the cutoff)")
	f.Float64Var(&dt, "dt", def.Dt, "timestep")
	f.Int64Var(&seed, "seed", def.Seed, "random seed")
	f.IntVar(&eqSteps, "equilibrium", def.EquilibriumSteps, "equilibrium steps")
	f.IntVar(&totalSteps, "steps", def.TotalSteps, "data gathering steps")
	f.IntVar(&rebuild, "rebuild", def.RebuildPeriod, "steps between cell list rebuilds")
	f.IntVar(&saving, "saving", def.SavingPeriod, "rebuild periods between saved frames")
	f.IntVar(&trackID, "track", def.TrackID, "tracked particle")
	f.StringVar(&formationK, "formation", def.Formation.Kind, "initial formation")
	f.StringVar(&layout, "layout", def.Layout, "frame layout (position-velocity, position-heading)")
	f.BoolVar(&validate, "validate", false, "fail on NaN or Inf particle state")
	f.BoolVar(&useTUI, "tui", false, "show an interactive progress view")
}

// loadConfig resolves defaults, preset, config file and flags, in that
// order. Flags only override values when set explicitly.
func loadConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if model != "" {
		cfg.Model = physics.DefaultConfig(physics.Kind(model))
	}

	if preset != "" {
		kind := string(cfg.Model.Kind)
		p := config.GetPreset(kind, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(kind))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		if model != "" && cfg.Model.Kind != physics.Kind(model) {
			cfg.Model = physics.DefaultConfig(physics.Kind(model))
		}
	}

	f := cmd.Flags()
	if f.Changed("density") {
		cfg.Density = density
	}
	if f.Changed("noise") {
		cfg.Model.Noise = noise
	}
	if f.Changed("lx") {
		cfg.Domain.Lx = lx
	}
	if f.Changed("ly") {
		cfg.Domain.Ly = ly
	}
	if f.Changed("cell-width") {
		cfg.Domain.CellWidth = cellWidth
	}
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("equilibrium") {
		cfg.EquilibriumSteps = eqSteps
	}
	if f.Changed("steps") {
		cfg.TotalSteps = totalSteps
	}
	if f.Changed("rebuild") {
		cfg.RebuildPeriod = rebuild
	}
	if f.Changed("saving") {
		cfg.SavingPeriod = saving
	}
	if f.Changed("track") {
		cfg.TrackID = trackID
	}
	if f.Changed("formation") {
		cfg.Formation.Kind = formationK
	}
	if f.Changed("layout") {
		cfg.Layout = layout
	}
	if f.Changed("validate") {
		cfg.ValidateState = validate
	}

	// lyapunov flags only exist on that command
	if f.Lookup("nodes") != nil {
		if f.Changed("nodes") {
			cfg.Lyapunov.Nodes = nodes
		}
		if f.Changed("directions") {
			cfg.Lyapunov.Directions = directions
		}
		if f.Changed("topology") {
			cfg.Lyapunov.Topology = topology
		}
		if f.Changed("renorm") {
			cfg.Lyapunov.Renorm = renorm
		}
		if f.Changed("renorm-every") {
			cfg.Lyapunov.RenormEvery = renormEvery
		}
	}

	cfg.OutputDir = dataDir
	return cfg, nil
}

// withProgress runs job with either the interactive view or status lines
// on stderr, and stops it on interrupt.
func withProgress(title string, job func(ctx context.Context, report experiment.ProgressFunc) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if useTUI {
		return tui.Run(ctx, title, job)
	}
	return job(ctx, tui.Printer(os.Stderr))
}

func listPresets(cmd *cobra.Command, args []string) error {
	models := []string{}
	if len(args) > 0 {
		models = append(models, args[0])
	} else {
		for _, k := range physics.Kinds() {
			models = append(models, string(k))
		}
	}

	for _, model := range models {
		names := config.ListPresets(model)
		if len(names) == 0 {
			continue
		}
		fmt.Printf("%s:\n", tui.Title.Render(model))
		for _, p := range names {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}
