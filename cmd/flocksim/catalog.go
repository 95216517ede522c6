package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/flocksim/internal/checkpoint"
	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/lyapunov"
	"github.com/san-kum/flocksim/internal/storage"
)

func listRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := storage.New(dataDir)
	if err := st.Open(ctx); err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMMAND\tMODEL\tN\tSTEPS\tELAPSED\tTIMESTAMP")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.Command, r.Model, r.Particles, r.Steps,
			r.Elapsed.Round(time.Millisecond), r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func inspectTrajectories(cmd *cobra.Command, args []string) error {
	path := args[0]
	traj, err := checkpoint.LoadTrajectories(path)
	if err != nil {
		return err
	}

	box := dynamo.Box{Lx: lx, Ly: ly}
	dt := interval
	if report, err := storage.LoadReport(filepath.Join(filepath.Dir(path), storage.ReportFile)); err == nil {
		if !cmd.Flags().Changed("interval") {
			dt = report.Interval
		}
		if report.Lx > 0 && !cmd.Flags().Changed("lx") {
			box.Lx = report.Lx
		}
		if report.Ly > 0 && !cmd.Flags().Changed("ly") {
			box.Ly = report.Ly
		}
	}
	if dt <= 0 {
		def := config.DefaultConfig()
		dt = float64(def.SampleInterval()) * def.Dt
	}

	series := lyapunov.SeparationSeries(traj, box)
	plotted := make([]float64, 0, len(series))
	for _, v := range series {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			plotted = append(plotted, v)
		}
	}
	if len(plotted) == 0 {
		return fmt.Errorf("%s: no finite separation samples", path)
	}

	fmt.Printf("%d directions, %d samples\n\n", len(traj), len(series))
	fmt.Println(asciigraph.Plot(plotted,
		asciigraph.Height(15),
		asciigraph.Width(70),
		asciigraph.Caption("mean log separation of the tracked particle"),
	))
	fmt.Printf("\ngrowth rate: %.6f (interval %g)\n", lyapunov.GrowthRate(series, dt), dt)
	return nil
}
