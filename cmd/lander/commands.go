package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/spf13/cobra"

	"github.com/san-kum/lander/internal/config"
	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/experiment"
	"github.com/san-kum/lander/internal/export"
	"github.com/san-kum/lander/internal/mpc"
	"github.com/san-kum/lander/internal/optim"
	"github.com/san-kum/lander/internal/physics"
	"github.com/san-kum/lander/internal/sim"
	"github.com/san-kum/lander/internal/storage"
	"github.com/san-kum/lander/internal/tui"
	"github.com/san-kum/lander/internal/viz"
)

// tickPrinter writes the per-tick console report.
type tickPrinter struct {
	out    io.Writer
	target physics.Pose
}

func (p *tickPrinter) OnTick(s dynamo.Sample) {
	pose, err := physics.PoseFromState(s.State)
	if err != nil {
		return
	}
	u, _ := physics.ControlFromVector(s.Control)
	fmt.Fprintln(p.out, viz.TickReport(s.Time, pose, u, p.target, s.Fallback))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runLanding(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger := newLogger()

	exp, err := experiment.New(cfg, experiment.WithLogger(logger))
	if err != nil {
		return err
	}
	if verbose {
		exp.Loop().AddObserver(&tickPrinter{out: os.Stdout, target: cfg.Target()})
	}
	if watch {
		r := tui.NewLiveRenderer(os.Stdout, cfg.Initial(), cfg.Target(), cfg.Vehicle.Height, frameRate)
		r.Start()
		defer r.Stop()
		exp.Loop().AddObserver(r)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s landing...\n", cfg.Scenario.Name)
	start := time.Now()
	result, runErr := exp.Run(ctx)
	elapsed := time.Since(start)
	if result == nil {
		return runErr
	}

	fmt.Printf("completed in %v\n", elapsed)
	printSummary(os.Stdout, cfg, result, runErr)

	if !noSave {
		runID, err := saveRun(cfg, result, runErr)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return runErr
}

func printSummary(w io.Writer, cfg *config.Config, result *sim.Result, runErr error) {
	target := cfg.Target()
	fmt.Fprintf(w, "steps: %d  fallbacks: %d  touchdown: %v\n", result.StepsTaken, result.Fallbacks, result.Touchdown)
	fmt.Fprintf(w, "final: %s\n", result.Final)
	fmt.Fprintf(w, "miss: x=%.2f  y_dot=%.2f  alpha=%.2f°\n",
		result.Final.X-target.X, result.Final.YDot, physics.Degrees(result.Final.Alpha))
	if runErr != nil {
		fmt.Fprintf(w, "stopped: %v\n", runErr)
	}

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "\nmetrics:")
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %.6f\n", name, result.Metrics[name])
	}
}

func saveRun(cfg *config.Config, result *sim.Result, runErr error) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	records, err := storage.RecordsFromSamples(result.Samples)
	if err != nil {
		return "", err
	}
	meta := storage.RunMetadata{
		Scenario:   cfg.Scenario.Name,
		Dt:         cfg.Controller.Dt,
		Duration:   cfg.Run.Duration,
		Horizon:    cfg.Controller.Horizon,
		Integrator: cfg.Plant.Integrator,
		Fallback:   cfg.Run.Fallback,
		Initial:    cfg.Initial(),
		Target:     cfg.Target(),
		Final:      result.Final,
		Steps:      result.StepsTaken,
		Fallbacks:  result.Fallbacks,
		Touchdown:  result.Touchdown,
		Metrics:    result.Metrics,
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}
	return st.Save(meta, records)
}

func solveTick(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctrl, err := mpc.New(cfg.Rocket(), cfg.MPC(), mpc.WithLogger(kitlog.With(newLogger(), "component", "mpc")))
	if err != nil {
		return err
	}

	current := physics.Pose{
		X:        poseX,
		Y:        poseY,
		Alpha:    physics.Radians(poseAlpha),
		XDot:     poseXDot,
		YDot:     poseYDot,
		AlphaDot: physics.Radians(poseAD),
	}
	start := time.Now()
	tick, err := ctrl.Step(context.Background(), current, cfg.Target(), cfg.Controller.Dt)
	elapsed := time.Since(start)
	if err != nil && len(tick.Plan) == 0 {
		return err
	}

	fmt.Printf("current:   %s\n", current)
	fmt.Printf("target:    %s\n", cfg.Target())
	fmt.Printf("control:   %s\n", tick.Control)
	fmt.Printf("predicted: %s\n", tick.Predicted)
	fmt.Printf("solve: %d iterations, objective %.6g, %v\n", tick.Iterations, tick.Objective, elapsed)
	if tick.Clamped {
		fmt.Println("note: terminal y_dot weight was capped")
	}
	fmt.Println("plan:")
	for i, u := range tick.Plan {
		fmt.Printf("  %d: %s\n", i, u)
	}
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT\tINTEG\tFALLBACK\tSTEPS\tTOUCHDOWN")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\t%d\t%v\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Fallback,
			run.Steps,
			run.Touchdown,
		)
	}
	return w.Flush()
}

// resolveRun returns the run named by args, or the latest one.
func resolveRun(st *storage.Store, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	id, err := st.Latest()
	if errors.Is(err, storage.ErrNoRuns) {
		return "", fmt.Errorf("no runs in %s; try 'lander run' first", dataDir)
	}
	return id, err
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	records, err := st.LoadTelemetry(runID)
	if err != nil {
		return err
	}

	channels := storage.Channels
	if channel != "" {
		ch, ok := storage.ChannelByName(channel)
		if !ok {
			return fmt.Errorf("unknown channel: %s", channel)
		}
		channels = []storage.Channel{ch}
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("%s  (%s, %d steps)", meta.ID, meta.Scenario, meta.Steps)))
	for _, ch := range channels {
		fmt.Println()
		fmt.Println(viz.PlotChannel(ch, records, 80, 10))
	}
	return nil
}

func chartRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	records, err := st.LoadTelemetry(runID)
	if err != nil {
		return err
	}

	dir := outPath
	if dir == "" {
		dir = filepath.Join(dataDir, runID)
	}
	charts := filepath.Join(dir, "telemetry.png")
	if err := export.SaveCharts(charts, records, export.DefaultChartOptions()); err != nil {
		return err
	}
	path := filepath.Join(dir, "trajectory.svg")
	if err := export.SaveTrajectory(path, records, meta.Target); err != nil {
		return err
	}
	fmt.Printf("wrote %s\nwrote %s\n", charts, path)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	records, err := st.LoadTelemetry(runID)
	if err != nil {
		return err
	}
	if jsonPath == "" {
		return storage.WriteJSON(os.Stdout, *meta, records)
	}
	if err := storage.ExportJSON(jsonPath, *meta, records); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", jsonPath)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	return tui.Run(cfg)
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	params, ranges := experiment.TuningRanges(cfg.Tuning)
	gs, err := optim.NewGridSearch(params, ranges)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("tuning %v over %d runs of %s...\n", params, len(gs.Points()), cfg.Scenario.Name)
	start := time.Now()
	best, score, err := gs.WithWorkers(workers).Search(ctx, experiment.TuneEvaluator(cfg))
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("best score: %.4f\n", score)
	for _, name := range params {
		fmt.Printf("  %s: %g\n", name, best[name])
	}

	if saveTuning != "" {
		for name, v := range best {
			if err := cfg.Tuning.SetParam(name, v); err != nil {
				return err
			}
		}
		if err := config.Save(saveTuning, cfg); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", saveTuning)
	}
	return nil
}
