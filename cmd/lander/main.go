package main

import (
	"fmt"
	"os"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/san-kum/lander/internal/config"
)

var (
	dataDir    string
	configFile string
	logLevel   string
	dt         float64
	duration   float64
	integrator string
	fallback   string
	horizonN   int
	// Run output
	watch     bool
	verbose   bool
	noSave    bool
	frameRate int
	// Single tick pose, angles in degrees
	poseX, poseY, poseAlpha    float64
	poseXDot, poseYDot, poseAD float64
	// Plot, chart and export
	channel  string
	outPath  string
	jsonPath string
	// Tuning
	workers    int
	saveTuning string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "lander",
		Short:         "receding-horizon landing controller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".lander", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error, none)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a closed-loop landing",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLanding,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().BoolVar(&watch, "watch", false, "draw the run in the terminal")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate for --watch")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print a line per tick")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	tickCmd := &cobra.Command{
		Use:   "tick [preset]",
		Short: "solve one horizon from a given pose",
		Args:  cobra.MaximumNArgs(1),
		RunE:  solveTick,
	}
	addScenarioFlags(tickCmd)
	tickCmd.Flags().Float64Var(&poseX, "x", 250, "x position")
	tickCmd.Flags().Float64Var(&poseY, "y", 200, "y position (grows downward)")
	tickCmd.Flags().Float64Var(&poseAlpha, "alpha", -70, "attitude in degrees")
	tickCmd.Flags().Float64Var(&poseXDot, "x-dot", 0, "horizontal speed")
	tickCmd.Flags().Float64Var(&poseYDot, "y-dot", 0, "vertical speed")
	tickCmd.Flags().Float64Var(&poseAD, "alpha-dot", 0, "angular rate in degrees/s")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot actual vs predicted telemetry in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&channel, "channel", "", "only this channel (alpha, alpha_dot, y_dot, x, gimbal, thrust)")

	chartCmd := &cobra.Command{
		Use:   "chart [run_id]",
		Short: "write telemetry charts and the trajectory as image files",
		Args:  cobra.MaximumNArgs(1),
		RunE:  chartRun,
	}
	chartCmd.Flags().StringVarP(&outPath, "out", "o", "", "output directory (default: the run directory)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as one JSON document",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&jsonPath, "out", "o", "", "output file (default: stdout)")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a landing in an interactive view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "grid search over cost gains",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneGains,
	}
	addScenarioFlags(tuneCmd)
	tuneCmd.Flags().IntVar(&workers, "workers", 4, "parallel runs")
	tuneCmd.Flags().StringVar(&saveTuning, "save", "", "write the config with the best gains to this path")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Printf("  %-8s start x=%.0f y=%.0f alpha=%.0f°  target x=%.0f y=%.0f  fallback=%s\n",
					name, cfg.Scenario.Initial.X, cfg.Scenario.Initial.Y, cfg.Scenario.Initial.AlphaDeg,
					cfg.Scenario.Target.X, cfg.Scenario.Target.Y, cfg.Run.Fallback)
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "lander.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, tickCmd, listCmd, plotCmd, chartCmd, exportCmd, liveCmd, tuneCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "control tick")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "plant integrator ("+strings.Join(config.Integrators, ", ")+")")
	cmd.Flags().StringVar(&fallback, "fallback", "hold", "fallback policy ("+strings.Join(config.Fallbacks, ", ")+")")
	cmd.Flags().IntVar(&horizonN, "horizon", 5, "horizon steps")
}

// loadConfig resolves defaults, then the preset named by args, then the
// config file, then explicitly set flags.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	}
	if configFile != "" {
		if err := config.Overlay(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Controller.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Run.Duration = duration
	}
	if flags.Changed("integrator") {
		cfg.Plant.Integrator = integrator
	}
	if flags.Changed("fallback") {
		cfg.Run.Fallback = fallback
	}
	if flags.Changed("horizon") {
		cfg.Controller.Horizon = horizonN
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)

	var allow level.Option
	switch strings.ToLower(logLevel) {
	case "debug":
		allow = level.AllowDebug()
	case "info":
		allow = level.AllowInfo()
	case "error":
		allow = level.AllowError()
	case "none":
		allow = level.AllowNone()
	default:
		allow = level.AllowWarn()
	}
	return level.NewFilter(logger, allow)
}
