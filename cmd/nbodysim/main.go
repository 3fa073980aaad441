package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/san-kum/nbodysim/internal/config"
	"github.com/san-kum/nbodysim/internal/dynamo"
	"github.com/san-kum/nbodysim/internal/errorreporting"
	"github.com/san-kum/nbodysim/internal/logger"
	"github.com/san-kum/nbodysim/internal/tracing"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string

	particles int
	strategy  string
	workers   int
	seed      uint64
	dt        float64
	steps     int

	theta     float64
	softening float64
	damping   float64
	gravity   float64
	mass      float64
	fraction  float64
	radius    float64

	shutdownTracing func(context.Context) error
)

// main registers the commands and runs the live view when no subcommand is
// given. It exits with status 1 if the command fails.
func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:               "nbodysim",
		Short:             "gravitational n-body simulator",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: teardown,
		RunE:              runLive,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".nbodysim", "data directory for run reports")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.IntVar(&particles, "particles", config.DefaultParticles, "particle count")
	pf.StringVar(&strategy, "strategy", config.DefaultStrategy, "force strategy (direct, parallel, barneshut)")
	pf.IntVar(&workers, "workers", 0, "worker goroutines (0 = one per CPU)")
	pf.Uint64Var(&seed, "seed", config.DefaultSeed, "random seed")
	pf.Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	pf.IntVar(&steps, "steps", config.DefaultSteps, "steps for headless commands")
	pf.Float64Var(&theta, "theta", config.DefaultTheta, "Barnes-Hut opening angle")
	pf.Float64Var(&softening, "softening", config.DefaultSoftening, "softening length squared")
	pf.Float64Var(&damping, "damping", config.DefaultDamping, "velocity damping per step")
	pf.Float64Var(&gravity, "gravity", config.DefaultGravity, "gravity multiplier")
	pf.Float64Var(&mass, "mass", config.DefaultParticleMass, "particle mass")
	pf.Float64Var(&fraction, "fraction", config.DefaultFraction, "direct-sum interaction fraction")
	pf.Float64Var(&radius, "radius", config.DefaultSpawnRadius, "spawn sphere radius")

	addLiveFlags(rootCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive terminal view",
		RunE:  runLive,
	}
	addLiveFlags(liveCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run headless and save a report",
		RunE:  runHeadless,
	}
	runCmd.Flags().StringVar(&metricList, "metrics", "", "comma separated metrics (default: all)")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "print the full report as JSON instead of saving it")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot step time, kinetic energy and momentum of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgDir, "svg", "", "also write one SVG per series into this directory")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time one step per strategy across particle counts",
		RunE:  runBench,
	}
	benchCmd.Flags().IntSliceVar(&benchCounts, "counts", []int{1000, 5000, 20000}, "particle counts")
	benchCmd.Flags().IntVar(&benchSteps, "bench-steps", 5, "timed steps per configuration")
	benchCmd.Flags().StringSliceVar(&benchStrategies, "strategies", []string{"direct", "parallel", "barneshut"}, "strategies to time")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "measure Barnes-Hut force error and cost against theta",
		RunE:  runSweep,
	}
	sweepCmd.Flags().Float64Var(&tolerance, "tolerance", 0.01, "largest relative force error to accept")
	sweepCmd.Flags().StringSliceVar(&gridSpecs, "grid", nil, "grid search name=min:max:n minimising energy drift")

	scriptCmd := &cobra.Command{
		Use:   "script [file]",
		Short: "run a scripted multi-phase scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "repeat a run over consecutive seeds",
		RunE:  runMonteCarlo,
	}
	monteCarloCmd.Flags().IntVar(&trials, "trials", 10, "number of seeds")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "render the particle cloud to SVG after --steps steps",
		RunE:  runSnapshot,
	}
	snapshotCmd.Flags().StringVarP(&outFile, "out", "o", "snapshot.svg", "output file")
	snapshotCmd.Flags().IntVar(&imgWidth, "width", 800, "image width")
	snapshotCmd.Flags().IntVar(&imgHeight, "height", 600, "image height")
	snapshotCmd.Flags().Float64Var(&rotX, "rot-x", 0.4, "camera rotation about X (radians)")
	snapshotCmd.Flags().Float64Var(&rotY, "rot-y", 0.6, "camera rotation about Y (radians)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run headless with an HTTP control and metrics API",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().IntVar(&fps, "fps", 0, "steps per second (default from config)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.Presets[name]
				fmt.Printf("  %-10s %7d particles  %-9s theta=%.2f fraction=%.2f\n",
					name, p.Particles, p.Strategy, p.Physics.Theta, p.Physics.InteractionFraction)
			}
			return nil
		},
	}

	rootCmd.AddCommand(liveCmd, runCmd, listCmd, plotCmd, exportCmd, benchCmd, sweepCmd,
		scriptCmd, monteCarloCmd, snapshotCmd, serveCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		errorreporting.CaptureError(err, map[string]string{"command": os.Args[0]})
		errorreporting.Flush(2 * time.Second)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	level := logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		level = config.DefaultLogLevel
	}
	logger.Init(level)

	if err := errorreporting.Init(os.Getenv("ENV")); err != nil {
		logger.Get().Warn("error reporting disabled", "error", err)
	}

	shutdown, err := tracing.Init("nbodysim")
	if err != nil {
		logger.Get().Warn("tracing disabled", "error", err)
		return nil
	}
	shutdownTracing = shutdown
	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	if shutdownTracing != nil {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Get().Warn("tracing shutdown failed", "error", err)
		}
	}
	errorreporting.Flush(2 * time.Second)
}

// loadConfig layers defaults, a preset, the config file, NBODY_* variables
// and finally explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg.ApplyPreset(p)
	}
	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("particles") {
		cfg.Particles = particles
	}
	if flags.Changed("strategy") {
		cfg.Strategy = strategy
	}
	if flags.Changed("workers") && workers > 0 {
		cfg.Workers = workers
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("theta") {
		cfg.Physics.Theta = theta
	}
	if flags.Changed("softening") {
		cfg.Physics.Softening = softening
	}
	if flags.Changed("damping") {
		cfg.Physics.Damping = damping
	}
	if flags.Changed("gravity") {
		cfg.Physics.Gravity = gravity
	}
	if flags.Changed("mass") {
		cfg.Physics.ParticleMass = mass
	}
	if flags.Changed("fraction") {
		cfg.Physics.InteractionFraction = fraction
	}
	if flags.Changed("radius") {
		cfg.Spawn.Radius = radius
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newSimulator loads the configuration and builds a simulator from it.
func newSimulator(cmd *cobra.Command) (*config.Config, *dynamo.Simulator, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	sc, err := cfg.SimConfig()
	if err != nil {
		return nil, nil, err
	}
	sim, err := dynamo.New(sc)
	if err != nil {
		return nil, nil, err
	}
	return cfg, sim, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
