package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/nbodysim/internal/automation"
	"github.com/san-kum/nbodysim/internal/config"
	"github.com/san-kum/nbodysim/internal/dynamo"
	"github.com/san-kum/nbodysim/internal/experiment"
	"github.com/san-kum/nbodysim/internal/export"
	"github.com/san-kum/nbodysim/internal/logger"
	"github.com/san-kum/nbodysim/internal/metrics"
	"github.com/san-kum/nbodysim/internal/optim"
	"github.com/san-kum/nbodysim/internal/server"
	"github.com/san-kum/nbodysim/internal/storage"
	"github.com/san-kum/nbodysim/internal/viz"
)

var (
	liveFPS   int
	themeName string

	metricList string
	jsonOut    bool

	svgDir string

	benchCounts     []int
	benchSteps      int
	benchStrategies []string

	tolerance float64
	gridSpecs []string

	trials int

	outFile   string
	imgWidth  int
	imgHeight int
	rotX      float64
	rotY      float64

	addr string
	fps  int
)

func addLiveFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&liveFPS, "fps", config.DefaultFPS, "frame rate")
	cmd.Flags().StringVar(&themeName, "theme", "nebula", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, sim, err := newSimulator(cmd)
	if err != nil {
		return err
	}
	defer sim.Close()

	// Log lines would tear the alternate screen.
	if logLevel == "" {
		logger.Discard()
	}

	m := viz.NewModel(sim, viz.Options{
		Dt:           cfg.Dt,
		FPS:          liveFPS,
		MaxParticles: config.MaxParticles,
		Theme:        themeName,
	})
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, sim, err := newSimulator(cmd)
	if err != nil {
		return err
	}
	defer sim.Close()

	ms, err := experiment.NewRegistry().ParseMetrics(metricList)
	if err != nil {
		return err
	}
	runner := experiment.New(sim, ms...)

	ctx, stop := signalContext()
	defer stop()

	if !jsonOut {
		fmt.Printf("running %d particles with %s for %d steps...\n", cfg.Particles, sim.Strategy(), cfg.Steps)
	}
	result, runErr := runner.Run(ctx, experiment.Config{
		Steps:         cfg.Steps,
		Dt:            cfg.Dt,
		ObserveEvery:  10,
		ValidateState: true,
	})
	if result == nil {
		return runErr
	}

	info := storage.RunInfo{
		Seed:    cfg.Seed,
		Workers: sim.Workers(),
		Dt:      cfg.Dt,
		Params:  sim.GetParams(),
	}
	if jsonOut {
		if err := storage.ExportJSON(os.Stdout, info, result); err != nil {
			return err
		}
		return runErr
	}

	st := storage.New(dataDir)
	runID, err := st.Save(info, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", result.Elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("mean step: %v\n", result.MeanStep())
	if ts := sim.TreeStats(); ts.Nodes > 0 {
		fmt.Printf("octree: %d nodes, %d leaves, depth %d\n", ts.Nodes, ts.Leaves, ts.MaxDepth)
	}
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
	}

	return runErr
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
	fmt.Fprintln(w, "ID\tSTRATEGY\tTIME\tPARTICLES\tSTEPS\tDT\tMEAN STEP")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4f\t%.2fms\n",
			run.ID,
			run.Strategy,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.Steps,
			run.Dt,
			run.MeanStepMs,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadSteps(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("strategy: %s, %d particles\n", meta.Strategy, meta.Particles)
	fmt.Printf("samples: %d\n\n", len(rows))

	series := []struct {
		name    string
		caption string
		color   string
		values  []float64
	}{
		{name: "step_time", caption: "step time (ms)", color: "#ff6b6b"},
		{name: "kinetic", caption: "kinetic energy", color: "#4ecdc4"},
		{name: "momentum", caption: "|total momentum|", color: "#ffe66d"},
	}
	for i := range series {
		series[i].values = make([]float64, len(rows))
	}
	for i, r := range rows {
		series[0].values[i] = float64(r.Duration) / float64(time.Millisecond)
		series[1].values[i] = r.Kinetic
		series[2].values[i] = r.Momentum
	}

	for _, s := range series {
		graph := asciigraph.Plot(s.values,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if svgDir == "" {
		return nil
	}
	if err := os.MkdirAll(svgDir, 0755); err != nil {
		return err
	}
	for _, s := range series {
		svg := export.SeriesToSVG(s.values, 800, 300, s.color)
		if svg == "" {
			continue
		}
		path := filepath.Join(svgDir, fmt.Sprintf("%s_%s.svg", meta.ID, s.name))
		if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	rows, err := st.LoadSteps(args[0])
	if err != nil {
		return err
	}

	result := &experiment.Result{
		Strategy:   meta.Strategy,
		Particles:  meta.Particles,
		Steps:      rows,
		Metrics:    meta.Metrics,
		StepsTaken: meta.Steps,
		Elapsed:    time.Duration(meta.ElapsedMs * float64(time.Millisecond)),
	}
	info := storage.RunInfo{Seed: meta.Seed, Workers: meta.Workers, Dt: meta.Dt, Params: meta.Params}
	return storage.ExportJSON(os.Stdout, info, result)
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	base, err := cfg.SimConfig()
	if err != nil {
		return err
	}
	strategies := make([]dynamo.Strategy, 0, len(benchStrategies))
	for _, name := range benchStrategies {
		st, err := dynamo.ParseStrategy(name)
		if err != nil {
			return err
		}
		strategies = append(strategies, st)
	}

	ctx, stop := signalContext()
	defer stop()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PARTICLES\tSTRATEGY\tMEAN STEP\tSTEPS/S\n")

	for _, n := range benchCounts {
		// Spawning is independent of timing, so build every variant for
		// this count up front.
		sims := make([]*dynamo.Simulator, len(strategies))
		g, _ := errgroup.WithContext(ctx)
		for i, st := range strategies {
			g.Go(func() error {
				sc := base
				sc.ParticleCount = n
				sc.Strategy = st
				sim, err := dynamo.New(sc)
				if err != nil {
					return err
				}
				sims[i] = sim
				return nil
			})
		}
		err := g.Wait()

		for i, sim := range sims {
			if sim == nil || err != nil || ctx.Err() != nil {
				continue
			}
			sim.Update(cfg.Dt)
			start := time.Now()
			for range benchSteps {
				sim.Update(cfg.Dt)
			}
			mean := time.Since(start) / time.Duration(max(benchSteps, 1))
			fmt.Fprintf(w, "%d\t%s\t%v\t%.1f\n", n, strategies[i], mean.Round(time.Microsecond), 1/mean.Seconds())
		}
		for _, sim := range sims {
			if sim != nil {
				sim.Close()
			}
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			break
		}
	}

	return w.Flush()
}

// parseGrid reads name=min:max:n into a parameter name and n evenly spaced
// values.
func parseGrid(spec string) (string, []float64, error) {
	name, rng, ok := strings.Cut(spec, "=")
	parts := strings.Split(rng, ":")
	if !ok || name == "" || len(parts) != 3 {
		return "", nil, fmt.Errorf("bad grid %q, want name=min:max:n", spec)
	}
	lo, err1 := strconv.ParseFloat(parts[0], 64)
	hi, err2 := strconv.ParseFloat(parts[1], 64)
	n, err3 := strconv.Atoi(parts[2])
	if err := errors.Join(err1, err2, err3); err != nil {
		return "", nil, fmt.Errorf("bad grid %q: %w", spec, err)
	}
	if n < 1 {
		return "", nil, fmt.Errorf("bad grid %q: need at least one value", spec)
	}
	if n == 1 {
		return name, []float64{lo}, nil
	}
	return name, floats.Span(make([]float64, n), lo, hi), nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, sim, err := newSimulator(cmd)
	if err != nil {
		return err
	}
	defer sim.Close()

	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("theta sweep over %d particles against the exact direct sum\n\n", sim.ParticleCount())
	points, err := optim.ThetaSweep(ctx, sim, optim.DefaultThetas())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "THETA\tREL ERROR\tMAX ERROR\tEVAL\tNODES")
	for _, p := range points {
		fmt.Fprintf(w, "%.2f\t%.3e\t%.3e\t%v\t%d\n", p.Theta, p.RelError, p.MaxError, p.EvalTime.Round(time.Microsecond), p.Nodes)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if best, ok := optim.Recommend(points, tolerance); ok {
		fmt.Printf("\nrecommended theta: %.2f (error %.3e, %v per evaluation)\n", best.Theta, best.RelError, best.EvalTime.Round(time.Microsecond))
	} else {
		fmt.Printf("\nno theta meets tolerance %g\n", tolerance)
	}

	if len(gridSpecs) == 0 {
		return nil
	}

	names := make([]string, 0, len(gridSpecs))
	ranges := make([][]float64, 0, len(gridSpecs))
	for _, spec := range gridSpecs {
		name, values, err := parseGrid(spec)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	base, err := cfg.SimConfig()
	if err != nil {
		return err
	}
	build := func(params map[string]float64) (*experiment.Runner, func(), error) {
		s, err := dynamo.New(base)
		if err != nil {
			return nil, nil, err
		}
		for k, v := range params {
			if err := s.SetParam(k, v); err != nil {
				s.Close()
				return nil, nil, err
			}
		}
		s.Reset()
		return experiment.New(s, metrics.NewEnergyDrift()), s.Close, nil
	}

	fmt.Printf("\ngrid search over %v minimising energy drift...\n", names)
	best, drift, err := optim.NewGridSearch(names, ranges).Search(ctx, build,
		experiment.Config{Steps: cfg.Steps, Dt: cfg.Dt, ObserveEvery: 10, ValidateState: true}, "energy_drift")
	if err != nil {
		return err
	}
	fmt.Printf("best: %v (drift %.4g)\n", best, drift)
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	base, err := cfg.SimConfig()
	if err != nil {
		return err
	}
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Printf("%s\n", scenario.Description)
	}
	results, runErr := automation.RunScenario(ctx, scenario, base, cfg.Dt, os.Stdout)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nPHASE\tSTRATEGY\tPARTICLES\tSTEPS\tMEAN STEP\tKINETIC")
	for _, r := range results {
		ke := 0.0
		if n := len(r.Result.Steps); n > 0 {
			ke = r.Result.Steps[n-1].Kinetic
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%v\t%.4g\n", r.Name, r.Result.Strategy, r.Result.Particles,
			r.Result.StepsTaken, r.Result.MeanStep().Round(time.Microsecond), ke)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	base, err := cfg.SimConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:      base,
		NumTrials: trials,
		Steps:     cfg.Steps,
		Dt:        cfg.Dt,
	}, os.Stdout)
	if len(results) == 0 {
		return err
	}

	drifts := make([]float64, len(results))
	for i, r := range results {
		drifts[i] = r.Drift
	}
	mean, std := stat.MeanStdDev(drifts, nil)
	stable, unstable := automation.MonteCarloStats(results)

	fmt.Printf("\ntrials: %d (seeds %d..%d)\n", len(results), results[0].Seed, results[len(results)-1].Seed)
	fmt.Printf("energy drift: mean %.4g, std %.4g, max %.4g\n", mean, std, floats.Max(drifts))
	fmt.Printf("bounded: %d, escaped: %d\n", stable, unstable)
	return err
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, sim, err := newSimulator(cmd)
	if err != nil {
		return err
	}
	defer sim.Close()

	ctx, stop := signalContext()
	defer stop()

	if _, err := experiment.New(sim).Run(ctx, experiment.Config{Steps: cfg.Steps, Dt: cfg.Dt}); err != nil {
		return err
	}

	cam := viz.NewCamera()
	cam.RotX, cam.RotY = rotX, rotY
	cam.FitParticles(sim.Particles())

	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	if err := export.ParticlesToSVG(f, sim.Particles(), cam, imgWidth, imgHeight); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d particles after %d steps)\n", outFile, sim.ParticleCount(), cfg.Steps)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, sim, err := newSimulator(cmd)
	if err != nil {
		return err
	}
	defer sim.Close()

	listen := cfg.Server.Addr
	if addr != "" {
		listen = addr
	}
	rate := cfg.Server.FPS
	if fps > 0 {
		rate = fps
	}

	srv := server.New(sim, cfg.Dt)

	ctx, stop := signalContext()
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, rate) })
	g.Go(func() error { return srv.ListenAndServe(gctx, listen) })
	return g.Wait()
}
