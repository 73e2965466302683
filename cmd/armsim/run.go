package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/armsim/internal/config"
	"github.com/san-kum/armsim/internal/drive"
	"github.com/san-kum/armsim/internal/experiment"
	"github.com/san-kum/armsim/internal/optim"
	"github.com/san-kum/armsim/internal/scene"
	"github.com/san-kum/armsim/internal/storage"
)

// defaultHeadlessFrames bounds run and tune when no frame budget is given.
const defaultHeadlessFrames = 500

func headlessConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	if !cmd.Flags().Changed("real-time") {
		cfg.RealTime = false
	}
	if cfg.MaxFrames == 0 && !cmd.Flags().Changed("frames") {
		cfg.MaxFrames = defaultHeadlessFrames
	}
	return cfg, nil
}

func runHeadless(cmd *cobra.Command, args []string) (err error) {
	cfg, err := headlessConfig(cmd)
	if err != nil {
		return err
	}
	logger, logCloser := stderrLogger(cfg)
	defer func() { err = multierr.Append(err, logCloser.Close()) }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	exp := experiment.New(cfg.Experiment(), nil, logger)
	if err := exp.Setup(); err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, exp.Close()) }()

	fmt.Printf("running %s...\n", exp.Scene().Robot.Name)
	start := time.Now()
	result, stats, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("frames: %d  sub-steps: %d  sim time: %.3fs\n", stats.Frames, stats.SubSteps, stats.SimTime)
	printMetrics(result.Metrics)
	return saveRun(cfg, exp.Scene(), result, stats, logger)
}

func tuneGains(cmd *cobra.Command, args []string) (err error) {
	cfg, err := headlessConfig(cmd)
	if err != nil {
		return err
	}
	logger, logCloser := stderrLogger(cfg)
	defer func() { err = multierr.Append(err, logCloser.Close()) }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	reg := experiment.NewRegistry()
	base := cfg.Experiment()
	// candidates only log failures
	quiet := logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
	g := optim.NewGridSearch(
		[]string{"stiffness", "damping"},
		[][]float64{tuneStiffness, tuneDamping},
		logger,
	).WithWorkers(tuneWorkers)
	fmt.Printf("evaluating %d candidates over %d frames each...\n", len(tuneStiffness)*len(tuneDamping), cfg.MaxFrames)
	best, val, trials, err := g.Search(ctx, optim.DriveGains(base, reg, tuneMetric, quiet))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "STIFFNESS\tDAMPING\t%s\n", tuneMetric)
	for _, tr := range trials {
		v := fmt.Sprintf("%.6g", tr.Value)
		if tr.Err != nil {
			v = "error: " + tr.Err.Error()
		}
		fmt.Fprintf(w, "%g\t%g\t%s\n", tr.Params["stiffness"], tr.Params["damping"], v)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}
	fmt.Printf("\nbest: stiffness=%g damping=%g %s=%.6g\n", best["stiffness"], best["damping"], tuneMetric, val)
	return nil
}

func inspectScene(cmd *cobra.Command, args []string) (err error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, logCloser := stderrLogger(cfg)
	defer func() { err = multierr.Append(err, logCloser.Close()) }()

	sc, err := scene.Bootstrap(cfg.SceneSpec(), scene.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sc.Close()) }()

	body := sc.Body
	fmt.Printf("robot: %s\n", sc.Robot.Name)
	fmt.Printf("description: %s\n", cfg.Description)
	fmt.Printf("root: %s (fixed=%v)\n", body.Links()[0], body.FixedRoot())
	fmt.Printf("links: %d  active joints: %d\n", len(body.Links()), body.ActiveJointCount())
	fmt.Printf("frame rate: %.1f Hz (%d sub-steps at %.4fs)\n\n",
		drive.FrameRate(sc.World.Timestep(), cfg.SubSteps), cfg.SubSteps, sc.World.Timestep())

	passive, err := body.PassiveForce(true, true)
	if err != nil {
		return err
	}
	limits := body.JointLimits()
	q := body.JointPositions()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tJOINT\tTYPE\tLOWER\tUPPER\tQ\tGRAVITY")
	for i, j := range body.ActiveJoints() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.3f\t%.3f\n",
			i, j.Name, j.Type, limitString(limits[i].Lower), limitString(limits[i].Upper), q[i], passive[i])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if mm := body.MassMatrix(); mm != nil {
		n, _ := mm.Dims()
		diag := make([]string, n)
		for i := 0; i < n; i++ {
			diag[i] = fmt.Sprintf("%.4f", mm.At(i, i))
		}
		fmt.Printf("\nmass matrix diagonal: %v\n", diag)
	}
	fmt.Printf("potential energy: %.4f J\n", body.PotentialEnergy())
	return nil
}

func limitString(v float64) string {
	if math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}

func printMetrics(m map[string]float64) {
	if len(m) == 0 {
		return
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func storageFor(cfg *config.Config) *storage.Store {
	return storage.New(cfg.DataDir)
}

func runMetadata(cfg *config.Config, sc *scene.Scene, stats drive.Stats) storage.RunMetadata {
	return storage.RunMetadata{
		Robot:       sc.Robot.Name,
		Description: cfg.Description,
		Timestep:    sc.World.Timestep(),
		SubSteps:    cfg.SubSteps,
		Frames:      stats.Frames,
		Integrator:  cfg.Integrator,
		Target:      cfg.Target.Kind,
		Joints:      sc.ActiveJointNames(),
		Stiffness:   cfg.Drive.Stiffness,
		Damping:     cfg.Drive.Damping,
	}
}
