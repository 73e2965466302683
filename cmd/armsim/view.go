package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/san-kum/armsim/internal/config"
	"github.com/san-kum/armsim/internal/control"
	"github.com/san-kum/armsim/internal/drive"
	"github.com/san-kum/armsim/internal/dynamo"
	"github.com/san-kum/armsim/internal/experiment"
	"github.com/san-kum/armsim/internal/logging"
	"github.com/san-kum/armsim/internal/physics"
	"github.com/san-kum/armsim/internal/scene"
	"github.com/san-kum/armsim/internal/viz"
)

// panelWidth is the space the stats panel takes beside the canvas.
const panelWidth = 70

func runView(cmd *cobra.Command, args []string) (err error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if manual {
		cfg.Target.Kind = "manual"
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("view needs a terminal; use run for headless simulation")
	}

	// the viewer owns the terminal, so logs go to the file only
	logger, logCloser := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File}, nil)
	defer func() { err = multierr.Append(err, logCloser.Close()) }()

	reg := experiment.NewRegistry()
	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return err
	}
	spec := cfg.SceneSpec()
	spec.Integrator = integ
	sc, err := scene.Bootstrap(spec, scene.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sc.Close()) }()

	body := sc.Body
	params := cfg.TargetParams()
	params.Start = body.JointPositions()
	params.Limits = body.JointLimits()
	target, err := reg.GetTarget(cfg.Target.Kind, params)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var viewer *viz.Viewer
	width, height := canvasSize()
	renderer := viz.NewFrameRenderer(body, viz.FrameOptions{
		Width:      width,
		Height:     height,
		Camera:     cfg.ViewCamera(),
		Ground:     groundOf(sc.World),
		Lights:     sc.World.Lights(),
		JointNames: sc.ActiveJointNames(),
		Limits:     body.JointLimits(),
	}, func(f viz.Frame) { viewer.Send(f) })

	dcfg := cfg.DriveConfig()
	opts := viz.ViewerOptions{
		Title:      sc.Robot.Name,
		Theme:      cfg.Theme,
		NominalFPS: drive.FrameRate(sc.World.Timestep(), dcfg.SubSteps),
		AltScreen:  true,
	}
	if m, ok := target.(*control.Manual); ok {
		opts.Jog = m
	}
	viewer = viz.NewViewer(cancel, renderer, opts)

	var out dynamo.Renderer = renderer
	var recorder *viz.HeadlessRenderer
	if save {
		recorder = viz.NewHeadlessRenderer(body, logger)
		out = viz.Tee(renderer, recorder)
	}
	ctrl := drive.New(body, out, target, dcfg, logger)
	if err := addMetrics(ctrl, reg, body); err != nil {
		return err
	}

	var stats drive.Stats
	g := new(errgroup.Group)
	g.Go(func() error {
		var runErr error
		stats, runErr = ctrl.Run(ctx)
		viewer.Finish(runErr)
		return runErr
	})
	g.Go(func() error {
		defer cancel()
		return viewer.Run()
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("frames: %d  sim time: %.3fs  wall time: %v\n", stats.Frames, stats.SimTime, stats.WallTime)
	printMetrics(ctrl.Metrics())
	if recorder != nil {
		recorder.Result().Metrics = ctrl.Metrics()
		return saveRun(cfg, sc, recorder.Result(), stats, logger)
	}
	return nil
}

func canvasSize() (int, int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 60, 20
	}
	return max(20, w-panelWidth), max(10, h-4)
}

func groundOf(w *physics.World) *physics.Ground {
	if g, ok := w.Ground(); ok {
		return &g
	}
	return nil
}

func addMetrics(ctrl *drive.Controller, reg *experiment.Registry, body *physics.Body) error {
	mp := experiment.MetricParams{Energy: body, Limits: body.JointLimits()}
	for _, name := range reg.DefaultMetrics() {
		m, err := reg.GetMetric(name, mp)
		if err != nil {
			return err
		}
		ctrl.AddMetric(m)
	}
	return nil
}

func saveRun(cfg *config.Config, sc *scene.Scene, result *dynamo.Result, stats drive.Stats, logger *zap.Logger) error {
	st := storageFor(cfg)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(runMetadata(cfg, sc, stats), result)
	if err != nil {
		return err
	}
	logger.Info("run saved", zap.String("run_id", runID), zap.Int("rows", result.Len()))
	fmt.Printf("run id: %s\n", runID)
	return nil
}
