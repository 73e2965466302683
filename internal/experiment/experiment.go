package experiment

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/armsim/internal/control"
	"github.com/san-kum/armsim/internal/drive"
	"github.com/san-kum/armsim/internal/dynamo"
	"github.com/san-kum/armsim/internal/scene"
	"github.com/san-kum/armsim/internal/viz"
)

type Config struct {
	Scene        scene.Spec
	Integrator   string
	Drive        drive.Config
	Target       string
	TargetParams TargetParams
	// Metrics defaults to the registry's default set when empty.
	Metrics []string
	// LimitTolerance is the slack allowed by the limit_violations metric.
	LimitTolerance float64
}

// Experiment is one headless drive run over a freshly bootstrapped scene.
type Experiment struct {
	cfg    Config
	reg    *Registry
	logger *zap.Logger

	scene    *scene.Scene
	target   control.TargetSource
	renderer *viz.HeadlessRenderer
	ctrl     *drive.Controller
}

func New(cfg Config, reg *Registry, logger *zap.Logger) *Experiment {
	if reg == nil {
		reg = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Experiment{cfg: cfg, reg: reg, logger: logger}
}

// Setup bootstraps the scene and wires the controller. On error nothing is
// left open.
func (e *Experiment) Setup(opts ...scene.Option) (err error) {
	integ, err := e.reg.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return err
	}
	spec := e.cfg.Scene
	spec.Integrator = integ

	opts = append([]scene.Option{scene.WithLogger(e.logger)}, opts...)
	sc, err := scene.Bootstrap(spec, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, sc.Close())
		}
	}()

	body := sc.Body
	params := e.cfg.TargetParams
	if params.Start == nil {
		params.Start = body.JointPositions()
	}
	if params.Limits == nil {
		params.Limits = body.JointLimits()
	}
	target, err := e.reg.GetTarget(e.cfg.Target, params)
	if err != nil {
		return err
	}

	renderer := viz.NewHeadlessRenderer(body, e.logger)
	ctrl := drive.New(body, renderer, target, e.cfg.Drive, e.logger)

	names := e.cfg.Metrics
	if len(names) == 0 {
		names = e.reg.DefaultMetrics()
	}
	mp := MetricParams{Energy: body, Limits: body.JointLimits(), Tolerance: e.cfg.LimitTolerance}
	for _, name := range names {
		m, err := e.reg.GetMetric(name, mp)
		if err != nil {
			return err
		}
		ctrl.AddMetric(m)
	}
	if err := ctrl.Validate(); err != nil {
		return err
	}

	e.scene, e.target, e.renderer, e.ctrl = sc, target, renderer, ctrl
	return nil
}

// Run drives the scene until ctx is done or the frame budget is spent. The
// returned result holds one row per frame and the final metric values.
func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, drive.Stats, error) {
	if e.ctrl == nil {
		return nil, drive.Stats{}, fmt.Errorf("%w: experiment not set up", dynamo.ErrConfiguration)
	}
	stats, err := e.ctrl.Run(ctx)
	result := e.renderer.Result()
	result.Metrics = e.ctrl.Metrics()
	return result, stats, err
}

func (e *Experiment) Scene() *scene.Scene { return e.scene }

func (e *Experiment) Controller() *drive.Controller { return e.ctrl }

func (e *Experiment) Close() error {
	if e.scene == nil {
		return nil
	}
	return e.scene.Close()
}
