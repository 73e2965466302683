package drive

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/san-kum/armsim/internal/control"
	"github.com/san-kum/armsim/internal/dynamo"
)

type State int

const (
	Idle State = iota
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Stats counts what a run did. SubSteps is always Frames*Config.SubSteps and
// SimTime is SubSteps times the timestep.
type Stats struct {
	Frames            int
	SubSteps          int
	DriveTargetCalls  int
	PassiveForceCalls int
	SimTime           float64
	WallTime          time.Duration
}

type Controller struct {
	sim      dynamo.Simulator
	renderer dynamo.Renderer
	target   control.TargetSource
	cfg      Config
	logger   *zap.Logger

	metrics   []dynamo.Metric
	observers []dynamo.Observer

	state State
}

// New wires a controller. A nil logger disables logging.
func New(sim dynamo.Simulator, renderer dynamo.Renderer, target control.TargetSource, cfg Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		sim:      sim,
		renderer: renderer,
		target:   target,
		cfg:      cfg,
		logger:   logger.Named("drive"),
	}
}

func (c *Controller) AddMetric(m dynamo.Metric)     { c.metrics = append(c.metrics, m) }
func (c *Controller) AddObserver(o dynamo.Observer) { c.observers = append(c.observers, o) }

func (c *Controller) State() State { return c.state }

func (c *Controller) Config() Config { return c.cfg }

// Metrics returns the current value of every registered metric.
func (c *Controller) Metrics() map[string]float64 {
	out := make(map[string]float64, len(c.metrics))
	for _, m := range c.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Validate checks the configuration against the simulator before anything is
// applied to it.
func (c *Controller) Validate() error {
	if c.sim == nil || c.renderer == nil || c.target == nil {
		return fmt.Errorf("%w: simulator, renderer and target source are required", dynamo.ErrConfiguration)
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	if n, want := c.target.Dim(), c.sim.ActiveJointCount(); n != want {
		return dynamo.NewDimensionError("target configuration", n, want)
	}
	if !(c.sim.Timestep() > 0) {
		return fmt.Errorf("%w: timestep must be positive, got %v", dynamo.ErrConfiguration, c.sim.Timestep())
	}
	return nil
}

// Run drives the simulation until ctx is done or MaxFrames frames have been
// rendered. A done context is a normal termination and yields a nil error.
// Engine and render failures end the run immediately.
func (c *Controller) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := c.Validate(); err != nil {
		return stats, err
	}

	for _, m := range c.metrics {
		m.Reset()
	}

	var limiter *rate.Limiter
	if c.cfg.RealTime {
		framePeriod := float64(c.cfg.SubSteps) * c.sim.Timestep()
		limiter = rate.NewLimiter(rate.Limit(1/framePeriod), 1)
	}

	start := c.sim.Time()
	began := time.Now()
	c.state = Running
	c.logger.Info("drive loop started",
		zap.Int("active_joints", c.sim.ActiveJointCount()),
		zap.Int("sub_steps", c.cfg.SubSteps),
		zap.Float64("timestep", c.sim.Timestep()),
		zap.Bool("balance_passive_force", c.cfg.BalancePassiveForce),
	)

	finish := func(err error) (Stats, error) {
		c.state = Terminated
		stats.SimTime = c.sim.Time() - start
		stats.WallTime = time.Since(began)
		if err != nil {
			c.logger.Error("drive loop failed", zap.Error(err), zap.Int("frames", stats.Frames))
		} else {
			c.logger.Info("drive loop terminated",
				zap.Int("frames", stats.Frames),
				zap.Int("sub_steps", stats.SubSteps),
				zap.Float64("sim_time", stats.SimTime),
			)
		}
		return stats, err
	}

	for {
		if ctx.Err() != nil {
			return finish(nil)
		}
		if c.cfg.MaxFrames > 0 && stats.Frames >= c.cfg.MaxFrames {
			return finish(nil)
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				// the deadline falls before the next frame is due
				<-ctx.Done()
				return finish(nil)
			}
		}

		for k := 0; k < c.cfg.SubSteps; k++ {
			if err := c.subStep(&stats); err != nil {
				return finish(err)
			}
		}

		if err := c.renderer.UpdateRender(); err != nil {
			return finish(c.renderError("update render", err))
		}
		if err := c.renderer.Render(ctx); err != nil {
			return finish(c.renderError("render", err))
		}
		stats.Frames++

		if ce := c.logger.Check(zap.DebugLevel, "frame"); ce != nil {
			ce.Write(
				zap.Int("frame", stats.Frames),
				zap.Float64("t", c.sim.Time()),
				zap.Float64s("qpos", c.sim.JointPositions()),
			)
		}
	}
}

func (c *Controller) subStep(stats *Stats) error {
	t := c.sim.Time()

	var qf dynamo.Vector
	if c.cfg.BalancePassiveForce {
		var err error
		qf, err = c.sim.PassiveForce(c.cfg.CompensateGravity, c.cfg.CompensateCoriolis)
		stats.PassiveForceCalls++
		if err != nil {
			return c.engineError(stats, "passive force", err)
		}
		if err := c.sim.SetJointForce(qf); err != nil {
			return c.engineError(stats, "set joint force", err)
		}
	}

	q := c.target.Target(t)
	if len(q) != c.sim.ActiveJointCount() {
		return dynamo.NewDimensionError("target configuration", len(q), c.sim.ActiveJointCount())
	}
	if !q.IsValid() {
		return fmt.Errorf("%w: target at t=%.4f is not finite", dynamo.ErrConfiguration, t)
	}
	if err := c.sim.SetDriveTarget(q); err != nil {
		return c.engineError(stats, "set drive target", err)
	}
	stats.DriveTargetCalls++

	if err := c.sim.Step(); err != nil {
		return c.engineError(stats, "step", err)
	}
	stats.SubSteps++

	if len(c.metrics) == 0 && len(c.observers) == 0 {
		return nil
	}
	s := dynamo.Sample{
		Step:   stats.SubSteps,
		Time:   c.sim.Time(),
		Q:      c.sim.JointPositions(),
		Target: q,
		Force:  qf,
	}
	for _, m := range c.metrics {
		m.Observe(s)
	}
	for _, o := range c.observers {
		o.OnSubStep(s)
	}
	return nil
}

// engineError attaches the sub-step and clock time unless the engine already
// did.
func (c *Controller) engineError(stats *Stats, op string, err error) error {
	var simErr *dynamo.SimulationError
	if errors.As(err, &simErr) {
		return err
	}
	return &dynamo.SimulationError{
		Step:    stats.SubSteps,
		Time:    c.sim.Time(),
		State:   c.sim.JointPositions(),
		Wrapped: dynamo.EngineError(fmt.Errorf("%s: %w", op, err)),
	}
}

func (c *Controller) renderError(op string, err error) error {
	return dynamo.EngineError(fmt.Errorf("%s: %w", op, err))
}

// FrameRate is the simulated frames per second for the configured sub-steps.
func FrameRate(timestep float64, subSteps int) float64 {
	if timestep <= 0 || subSteps <= 0 {
		return math.NaN()
	}
	return 1 / (timestep * float64(subSteps))
}
