// Package scene builds a simulation world around a robot description and
// owns every resource allocated for it until Close.
package scene

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/armsim/internal/dynamo"
	"github.com/san-kum/armsim/internal/physics"
	"github.com/san-kum/armsim/internal/urdf"
)

// DescriptionLoader resolves a description path into a robot.
type DescriptionLoader interface {
	Load(path string) (*urdf.Robot, error)
}

// Spec describes the scene to build.
type Spec struct {
	Description            string
	RootPose               dynamo.Pose
	FixRootLink            bool
	LoadMultipleCollisions bool

	Timestep float64
	Gravity  r3.Vec

	Ground       bool
	GroundHeight float64

	Ambient [3]float64
	Lights  []physics.Light

	Stiffness float64
	Damping   float64

	// InitialQpos is applied before the drives are configured when set.
	InitialQpos dynamo.Vector

	// Integrator selects explicit integration; nil keeps the implicit drive.
	Integrator dynamo.Integrator
}

// DefaultSpec is the reference scenario: a fixed-root arm 0.2m above a ground
// plane, stepped at 500Hz with stiff drives.
func DefaultSpec(description string) Spec {
	return Spec{
		Description:            description,
		RootPose:               dynamo.NewPose([3]float64{0, 0, 0.2}, [4]float64{1, 0, 0, 0}),
		FixRootLink:            true,
		LoadMultipleCollisions: true,
		Timestep:               physics.DefaultTimestep,
		Gravity:                r3.Vec{Z: -9.81},
		Ground:                 true,
		Ambient:                [3]float64{0.5, 0.5, 0.5},
		Lights: []physics.Light{
			{Direction: r3.Vec{Y: 1, Z: -1}, Color: [3]float64{0.5, 0.5, 0.5}},
		},
		Stiffness: 1e5,
		Damping:   1e3,
	}
}

func (s Spec) Validate() error {
	if s.Description == "" {
		return fmt.Errorf("%w: no description path", dynamo.ErrConfiguration)
	}
	if !(s.Timestep > 0) {
		return fmt.Errorf("%w: timestep must be positive, got %v", dynamo.ErrConfiguration, s.Timestep)
	}
	if s.Stiffness < 0 || s.Damping < 0 {
		return fmt.Errorf("%w: drive gains must be non-negative", dynamo.ErrConfiguration)
	}
	return nil
}

// Scene is a bootstrapped world with one articulated body.
type Scene struct {
	World *physics.World
	Body  *physics.Body
	Robot *urdf.Robot
	Spec  Spec

	logger *zap.Logger

	mu      sync.Mutex
	closers []io.Closer
	closed  bool
}

type Option func(*options)

type options struct {
	loader    DescriptionLoader
	logger    *zap.Logger
	resources []io.Closer
}

// WithLoader replaces the URDF loader. The default honours FixRootLink and
// LoadMultipleCollisions from Spec.
func WithLoader(l DescriptionLoader) Option {
	return func(o *options) { o.loader = l }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithResource attaches c before the world is built, so it is released with
// the scene or when Bootstrap fails.
func WithResource(c io.Closer) Option {
	return func(o *options) { o.resources = append(o.resources, c) }
}

// Bootstrap builds the world, loads the description and prepares the body for
// driving. On failure every resource acquired so far is released.
func Bootstrap(spec Spec, opts ...Option) (_ *Scene, err error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.loader == nil {
		o.loader = &urdf.Loader{
			FixRootLink:            spec.FixRootLink,
			LoadMultipleCollisions: spec.LoadMultipleCollisions,
		}
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	s := &Scene{Spec: spec, logger: o.logger.Named("scene")}
	defer func() {
		if err != nil {
			err = multierr.Append(err, s.Close())
		}
	}()
	for _, c := range o.resources {
		s.Attach(c)
	}

	world := physics.NewWorld()
	s.Attach(world)
	if err := world.SetTimestep(spec.Timestep); err != nil {
		return nil, err
	}
	world.Gravity = spec.Gravity
	world.Integrator = spec.Integrator
	if spec.Ground {
		world.AddGround(spec.GroundHeight)
	}
	world.SetAmbientLight(spec.Ambient)
	for _, l := range spec.Lights {
		world.AddDirectionalLight(l.Direction, l.Color)
	}
	s.World = world

	robot, err := o.loader.Load(spec.Description)
	if err != nil {
		if !errors.Is(err, dynamo.ErrResource) {
			err = fmt.Errorf("%w: %w", dynamo.ErrResource, err)
		}
		return nil, err
	}
	robot.FixRootLink = spec.FixRootLink
	s.Robot = robot

	body, err := world.AddBody(robot)
	if err != nil {
		return nil, err
	}
	body.SetRootPose(spec.RootPose)
	if spec.InitialQpos != nil {
		if err := body.SetJointPositions(spec.InitialQpos); err != nil {
			return nil, err
		}
	}
	for i := 0; i < body.ActiveJointCount(); i++ {
		if err := body.SetDriveProperty(i, spec.Stiffness, spec.Damping); err != nil {
			return nil, err
		}
	}
	s.Body = body

	s.logger.Info("scene ready",
		zap.String("robot", robot.Name),
		zap.String("description", spec.Description),
		zap.Strings("links", body.Links()),
		zap.Strings("active_joints", s.ActiveJointNames()),
		zap.Any("qlimits", limitPairs(body.JointLimits())),
		zap.Bool("fix_root_link", spec.FixRootLink),
		zap.Float64("timestep", world.Timestep()),
	)
	return s, nil
}

func (s *Scene) ActiveJointNames() []string {
	joints := s.Body.ActiveJoints()
	names := make([]string, len(joints))
	for i, j := range joints {
		names[i] = j.Name
	}
	return names
}

func limitPairs(limits []dynamo.JointLimit) [][2]float64 {
	out := make([][2]float64, len(limits))
	for i, l := range limits {
		out[i] = [2]float64{l.Lower, l.Upper}
	}
	return out
}

// Attach registers a resource released by Close. Resources attached after
// Close are closed immediately.
func (s *Scene) Attach(c io.Closer) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return c.Close()
	}
	s.closers = append(s.closers, c)
	s.mu.Unlock()
	return nil
}

// Close releases every attached resource in reverse order of attachment and
// returns all failures combined. Calling it again is a no-op.
func (s *Scene) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	var err error
	for i := len(closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, closers[i].Close())
	}
	if err != nil {
		s.logger.Warn("scene closed with errors", zap.Error(err))
	} else {
		s.logger.Debug("scene closed", zap.Int("resources", len(closers)))
	}
	return err
}
