package physics

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/armsim/internal/dynamo"
	"github.com/san-kum/armsim/internal/urdf"
)

const (
	DefaultTimestep = 1.0 / 500.0
	standardGravity = 9.81
)

// Ground is an infinite horizontal plane at Height.
type Ground struct {
	Height float64
}

// Light is a directional light. Color components are in [0, 1].
type Light struct {
	Direction r3.Vec
	Color     [3]float64
}

// World owns the clock and every body stepped with it.
type World struct {
	Gravity r3.Vec

	// Penalty contact parameters for the ground plane.
	ContactStiffness float64
	ContactDamping   float64
	Friction         float64

	// Integrator, when set, replaces the implicit drive update with an
	// explicit integration of the state ODE.
	Integrator dynamo.Integrator

	timestep float64
	time     float64
	steps    int

	ground  *Ground
	ambient [3]float64
	lights  []Light
	bodies  []*Body
	closed  bool
}

func NewWorld() *World {
	return &World{
		Gravity:          r3.Vec{Z: -standardGravity},
		ContactStiffness: 2e4,
		ContactDamping:   2e2,
		Friction:         0.8,
		timestep:         DefaultTimestep,
	}
}

func (w *World) SetTimestep(dt float64) error {
	if !(dt > 0) {
		return fmt.Errorf("%w: timestep must be positive, got %v", dynamo.ErrConfiguration, dt)
	}
	w.timestep = dt
	return nil
}

func (w *World) Timestep() float64 { return w.timestep }
func (w *World) Time() float64     { return w.time }
func (w *World) StepCount() int    { return w.steps }

// AddGround places the ground plane. Calling it again moves the plane.
func (w *World) AddGround(height float64) {
	w.ground = &Ground{Height: height}
}

func (w *World) Ground() (Ground, bool) {
	if w.ground == nil {
		return Ground{}, false
	}
	return *w.ground, true
}

func (w *World) SetAmbientLight(color [3]float64) {
	w.ambient = color
}

func (w *World) AmbientLight() [3]float64 { return w.ambient }

func (w *World) AddDirectionalLight(direction r3.Vec, color [3]float64) {
	if n := r3.Norm(direction); n > 0 {
		direction = r3.Scale(1/n, direction)
	}
	w.lights = append(w.lights, Light{Direction: direction, Color: color})
}

func (w *World) Lights() []Light {
	out := make([]Light, len(w.lights))
	copy(out, w.lights)
	return out
}

func (w *World) Bodies() []*Body {
	out := make([]*Body, len(w.bodies))
	copy(out, w.bodies)
	return out
}

// AddBody builds a body from robot and adds it to the world. The root is
// welded at the identity pose when robot.FixRootLink is set; use
// Body.SetRootPose to place it.
func (w *World) AddBody(robot *urdf.Robot) (*Body, error) {
	b, err := newBody(w, robot)
	if err != nil {
		return nil, err
	}
	w.bodies = append(w.bodies, b)
	return b, nil
}

// ErrClosed is returned by Step after Close.
var ErrClosed = errors.New("physics: world is closed")

// Close releases the bodies. It is idempotent.
func (w *World) Close() error {
	w.closed = true
	w.bodies = nil
	return nil
}

// Step advances every body and the clock by exactly one timestep. On failure
// the clock does not advance.
func (w *World) Step() error {
	if w.closed {
		return dynamo.EngineError(ErrClosed)
	}
	for _, b := range w.bodies {
		if err := b.advance(w.timestep); err != nil {
			return &dynamo.SimulationError{
				Step:    w.steps,
				Time:    w.time,
				State:   b.JointPositions(),
				Wrapped: dynamo.EngineError(fmt.Errorf("body %q: %w", b.Name, err)),
			}
		}
	}
	w.time += w.timestep
	w.steps++
	return nil
}
