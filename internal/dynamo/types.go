package dynamo

import (
	"context"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vector is a joint-space vector: positions, velocities or forces, one entry
// per active joint.
type Vector []float64

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

func (v Vector) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (v Vector) Norm() float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func (v Vector) Add(other Vector) Vector {
	result := make(Vector, len(v))
	for i := range v {
		if i < len(other) {
			result[i] = v[i] + other[i]
		} else {
			result[i] = v[i]
		}
	}
	return result
}

func (v Vector) Sub(other Vector) Vector {
	result := make(Vector, len(v))
	for i := range v {
		if i < len(other) {
			result[i] = v[i] - other[i]
		} else {
			result[i] = v[i]
		}
	}
	return result
}

func (v Vector) Scale(factor float64) Vector {
	result := make(Vector, len(v))
	for i := range v {
		result[i] = v[i] * factor
	}
	return result
}

// Quaternion is an orientation in [w, x, y, z] order.
type Quaternion struct {
	W, X, Y, Z float64
}

// IdentityQuaternion is the zero rotation.
var IdentityQuaternion = Quaternion{W: 1}

// Rotation converts q into a normalized r3 rotation. A zero quaternion is
// treated as the identity.
func (q Quaternion) Rotation() r3.Rotation {
	n := quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
	abs := quat.Abs(n)
	if abs == 0 {
		return r3.Rotation{Real: 1}
	}
	return r3.Rotation(quat.Scale(1/abs, n))
}

// QuaternionFromRotation is the inverse of Quaternion.Rotation.
func QuaternionFromRotation(r r3.Rotation) Quaternion {
	return Quaternion{W: r.Real, X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Pose is a rigid transform: position in meters plus orientation.
type Pose struct {
	Position    r3.Vec
	Orientation Quaternion
}

// NewPose builds a pose from the [x y z] / [w x y z] arrays used in configs.
func NewPose(p [3]float64, q [4]float64) Pose {
	return Pose{
		Position:    r3.Vec{X: p[0], Y: p[1], Z: p[2]},
		Orientation: Quaternion{W: q[0], X: q[1], Y: q[2], Z: q[3]},
	}
}

// IdentityPose is the world origin.
var IdentityPose = Pose{Orientation: IdentityQuaternion}

// Transform maps a point from the pose frame into the parent frame.
func (p Pose) Transform(v r3.Vec) r3.Vec {
	return r3.Add(p.Position, p.Orientation.Rotation().Rotate(v))
}

// JointLimit is the allowed position range of a joint. Unbounded joints use ±Inf.
type JointLimit struct {
	Lower float64
	Upper float64
}

// Bounded reports whether both ends of the range are finite.
func (l JointLimit) Bounded() bool {
	return !math.IsInf(l.Lower, 0) && !math.IsInf(l.Upper, 0)
}

// Clamp restricts q to the limit range.
func (l JointLimit) Clamp(q float64) float64 {
	return math.Max(l.Lower, math.Min(l.Upper, q))
}

// Simulator is the physics capability the drive loop needs.
type Simulator interface {
	ActiveJointCount() int
	JointPositions() Vector
	JointVelocities() Vector
	// PassiveForce returns the joint force that cancels gravity and/or
	// velocity-dependent (Coriolis and centrifugal) effects at the current
	// configuration.
	PassiveForce(gravity, coriolisAndCentrifugal bool) (Vector, error)
	// SetJointForce replaces the additive joint-force command.
	SetJointForce(qf Vector) error
	SetDriveTarget(q Vector) error
	// Step advances the clock by exactly one timestep.
	Step() error
	Time() float64
	Timestep() float64
}

// Renderer synchronizes render state with the simulation and presents frames.
type Renderer interface {
	UpdateRender() error
	Render(ctx context.Context) error
}

// System is an ODE dX/dt = f(X, u, t) with X = [q, qd].
type System interface {
	Derive(x Vector, u Vector, t float64) Vector
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(sys System, x Vector, u Vector, t float64, dt float64) Vector
}

// Sample is what metrics and observers see after every sub-step.
type Sample struct {
	Step   int
	Time   float64
	Q      Vector
	Target Vector
	Force  Vector
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// EnergySource reports mechanical energy for drift metrics.
type EnergySource interface {
	KineticEnergy() float64
	PotentialEnergy() float64
}

type Observer interface {
	OnSubStep(s Sample)
}

// Result is a recorded run: one row per rendered frame.
type Result struct {
	Times   []float64
	Q       []Vector
	Target  []Vector
	Metrics map[string]float64
}

// Append records a row. The vectors are copied.
func (r *Result) Append(t float64, q, target Vector) {
	r.Times = append(r.Times, t)
	r.Q = append(r.Q, q.Clone())
	r.Target = append(r.Target, target.Clone())
}

func (r *Result) Len() int { return len(r.Times) }
