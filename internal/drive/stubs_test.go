package drive

import (
	"context"
	"errors"

	"github.com/san-kum/armsim/internal/dynamo"
	"github.com/san-kum/armsim/internal/physics"
)

// recorder is shared by the stub simulator and renderer so tests can assert
// the interleaving of calls.
type recorder struct {
	calls []string
}

func (r *recorder) add(call string) { r.calls = append(r.calls, call) }

func (r *recorder) count(call string) int {
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

type stubSim struct {
	rec *recorder
	n   int
	dt  float64
	t   float64
	q   dynamo.Vector

	passiveArgs [][2]bool
	forces      []dynamo.Vector
	targets     []dynamo.Vector

	steps      int
	failStepAt int
	stepErr    error
	onStep     func(step int)
}

func newStubSim(rec *recorder, n int) *stubSim {
	return &stubSim{rec: rec, n: n, dt: 1.0 / 500.0, q: make(dynamo.Vector, n), failStepAt: -1}
}

func (s *stubSim) ActiveJointCount() int          { return s.n }
func (s *stubSim) JointPositions() dynamo.Vector  { return s.q.Clone() }
func (s *stubSim) JointVelocities() dynamo.Vector { return make(dynamo.Vector, s.n) }
func (s *stubSim) Time() float64                  { return s.t }
func (s *stubSim) Timestep() float64              { return s.dt }

func (s *stubSim) PassiveForce(gravity, coriolis bool) (dynamo.Vector, error) {
	s.rec.add("passive")
	s.passiveArgs = append(s.passiveArgs, [2]bool{gravity, coriolis})
	qf := make(dynamo.Vector, s.n)
	for i := range qf {
		qf[i] = float64(i + 1)
	}
	return qf, nil
}

func (s *stubSim) SetJointForce(qf dynamo.Vector) error {
	s.rec.add("force")
	s.forces = append(s.forces, qf.Clone())
	return nil
}

func (s *stubSim) SetDriveTarget(q dynamo.Vector) error {
	s.rec.add("target")
	if len(q) != s.n {
		return dynamo.NewDimensionError("drive target", len(q), s.n)
	}
	s.targets = append(s.targets, q.Clone())
	return nil
}

func (s *stubSim) Step() error {
	s.rec.add("step")
	if s.steps == s.failStepAt {
		return s.stepErr
	}
	s.steps++
	s.t = float64(s.steps) * s.dt
	// Move halfway to the last target so tracking metrics have something
	// to observe.
	last := s.targets[len(s.targets)-1]
	for i := range s.q {
		s.q[i] += 0.5 * (last[i] - s.q[i])
	}
	if s.onStep != nil {
		s.onStep(s.steps)
	}
	return nil
}

func (s *stubSim) DriveTarget() dynamo.Vector {
	if len(s.targets) == 0 {
		return make(dynamo.Vector, s.n)
	}
	return s.targets[len(s.targets)-1].Clone()
}

func (s *stubSim) LinkPoses() []physics.LinkPose { return nil }

type stubRenderer struct {
	rec      *recorder
	frames   int
	onRender func(frame int)
	err      error
}

func (r *stubRenderer) UpdateRender() error {
	r.rec.add("update")
	return nil
}

func (r *stubRenderer) Render(ctx context.Context) error {
	r.rec.add("render")
	if r.err != nil {
		return r.err
	}
	r.frames++
	if r.onRender != nil {
		r.onRender(r.frames)
	}
	return nil
}

var errBoom = errors.New("solver exploded")
