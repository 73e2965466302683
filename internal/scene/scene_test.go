package scene

import (
	"errors"
	"math"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/armsim/internal/dynamo"
	"github.com/san-kum/armsim/internal/urdf"
)

const jacoPath = "../urdf/testdata/j2n6s200.urdf"

var jacoJoints = []string{
	"j2n6s200_joint_1", "j2n6s200_joint_2", "j2n6s200_joint_3",
	"j2n6s200_joint_4", "j2n6s200_joint_5", "j2n6s200_joint_6",
	"j2n6s200_joint_finger_1", "j2n6s200_joint_finger_2",
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestBootstrapJaco(t *testing.T) {
	logger, logs := observed()
	s, err := Bootstrap(DefaultSpec(jacoPath), WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if diff := cmp.Diff(jacoJoints, s.ActiveJointNames()); diff != "" {
		t.Errorf("active joints (-want +got):\n%s", diff)
	}
	if !s.Body.FixedRoot() {
		t.Error("expected a fixed root")
	}
	if z := s.Body.RootPose().Position.Z; z != 0.2 {
		t.Errorf("expected root at z=0.2, got %v", z)
	}
	if g, ok := s.World.Ground(); !ok || g.Height != 0 {
		t.Errorf("expected ground at 0, got %+v (present=%v)", g, ok)
	}
	if dt := s.World.Timestep(); math.Abs(dt-1.0/500.0) > 1e-15 {
		t.Errorf("expected 500Hz, got dt=%v", dt)
	}
	if n := len(s.World.Lights()); n != 1 {
		t.Errorf("expected one directional light, got %d", n)
	}
	for i := 0; i < s.Body.ActiveJointCount(); i++ {
		if k, d := s.Body.DriveProperty(i); k != 1e5 || d != 1e3 {
			t.Errorf("joint %d: drive (%v, %v), want (1e5, 1e3)", i, k, d)
		}
	}

	ready := logs.FilterMessage("scene ready").All()
	if len(ready) != 1 {
		t.Fatalf("expected one startup log line, got %d", len(ready))
	}
	fields := ready[0].ContextMap()
	if fields["robot"] != "j2n6s200" {
		t.Errorf("unexpected robot field %v", fields["robot"])
	}
	if _, ok := fields["qlimits"]; !ok {
		t.Error("expected joint limits in the startup log")
	}
}

func TestBootstrapInitialQpos(t *testing.T) {
	spec := DefaultSpec(jacoPath)
	spec.InitialQpos = dynamo.Vector{-1.5, 3.22, 1.23, -2.19, 1.8, 1.2, 1.0, 1.0}
	s, err := Bootstrap(spec)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if diff := cmp.Diff(spec.InitialQpos, s.Body.JointPositions()); diff != "" {
		t.Errorf("qpos (-want +got):\n%s", diff)
	}
}

func TestBootstrapFreeRoot(t *testing.T) {
	spec := DefaultSpec(jacoPath)
	spec.FixRootLink = false
	s, err := Bootstrap(spec)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if s.Body.FixedRoot() {
		t.Error("expected a free root")
	}
	if n := s.Body.ActiveJointCount(); n != 8 {
		t.Errorf("expected 8 active joints, got %d", n)
	}
}

func TestBootstrapErrors(t *testing.T) {
	badQpos := DefaultSpec(jacoPath)
	badQpos.InitialQpos = dynamo.Vector{1, 2}

	badGain := DefaultSpec(jacoPath)
	badGain.Stiffness = -1

	tests := []struct {
		name string
		spec Spec
		want error
	}{
		{"missing file", DefaultSpec("does/not/exist.urdf"), dynamo.ErrResource},
		{"empty path", DefaultSpec(""), dynamo.ErrConfiguration},
		{"qpos length", badQpos, dynamo.ErrDimensionMismatch},
		{"negative stiffness", badGain, dynamo.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Bootstrap(tt.spec)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if s != nil {
				t.Error("expected no scene on failure")
			}
		})
	}

	_, err := Bootstrap(DefaultSpec("does/not/exist.urdf"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected the underlying not-exist error, got %v", err)
	}
}

func TestBootstrapReleasesWorldOnFailure(t *testing.T) {
	logger, logs := observed()
	spec := DefaultSpec(jacoPath)
	spec.InitialQpos = dynamo.Vector{1}

	if _, err := Bootstrap(spec, WithLogger(logger)); err == nil {
		t.Fatal("expected failure")
	}
	closed := logs.FilterMessage("scene closed").All()
	if len(closed) != 1 || closed[0].ContextMap()["resources"] != int64(1) {
		t.Errorf("expected the world to be released, got %v", closed)
	}
}

type plainErrLoader struct{}

func (plainErrLoader) Load(path string) (*urdf.Robot, error) {
	return nil, errors.New("no such package")
}

func TestCustomLoaderErrorsAreResourceErrors(t *testing.T) {
	_, err := Bootstrap(DefaultSpec("package://robot.urdf"), WithLoader(plainErrLoader{}))
	if !errors.Is(err, dynamo.ErrResource) {
		t.Errorf("expected ErrResource, got %v", err)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloseOrderAndErrors(t *testing.T) {
	s := &Scene{logger: zap.NewNop()}
	var order []int
	errA := errors.New("renderer")
	errB := errors.New("viewer")

	s.Attach(closerFunc(func() error { order = append(order, 1); return errA }))
	s.Attach(closerFunc(func() error { order = append(order, 2); return nil }))
	s.Attach(closerFunc(func() error { order = append(order, 3); return errB }))

	err := s.Close()
	if diff := cmp.Diff([]int{3, 2, 1}, order); diff != "" {
		t.Errorf("close order (-want +got):\n%s", diff)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both errors, got %v", err)
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("expected 2 combined errors, got %d", n)
	}

	if err := s.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if len(order) != 3 {
		t.Error("resources closed twice")
	}

	late := false
	s.Attach(closerFunc(func() error { late = true; return nil }))
	if !late {
		t.Error("expected a resource attached after close to be closed immediately")
	}
}

func TestWithResourceReleasedWithScene(t *testing.T) {
	var closed int
	res := closerFunc(func() error { closed++; return nil })

	s, err := Bootstrap(DefaultSpec(jacoPath), WithResource(res))
	if err != nil {
		t.Fatal(err)
	}
	if closed != 0 {
		t.Fatal("resource closed during bootstrap")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if closed != 1 {
		t.Errorf("resource closed %d times, want 1", closed)
	}

	errRelease := errors.New("release failed")
	spec := DefaultSpec(jacoPath)
	spec.InitialQpos = dynamo.Vector{1}
	_, err = Bootstrap(spec, WithResource(closerFunc(func() error { return errRelease })))
	if !errors.Is(err, dynamo.ErrDimensionMismatch) || !errors.Is(err, errRelease) {
		t.Errorf("expected the bootstrap and release errors combined, got %v", err)
	}
}
