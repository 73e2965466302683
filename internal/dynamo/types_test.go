package dynamo

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestVector_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		v     Vector
		valid bool
	}{
		{"empty", Vector{}, true},
		{"normal", Vector{1.0, 2.0, 3.0}, true},
		{"with NaN", Vector{1.0, math.NaN()}, false},
		{"with +Inf", Vector{1.0, math.Inf(1)}, false},
		{"with -Inf", Vector{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestVector_Arithmetic(t *testing.T) {
	a := Vector{1, 2, 3}
	b := Vector{4, 5, 6}

	sum := a.Add(b)
	if sum[0] != 5 || sum[1] != 7 || sum[2] != 9 {
		t.Errorf("Add failed: got %v", sum)
	}

	diff := b.Sub(a)
	if diff[0] != 3 || diff[1] != 3 || diff[2] != 3 {
		t.Errorf("Sub failed: got %v", diff)
	}

	scaled := a.Scale(2)
	if scaled[2] != 6 {
		t.Errorf("Scale failed: got %v", scaled)
	}

	if n := (Vector{3, 4}).Norm(); math.Abs(n-5) > 1e-12 {
		t.Errorf("Norm = %v, want 5", n)
	}
}

func TestVector_CloneIsIndependent(t *testing.T) {
	a := Vector{1, 2}
	c := a.Clone()
	c[0] = 99
	if a[0] != 1 {
		t.Error("clone shares storage with original")
	}
}

func TestPose_Transform(t *testing.T) {
	// 90 degrees about z: w = cos(45°), z = sin(45°)
	s := math.Sqrt(0.5)
	p := NewPose([3]float64{0, 0, 0.2}, [4]float64{s, 0, 0, s})

	got := p.Transform(r3.Vec{X: 1})
	want := r3.Vec{X: 0, Y: 1, Z: 0.2}
	if r3.Norm(r3.Sub(got, want)) > 1e-9 {
		t.Errorf("Transform = %v, want %v", got, want)
	}

	if got := IdentityPose.Transform(r3.Vec{X: 1, Y: 2, Z: 3}); got != (r3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Errorf("identity transform changed the point: %v", got)
	}
}

func TestQuaternion_ZeroIsIdentity(t *testing.T) {
	var q Quaternion
	v := r3.Vec{X: 1, Y: -2, Z: 0.5}
	if got := q.Rotation().Rotate(v); r3.Norm(r3.Sub(got, v)) > 1e-12 {
		t.Errorf("zero quaternion rotated the vector: %v", got)
	}
}

func TestJointLimit(t *testing.T) {
	l := JointLimit{Lower: 0, Upper: 2}
	if !l.Bounded() {
		t.Error("expected bounded")
	}
	if got := l.Clamp(3); got != 2 {
		t.Errorf("Clamp(3) = %v", got)
	}
	if got := l.Clamp(-1); got != 0 {
		t.Errorf("Clamp(-1) = %v", got)
	}

	free := JointLimit{Lower: math.Inf(-1), Upper: math.Inf(1)}
	if free.Bounded() {
		t.Error("expected unbounded")
	}
	if got := free.Clamp(42); got != 42 {
		t.Errorf("unbounded Clamp changed value: %v", got)
	}
}

func TestErrorClassification(t *testing.T) {
	dim := NewDimensionError("target", 7, 8)
	if !errors.Is(dim, ErrConfiguration) || !errors.Is(dim, ErrDimensionMismatch) {
		t.Errorf("dimension error not classified as configuration: %v", dim)
	}
	if errors.Is(dim, ErrEngine) {
		t.Error("dimension error must not be an engine error")
	}

	eng := EngineError(errors.New("boom"))
	if !errors.Is(eng, ErrEngine) {
		t.Errorf("EngineError did not classify: %v", eng)
	}
	if EngineError(nil) != nil {
		t.Error("EngineError(nil) should be nil")
	}
	if got := EngineError(fmt.Errorf("wrap: %w", ErrResource)); errors.Is(got, ErrEngine) {
		t.Error("resource error reclassified as engine error")
	}

	simErr := &SimulationError{Step: 3, Time: 0.006, Wrapped: EngineError(ErrInvalidState)}
	if !errors.Is(simErr, ErrInvalidState) || !errors.Is(simErr, ErrEngine) {
		t.Errorf("simulation error lost its cause: %v", simErr)
	}
}
