package control

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/san-kum/armsim/internal/dynamo"
)

var approx = cmpopts.EquateApprox(0, 1e-12)

func TestConstantIsImmutable(t *testing.T) {
	q := dynamo.Vector{-1.5, 3.22, 1.23}
	c := NewConstant(q)
	q[0] = 99

	got := c.Target(0)
	got[1] = 42
	if diff := cmp.Diff(dynamo.Vector{-1.5, 3.22, 1.23}, c.Target(10)); diff != "" {
		t.Errorf("constant target changed (-want +got):\n%s", diff)
	}
	if c.Dim() != 3 {
		t.Errorf("expected dim 3, got %d", c.Dim())
	}
}

func TestMinimumJerk(t *testing.T) {
	tests := []struct {
		s, want float64
	}{
		{-1, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{2, 1},
	}
	for _, tt := range tests {
		if got := MinimumJerk(tt.s); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("MinimumJerk(%v) = %v, want %v", tt.s, got, tt.want)
		}
	}

	h := 1e-6
	if v := (MinimumJerk(h) - MinimumJerk(0)) / h; v > 1e-6 {
		t.Errorf("expected zero start velocity, got %v", v)
	}
}

func TestRamp(t *testing.T) {
	r, err := NewRamp(dynamo.Vector{0, 0}, dynamo.Vector{2, -2}, 4)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		t    float64
		want dynamo.Vector
	}{
		{0, dynamo.Vector{0, 0}},
		{2, dynamo.Vector{1, -1}},
		{4, dynamo.Vector{2, -2}},
		{100, dynamo.Vector{2, -2}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, r.Target(tt.t), approx); diff != "" {
			t.Errorf("t=%v (-want +got):\n%s", tt.t, diff)
		}
	}
}

func TestRampErrors(t *testing.T) {
	if _, err := NewRamp(dynamo.Vector{0}, dynamo.Vector{1, 2}, 1); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
	if _, err := NewRamp(dynamo.Vector{0}, dynamo.Vector{1}, -1); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestWaypoints(t *testing.T) {
	w, err := NewWaypoints(dynamo.Vector{0}, []Waypoint{
		{Q: dynamo.Vector{1}, Move: 1, Hold: 1},
		{Q: dynamo.Vector{3}, Move: 2, Hold: 0},
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	if w.Period() != 4 {
		t.Errorf("expected period 4, got %v", w.Period())
	}

	tests := []struct {
		t    float64
		want float64
	}{
		{0, 0},
		{0.5, 0.5},
		{1.5, 1},
		{3, 2},
		{10, 3},
	}
	for _, tt := range tests {
		if got := w.Target(tt.t)[0]; math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("t=%v: got %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestWaypointsLoop(t *testing.T) {
	w, err := NewWaypoints(dynamo.Vector{0}, []Waypoint{
		{Q: dynamo.Vector{1}, Move: 1},
		{Q: dynamo.Vector{-1}, Move: 1},
	}, true)
	if err != nil {
		t.Fatal(err)
	}

	// The second cycle starts from the last waypoint, not the start pose.
	if got := w.Target(2)[0]; math.Abs(got+1) > 1e-12 {
		t.Errorf("t=2: got %v, want -1", got)
	}
	if got := w.Target(2.5)[0]; math.Abs(got) > 1e-12 {
		t.Errorf("t=2.5: got %v, want 0", got)
	}
}

func TestWaypointsErrors(t *testing.T) {
	tests := []struct {
		name   string
		points []Waypoint
	}{
		{"empty", nil},
		{"wrong dim", []Waypoint{{Q: dynamo.Vector{1, 2}, Move: 1}}},
		{"negative hold", []Waypoint{{Q: dynamo.Vector{1}, Hold: -1}}},
	}
	for _, tt := range tests {
		if _, err := NewWaypoints(dynamo.Vector{0}, tt.points, false); !errors.Is(err, dynamo.ErrConfiguration) {
			t.Errorf("%s: expected configuration error, got %v", tt.name, err)
		}
	}
}

func TestManualClampsAndIsConcurrent(t *testing.T) {
	limits := []dynamo.JointLimit{{Lower: -1, Upper: 1}, {Lower: math.Inf(-1), Upper: math.Inf(1)}}
	m, err := NewManual(dynamo.Vector{0, 0}, limits)
	if err != nil {
		t.Fatal(err)
	}

	m.Nudge(0, 5)
	m.Nudge(1, 5)
	m.Nudge(7, 1)
	if diff := cmp.Diff(dynamo.Vector{1, 5}, m.Target(0)); diff != "" {
		t.Errorf("after nudge (-want +got):\n%s", diff)
	}
	if err := m.Set(dynamo.Vector{1}); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Nudge(1, 0.01)
				_ = m.Target(0)
			}
		}()
	}
	wg.Wait()
	if got := m.Target(0)[1]; math.Abs(got-13) > 1e-9 {
		t.Errorf("expected 13 after concurrent nudges, got %v", got)
	}
}
