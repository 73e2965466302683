package viz

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/armsim/internal/dynamo"
	"github.com/san-kum/armsim/internal/physics"
)

type stubSource struct {
	poses  []physics.LinkPose
	q, tgt dynamo.Vector
	t      float64
}

func (s *stubSource) LinkPoses() []physics.LinkPose { return s.poses }
func (s *stubSource) JointPositions() dynamo.Vector { return s.q }
func (s *stubSource) DriveTarget() dynamo.Vector    { return s.tgt }
func (s *stubSource) Time() float64                 { return s.t }

func twoLinkSource() *stubSource {
	return &stubSource{
		poses: []physics.LinkPose{
			{Name: "base", Parent: -1, Position: r3.Vec{}, Radius: 0.05},
			{Name: "upper", Parent: 0, Position: r3.Vec{Z: 0.4}, Radius: 0.04},
			{Name: "lower", Parent: 1, Position: r3.Vec{X: 0.3, Z: 0.5}, Radius: 0.03},
		},
		q:   dynamo.Vector{0.1, -0.2},
		tgt: dynamo.Vector{0.4, -0.2},
		t:   0.25,
	}
}

func TestFrameRendererDeliversSnapshot(t *testing.T) {
	src := twoLinkSource()
	var got []Frame
	r := NewFrameRenderer(src, FrameOptions{
		Width:      40,
		Height:     16,
		Ground:     &physics.Ground{},
		Lights:     []physics.Light{{Direction: r3.Unit(r3.Vec{Y: 1, Z: -1})}},
		JointNames: []string{"shoulder", "elbow"},
		Limits:     []dynamo.JointLimit{{Lower: -1, Upper: 1}, {Lower: -2, Upper: 2}},
	}, func(f Frame) { got = append(got, f) })

	if err := r.UpdateRender(); err != nil {
		t.Fatal(err)
	}
	// later changes must not leak into the snapshot
	src.q[0] = 99
	src.t = 7

	if err := r.Render(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("sink called %d times, want 1", len(got))
	}
	f := got[0]
	if f.Index != 1 || f.Time != 0.25 {
		t.Errorf("frame %d at t=%v", f.Index, f.Time)
	}
	want := []JointReading{
		{Name: "shoulder", Q: 0.1, Target: 0.4, Limit: dynamo.JointLimit{Lower: -1, Upper: 1}},
		{Name: "elbow", Q: -0.2, Target: -0.2, Limit: dynamo.JointLimit{Lower: -2, Upper: 2}},
	}
	if diff := cmp.Diff(want, f.Joints); diff != "" {
		t.Errorf("joint readings (-want +got):\n%s", diff)
	}
	if f.Canvas == NewCanvas(40, 16).String() {
		t.Error("canvas is blank")
	}
	if e := f.TrackingError(); math.Abs(e-math.Sqrt(0.09/2)) > 1e-12 {
		t.Errorf("tracking error = %v", e)
	}
}

func TestRenderersPresentAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	r := NewFrameRenderer(twoLinkSource(), FrameOptions{}, func(Frame) { called = true })
	_ = r.UpdateRender()
	if err := r.Render(ctx); err != nil {
		t.Fatalf("frame renderer: %v", err)
	}
	if !called {
		t.Error("completed batch was not delivered to the sink")
	}

	h := NewHeadlessRenderer(twoLinkSource(), nil)
	_ = h.UpdateRender()
	if err := h.Render(ctx); err != nil {
		t.Fatalf("headless renderer: %v", err)
	}
	if h.Frames() != 1 || h.Result().Len() != 1 {
		t.Errorf("recorded %d frames, %d rows, want 1", h.Frames(), h.Result().Len())
	}
}

func TestFrameRendererDefaultsUnboundedLimits(t *testing.T) {
	var f Frame
	r := NewFrameRenderer(twoLinkSource(), FrameOptions{}, func(fr Frame) { f = fr })
	_ = r.UpdateRender()
	_ = r.Render(context.Background())
	for _, j := range f.Joints {
		if j.Limit.Bounded() {
			t.Errorf("joint %+v has a limit without one configured", j)
		}
	}
}

func TestFrameRendererSetCamera(t *testing.T) {
	r := NewFrameRenderer(twoLinkSource(), FrameOptions{}, nil)
	c := r.Camera()
	c.Orbit(0.5, 0)
	r.SetCamera(c)
	if r.Camera().Yaw != 0.5 {
		t.Errorf("yaw = %v", r.Camera().Yaw)
	}
}

type countingRenderer struct {
	name string
	log  *[]string
	fail error
}

func (c countingRenderer) UpdateRender() error {
	*c.log = append(*c.log, c.name+".update")
	return nil
}

func (c countingRenderer) Render(context.Context) error {
	*c.log = append(*c.log, c.name+".render")
	return c.fail
}

func TestTee(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	r := Tee(countingRenderer{"a", &log, nil}, countingRenderer{"b", &log, boom}, countingRenderer{"c", &log, nil})

	_ = r.UpdateRender()
	if err := r.Render(context.Background()); !errors.Is(err, boom) {
		t.Errorf("got %v", err)
	}
	want := []string{"a.update", "b.update", "c.update", "a.render", "b.render"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("call order (-want +got):\n%s", diff)
	}
}

func TestHeadlessRendererRecords(t *testing.T) {
	src := twoLinkSource()
	h := NewHeadlessRenderer(src, nil)
	for i := 0; i < 3; i++ {
		src.t = float64(i)
		src.q[0] = float64(i)
		_ = h.UpdateRender()
		if err := h.Render(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	res := h.Result()
	if h.Frames() != 3 || res.Len() != 3 {
		t.Fatalf("frames=%d rows=%d", h.Frames(), res.Len())
	}
	if diff := cmp.Diff([]float64{0, 1, 2}, res.Times); diff != "" {
		t.Error(diff)
	}
	if res.Q[0][0] != 0 || res.Q[2][0] != 2 {
		t.Errorf("rows alias the source: %v", res.Q)
	}
}
