package export

import (
	"strings"
	"testing"

	"github.com/san-kum/armsim/internal/dynamo"
	"github.com/san-kum/armsim/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 2)
	svg := CanvasToSVG(c, 4, "#00ff00")

	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("%d dots, want 2", n)
	}
	if !strings.Contains(svg, `width="16" height="16"`) {
		t.Error("svg size does not follow the dot grid")
	}
	if !strings.Contains(svg, `cx="14.0" cy="10.0"`) {
		t.Errorf("dot (3,2) misplaced:\n%s", svg)
	}
	if CanvasToSVG(nil, 1, "") != "" {
		t.Error("nil canvas should give empty output")
	}
}

func TestTrajectoryToSVG(t *testing.T) {
	r := &dynamo.Result{}
	r.Append(0, dynamo.Vector{0, 1}, dynamo.Vector{1, 1})
	r.Append(1, dynamo.Vector{0.5, 1}, dynamo.Vector{1, 1})
	r.Append(2, dynamo.Vector{0.9, 1}, dynamo.Vector{1, 1})

	svg := TrajectoryToSVG(r, []string{"shoulder", "<elbow>"}, 200, 100)
	if n := strings.Count(svg, "<path"); n != 4 {
		t.Errorf("%d paths, want one per joint and target", n)
	}
	if n := strings.Count(svg, "stroke-dasharray"); n != 2 {
		t.Errorf("%d dashed paths, want 2", n)
	}
	if !strings.Contains(svg, "&lt;elbow&gt;") {
		t.Error("joint name not escaped")
	}

	single := &dynamo.Result{}
	single.Append(0, dynamo.Vector{0}, dynamo.Vector{0})
	if TrajectoryToSVG(single, nil, 10, 10) != "" {
		t.Error("single row should give empty output")
	}
}
