package viz

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestCameraProject(t *testing.T) {
	g := NewWithT(t)
	cam := NewCamera()
	const w, h = 120, 80

	f, _, _ := cam.basis()
	ahead := r3.Add(cam.Position, r3.Scale(2, f))
	x, y, depth, ok := cam.Project(ahead, w, h)
	g.Expect(ok).To(BeTrue())
	g.Expect(x).To(Equal(w / 2))
	g.Expect(y).To(Equal(h / 2))
	g.Expect(depth).To(BeNumerically("~", 2, 1e-9))

	_, _, _, ok = cam.Project(r3.Vec{X: -5, Z: 1}, w, h)
	g.Expect(ok).To(BeFalse(), "point behind the camera")

	lx, _, _, _ := cam.Project(r3.Add(ahead, r3.Vec{Y: 0.5}), w, h)
	g.Expect(lx).To(BeNumerically("<", w/2), "+y is to the left")

	_, uy, _, _ := cam.Project(r3.Add(ahead, r3.Vec{Z: 0.5}), w, h)
	g.Expect(uy).To(BeNumerically("<", h/2), "+z is up")
}

func TestCameraLooksDown(t *testing.T) {
	f, _, _ := NewCamera().basis()
	if f.Z >= 0 {
		t.Errorf("forward = %v, want a downward component", f)
	}
	if math.Abs(f.Y) > 1e-12 {
		t.Errorf("forward = %v, want no sideways component at zero yaw", f)
	}
}

func TestCameraZoomAndOrbit(t *testing.T) {
	cam := NewCamera()
	p := r3.Vec{X: 0, Y: 0.3, Z: 0.5}

	x0, _, _, _ := cam.Project(p, 100, 100)
	cam.ZoomIn()
	x1, _, _, _ := cam.Project(p, 100, 100)
	if math.Abs(float64(x1-50)) <= math.Abs(float64(x0-50)) {
		t.Errorf("zoom in did not spread the image: %d -> %d", x0, x1)
	}

	cam.Orbit(0, -10)
	if cam.Pitch <= -math.Pi/2 {
		t.Errorf("pitch %v passed straight down", cam.Pitch)
	}
}

func TestRender3DClipsNearPlane(t *testing.T) {
	c := NewCanvas(30, 10)
	cam := NewCamera()
	f, _, _ := cam.basis()
	w := NewWireframe()
	w.AddEdge(r3.Sub(cam.Position, f), r3.Add(cam.Position, r3.Scale(3, f)))
	Render3D(c, w, cam)

	blank := NewCanvas(30, 10).String()
	if c.String() == blank {
		t.Error("edge crossing the near plane was dropped")
	}

	c.Clear()
	w.Clear()
	w.AddEdge(r3.Vec{X: -10}, r3.Vec{X: -9})
	Render3D(c, w, cam)
	if c.String() != blank {
		t.Error("edge behind the camera was drawn")
	}
}

func TestGroundGrid(t *testing.T) {
	g := GroundGrid(0, 1, 0.5)
	if len(g.Edges) != 10 {
		t.Errorf("%d grid lines, want 10", len(g.Edges))
	}
	for _, e := range g.Edges {
		if e.Start.Z != 0 || e.End.Z != 0 {
			t.Fatalf("grid line off the ground plane: %+v", e)
		}
	}
	if len(GroundGrid(0, 1, 0).Edges) != 0 {
		t.Error("zero spacing should produce no lines")
	}
}
