package viz

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Camera is a pinhole camera in world coordinates (z up). It looks along +x
// after applying yaw about z and pitch about y; negative pitch tilts the view
// down.
type Camera struct {
	Position         r3.Vec
	Roll, Pitch, Yaw float64
	FOV              float64
	Near             float64
	Zoom             float64
}

func NewCamera() *Camera {
	return &Camera{
		Position: r3.Vec{X: -2, Z: 1},
		Pitch:    -0.3,
		FOV:      math.Pi / 3,
		Near:     0.05,
		Zoom:     1.0,
	}
}

func (c *Camera) Orbit(dyaw, dpitch float64) {
	c.Yaw += dyaw
	c.Pitch = math.Max(-math.Pi/2+0.01, math.Min(math.Pi/2-0.01, c.Pitch+dpitch))
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// Move translates the camera in its own frame: forward, left and up.
func (c *Camera) Move(forward, left, up float64) {
	f, l, u := c.basis()
	c.Position = r3.Add(c.Position, r3.Add(r3.Scale(forward, f), r3.Add(r3.Scale(left, l), r3.Scale(up, u))))
}

func (c *Camera) basis() (forward, left, up r3.Vec) {
	rot := r3.NewRotation(c.Yaw, r3.Vec{Z: 1})
	rot = compose(rot, r3.NewRotation(-c.Pitch, r3.Vec{Y: 1}))
	rot = compose(rot, r3.NewRotation(c.Roll, r3.Vec{X: 1}))
	return rot.Rotate(r3.Vec{X: 1}), rot.Rotate(r3.Vec{Y: 1}), rot.Rotate(r3.Vec{Z: 1})
}

// Project maps a world point to dot coordinates on a sw x sh raster. It
// returns the distance along the view axis and whether the point lies in
// front of the camera.
func (c *Camera) Project(p r3.Vec, sw, sh int) (int, int, float64, bool) {
	f, l, u := c.basis()
	d := r3.Sub(p, c.Position)
	depth := r3.Dot(d, f)
	if depth < c.Near {
		return 0, 0, depth, false
	}
	focal := c.Zoom * float64(min(sw, sh)) / (2 * math.Tan(c.FOV/2))
	sx := float64(sw)/2 - focal*r3.Dot(d, l)/depth
	sy := float64(sh)/2 - focal*r3.Dot(d, u)/depth
	return int(math.Round(sx)), int(math.Round(sy)), depth, true
}

type Edge struct {
	Start, End r3.Vec
	// Stride above one draws the edge dotted.
	Stride int
}

type Wireframe struct{ Edges []Edge }

func NewWireframe() *Wireframe { return &Wireframe{Edges: make([]Edge, 0)} }

func (w *Wireframe) AddEdge(s, e r3.Vec) {
	w.Edges = append(w.Edges, Edge{Start: s, End: e, Stride: 1})
}
func (w *Wireframe) AddDotted(s, e r3.Vec, stride int) { w.Edges = append(w.Edges, Edge{s, e, stride}) }
func (w *Wireframe) AddPoint(p r3.Vec)                 { w.Edges = append(w.Edges, Edge{Start: p, End: p, Stride: 1}) }
func (w *Wireframe) Clear()                            { w.Edges = w.Edges[:0] }

type projectedEdge struct {
	x1, y1, x2, y2 int
	depth          float64
	stride         int
}

// Render3D draws the wireframe far to near. Edges crossing the near plane are
// clipped against it.
func Render3D(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	cw, ch := c.PixelSize()
	f, _, _ := cam.basis()
	proj := make([]projectedEdge, 0, len(w.Edges))
	for _, e := range w.Edges {
		s, t, ok := clipNear(e.Start, e.End, cam.Position, f, cam.Near)
		if !ok {
			continue
		}
		x1, y1, d1, _ := cam.Project(s, cw, ch)
		x2, y2, d2, _ := cam.Project(t, cw, ch)
		if offscreen(x1, y1, cw, ch) || offscreen(x2, y2, cw, ch) {
			continue
		}
		proj = append(proj, projectedEdge{x1, y1, x2, y2, (d1 + d2) / 2, max(e.Stride, 1)})
	}
	sort.SliceStable(proj, func(i, j int) bool { return proj[i].depth > proj[j].depth })
	for _, e := range proj {
		c.DrawDotted(e.x1, e.y1, e.x2, e.y2, e.stride)
	}
}

// offscreen rejects projections far outside the raster so a nearly clipped
// edge cannot turn into a huge rasterization.
func offscreen(x, y, w, h int) bool {
	return x < -4*w || x > 5*w || y < -4*h || y > 5*h
}

func clipNear(a, b, eye, forward r3.Vec, near float64) (r3.Vec, r3.Vec, bool) {
	da := r3.Dot(r3.Sub(a, eye), forward) - near
	db := r3.Dot(r3.Sub(b, eye), forward) - near
	switch {
	case da < 0 && db < 0:
		return a, b, false
	case da < 0:
		a = r3.Add(a, r3.Scale(da/(da-db), r3.Sub(b, a)))
	case db < 0:
		b = r3.Add(b, r3.Scale(db/(db-da), r3.Sub(a, b)))
	}
	return a, b, true
}

// GroundGrid returns grid lines on the plane z = height, spanning ±half
// around the origin.
func GroundGrid(height, half, spacing float64) *Wireframe {
	w := NewWireframe()
	if spacing <= 0 {
		return w
	}
	n := int(math.Floor(half / spacing))
	for i := -n; i <= n; i++ {
		v := float64(i) * spacing
		w.AddDotted(r3.Vec{X: v, Y: -half, Z: height}, r3.Vec{X: v, Y: half, Z: height}, 3)
		w.AddDotted(r3.Vec{X: -half, Y: v, Z: height}, r3.Vec{X: half, Y: v, Z: height}, 3)
	}
	return w
}

// Axes returns the world axes of length l at the origin.
func Axes(l float64) *Wireframe {
	w := NewWireframe()
	o := r3.Vec{}
	w.AddEdge(o, r3.Vec{X: l})
	w.AddEdge(o, r3.Vec{Y: l})
	w.AddEdge(o, r3.Vec{Z: l})
	return w
}
