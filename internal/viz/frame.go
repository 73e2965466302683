package viz

import (
	"context"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/armsim/internal/dynamo"
	"github.com/san-kum/armsim/internal/physics"
)

// Source is the simulation state a FrameRenderer reads. *physics.Body
// satisfies it.
type Source interface {
	LinkPoses() []physics.LinkPose
	JointPositions() dynamo.Vector
	DriveTarget() dynamo.Vector
	Time() float64
}

type JointReading struct {
	Name   string
	Q      float64
	Target float64
	Limit  dynamo.JointLimit
}

// Frame is an immutable rendered snapshot.
type Frame struct {
	Index  int
	Time   float64
	Canvas string
	Joints []JointReading
}

// TrackingError is the RMS of target minus position over the joints.
func (f Frame) TrackingError() float64 {
	if len(f.Joints) == 0 {
		return 0
	}
	var sum float64
	for _, j := range f.Joints {
		d := j.Target - j.Q
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(f.Joints)))
}

type FrameOptions struct {
	Width, Height int
	Camera        *Camera
	Ground        *physics.Ground
	Lights        []physics.Light
	JointNames    []string
	Limits        []dynamo.JointLimit
}

// FrameRenderer rasterizes link poses into Braille frames and hands each
// frame to a sink. UpdateRender must run on the goroutine that owns the
// source; Render and SetCamera may be called from others.
type FrameRenderer struct {
	src  Source
	opts FrameOptions
	sink func(Frame)

	mu     sync.Mutex
	camera Camera
	poses  []physics.LinkPose
	q, tgt dynamo.Vector
	t      float64
	frames int
	grid   *Wireframe
}

func NewFrameRenderer(src Source, opts FrameOptions, sink func(Frame)) *FrameRenderer {
	if opts.Width <= 0 {
		opts.Width = 60
	}
	if opts.Height <= 0 {
		opts.Height = 20
	}
	cam := NewCamera()
	if opts.Camera != nil {
		cam = opts.Camera
	}
	r := &FrameRenderer{src: src, opts: opts, sink: sink, camera: *cam}
	if opts.Ground != nil {
		r.grid = GroundGrid(opts.Ground.Height, 1.0, 0.25)
	}
	return r
}

// UpdateRender copies the current simulation state.
func (r *FrameRenderer) UpdateRender() error {
	poses := r.src.LinkPoses()
	q := r.src.JointPositions().Clone()
	tgt := r.src.DriveTarget().Clone()
	t := r.src.Time()

	r.mu.Lock()
	r.poses, r.q, r.tgt, r.t = poses, q, tgt, t
	r.mu.Unlock()
	return nil
}

// Render draws the last snapshot and delivers it to the sink. The frame is
// presented even when ctx is done; the controller stops between batches.
func (r *FrameRenderer) Render(context.Context) error {
	r.mu.Lock()
	r.frames++
	f := Frame{
		Index:  r.frames,
		Time:   r.t,
		Canvas: r.draw(),
		Joints: r.readings(),
	}
	r.mu.Unlock()

	if r.sink != nil {
		r.sink(f)
	}
	return nil
}

func (r *FrameRenderer) SetCamera(c Camera) {
	r.mu.Lock()
	r.camera = c
	r.mu.Unlock()
}

func (r *FrameRenderer) Camera() Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.camera
}

func (r *FrameRenderer) draw() string {
	c := NewCanvas(r.opts.Width, r.opts.Height)
	if r.grid != nil {
		Render3D(c, r.grid, &r.camera)
	}
	Render3D(c, r.shadows(), &r.camera)
	Render3D(c, r.links(), &r.camera)

	w, h := c.PixelSize()
	for _, p := range r.poses {
		x, y, depth, ok := r.camera.Project(p.Position, w, h)
		if !ok {
			continue
		}
		focal := r.camera.Zoom * float64(min(w, h)) / (2 * math.Tan(r.camera.FOV/2))
		rad := int(math.Round(focal * p.Radius / depth))
		if rad > 0 {
			c.DrawCircle(x, y, rad)
		}
	}
	return c.String()
}

func (r *FrameRenderer) links() *Wireframe {
	w := NewWireframe()
	for _, p := range r.poses {
		if p.Parent < 0 {
			w.AddPoint(p.Position)
			continue
		}
		w.AddEdge(r.poses[p.Parent].Position, p.Position)
	}
	return w
}

// shadows projects the link skeleton onto the ground along the first light
// that points downward.
func (r *FrameRenderer) shadows() *Wireframe {
	w := NewWireframe()
	if r.opts.Ground == nil {
		return w
	}
	var dir r3.Vec
	found := false
	for _, l := range r.opts.Lights {
		if l.Direction.Z < 0 {
			dir, found = l.Direction, true
			break
		}
	}
	if !found {
		return w
	}
	h := r.opts.Ground.Height
	cast := func(p r3.Vec) r3.Vec {
		return r3.Add(p, r3.Scale((h-p.Z)/dir.Z, dir))
	}
	for _, p := range r.poses {
		if p.Parent < 0 || p.Position.Z < h {
			continue
		}
		w.AddDotted(cast(r.poses[p.Parent].Position), cast(p.Position), 2)
	}
	return w
}

func (r *FrameRenderer) readings() []JointReading {
	out := make([]JointReading, len(r.q))
	for i := range r.q {
		out[i] = JointReading{Q: r.q[i], Limit: dynamo.JointLimit{Lower: math.Inf(-1), Upper: math.Inf(1)}}
		if i < len(r.tgt) {
			out[i].Target = r.tgt[i]
		}
		if i < len(r.opts.JointNames) {
			out[i].Name = r.opts.JointNames[i]
		}
		if i < len(r.opts.Limits) {
			out[i].Limit = r.opts.Limits[i]
		}
	}
	return out
}

// Tee fans every call out to each renderer in order and stops at the first
// error.
func Tee(renderers ...dynamo.Renderer) dynamo.Renderer {
	return tee(renderers)
}

type tee []dynamo.Renderer

func (t tee) UpdateRender() error {
	for _, r := range t {
		if err := r.UpdateRender(); err != nil {
			return err
		}
	}
	return nil
}

func (t tee) Render(ctx context.Context) error {
	for _, r := range t {
		if err := r.Render(ctx); err != nil {
			return err
		}
	}
	return nil
}
