package control

import (
	"fmt"
	"math"

	"github.com/san-kum/armsim/internal/dynamo"
)

type TargetSource interface {
	Dim() int
	Target(t float64) dynamo.Vector
}

type Constant struct {
	q dynamo.Vector
}

func NewConstant(q dynamo.Vector) *Constant {
	return &Constant{q: q.Clone()}
}

func (c *Constant) Dim() int { return len(c.q) }

func (c *Constant) Target(t float64) dynamo.Vector {
	return c.q.Clone()
}

// MinimumJerk maps s in [0, 1] onto the quintic 10s³ - 15s⁴ + 6s⁵, which has
// zero velocity and acceleration at both ends.
func MinimumJerk(s float64) float64 {
	s = math.Max(0, math.Min(1, s))
	return s * s * s * (10 + s*(-15+6*s))
}

func blend(from, to dynamo.Vector, s float64) dynamo.Vector {
	out := make(dynamo.Vector, len(from))
	for i := range from {
		out[i] = from[i] + s*(to[i]-from[i])
	}
	return out
}

// Ramp moves from one configuration to another over Duration seconds and
// holds the goal afterwards.
type Ramp struct {
	From     dynamo.Vector
	To       dynamo.Vector
	Duration float64
}

func NewRamp(from, to dynamo.Vector, duration float64) (*Ramp, error) {
	if len(from) != len(to) {
		return nil, dynamo.NewDimensionError("ramp goal", len(to), len(from))
	}
	if duration < 0 || math.IsNaN(duration) {
		return nil, fmt.Errorf("%w: ramp duration must be non-negative, got %v", dynamo.ErrConfiguration, duration)
	}
	return &Ramp{From: from.Clone(), To: to.Clone(), Duration: duration}, nil
}

func (r *Ramp) Dim() int { return len(r.To) }

func (r *Ramp) Target(t float64) dynamo.Vector {
	if r.Duration == 0 || t >= r.Duration {
		return r.To.Clone()
	}
	return blend(r.From, r.To, MinimumJerk(t/r.Duration))
}

// Waypoint is reached Move seconds after the previous one and then held for
// Hold seconds.
type Waypoint struct {
	Q    dynamo.Vector
	Move float64
	Hold float64
}

type Waypoints struct {
	start  dynamo.Vector
	points []Waypoint
	loop   bool
	period float64
}

// NewWaypoints starts at start. When loop is set the sequence repeats, with
// the first move of every later cycle starting from the last waypoint.
func NewWaypoints(start dynamo.Vector, points []Waypoint, loop bool) (*Waypoints, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: waypoint list is empty", dynamo.ErrConfiguration)
	}
	w := &Waypoints{start: start.Clone(), loop: loop}
	for i, p := range points {
		if len(p.Q) != len(start) {
			return nil, dynamo.NewDimensionError(fmt.Sprintf("waypoint %d", i), len(p.Q), len(start))
		}
		if p.Move < 0 || p.Hold < 0 {
			return nil, fmt.Errorf("%w: waypoint %d has negative timing", dynamo.ErrConfiguration, i)
		}
		w.points = append(w.points, Waypoint{Q: p.Q.Clone(), Move: p.Move, Hold: p.Hold})
		w.period += p.Move + p.Hold
	}
	return w, nil
}

func (w *Waypoints) Dim() int { return len(w.start) }

// Period is the duration of one pass through the waypoints.
func (w *Waypoints) Period() float64 { return w.period }

func (w *Waypoints) Target(t float64) dynamo.Vector {
	prev := w.start
	if w.loop && w.period > 0 && t >= w.period {
		t = math.Mod(t, w.period)
		prev = w.points[len(w.points)-1].Q
	}
	for _, p := range w.points {
		if t < p.Move {
			return blend(prev, p.Q, MinimumJerk(t/p.Move))
		}
		t -= p.Move
		if t < p.Hold {
			return p.Q.Clone()
		}
		t -= p.Hold
		prev = p.Q
	}
	return prev.Clone()
}
