// Package urdf loads robot descriptions in the Unified Robot Description
// Format into a validated kinematic tree.
package urdf

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/armsim/internal/dynamo"
)

// Joint types understood by the loader.
const (
	RevoluteJoint   = "revolute"
	ContinuousJoint = "continuous"
	PrismaticJoint  = "prismatic"
	FixedJoint      = "fixed"
)

// World is the reserved name of the implicit world link.
const World = "world"

// Robot is a parsed and validated description.
type Robot struct {
	Name   string
	Root   string
	Links  []Link
	Joints []Joint

	// FixRootLink is passed through from the loader options.
	FixRootLink bool

	linkIndex  map[string]int
	childJoint map[string][]int
}

// Link is a rigid body. A link without an inertial element is massless.
type Link struct {
	Name       string
	Inertial   *Inertial
	Visuals    []Geometry
	Collisions []Geometry
}

// Inertial holds mass properties in the link frame.
type Inertial struct {
	Origin  dynamo.Pose
	Mass    float64
	Inertia [3][3]float64
}

// Geometry is a visual or collision shape. Only the fields for Kind are set.
type Geometry struct {
	Kind   string
	Origin dynamo.Pose
	Size   r3.Vec
	Radius float64
	Length float64
	Mesh   string
}

// Joint connects a parent link to a child link. Origin is the child joint
// frame expressed in the parent link frame.
type Joint struct {
	Name     string
	Type     string
	Parent   string
	Child    string
	Origin   dynamo.Pose
	Axis     r3.Vec
	Limit    dynamo.JointLimit
	Effort   float64
	Velocity float64
	Damping  float64
	Friction float64
}

// Active reports whether the joint has a degree of freedom.
func (j Joint) Active() bool {
	return j.Type != FixedJoint
}

// Link returns the named link.
func (r *Robot) Link(name string) (Link, bool) {
	i, ok := r.linkIndex[name]
	if !ok {
		return Link{}, false
	}
	return r.Links[i], true
}

// ChildJoints returns the joints whose parent is the named link, in file order.
func (r *Robot) ChildJoints(link string) []Joint {
	idx := r.childJoint[link]
	out := make([]Joint, len(idx))
	for i, j := range idx {
		out[i] = r.Joints[j]
	}
	return out
}

// TreeJoints returns every joint in depth-first order from the root. This is
// the order joint vectors use.
func (r *Robot) TreeJoints() []Joint {
	out := make([]Joint, 0, len(r.Joints))
	var walk func(link string)
	walk = func(link string) {
		for _, j := range r.ChildJoints(link) {
			out = append(out, j)
			walk(j.Child)
		}
	}
	walk(r.Root)
	return out
}

// ActiveJoints returns the non-fixed joints in tree order.
func (r *Robot) ActiveJoints() []Joint {
	all := r.TreeJoints()
	out := make([]Joint, 0, len(all))
	for _, j := range all {
		if j.Active() {
			out = append(out, j)
		}
	}
	return out
}

// JointLimits returns the limits of the active joints in tree order.
func (r *Robot) JointLimits() []dynamo.JointLimit {
	active := r.ActiveJoints()
	out := make([]dynamo.JointLimit, len(active))
	for i, j := range active {
		out[i] = j.Limit
	}
	return out
}

// TotalMass sums the mass of every link.
func (r *Robot) TotalMass() float64 {
	m := 0.0
	for _, l := range r.Links {
		if l.Inertial != nil {
			m += l.Inertial.Mass
		}
	}
	return m
}

func unbounded() dynamo.JointLimit {
	return dynamo.JointLimit{Lower: math.Inf(-1), Upper: math.Inf(1)}
}
