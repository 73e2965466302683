package physics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/armsim/internal/dynamo"
	"github.com/san-kum/armsim/internal/urdf"
)

type jointKind int

const (
	fixedKind jointKind = iota
	revoluteKind
	prismaticKind
)

const freeRootDofs = 6

// rootArmature is the inertia each virtual root joint carries so the mass
// matrix stays positive definite under a massless root link.
const rootArmature = 1e-3

type contactPoint struct {
	center r3.Vec
	radius float64
}

// node is one link together with the joint attaching it to its parent.
type node struct {
	link    string
	joint   string
	virtual bool
	parent  int
	kind    jointKind
	dof     int

	origin    r3.Vec
	originRot r3.Rotation
	axis      r3.Vec

	mass    float64
	com     r3.Vec
	inertia [3][3]float64

	contacts []contactPoint
	radius   float64
}

// LinkPose is the world placement of a link, for rendering. Parent indexes
// the slice returned by Body.LinkPoses and is -1 for the root.
type LinkPose struct {
	Name     string
	Parent   int
	Position r3.Vec
	Rotation r3.Rotation
	Radius   float64
}

// Body is an articulated tree of rigid links. It is not safe for concurrent
// use.
type Body struct {
	Name string

	world  *World
	nodes  []node
	fixed  bool
	root   int
	dofs   int
	joints []urdf.Joint
	index  map[string]int

	basePos  r3.Vec
	baseRot  r3.Rotation
	rootNode int

	q, qd        []float64
	jointDamping []float64
	armature     []float64

	qf        []float64
	target    []float64
	stiffness []float64
	damping   []float64
}

func newBody(w *World, robot *urdf.Robot) (*Body, error) {
	if robot == nil {
		return nil, fmt.Errorf("%w: nil robot description", dynamo.ErrResource)
	}
	rootLink, ok := robot.Link(robot.Root)
	if !ok {
		return nil, fmt.Errorf("%w: root link %q not found", dynamo.ErrResource, robot.Root)
	}

	b := &Body{
		Name:    robot.Name,
		world:   w,
		fixed:   robot.FixRootLink,
		baseRot: identity,
		index:   make(map[string]int),
	}

	parent := -1
	if !b.fixed {
		axes := []struct {
			kind jointKind
			axis r3.Vec
		}{
			{prismaticKind, r3.Vec{X: 1}},
			{prismaticKind, r3.Vec{Y: 1}},
			{prismaticKind, r3.Vec{Z: 1}},
			{revoluteKind, r3.Vec{Z: 1}},
			{revoluteKind, r3.Vec{Y: 1}},
			{revoluteKind, r3.Vec{X: 1}},
		}
		for i, a := range axes {
			b.nodes = append(b.nodes, node{
				virtual:   true,
				parent:    i - 1,
				kind:      a.kind,
				dof:       i,
				originRot: identity,
				axis:      a.axis,
			})
			b.jointDamping = append(b.jointDamping, 0)
			b.armature = append(b.armature, rootArmature)
		}
		b.root = freeRootDofs
		b.dofs = freeRootDofs
		parent = freeRootDofs - 1
	}

	rn := linkNode(rootLink)
	rn.parent = parent
	b.rootNode = len(b.nodes)
	b.nodes = append(b.nodes, rn)

	var walk func(link string, parent int)
	walk = func(link string, parent int) {
		for _, j := range robot.ChildJoints(link) {
			child, _ := robot.Link(j.Child)
			nd := linkNode(child)
			nd.parent = parent
			nd.joint = j.Name
			nd.origin = j.Origin.Position
			nd.originRot = j.Origin.Orientation.Rotation()
			nd.axis = j.Axis
			switch j.Type {
			case urdf.RevoluteJoint, urdf.ContinuousJoint:
				nd.kind = revoluteKind
			case urdf.PrismaticJoint:
				nd.kind = prismaticKind
			}
			if nd.kind != fixedKind {
				nd.dof = b.dofs
				b.dofs++
				b.index[j.Name] = len(b.joints)
				b.joints = append(b.joints, j)
				b.jointDamping = append(b.jointDamping, j.Damping)
				b.armature = append(b.armature, 0)
			}
			b.nodes = append(b.nodes, nd)
			walk(j.Child, len(b.nodes)-1)
		}
	}
	walk(robot.Root, b.rootNode)

	n := len(b.joints)
	b.q = make([]float64, b.dofs)
	b.qd = make([]float64, b.dofs)
	b.qf = make([]float64, n)
	b.target = make([]float64, n)
	b.stiffness = make([]float64, n)
	b.damping = make([]float64, n)
	return b, nil
}

func linkNode(l urdf.Link) node {
	nd := node{link: l.Name, dof: -1, originRot: identity}
	if in := l.Inertial; in != nil {
		nd.mass = in.Mass
		nd.com = in.Origin.Position
		nd.inertia = rotateInertia(in.Origin.Orientation.Rotation(), in.Inertia)
	}
	nd.contacts = append(nd.contacts, contactPoint{})
	for _, g := range l.Collisions {
		r := geometryRadius(g)
		nd.contacts = append(nd.contacts, contactPoint{center: g.Origin.Position, radius: r})
		nd.radius = math.Max(nd.radius, r)
	}
	if nd.radius == 0 {
		for _, g := range l.Visuals {
			nd.radius = math.Max(nd.radius, geometryRadius(g))
		}
	}
	return nd
}

func geometryRadius(g urdf.Geometry) float64 {
	switch g.Kind {
	case "sphere", "cylinder":
		return g.Radius
	case "box":
		return 0.5 * math.Min(g.Size.X, math.Min(g.Size.Y, g.Size.Z))
	}
	return 0
}

// Links returns the link names in tree order.
func (b *Body) Links() []string {
	var out []string
	for _, nd := range b.nodes {
		if !nd.virtual {
			out = append(out, nd.link)
		}
	}
	return out
}

// ActiveJoints returns the non-fixed joints in the order joint vectors use.
func (b *Body) ActiveJoints() []urdf.Joint {
	out := make([]urdf.Joint, len(b.joints))
	copy(out, b.joints)
	return out
}

func (b *Body) JointIndex(name string) (int, bool) {
	i, ok := b.index[name]
	return i, ok
}

func (b *Body) JointLimits() []dynamo.JointLimit {
	out := make([]dynamo.JointLimit, len(b.joints))
	for i, j := range b.joints {
		out[i] = j.Limit
	}
	return out
}

func (b *Body) FixedRoot() bool { return b.fixed }

func (b *Body) ActiveJointCount() int { return len(b.joints) }

func (b *Body) JointPositions() dynamo.Vector {
	return dynamo.Vector(b.q[b.root:]).Clone()
}

func (b *Body) JointVelocities() dynamo.Vector {
	return dynamo.Vector(b.qd[b.root:]).Clone()
}

// SetJointPositions sets qpos without clamping. Velocities are kept.
func (b *Body) SetJointPositions(q dynamo.Vector) error {
	if err := b.checkDim("joint positions", q); err != nil {
		return err
	}
	copy(b.q[b.root:], q)
	return nil
}

func (b *Body) SetJointVelocities(qd dynamo.Vector) error {
	if err := b.checkDim("joint velocities", qd); err != nil {
		return err
	}
	copy(b.qd[b.root:], qd)
	return nil
}

// SetDriveProperty configures the PD drive of active joint i.
func (b *Body) SetDriveProperty(i int, stiffness, damping float64) error {
	if i < 0 || i >= len(b.joints) {
		return fmt.Errorf("%w: joint index %d out of range [0, %d)", dynamo.ErrConfiguration, i, len(b.joints))
	}
	if stiffness < 0 || damping < 0 || math.IsNaN(stiffness) || math.IsNaN(damping) {
		return fmt.Errorf("%w: drive gains must be non-negative, got stiffness=%v damping=%v",
			dynamo.ErrConfiguration, stiffness, damping)
	}
	b.stiffness[i] = stiffness
	b.damping[i] = damping
	return nil
}

func (b *Body) DriveProperty(i int) (stiffness, damping float64) {
	return b.stiffness[i], b.damping[i]
}

func (b *Body) SetDriveTarget(q dynamo.Vector) error {
	if err := b.checkDim("drive target", q); err != nil {
		return err
	}
	copy(b.target, q)
	return nil
}

func (b *Body) DriveTarget() dynamo.Vector {
	return dynamo.Vector(b.target).Clone()
}

// SetJointForce replaces the additive joint-force command. It stays applied
// until replaced.
func (b *Body) SetJointForce(qf dynamo.Vector) error {
	if err := b.checkDim("joint force", qf); err != nil {
		return err
	}
	if !qf.IsValid() {
		return fmt.Errorf("%w: joint force", dynamo.ErrInvalidState)
	}
	copy(b.qf, qf)
	return nil
}

func (b *Body) JointForce() dynamo.Vector {
	return dynamo.Vector(b.qf).Clone()
}

func (b *Body) Step() error       { return b.world.Step() }
func (b *Body) Time() float64     { return b.world.Time() }
func (b *Body) Timestep() float64 { return b.world.Timestep() }

// SetRootPose places the root link. For a free root the virtual joints are
// reset and their velocities zeroed.
func (b *Body) SetRootPose(p dynamo.Pose) {
	if b.fixed {
		b.basePos = p.Position
		b.baseRot = p.Orientation.Rotation()
		return
	}
	yaw, pitch, roll := yawPitchRoll(p.Orientation.Rotation())
	copy(b.q[:freeRootDofs], []float64{p.Position.X, p.Position.Y, p.Position.Z, yaw, pitch, roll})
	for i := 0; i < freeRootDofs; i++ {
		b.qd[i] = 0
	}
}

func (b *Body) RootPose() dynamo.Pose {
	if b.fixed {
		return dynamo.Pose{Position: b.basePos, Orientation: dynamo.QuaternionFromRotation(b.baseRot)}
	}
	f := b.kinematics(b.q)
	return dynamo.Pose{
		Position:    f.pos[b.rootNode],
		Orientation: dynamo.QuaternionFromRotation(f.rot[b.rootNode]),
	}
}

// LinkPoses returns the world placement of every link in tree order.
func (b *Body) LinkPoses() []LinkPose {
	f := b.kinematics(b.q)
	out := make([]LinkPose, 0, len(b.nodes)-b.rootNode)
	remap := make([]int, len(b.nodes))
	for i, nd := range b.nodes {
		remap[i] = -1
		if nd.virtual {
			continue
		}
		parent := -1
		if nd.parent >= 0 {
			parent = remap[nd.parent]
		}
		remap[i] = len(out)
		out = append(out, LinkPose{
			Name:     nd.link,
			Parent:   parent,
			Position: f.pos[i],
			Rotation: f.rot[i],
			Radius:   nd.radius,
		})
	}
	return out
}

func (b *Body) checkDim(what string, v dynamo.Vector) error {
	if len(v) != len(b.joints) {
		return dynamo.NewDimensionError(what, len(v), len(b.joints))
	}
	return nil
}
