package urdf

import (
	"encoding/xml"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/armsim/internal/dynamo"
)

type robotXML struct {
	XMLName xml.Name   `xml:"robot"`
	Name    string     `xml:"name,attr"`
	Links   []linkXML  `xml:"link"`
	Joints  []jointXML `xml:"joint"`
}

type linkXML struct {
	Name      string         `xml:"name,attr"`
	Inertial  *inertialXML   `xml:"inertial"`
	Visual    []geometryElem `xml:"visual"`
	Collision []geometryElem `xml:"collision"`
}

type inertialXML struct {
	Origin *poseXML `xml:"origin"`
	Mass   struct {
		Value float64 `xml:"value,attr"`
	} `xml:"mass"`
	Inertia struct {
		IXX float64 `xml:"ixx,attr"`
		IXY float64 `xml:"ixy,attr"`
		IXZ float64 `xml:"ixz,attr"`
		IYY float64 `xml:"iyy,attr"`
		IYZ float64 `xml:"iyz,attr"`
		IZZ float64 `xml:"izz,attr"`
	} `xml:"inertia"`
}

type geometryElem struct {
	Origin   *poseXML `xml:"origin"`
	Geometry struct {
		Box *struct {
			Size string `xml:"size,attr"`
		} `xml:"box"`
		Cylinder *struct {
			Radius float64 `xml:"radius,attr"`
			Length float64 `xml:"length,attr"`
		} `xml:"cylinder"`
		Sphere *struct {
			Radius float64 `xml:"radius,attr"`
		} `xml:"sphere"`
		Mesh *struct {
			Filename string `xml:"filename,attr"`
		} `xml:"mesh"`
	} `xml:"geometry"`
}

type frameXML struct {
	Link string `xml:"link,attr"`
}

type jointXML struct {
	Name   string   `xml:"name,attr"`
	Type   string   `xml:"type,attr"`
	Parent frameXML `xml:"parent"`
	Child  frameXML `xml:"child"`
	Origin *poseXML `xml:"origin"`
	Axis   *struct {
		XYZ string `xml:"xyz,attr"`
	} `xml:"axis"`
	Limit *struct {
		Lower    float64 `xml:"lower,attr"`
		Upper    float64 `xml:"upper,attr"`
		Effort   float64 `xml:"effort,attr"`
		Velocity float64 `xml:"velocity,attr"`
	} `xml:"limit"`
	Dynamics *struct {
		Damping  float64 `xml:"damping,attr"`
		Friction float64 `xml:"friction,attr"`
	} `xml:"dynamics"`
}

type poseXML struct {
	XYZ string `xml:"xyz,attr"` // "x y z" in meters
	RPY string `xml:"rpy,attr"` // fixed-axis roll pitch yaw in radians
}

func (p *poseXML) parse() (dynamo.Pose, error) {
	if p == nil {
		return dynamo.IdentityPose, nil
	}
	xyz, err := triple(p.XYZ)
	if err != nil {
		return dynamo.Pose{}, errors.Wrap(err, "origin xyz")
	}
	rpy, err := triple(p.RPY)
	if err != nil {
		return dynamo.Pose{}, errors.Wrap(err, "origin rpy")
	}
	return dynamo.Pose{
		Position:    r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]},
		Orientation: RPYToQuaternion(rpy[0], rpy[1], rpy[2]),
	}, nil
}

// RPYToQuaternion converts URDF fixed-axis roll/pitch/yaw (R = Rz·Ry·Rx)
// into a quaternion.
func RPYToQuaternion(roll, pitch, yaw float64) dynamo.Quaternion {
	sr, cr := math.Sincos(roll / 2)
	sp, cp := math.Sincos(pitch / 2)
	sy, cy := math.Sincos(yaw / 2)
	return dynamo.Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}

// triple parses a space-delimited "a b c" attribute. Empty means zero.
func triple(s string) ([3]float64, error) {
	var out [3]float64
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return out, nil
	}
	if len(fields) != 3 {
		return out, errors.Errorf("expected 3 values, got %q", s)
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return out, errors.Wrapf(err, "parse %q", f)
		}
		out[i] = v
	}
	return out, nil
}

func (g geometryElem) parse() (Geometry, error) {
	origin, err := g.Origin.parse()
	if err != nil {
		return Geometry{}, err
	}
	geo := g.Geometry
	switch {
	case geo.Box != nil:
		size, err := triple(geo.Box.Size)
		if err != nil {
			return Geometry{}, errors.Wrap(err, "box size")
		}
		return Geometry{Kind: "box", Origin: origin, Size: r3.Vec{X: size[0], Y: size[1], Z: size[2]}}, nil
	case geo.Cylinder != nil:
		return Geometry{Kind: "cylinder", Origin: origin, Radius: geo.Cylinder.Radius, Length: geo.Cylinder.Length}, nil
	case geo.Sphere != nil:
		return Geometry{Kind: "sphere", Origin: origin, Radius: geo.Sphere.Radius}, nil
	case geo.Mesh != nil:
		return Geometry{Kind: "mesh", Origin: origin, Mesh: geo.Mesh.Filename}, nil
	default:
		return Geometry{}, errors.New("couldn't parse xml: no geometry defined")
	}
}

func (l linkXML) convert(multipleCollisions bool) (Link, error) {
	link := Link{Name: l.Name}
	if l.Inertial != nil {
		origin, err := l.Inertial.Origin.parse()
		if err != nil {
			return Link{}, errors.Wrapf(err, "link %s inertial", l.Name)
		}
		in := l.Inertial.Inertia
		link.Inertial = &Inertial{
			Origin: origin,
			Mass:   l.Inertial.Mass.Value,
			Inertia: [3][3]float64{
				{in.IXX, in.IXY, in.IXZ},
				{in.IXY, in.IYY, in.IYZ},
				{in.IXZ, in.IYZ, in.IZZ},
			},
		}
		if link.Inertial.Mass < 0 {
			return Link{}, errors.Errorf("link %s has negative mass", l.Name)
		}
	}
	for _, v := range l.Visual {
		g, err := v.parse()
		if err != nil {
			return Link{}, errors.Wrapf(err, "link %s visual", l.Name)
		}
		link.Visuals = append(link.Visuals, g)
	}
	for i, c := range l.Collision {
		if i > 0 && !multipleCollisions {
			break
		}
		g, err := c.parse()
		if err != nil {
			return Link{}, errors.Wrapf(err, "link %s collision", l.Name)
		}
		link.Collisions = append(link.Collisions, g)
	}
	return link, nil
}

func (j jointXML) convert() (Joint, error) {
	if j.Name == World {
		return Joint{}, errors.New("joints with the name 'world' are not supported")
	}
	origin, err := j.Origin.parse()
	if err != nil {
		return Joint{}, errors.Wrapf(err, "joint %s", j.Name)
	}
	joint := Joint{
		Name:   j.Name,
		Type:   j.Type,
		Parent: j.Parent.Link,
		Child:  j.Child.Link,
		Origin: origin,
		Axis:   r3.Vec{X: 1},
		Limit:  unbounded(),
	}
	if j.Axis != nil {
		a, err := triple(j.Axis.XYZ)
		if err != nil {
			return Joint{}, errors.Wrapf(err, "joint %s axis", j.Name)
		}
		axis := r3.Vec{X: a[0], Y: a[1], Z: a[2]}
		if r3.Norm(axis) == 0 && joint.Active() {
			return Joint{}, errors.Errorf("joint %s has a zero axis", j.Name)
		}
		if r3.Norm(axis) > 0 {
			joint.Axis = r3.Unit(axis)
		}
	}
	if j.Dynamics != nil {
		joint.Damping = j.Dynamics.Damping
		joint.Friction = j.Dynamics.Friction
	}
	if j.Limit != nil {
		joint.Effort = j.Limit.Effort
		joint.Velocity = j.Limit.Velocity
	}

	switch j.Type {
	case ContinuousJoint, FixedJoint:
	case RevoluteJoint, PrismaticJoint:
		if j.Limit == nil {
			return Joint{}, errors.Errorf("%s joint %s has no limit element", j.Type, j.Name)
		}
		if j.Limit.Lower > j.Limit.Upper {
			return Joint{}, errors.Errorf("joint %s has lower limit above upper limit", j.Name)
		}
		joint.Limit = dynamo.JointLimit{Lower: j.Limit.Lower, Upper: j.Limit.Upper}
	default:
		return Joint{}, errors.Errorf("unsupported joint type %q for joint %s", j.Type, j.Name)
	}
	return joint, nil
}
