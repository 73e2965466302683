package urdf

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/san-kum/armsim/internal/dynamo"
)

// ErrNoModelInformation is returned for empty description data.
var ErrNoModelInformation = errors.New("no model information")

// Error is a description failure. It matches dynamo.ErrResource.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("urdf: %v", e.Err)
	}
	return fmt.Sprintf("urdf %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{dynamo.ErrResource, e.Err}
}

// Loader reads URDF files. Its options are passed through to the resulting
// Robot the way a simulator's loader exposes them.
type Loader struct {
	// FixRootLink welds the root link to the world frame.
	FixRootLink bool
	// LoadMultipleCollisions keeps every collision element of a link instead
	// of only the first one.
	LoadMultipleCollisions bool
}

func NewLoader() *Loader {
	return &Loader{FixRootLink: true}
}

// Load reads and parses the description at path.
func (l *Loader) Load(path string) (*Robot, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: errors.Wrap(err, "failed to read URDF file")}
	}
	robot, err := l.Parse(data)
	if err != nil {
		var ue *Error
		if errors.As(err, &ue) {
			ue.Path = path
			return nil, ue
		}
		return nil, &Error{Path: path, Err: err}
	}
	return robot, nil
}

// Parse converts URDF XML data into a validated Robot.
func (l *Loader) Parse(data []byte) (*Robot, error) {
	// empty data means the file has no actionable information
	if len(data) == 0 {
		return nil, &Error{Err: ErrNoModelInformation}
	}

	doc := &robotXML{}
	if err := xml.Unmarshal(data, doc); err != nil {
		return nil, &Error{Err: errors.Wrap(err, "failed to convert URDF data")}
	}

	robot := &Robot{
		Name:        doc.Name,
		FixRootLink: l.FixRootLink,
		linkIndex:   make(map[string]int),
		childJoint:  make(map[string][]int),
	}

	for _, le := range doc.Links {
		if _, dup := robot.linkIndex[le.Name]; dup {
			return nil, &Error{Err: errors.Errorf("duplicate link %q", le.Name)}
		}
		link, err := le.convert(l.LoadMultipleCollisions)
		if err != nil {
			return nil, &Error{Err: err}
		}
		robot.linkIndex[link.Name] = len(robot.Links)
		robot.Links = append(robot.Links, link)
	}

	for _, je := range doc.Joints {
		joint, err := je.convert()
		if err != nil {
			return nil, &Error{Err: err}
		}
		robot.Joints = append(robot.Joints, joint)
	}

	if err := robot.index(); err != nil {
		return nil, &Error{Err: err}
	}
	return robot, nil
}

// index validates the kinematic tree and builds the lookup tables.
func (r *Robot) index() error {
	if len(r.Links) == 0 {
		return errors.New("description has no links")
	}

	parentOf := make(map[string]string, len(r.Joints))
	jointNames := make(map[string]bool, len(r.Joints))
	for i, j := range r.Joints {
		if jointNames[j.Name] {
			return errors.Errorf("duplicate joint %q", j.Name)
		}
		jointNames[j.Name] = true

		if _, ok := r.linkIndex[j.Parent]; !ok {
			return errors.Errorf("joint %s references unknown parent link %q", j.Name, j.Parent)
		}
		if _, ok := r.linkIndex[j.Child]; !ok {
			return errors.Errorf("joint %s references unknown child link %q", j.Name, j.Child)
		}
		if prev, ok := parentOf[j.Child]; ok {
			return errors.Errorf("link %s has two parents (%s, %s)", j.Child, prev, j.Parent)
		}
		parentOf[j.Child] = j.Parent
		r.childJoint[j.Parent] = append(r.childJoint[j.Parent], i)
	}

	var roots []string
	for _, l := range r.Links {
		if _, ok := parentOf[l.Name]; !ok {
			roots = append(roots, l.Name)
		}
	}
	if len(roots) != 1 {
		return errors.Errorf("expected exactly one root link, found %d %v", len(roots), roots)
	}
	r.Root = roots[0]

	// every link must be reachable from the root, otherwise there is a cycle
	seen := map[string]bool{r.Root: true}
	queue := []string{r.Root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, j := range r.childJoint[cur] {
			child := r.Joints[j].Child
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}
	if len(seen) != len(r.Links) {
		return errors.Errorf("kinematic tree has a cycle: %d of %d links reachable from %s", len(seen), len(r.Links), r.Root)
	}
	return nil
}
