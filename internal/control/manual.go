package control

import (
	"sync"

	"github.com/san-kum/armsim/internal/dynamo"
)

// Manual is a target edited while the drive loop runs. It is safe for
// concurrent use: the viewer writes, the controller reads.
type Manual struct {
	mu     sync.RWMutex
	q      dynamo.Vector
	limits []dynamo.JointLimit
}

// NewManual starts at q. Edits are clamped to limits when given.
func NewManual(q dynamo.Vector, limits []dynamo.JointLimit) (*Manual, error) {
	if limits != nil && len(limits) != len(q) {
		return nil, dynamo.NewDimensionError("manual target limits", len(limits), len(q))
	}
	return &Manual{q: q.Clone(), limits: limits}, nil
}

func (m *Manual) Dim() int { return len(m.q) }

func (m *Manual) Target(t float64) dynamo.Vector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.q.Clone()
}

func (m *Manual) Set(q dynamo.Vector) error {
	if len(q) != len(m.q) {
		return dynamo.NewDimensionError("manual target", len(q), len(m.q))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range q {
		m.q[i] = m.clamp(i, q[i])
	}
	return nil
}

// Nudge moves one joint target by delta. Out-of-range joints are ignored.
func (m *Manual) Nudge(joint int, delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if joint < 0 || joint >= len(m.q) {
		return
	}
	m.q[joint] = m.clamp(joint, m.q[joint]+delta)
}

func (m *Manual) clamp(i int, v float64) float64 {
	if m.limits == nil {
		return v
	}
	return m.limits[i].Clamp(v)
}
