package metrics

import (
	"github.com/san-kum/armsim/internal/dynamo"
)

// LimitViolations counts sub-steps where a target or a position lies outside
// its joint range by more than tolerance.
type LimitViolations struct {
	name       string
	limits     []dynamo.JointLimit
	tolerance  float64
	violations int
}

func NewLimitViolations(limits []dynamo.JointLimit, tolerance float64) *LimitViolations {
	return &LimitViolations{
		name:      "limit_violations",
		limits:    limits,
		tolerance: tolerance,
	}
}

func (l *LimitViolations) Name() string {
	return l.name
}

func (l *LimitViolations) Observe(s dynamo.Sample) {
	if l.outside(s.Q) || l.outside(s.Target) {
		l.violations++
	}
}

func (l *LimitViolations) outside(v dynamo.Vector) bool {
	for i, x := range v {
		if i >= len(l.limits) {
			break
		}
		lim := l.limits[i]
		if x < lim.Lower-l.tolerance || x > lim.Upper+l.tolerance {
			return true
		}
	}
	return false
}

func (l *LimitViolations) Value() float64 {
	return float64(l.violations)
}

func (l *LimitViolations) Reset() {
	l.violations = 0
}
