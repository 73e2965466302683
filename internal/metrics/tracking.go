package metrics

import (
	"math"

	"github.com/san-kum/armsim/internal/dynamo"
)

// TrackingError is the RMS of target - q over every joint and sub-step.
type TrackingError struct {
	name  string
	sumSq float64
	count int
}

func NewTrackingError() *TrackingError {
	return &TrackingError{name: "tracking_error"}
}

func (e *TrackingError) Name() string { return e.name }

func (e *TrackingError) Observe(s dynamo.Sample) {
	n := min(len(s.Q), len(s.Target))
	for i := 0; i < n; i++ {
		d := s.Target[i] - s.Q[i]
		e.sumSq += d * d
	}
	e.count += n
}

func (e *TrackingError) Value() float64 {
	if e.count == 0 {
		return 0
	}
	return math.Sqrt(e.sumSq / float64(e.count))
}

func (e *TrackingError) Reset() {
	e.sumSq = 0
	e.count = 0
}

// MaxTrackingError is the largest single-joint |target - q| seen.
type MaxTrackingError struct {
	name string
	max  float64
}

func NewMaxTrackingError() *MaxTrackingError {
	return &MaxTrackingError{name: "max_tracking_error"}
}

func (e *MaxTrackingError) Name() string { return e.name }

func (e *MaxTrackingError) Observe(s dynamo.Sample) {
	n := min(len(s.Q), len(s.Target))
	for i := 0; i < n; i++ {
		e.max = math.Max(e.max, math.Abs(s.Target[i]-s.Q[i]))
	}
}

func (e *MaxTrackingError) Value() float64 { return e.max }

func (e *MaxTrackingError) Reset() { e.max = 0 }
