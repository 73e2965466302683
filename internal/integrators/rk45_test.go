package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/armsim/internal/dynamo"
)

func TestRK45_EnergyConservation(t *testing.T) {
	dyn := &oscillator{}
	x := run(NewRK45(), dynamo.Vector{1.0, 0.0}, 0.01, 1000)

	drift := math.Abs(dyn.Energy(x)-0.5) / 0.5
	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	x, newDt, err := integrator.StepAdaptive(&oscillator{}, dynamo.Vector{1.0, 0.0}, nil, 0, 0.1, 1e-12)

	if err != nil {
		t.Errorf("StepAdaptive returned error: %v", err)
	}

	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}

	if newDt <= 0 || newDt >= 0.1 {
		t.Errorf("expected a smaller step for a tight tolerance, got %f", newDt)
	}
}

type blowup struct{}

func (b *blowup) Derive(x dynamo.Vector, u dynamo.Vector, t float64) dynamo.Vector {
	return dynamo.Vector{math.Inf(1), 0}
}
func (b *blowup) StateDim() int   { return 2 }
func (b *blowup) ControlDim() int { return 0 }

func TestRK45_InvalidState(t *testing.T) {
	_, _, err := NewRK45().StepAdaptive(&blowup{}, dynamo.Vector{0, 0}, nil, 0, 0.1, 1e-6)
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}
