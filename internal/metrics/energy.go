package metrics

import (
	"math"

	"github.com/san-kum/armsim/internal/dynamo"
)

// Energy is the mean mechanical energy of src over the observed sub-steps.
type Energy struct {
	name        string
	src         dynamo.EnergySource
	samples     int
	totalEnergy float64
}

func NewEnergy(src dynamo.EnergySource) *Energy {
	return &Energy{
		name: "energy",
		src:  src,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s dynamo.Sample) {
	e.totalEnergy += e.src.KineticEnergy() + e.src.PotentialEnergy()
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative deviation from the first observed
// energy. It is only meaningful with drives and forces off.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
	src           dynamo.EnergySource
}

func NewEnergyDrift(src dynamo.EnergySource) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		src:  src,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s dynamo.Sample) {
	energy := e.src.KineticEnergy() + e.src.PotentialEnergy()

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
