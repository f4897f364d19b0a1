package metrics

import (
	"math"

	"github.com/san-kum/lander/internal/dynamo"
)

type energyComputer interface {
	Energy(x dynamo.State) float64
}

// EnergyDrift is the largest relative change of plant energy seen so far.
// Under thrust this measures work done rather than integration error.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
	plant         energyComputer
}

func NewEnergyDrift(plant energyComputer) *EnergyDrift {
	return &EnergyDrift{
		name:  "energy_drift",
		plant: plant,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s dynamo.Sample) {
	energy := e.plant.Energy(s.State)
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
