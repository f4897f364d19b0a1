package metrics

import (
	"math"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/physics"
)

// DescentRate reports |y_dot| at the last observed tick, the touchdown
// speed when the run ends on contact.
type DescentRate struct {
	value float64
}

func NewDescentRate() *DescentRate { return &DescentRate{} }

func (d *DescentRate) Name() string { return "descent_rate" }

func (d *DescentRate) Observe(s dynamo.Sample) {
	if len(s.State) == physics.StateDim {
		d.value = math.Abs(s.State[physics.IdxYDot])
	}
}

func (d *DescentRate) Value() float64 { return d.value }
func (d *DescentRate) Reset()         { d.value = 0 }
