package metrics

import (
	"math"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/physics"
)

// ControlEffort is the mean magnitude of one control component per tick.
type ControlEffort struct {
	name      string
	component int
	sum       float64
	samples   int
}

func NewThrustEffort() *ControlEffort {
	return &ControlEffort{name: "thrust_effort", component: physics.IdxThrust}
}

func NewGimbalEffort() *ControlEffort {
	return &ControlEffort{name: "gimbal_effort", component: physics.IdxGimbal}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s dynamo.Sample) {
	if c.component >= len(s.Control) {
		return
	}
	c.sum += math.Abs(s.Control[c.component])
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
