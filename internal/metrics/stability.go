package metrics

import (
	"math"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/physics"
)

// Upright is the fraction of ticks with |alpha| within threshold radians.
type Upright struct {
	name      string
	threshold float64
	upright   int
	samples   int
}

func NewUpright(threshold float64) *Upright {
	return &Upright{
		name:      "upright",
		threshold: threshold,
	}
}

func (u *Upright) Name() string {
	return u.name
}

func (u *Upright) Observe(s dynamo.Sample) {
	if len(s.State) != physics.StateDim {
		return
	}
	u.samples++
	if math.Abs(s.State[physics.IdxAlpha]) <= u.threshold {
		u.upright++
	}
}

func (u *Upright) Value() float64 {
	if u.samples == 0 {
		return 0
	}
	return float64(u.upright) / float64(u.samples)
}

func (u *Upright) Reset() {
	u.upright = 0
	u.samples = 0
}
