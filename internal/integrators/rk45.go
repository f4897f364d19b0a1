package integrators

import (
	"math"

	"github.com/san-kum/lander/internal/dynamo"
)

// Dormand-Prince 5(4) tableau. The last row of a equals b, so the final
// stage is the derivative at the new state.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	dpB     = [7]float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0}
	dpBStar = [7]float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40}
)

// RK45 covers each requested step with as many embedded Dormand-Prince
// substeps as the tolerance needs, so Step always advances exactly dt.
type RK45 struct {
	Tolerance float64
	MinStep   float64
	safety    float64
	minScale  float64
	maxScale  float64
}

func NewRK45() *RK45 {
	return &RK45{
		Tolerance: 1e-8,
		MinStep:   1e-9,
		safety:    0.9,
		minScale:  0.2,
		maxScale:  5.0,
	}
}

func (r *RK45) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	cur := x
	h := dt
	remaining := dt
	for remaining > 0 {
		last := h >= remaining
		if last {
			h = remaining
		}
		next, ratio := r.Attempt(dyn, cur, u, t, h)
		if ratio <= 1 || h <= r.MinStep || math.IsNaN(ratio) {
			cur = next
			t += h
			if last {
				remaining = 0
			} else {
				remaining -= h
			}
			h *= r.scale(ratio, 0.2, r.maxScale)
			continue
		}
		h *= r.scale(ratio, 0.25, 1)
	}
	return cur
}

// Attempt takes one substep of length h and returns it with the ratio of the
// embedded error estimate to the tolerance.
func (r *RK45) Attempt(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, h float64) (dynamo.State, float64) {
	n := len(x)
	var k [7]dynamo.State
	k[0] = dyn.Derive(x, u, t)

	stage := make(dynamo.State, n)
	for s := 1; s < 7; s++ {
		for i := 0; i < n; i++ {
			acc := 0.0
			for j := 0; j < s; j++ {
				acc += dpA[s][j] * k[j][i]
			}
			stage[i] = x[i] + h*acc
		}
		k[s] = dyn.Derive(stage, u, t+dpC[s]*h)
	}
	next := stage.Clone()

	errMax := 0.0
	for i := 0; i < n; i++ {
		est := 0.0
		for s := 0; s < 7; s++ {
			est += (dpB[s] - dpBStar[s]) * k[s][i]
		}
		scale := math.Abs(x[i]) + math.Abs(h*k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(h*est)/scale)
	}
	return next, errMax / r.Tolerance
}

func (r *RK45) scale(ratio, order, limit float64) float64 {
	if ratio <= 0 {
		return limit
	}
	return math.Max(r.minScale, math.Min(limit, r.safety*math.Pow(ratio, -order)))
}
