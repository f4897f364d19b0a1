package optim

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// iterate is a point of the open unit box held as its distances to the lower
// and upper faces. Both are updated directly so that either one stays
// accurate when it is small.
type iterate struct {
	lo, hi []float64
}

func newIterate(n int) iterate {
	return iterate{lo: make([]float64, n), hi: make([]float64, n)}
}

func (it iterate) copyFrom(src iterate) {
	copy(it.lo, src.lo)
	copy(it.hi, src.hi)
}

// advance sets it to src + step*dir.
func (it iterate) advance(src iterate, step float64, dir []float64) {
	for i, d := range dir {
		it.lo[i] = src.lo[i] + step*d
		it.hi[i] = src.hi[i] - step*d
	}
}

func (it iterate) inside() bool {
	for i := range it.lo {
		if !(it.lo[i] > 0) || !(it.hi[i] > 0) {
			return false
		}
	}
	return true
}

// scaled presents a Problem on the unit box with a scaled objective:
// x = lower + width*z and phi(z) = fscale*f(x).
type scaled struct {
	p      Problem
	width  []float64
	fscale float64

	x  []float64
	gx []float64
	hx *mat.SymDense
}

func newScaled(p Problem) *scaled {
	n := len(p.Lower)
	width := make([]float64, n)
	for i := range width {
		width[i] = p.Upper[i] - p.Lower[i]
	}
	return &scaled{
		p:      p,
		width:  width,
		fscale: 1,
		x:      make([]float64, n),
		gx:     make([]float64, n),
		hx:     mat.NewSymDense(n, nil),
	}
}

func (s *scaled) dim() int { return len(s.width) }

func (s *scaled) start() iterate {
	it := newIterate(s.dim())
	for i := range it.lo {
		z := 0.5
		if s.p.Initial != nil {
			z = (s.p.Initial[i] - s.p.Lower[i]) / s.width[i]
		}
		z = math.Min(math.Max(z, boundPush), 1-boundPush)
		it.lo[i], it.hi[i] = z, 1-z
	}
	return it
}

// fill writes the original variables for it into x, measuring from the
// nearer bound.
func (s *scaled) fill(x []float64, it iterate) {
	for i := range x {
		if it.lo[i] <= it.hi[i] {
			x[i] = s.p.Lower[i] + s.width[i]*it.lo[i]
		} else {
			x[i] = s.p.Upper[i] - s.width[i]*it.hi[i]
		}
	}
}

func (s *scaled) toX(it iterate) []float64 {
	x := make([]float64, s.dim())
	s.fill(x, it)
	return x
}

func (s *scaled) grad(dst []float64, it iterate) {
	s.fill(s.x, it)
	s.p.Grad(s.gx, s.x)
	for i := range dst {
		dst[i] = s.fscale * s.width[i] * s.gx[i]
	}
}

func (s *scaled) hess(dst *mat.SymDense, it iterate) {
	s.fill(s.x, it)
	s.p.Hess(s.hx, s.x)
	n := s.dim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, s.fscale*s.width[i]*s.width[j]*s.hx.At(i, j))
		}
	}
}

// barrier is the scaled objective plus the log barrier of the unit box. It
// is +Inf outside the open box or where the objective is not a number.
func (s *scaled) barrier(it iterate, mu float64) float64 {
	if !it.inside() {
		return math.Inf(1)
	}
	b := 0.0
	for i := range it.lo {
		b += math.Log(it.lo[i]) + math.Log(it.hi[i])
	}
	s.fill(s.x, it)
	f := s.fscale * s.p.Func(s.x)
	if math.IsNaN(f) {
		return math.Inf(1)
	}
	return f - mu*b
}

// multipliers are the bound multipliers of the lower and upper faces
// together with their pending Newton direction.
type multipliers struct {
	lo, hi   []float64
	dlo, dhi []float64
}

func newMultipliers(n int) multipliers {
	m := multipliers{
		lo:  make([]float64, n),
		hi:  make([]float64, n),
		dlo: make([]float64, n),
		dhi: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		m.lo[i], m.hi[i] = 1, 1
	}
	return m
}

// direction linearizes lo*vlo = mu and hi*vhi = mu along the primal step dir.
func (m multipliers) direction(z iterate, dir []float64, mu float64) {
	for i, d := range dir {
		m.dlo[i] = mu/z.lo[i] - m.lo[i] - m.lo[i]/z.lo[i]*d
		m.dhi[i] = mu/z.hi[i] - m.hi[i] + m.hi[i]/z.hi[i]*d
	}
}

func (m multipliers) fractionToBoundary(tau float64) float64 {
	step := 1.0
	for i := range m.lo {
		if m.dlo[i] < 0 {
			step = math.Min(step, -tau*m.lo[i]/m.dlo[i])
		}
		if m.dhi[i] < 0 {
			step = math.Min(step, -tau*m.hi[i]/m.dhi[i])
		}
	}
	return step
}

func (m multipliers) advance(step float64) {
	for i := range m.lo {
		m.lo[i] += step * m.dlo[i]
		m.hi[i] += step * m.dhi[i]
	}
}

// safeguard keeps each multiplier within kappaSigma of its primal estimate
// mu/slack.
func (m multipliers) safeguard(z iterate, mu float64) {
	for i := range m.lo {
		m.lo[i] = clampSigma(m.lo[i], mu/z.lo[i])
		m.hi[i] = clampSigma(m.hi[i], mu/z.hi[i])
	}
}

func clampSigma(v, estimate float64) float64 {
	return math.Max(math.Min(v, kappaSigma*estimate), estimate/kappaSigma)
}
