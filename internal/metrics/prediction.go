package metrics

import (
	"math"

	"github.com/san-kum/lander/internal/dynamo"
)

// PredictionError is the RMS distance between each tick's one-step
// prediction and the state measured at the next tick. Ticks without a
// prediction are skipped.
type PredictionError struct {
	last    dynamo.State
	sumSq   float64
	samples int
}

func NewPredictionError() *PredictionError { return &PredictionError{} }

func (p *PredictionError) Name() string { return "prediction_rms" }

func (p *PredictionError) Observe(s dynamo.Sample) {
	if p.last != nil && len(p.last) == len(s.State) {
		d := p.last.Sub(s.State).Norm()
		p.sumSq += d * d
		p.samples++
	}
	p.last = nil
	if s.Predicted != nil {
		p.last = s.Predicted.Clone()
	}
}

func (p *PredictionError) Value() float64 {
	if p.samples == 0 {
		return 0
	}
	return math.Sqrt(p.sumSq / float64(p.samples))
}

func (p *PredictionError) Reset() {
	p.last = nil
	p.sumSq = 0
	p.samples = 0
}

// FallbackRate is the fraction of ticks served by a fallback policy.
type FallbackRate struct {
	fallbacks int
	samples   int
}

func NewFallbackRate() *FallbackRate { return &FallbackRate{} }

func (f *FallbackRate) Name() string { return "fallback_rate" }

func (f *FallbackRate) Observe(s dynamo.Sample) {
	f.samples++
	if s.Fallback {
		f.fallbacks++
	}
}

func (f *FallbackRate) Value() float64 {
	if f.samples == 0 {
		return 0
	}
	return float64(f.fallbacks) / float64(f.samples)
}

func (f *FallbackRate) Reset() {
	f.fallbacks = 0
	f.samples = 0
}
