package cost

import (
	"fmt"
	"math"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/physics"
)

// Tuning holds the scalar gains the weight matrices are built from.
type Tuning struct {
	Q            float64    `yaml:"q"`
	R            [2]float64 `yaml:"r"`
	XPenalty     float64    `yaml:"x_penalty"`
	AlphaPenalty float64    `yaml:"alpha_penalty"`
	DotYGain     float64    `yaml:"dot_y_gain"`
	AlphaDotGain float64    `yaml:"alpha_dot_gain"`
	RF           [2]float64 `yaml:"r_f"`
	Epsilon      float64    `yaml:"epsilon"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Q:            1e3,
		R:            [2]float64{0.85, 1e3},
		XPenalty:     1e4,
		AlphaPenalty: 4e7,
		DotYGain:     5e3,
		AlphaDotGain: 5e5,
		RF:           [2]float64{1, 2e3},
		Epsilon:      1e-6,
	}
}

func (t Tuning) Validate() error {
	gains := map[string]float64{
		"q":              t.Q,
		"r[0]":           t.R[0],
		"r[1]":           t.R[1],
		"x_penalty":      t.XPenalty,
		"alpha_penalty":  t.AlphaPenalty,
		"dot_y_gain":     t.DotYGain,
		"alpha_dot_gain": t.AlphaDotGain,
		"r_f[0]":         t.RF[0],
		"r_f[1]":         t.RF[1],
	}
	for name, v := range gains {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("tuning %s must be finite and non-negative, got %g: %w", name, v, dynamo.ErrParameterBounds)
		}
	}
	if !(t.Epsilon > 0) {
		return fmt.Errorf("tuning epsilon must be positive, got %g: %w", t.Epsilon, dynamo.ErrParameterBounds)
	}
	return nil
}

// Weights builds the stage and terminal weights for a problem starting at
// current. Two terminal entries depend on current:
//
//	QF[y_dot]     = DotYGain / max(|(y - y_target) / (y_target + eps)|, eps)
//	QF[alpha_dot] = AlphaDotGain * |alpha_dot|
//
// The vertical-speed penalty therefore grows as the normalized height error
// shrinks and is capped at DotYGain/eps; Clamped reports when the cap applied.
func (t Tuning) Weights(current, target physics.Pose) (Weights, error) {
	if err := checkFinite("current", current); err != nil {
		return Weights{}, err
	}
	if err := checkFinite("target", target); err != nil {
		return Weights{}, err
	}

	denom := target.Y + t.Epsilon
	if denom == 0 {
		return Weights{}, &dynamo.DomainError{Field: "target.y + epsilon", Value: denom}
	}

	var w Weights
	for i := range w.Q {
		w.Q[i] = t.Q
	}
	w.R = t.R
	w.RF = t.RF

	ratio := math.Abs((current.Y - target.Y) / denom)
	if ratio < t.Epsilon {
		ratio = t.Epsilon
		w.Clamped = true
	}

	w.QF = [physics.StateDim]float64{
		physics.IdxX:        t.XPenalty,
		physics.IdxY:        t.Q,
		physics.IdxAlpha:    t.AlphaPenalty,
		physics.IdxXDot:     t.Q,
		physics.IdxYDot:     t.DotYGain / ratio,
		physics.IdxAlphaDot: t.AlphaDotGain * math.Abs(current.AlphaDot),
	}
	return w, nil
}

func checkFinite(name string, p physics.Pose) error {
	fields := [...]string{"x", "y", "alpha", "x_dot", "y_dot", "alpha_dot"}
	for i, v := range p.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &dynamo.DomainError{Field: name + "." + fields[i], Value: v}
		}
	}
	return nil
}

func (t *Tuning) GetParams() map[string]float64 {
	return map[string]float64{
		"q":              t.Q,
		"r_thrust":       t.R[0],
		"r_gimbal":       t.R[1],
		"x_penalty":      t.XPenalty,
		"alpha_penalty":  t.AlphaPenalty,
		"dot_y_gain":     t.DotYGain,
		"alpha_dot_gain": t.AlphaDotGain,
		"rf_thrust":      t.RF[0],
		"rf_gimbal":      t.RF[1],
	}
}

func (t *Tuning) SetParam(name string, value float64) error {
	switch name {
	case "q":
		t.Q = value
	case "r_thrust":
		t.R[0] = value
	case "r_gimbal":
		t.R[1] = value
	case "x_penalty":
		t.XPenalty = value
	case "alpha_penalty":
		t.AlphaPenalty = value
	case "dot_y_gain":
		t.DotYGain = value
	case "alpha_dot_gain":
		t.AlphaDotGain = value
	case "rf_thrust":
		t.RF[0] = value
	case "rf_gimbal":
		t.RF[1] = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
