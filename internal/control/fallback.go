package control

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/lander/internal/physics"
)

var ErrAborted = errors.New("control: run aborted by fallback policy")

// Situation describes a failed tick.
type Situation struct {
	Time     float64
	Pose     physics.Pose
	Previous physics.Control
	// Best is the best iterate of a solve that did not converge, nil when
	// the solve produced nothing.
	Best *physics.Control
	Err  error
}

// Fallback picks the control applied after a failed solve.
type Fallback interface {
	Name() string
	Recover(s Situation) (physics.Control, error)
}

// Limits is the control box every fallback output is clamped to.
type Limits struct {
	MaxThrust   float64
	GimbalLimit float64
}

func (l Limits) Clamp(u physics.Control) physics.Control {
	return physics.Control{
		Thrust: math.Min(math.Max(u.Thrust, l.MaxThrust), 0),
		Gimbal: math.Min(math.Max(u.Gimbal, -l.GimbalLimit), l.GimbalLimit),
	}
}

type Hold struct{}

func NewHold() *Hold { return &Hold{} }

func (*Hold) Name() string { return "hold" }

func (*Hold) Recover(s Situation) (physics.Control, error) {
	return s.Previous, nil
}

// Safe applies one fixed control, zero gimbal and no thrust by default.
type Safe struct {
	Control physics.Control
}

func NewSafe(u physics.Control, limits Limits) *Safe {
	return &Safe{Control: limits.Clamp(u)}
}

func (*Safe) Name() string { return "safe" }

func (f *Safe) Recover(Situation) (physics.Control, error) {
	return f.Control, nil
}

type Abort struct{}

func NewAbort() *Abort { return &Abort{} }

func (*Abort) Name() string { return "abort" }

func (*Abort) Recover(s Situation) (physics.Control, error) {
	return physics.Control{}, fmt.Errorf("%w at t=%.3f: %w", ErrAborted, s.Time, s.Err)
}

type AttitudeGains struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

func DefaultAttitudeGains() AttitudeGains {
	return AttitudeGains{Kp: 2, Ki: 0, Kd: 0.5}
}

// Attitude levels the body with the gimbal and sets thrust so its vertical
// component cancels gravity. It keeps PID state across ticks; call Reset
// between runs.
type Attitude struct {
	rocket physics.Rocket
	limits Limits
	pid    *PID
}

func NewAttitude(r physics.Rocket, gains AttitudeGains, limits Limits) *Attitude {
	return &Attitude{
		rocket: r,
		limits: limits,
		pid:    NewPID(gains.Kp, gains.Ki, gains.Kd, 0),
	}
}

func (*Attitude) Name() string { return "attitude" }

func (f *Attitude) Recover(s Situation) (physics.Control, error) {
	// With attractive thrust a negative gimbal raises alpha.
	gimbal := -f.pid.Update(s.Pose.Alpha, s.Time)
	u := f.limits.Clamp(physics.Control{Gimbal: gimbal})

	c := math.Cos(s.Pose.Alpha + u.Gimbal)
	if c > 1e-3 {
		u.Thrust = -f.rocket.Mass * f.rocket.Gravity / c
	} else {
		u.Thrust = f.limits.MaxThrust
	}
	return f.limits.Clamp(u), nil
}

func (f *Attitude) Reset() { f.pid.Reset() }

func (f *Attitude) GetParams() map[string]float64 { return f.pid.GetParams() }

func (f *Attitude) SetParam(name string, value float64) error {
	return f.pid.SetParam(name, value)
}
