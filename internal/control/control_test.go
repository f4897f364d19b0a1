package control

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/physics"
)

var limits = Limits{MaxThrust: -600, GimbalLimit: physics.Radians(60)}

func TestPIDProportional(t *testing.T) {
	p := NewPID(2, 0, 0, 1)
	if got := p.Update(0.25, 0); got != 1.5 {
		t.Errorf("first output = %v, want 1.5", got)
	}
	if got := p.Update(0.5, 0.1); math.Abs(got-1) > 1e-12 {
		t.Errorf("second output = %v, want 1", got)
	}
}

func TestPIDIntegralAndDerivative(t *testing.T) {
	p := NewPID(0, 1, 1, 0)
	p.Update(1, 0)
	// err goes -1 -> -2 over 0.5s: integral -1, derivative -2.
	if got := p.Update(2, 0.5); math.Abs(got-(-3)) > 1e-12 {
		t.Errorf("output = %v, want -3", got)
	}
	p.Reset()
	if got := p.Update(1, 10); got != 0 {
		t.Errorf("output after reset = %v, want 0", got)
	}
}

func TestPIDParams(t *testing.T) {
	var _ dynamo.Configurable = NewPID(1, 0, 0, 0)
	p := NewPID(1, 0, 0, 0)
	if err := p.SetParam("kd", 3); err != nil || p.Kd != 3 {
		t.Errorf("SetParam kd: %v, Kd=%v", err, p.Kd)
	}
	if err := p.SetParam("gain", 1); err == nil {
		t.Error("unknown parameter accepted")
	}
}

func TestHoldRepeatsPrevious(t *testing.T) {
	prev := physics.Control{Thrust: -250, Gimbal: 0.1}
	u, err := NewHold().Recover(Situation{Previous: prev})
	if err != nil || u != prev {
		t.Errorf("Recover = %v, %v", u, err)
	}
}

func TestSafeIsClamped(t *testing.T) {
	f := NewSafe(physics.Control{Thrust: -900, Gimbal: 2}, limits)
	u, _ := f.Recover(Situation{})
	if u.Thrust != -600 || u.Gimbal != limits.GimbalLimit {
		t.Errorf("safe control %v not clamped", u)
	}
}

func TestAbortWrapsCause(t *testing.T) {
	cause := &dynamo.SolveError{Status: "iteration limit"}
	_, err := NewAbort().Recover(Situation{Time: 1.5, Err: cause})
	if !errors.Is(err, ErrAborted) || !errors.Is(err, dynamo.ErrNonConvergence) {
		t.Errorf("err = %v", err)
	}
}

func TestAttitudeLevelsBody(t *testing.T) {
	r := physics.NewRocket()
	f := NewAttitude(r, DefaultAttitudeGains(), limits)

	u, err := f.Recover(Situation{Pose: physics.Pose{Alpha: physics.Radians(-20)}})
	if err != nil {
		t.Fatal(err)
	}
	if u.Gimbal >= 0 {
		t.Errorf("gimbal %v should raise a negative alpha", u.Gimbal)
	}
	ddalpha := r.Derive(physics.Pose{Alpha: physics.Radians(-20)}.State(), u.Vector(), 0)[physics.IdxAlphaDot]
	if ddalpha <= 0 {
		t.Errorf("angular acceleration %v does not raise alpha", ddalpha)
	}
}

func TestAttitudeCancelsGravityWhenUpright(t *testing.T) {
	r := physics.NewRocket()
	f := NewAttitude(r, DefaultAttitudeGains(), limits)
	u, _ := f.Recover(Situation{Pose: physics.Pose{}})
	if u.Gimbal != 0 {
		t.Fatalf("gimbal %v for an upright body", u.Gimbal)
	}
	d := r.Derive(physics.Pose{}.State(), u.Vector(), 0)
	if math.Abs(d[physics.IdxYDot]) > 1e-12 {
		t.Errorf("vertical acceleration %v, want 0", d[physics.IdxYDot])
	}
}

func TestAttitudeSaturatesWhenSideways(t *testing.T) {
	f := NewAttitude(physics.NewRocket(), AttitudeGains{}, limits)
	u, _ := f.Recover(Situation{Pose: physics.Pose{Alpha: math.Pi / 2}})
	if u.Thrust != limits.MaxThrust {
		t.Errorf("thrust %v, want %v", u.Thrust, limits.MaxThrust)
	}
}
