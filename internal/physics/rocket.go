package physics

import (
	"fmt"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/scalar"
)

const (
	DefaultGravity = 9.81
	DefaultMass    = 20.0
	DefaultHeight  = 10.0
)

// Rocket is a uniform rod of the given mass and height with a gimbaled engine
// at its tail, half a body length from the center of mass. Gravity is signed;
// the default is positive with y growing downward.
type Rocket struct {
	Mass    float64 `yaml:"mass"`
	Height  float64 `yaml:"height"`
	Gravity float64 `yaml:"gravity"`
}

func NewRocket() Rocket {
	return Rocket{
		Mass:    DefaultMass,
		Height:  DefaultHeight,
		Gravity: DefaultGravity,
	}
}

func (r Rocket) LeverArm() float64 { return 0.5 * r.Height }
func (r Rocket) Inertia() float64  { return r.Mass * r.Height * r.Height / 12 }

func (r Rocket) Validate() error {
	if r.Mass <= 0 {
		return fmt.Errorf("mass must be positive, got %g: %w", r.Mass, dynamo.ErrParameterBounds)
	}
	if r.Height <= 0 {
		return fmt.Errorf("height must be positive, got %g: %w", r.Height, dynamo.ErrParameterBounds)
	}
	return nil
}

func (r Rocket) StateDim() int   { return StateDim }
func (r Rocket) ControlDim() int { return ControlDim }

// Derive is the plain numeric form of the equations of motion.
func (r Rocket) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return Derive[float64](scalar.Real{}, r, x, u)
}

// Derive evaluates the equations of motion of r in the field f:
//
//	ddot_x     = -(F/m) sin(alpha + theta)
//	ddot_y     =  (F/m) cos(alpha + theta) + g
//	ddot_alpha =  (r/I) F sin(theta)
//
// s is laid out as Pose.Vector and u as Control.Vector.
func Derive[T any](f scalar.Field[T], r Rocket, s, u []T) []T {
	thrust, gimbal := u[IdxThrust], u[IdxGimbal]
	heading := f.Add(s[IdxAlpha], gimbal)
	accel := f.Scale(1/r.Mass, thrust)

	ddx := f.Scale(-1, f.Mul(accel, f.Sin(heading)))
	ddy := f.Add(f.Mul(accel, f.Cos(heading)), f.Const(r.Gravity))
	ddalpha := f.Scale(r.LeverArm()/r.Inertia(), f.Mul(thrust, f.Sin(gimbal)))

	return []T{s[IdxXDot], s[IdxYDot], s[IdxAlphaDot], ddx, ddy, ddalpha}
}

func (r Rocket) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    r.Mass,
		"height":  r.Height,
		"gravity": r.Gravity,
		"inertia": r.Inertia(),
	}
}

func (r *Rocket) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		r.Mass = value
	case "height":
		r.Height = value
	case "gravity":
		r.Gravity = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
