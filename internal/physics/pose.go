package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/lander/internal/dynamo"
)

// State vector layout shared by Pose, the dynamics and the cost model.
const (
	IdxX = iota
	IdxY
	IdxAlpha
	IdxXDot
	IdxYDot
	IdxAlphaDot
	StateDim
)

// Control vector layout.
const (
	IdxThrust = iota
	IdxGimbal
	ControlDim
)

// Pose is the planar state of the vehicle. Alpha is in radians and is never
// wrapped.
type Pose struct {
	X        float64 `yaml:"x" json:"x"`
	Y        float64 `yaml:"y" json:"y"`
	Alpha    float64 `yaml:"alpha" json:"alpha"`
	XDot     float64 `yaml:"x_dot" json:"x_dot"`
	YDot     float64 `yaml:"y_dot" json:"y_dot"`
	AlphaDot float64 `yaml:"alpha_dot" json:"alpha_dot"`
}

func (p Pose) Vector() [StateDim]float64 {
	return [StateDim]float64{p.X, p.Y, p.Alpha, p.XDot, p.YDot, p.AlphaDot}
}

func (p Pose) State() dynamo.State {
	v := p.Vector()
	return dynamo.State(v[:])
}

// PoseFromState reads a pose from a state vector of length StateDim.
func PoseFromState(x dynamo.State) (Pose, error) {
	if len(x) != StateDim {
		return Pose{}, fmt.Errorf("pose from %d-vector: %w", len(x), dynamo.ErrDimensionMismatch)
	}
	return Pose{
		X:        x[IdxX],
		Y:        x[IdxY],
		Alpha:    x[IdxAlpha],
		XDot:     x[IdxXDot],
		YDot:     x[IdxYDot],
		AlphaDot: x[IdxAlphaDot],
	}, nil
}

func (p Pose) IsValid() bool {
	return p.State().IsValid()
}

func (p Pose) String() string {
	return fmt.Sprintf("x=%.2f, y=%.2f, alpha=%.2f, x_dot=%.2f, y_dot=%.2f, alpha_dot=%.2f",
		p.X, p.Y, Degrees(p.Alpha), p.XDot, p.YDot, Degrees(p.AlphaDot))
}

// WeightedDistance is sqrt(sum w_i (a_i - b_i)^2).
func WeightedDistance(a, b Pose, w [StateDim]float64) float64 {
	va, vb := a.Vector(), b.Vector()
	sum := 0.0
	for i := range va {
		d := va[i] - vb[i]
		sum += w[i] * d * d
	}
	return math.Sqrt(sum)
}

// Control is a thrust/gimbal pair. Thrust is non-positive (attractive
// convention); Gimbal is in radians relative to the body axis.
type Control struct {
	Thrust float64 `json:"thrust"`
	Gimbal float64 `json:"gimbal"`
}

func (c Control) Vector() dynamo.Control {
	return dynamo.Control{c.Thrust, c.Gimbal}
}

func ControlFromVector(u dynamo.Control) (Control, error) {
	if len(u) != ControlDim {
		return Control{}, fmt.Errorf("control from %d-vector: %w", len(u), dynamo.ErrDimensionMismatch)
	}
	return Control{Thrust: u[IdxThrust], Gimbal: u[IdxGimbal]}, nil
}

func (c Control) String() string {
	return fmt.Sprintf("thrust=%.2f, gimbal=%.2f", -c.Thrust, Degrees(c.Gimbal))
}

func Radians(deg float64) float64 { return deg * math.Pi / 180 }
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }
