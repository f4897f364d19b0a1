package physics

import "github.com/san-kum/lander/internal/dynamo"

// Plant stands in for the physics collaborator: the same rigid-body model,
// optionally with a different mass than the controller assumes and a constant
// wind acceleration.
type Plant struct {
	Rocket Rocket
	Wind   [2]float64
}

func NewPlant(r Rocket) *Plant {
	return &Plant{Rocket: r}
}

func (p *Plant) StateDim() int   { return StateDim }
func (p *Plant) ControlDim() int { return ControlDim }

func (p *Plant) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	dx := p.Rocket.Derive(x, u, t)
	dx[IdxXDot] += p.Wind[0]
	dx[IdxYDot] += p.Wind[1]
	return dx
}

// Energy is kinetic plus potential energy, with potential measured along the
// gravity direction.
func (p *Plant) Energy(x dynamo.State) float64 {
	r := p.Rocket
	vx, vy, omega := x[IdxXDot], x[IdxYDot], x[IdxAlphaDot]
	ke := 0.5 * r.Mass * (vx*vx + vy*vy)
	keRot := 0.5 * r.Inertia() * omega * omega
	pe := -r.Mass * r.Gravity * x[IdxY]
	return ke + keRot + pe
}
