// Package physics provides the planar gimbaled-thrust vehicle model.
//
// [Rocket] implements [dynamo.System] for plain numeric simulation and
// prediction. The equations of motion themselves live in the generic [Derive]
// so the solver can evaluate the identical definition with dual numbers:
//
//	ds := physics.Derive[float64](scalar.Real{}, rocket, s, u)
//
// [Plant] wraps a Rocket with disturbances and serves as the physics
// collaborator in closed-loop runs.
package physics
