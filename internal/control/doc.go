// Package control provides the fallback policies applied when a horizon
// solve fails:
//
//   - [Hold]: repeat the previously applied control
//   - [Safe]: apply a fixed control
//   - [Attitude]: PID on the body angle through the gimbal, with thrust
//     chosen to cancel gravity
//   - [Abort]: fail the run
//
// # Usage
//
//	fb := control.NewAttitude(rocket, control.DefaultAttitudeGains(), limits)
//	u, err := fb.Recover(control.Situation{Pose: pose, Previous: last, Err: err})
//
// Policies with tunable gains implement [dynamo.Configurable].
package control
