// Package viz renders runs in the terminal.
//
//   - [Scene]: the vehicle and its path on a Braille [Canvas]
//   - [PlotChannel]: actual vs predicted telemetry as an asciigraph chart
//   - [TickReport]: the per-tick console line
package viz
