package storage

import (
	"math"

	"github.com/san-kum/lander/internal/physics"
)

// Channel is one plotted telemetry quantity in display units.
type Channel struct {
	Name string
	Unit string
	pose func(physics.Pose) float64
	ctrl func(physics.Control) float64
}

// Channels are the quantities charted for a run: the four pose components the
// controller predicts and the two commands.
var Channels = []Channel{
	{Name: "alpha", Unit: "deg", pose: func(p physics.Pose) float64 { return physics.Degrees(p.Alpha) }},
	{Name: "alpha_dot", Unit: "deg/s", pose: func(p physics.Pose) float64 { return physics.Degrees(p.AlphaDot) }},
	{Name: "y_dot", Unit: "px/s", pose: func(p physics.Pose) float64 { return p.YDot }},
	{Name: "x", Unit: "px", pose: func(p physics.Pose) float64 { return p.X }},
	{Name: "gimbal", Unit: "deg", ctrl: func(u physics.Control) float64 { return physics.Degrees(u.Gimbal) }},
	{Name: "thrust", Unit: "N", ctrl: func(u physics.Control) float64 { return -u.Thrust }},
}

func ChannelByName(name string) (Channel, bool) {
	for _, c := range Channels {
		if c.Name == name {
			return c, true
		}
	}
	return Channel{}, false
}

// HasPrediction reports whether the channel is a predicted pose component.
func (c Channel) HasPrediction() bool { return c.pose != nil }

// Series extracts the channel from records. The predicted series is aligned
// with the time it predicts: entry i holds the prediction made at tick i-1,
// or NaN when that tick had none. It is nil for command channels.
func (c Channel) Series(records []Record) (times, actual, predicted []float64) {
	times = make([]float64, len(records))
	actual = make([]float64, len(records))
	if c.pose != nil {
		predicted = make([]float64, len(records))
	}
	for i, rec := range records {
		times[i] = rec.Time
		if c.pose != nil {
			actual[i] = c.pose(rec.Actual)
			predicted[i] = math.NaN()
			if i > 0 && records[i-1].Predicted != nil {
				predicted[i] = c.pose(*records[i-1].Predicted)
			}
		} else {
			actual[i] = c.ctrl(rec.Control)
		}
	}
	return times, actual, predicted
}
