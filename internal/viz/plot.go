package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/lander/internal/storage"
)

// PlotChannel charts one telemetry channel. Pose channels overlay the
// one-step prediction in red; ticks without a prediction repeat the actual
// value so the two lines meet there.
func PlotChannel(ch storage.Channel, records []storage.Record, width, height int) string {
	if len(records) == 0 {
		return Subtle.Render(ch.Name + ": no data")
	}
	_, actual, predicted := ch.Series(records)
	caption := fmt.Sprintf("%s (%s)", ch.Name, ch.Unit)

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(2),
	}
	if predicted == nil {
		opts = append(opts, asciigraph.Caption(caption))
		return asciigraph.Plot(actual, opts...)
	}

	filled := make([]float64, len(predicted))
	for i, v := range predicted {
		if math.IsNaN(v) {
			v = actual[i]
		}
		filled[i] = v
	}
	opts = append(opts,
		asciigraph.Caption(caption+" blue actual, red predicted"),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
	)
	return asciigraph.PlotMany([][]float64{actual, filled}, opts...)
}
