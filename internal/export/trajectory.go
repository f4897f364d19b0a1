package export

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/san-kum/lander/internal/physics"
	"github.com/san-kum/lander/internal/storage"
)

// TrajectoryPlot draws the flown path in the x-y plane against the target.
// The y axis is flipped so the ground is at the bottom.
func TrajectoryPlot(records []storage.Record, target physics.Pose) (*plot.Plot, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records")
	}

	p := plot.New()
	p.Title.Text = "trajectory"
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "height above target (px)"
	p.Add(plotter.NewGrid())

	path := make(plotter.XYs, len(records))
	for i, rec := range records {
		path[i] = plotter.XY{X: rec.Actual.X, Y: target.Y - rec.Actual.Y}
	}
	line, points, err := plotter.NewLinePoints(path)
	if err != nil {
		return nil, err
	}
	line.Color = actualColor
	points.Color = actualColor
	points.Radius = vg.Points(1)
	p.Add(line, points)
	p.Legend.Add("flown", line)

	goal, err := plotter.NewScatter(plotter.XYs{{X: target.X, Y: 0}})
	if err != nil {
		return nil, err
	}
	goal.Shape = draw.CrossGlyph{}
	goal.Color = targetColor
	goal.Radius = vg.Points(5)
	p.Add(goal)
	p.Legend.Add("target", goal)
	return p, nil
}

// SaveTrajectory writes the trajectory plot. The format follows the file
// extension (png, svg, pdf, ...).
func SaveTrajectory(path string, records []storage.Record, target physics.Pose) error {
	p, err := TrajectoryPlot(records, target)
	if err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}
