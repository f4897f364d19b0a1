// Package export renders stored telemetry as image files with gonum/plot.
package export

import (
	"bufio"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/lander/internal/storage"
)

var (
	actualColor    = color.RGBA{R: 40, G: 140, B: 255, A: 255}
	predictedColor = color.RGBA{R: 240, G: 70, B: 70, A: 255}
	targetColor    = color.RGBA{R: 60, G: 200, B: 120, A: 255}
)

// ChartOptions sizes the telemetry chart grid.
type ChartOptions struct {
	Width, Height vg.Length
	DPI           int
	Cols          int
}

func DefaultChartOptions() ChartOptions {
	return ChartOptions{
		Width:  12 * vg.Inch,
		Height: 9 * vg.Inch,
		DPI:    150,
		Cols:   2,
	}
}

// ChannelPlot plots one channel over time. Pose channels carry the one-step
// prediction as a dashed second line.
func ChannelPlot(ch storage.Channel, records []storage.Record) (*plot.Plot, error) {
	times, actual, predicted := ch.Series(records)

	p := plot.New()
	p.Title.Text = ch.Name
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = fmt.Sprintf("%s (%s)", ch.Name, ch.Unit)
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(xys(times, actual))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ch.Name, err)
	}
	line.Color = actualColor
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("actual", line)

	if predicted != nil {
		pts := xys(times, predicted)
		if len(pts) > 0 {
			pl, err := plotter.NewLine(pts)
			if err != nil {
				return nil, fmt.Errorf("%s prediction: %w", ch.Name, err)
			}
			pl.Color = predictedColor
			pl.Width = vg.Points(1.5)
			pl.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
			p.Add(pl)
			p.Legend.Add("predicted", pl)
		}
	}
	p.Legend.Top = true
	return p, nil
}

// SaveCharts writes all telemetry channels as one PNG grid.
func SaveCharts(path string, records []storage.Record, opts ChartOptions) error {
	if len(records) < 2 {
		return fmt.Errorf("need at least 2 records to chart, got %d", len(records))
	}
	if opts.Cols < 1 {
		opts.Cols = 1
	}
	rows := (len(storage.Channels) + opts.Cols - 1) / opts.Cols

	plots := make([][]*plot.Plot, rows)
	for j := range plots {
		plots[j] = make([]*plot.Plot, opts.Cols)
	}
	for i, ch := range storage.Channels {
		p, err := ChannelPlot(ch, records)
		if err != nil {
			return err
		}
		plots[i/opts.Cols][i%opts.Cols] = p
	}

	img := vgimg.NewWith(vgimg.UseWH(opts.Width, opts.Height), vgimg.UseDPI(opts.DPI))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      opts.Cols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i := range plots[j] {
			if plots[j][i] != nil {
				plots[j][i].Draw(canvases[j][i])
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(bw); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return bw.Flush()
}

// xys pairs times with values, dropping NaN entries.
func xys(times, values []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		pts = append(pts, plotter.XY{X: times[i], Y: v})
	}
	return pts
}
