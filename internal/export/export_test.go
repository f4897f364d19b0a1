package export

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/lander/internal/physics"
	"github.com/san-kum/lander/internal/storage"
)

func descentRecords(n int) []storage.Record {
	recs := make([]storage.Record, n)
	for i := range recs {
		t := float64(i) * 0.02
		actual := physics.Pose{X: 250 + 3*t, Y: 200 + 50*t, Alpha: -1.2 + 0.5*t, YDot: 50}
		next := actual
		next.Y += 1
		recs[i] = storage.Record{
			Time:      t,
			Actual:    actual,
			Predicted: &next,
			Control:   physics.Control{Thrust: -400, Gimbal: -0.3},
		}
	}
	recs[n/2].Predicted = nil
	recs[n/2].Fallback = true
	return recs
}

func TestSaveCharts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts", "run.png")
	opts := DefaultChartOptions()
	opts.DPI = 50

	if err := SaveCharts(path, descentRecords(20), opts); err != nil {
		t.Fatalf("save charts: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("expected PNG output")
	}
}

func TestSaveChartsTooFewRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.png")
	if err := SaveCharts(path, descentRecords(1), DefaultChartOptions()); err == nil {
		t.Error("expected error for a single record")
	}
}

func TestChannelPlots(t *testing.T) {
	recs := descentRecords(10)
	for _, ch := range storage.Channels {
		p, err := ChannelPlot(ch, recs)
		if err != nil {
			t.Fatalf("%s: %v", ch.Name, err)
		}
		if p.Title.Text != ch.Name {
			t.Errorf("expected title %s, got %s", ch.Name, p.Title.Text)
		}
		if p.Y.Min > p.Y.Max {
			t.Errorf("%s: empty y range", ch.Name)
		}
	}
}

func TestSaveTrajectorySVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "path.svg")
	if err := SaveTrajectory(path, descentRecords(15), physics.Pose{X: 400, Y: 780}); err != nil {
		t.Fatalf("save trajectory: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Error("expected SVG output")
	}
}

func TestTrajectoryNoRecords(t *testing.T) {
	if _, err := TrajectoryPlot(nil, physics.Pose{}); err == nil {
		t.Error("expected error without records")
	}
}

func TestXYsDropsNaN(t *testing.T) {
	pts := xys([]float64{0, 1, 2}, []float64{1, math.NaN(), 3})
	if len(pts) != 2 || pts[1].X != 2 {
		t.Errorf("expected NaN dropped, got %v", pts)
	}
}
