package storage

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/physics"
)

func sampleRecords() []Record {
	pred := physics.Pose{X: 250.1, Y: 200.2, Alpha: -1.2, XDot: 0.5, YDot: 9.8, AlphaDot: 0.3}
	return []Record{
		{
			Time:      0,
			Actual:    physics.Pose{X: 250, Y: 200, Alpha: physics.Radians(-70)},
			Predicted: &pred,
			Control:   physics.Control{Thrust: -450.5, Gimbal: -0.7},
		},
		{
			Time:     0.02,
			Actual:   pred,
			Control:  physics.Control{Thrust: -450.5, Gimbal: -0.7},
			Fallback: true,
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}

	meta := RunMetadata{
		Scenario:  "descent",
		Dt:        0.02,
		Horizon:   5,
		Fallbacks: 1,
		Metrics:   map[string]float64{"prediction_rms": 1e-4},
	}
	id, err := s.Save(meta, sampleRecords())
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.Load(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID != id || loaded.Scenario != "descent" || loaded.Horizon != 5 {
		t.Errorf("metadata mismatch: %+v", loaded)
	}
	if loaded.Metrics["prediction_rms"] != 1e-4 {
		t.Errorf("metric mismatch: %v", loaded.Metrics)
	}

	recs, err := s.LoadTelemetry(id)
	if err != nil {
		t.Fatalf("load telemetry: %v", err)
	}
	want := sampleRecords()
	if len(recs) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(recs))
	}
	for i := range want {
		if recs[i].Time != want[i].Time || recs[i].Actual != want[i].Actual || recs[i].Control != want[i].Control {
			t.Errorf("record %d: expected %+v, got %+v", i, want[i], recs[i])
		}
		if recs[i].Fallback != want[i].Fallback {
			t.Errorf("record %d: fallback flag lost", i)
		}
	}
	if recs[0].Predicted == nil || *recs[0].Predicted != *want[0].Predicted {
		t.Errorf("prediction mismatch: %+v", recs[0].Predicted)
	}
	if recs[1].Predicted != nil {
		t.Errorf("expected no prediction on fallback row, got %+v", recs[1].Predicted)
	}
}

func TestListAndLatest(t *testing.T) {
	s := New(t.TempDir())

	if _, err := s.Latest(); !errors.Is(err, ErrNoRuns) {
		t.Errorf("expected ErrNoRuns, got %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"b", "a", "c"} {
		meta := RunMetadata{ID: name, Scenario: name, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if _, err := s.Save(meta, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(s.baseDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "b" || runs[2].ID != "c" {
		t.Errorf("expected runs ordered by time, got %s %s %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	latest, err := s.Latest()
	if err != nil || latest != "c" {
		t.Errorf("expected latest c, got %q (%v)", latest, err)
	}
}

func TestListMissingDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "none"))
	runs, err := s.List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected empty list, got %v (%v)", runs, err)
	}
}

func TestEmptyTelemetry(t *testing.T) {
	s := New(t.TempDir())
	id, err := s.Save(RunMetadata{Scenario: "empty"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	recs, err := s.LoadTelemetry(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no records, got %d", len(recs))
	}
}

func TestCorruptTelemetry(t *testing.T) {
	s := New(t.TempDir())
	id, err := s.Save(RunMetadata{Scenario: "bad"}, sampleRecords())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(s.baseDir, id, telemetryFile)
	data := "time,x,y,alpha,x_dot,y_dot,alpha_dot,pred_x,pred_y,pred_alpha,pred_x_dot,pred_y_dot,pred_alpha_dot,thrust,gimbal,fallback\n" +
		"0,oops,0,0,0,0,0,,,,,,,0,0,false\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadTelemetry(id); err == nil {
		t.Error("expected parse error")
	}
}

func TestRecordsFromSamples(t *testing.T) {
	start := physics.Pose{X: 1, Y: 2}
	next := physics.Pose{X: 1.5, Y: 2.5}
	samples := []dynamo.Sample{
		{Time: 0, State: start.State(), Control: dynamo.Control{-100, 0.1}, Predicted: next.State()},
		{Time: 0.02, State: next.State(), Control: dynamo.Control{-100, 0.1}, Fallback: true},
	}

	recs, err := RecordsFromSamples(samples)
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].Predicted == nil || *recs[0].Predicted != next {
		t.Errorf("expected prediction %v, got %v", next, recs[0].Predicted)
	}
	if recs[1].Predicted != nil || !recs[1].Fallback {
		t.Errorf("fallback row mismatch: %+v", recs[1])
	}
	if recs[0].Control.Thrust != -100 {
		t.Errorf("expected thrust -100, got %g", recs[0].Control.Thrust)
	}

	samples[0].State = dynamo.State{1, 2}
	if _, err := RecordsFromSamples(samples); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
}

func TestChannelSeries(t *testing.T) {
	recs := sampleRecords()

	alpha, ok := ChannelByName("alpha")
	if !ok || !alpha.HasPrediction() {
		t.Fatal("expected alpha channel with prediction")
	}
	times, actual, predicted := alpha.Series(recs)
	if len(times) != 2 || times[1] != 0.02 {
		t.Errorf("unexpected times %v", times)
	}
	if math.Abs(actual[0]+70) > 1e-9 {
		t.Errorf("expected -70 deg, got %g", actual[0])
	}
	if !math.IsNaN(predicted[0]) {
		t.Errorf("expected no prediction for the first tick, got %g", predicted[0])
	}
	if math.Abs(predicted[1]-physics.Degrees(-1.2)) > 1e-9 {
		t.Errorf("expected prediction of tick 0 at tick 1, got %g", predicted[1])
	}

	thrust, _ := ChannelByName("thrust")
	if thrust.HasPrediction() {
		t.Error("thrust has no prediction")
	}
	_, actual, predicted = thrust.Series(recs)
	if predicted != nil || actual[0] != 450.5 {
		t.Errorf("expected thrust magnitude 450.5, got %v %v", actual, predicted)
	}

	if _, ok := ChannelByName("z"); ok {
		t.Error("expected unknown channel")
	}
}
