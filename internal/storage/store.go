// Package storage persists closed-loop runs as a directory per run holding
// metadata.json and telemetry.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/physics"
)

const (
	metadataFile  = "metadata.json"
	telemetryFile = "telemetry.csv"
)

var ErrNoRuns = errors.New("storage: no stored runs")

var telemetryHeader = []string{
	"time",
	"x", "y", "alpha", "x_dot", "y_dot", "alpha_dot",
	"pred_x", "pred_y", "pred_alpha", "pred_x_dot", "pred_y_dot", "pred_alpha_dot",
	"thrust", "gimbal", "fallback",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scenario   string             `json:"scenario"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Horizon    int                `json:"horizon"`
	Integrator string             `json:"integrator"`
	Fallback   string             `json:"fallback"`
	Initial    physics.Pose       `json:"initial"`
	Target     physics.Pose       `json:"target"`
	Final      physics.Pose       `json:"final"`
	Steps      int                `json:"steps"`
	Fallbacks  int                `json:"fallbacks"`
	Touchdown  bool               `json:"touchdown"`
	Error      string             `json:"error,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Record is one telemetry row. Predicted is nil for fallback ticks.
type Record struct {
	Time      float64
	Actual    physics.Pose
	Predicted *physics.Pose
	Control   physics.Control
	Fallback  bool
}

// RecordsFromSamples converts loop samples into telemetry rows.
func RecordsFromSamples(samples []dynamo.Sample) ([]Record, error) {
	records := make([]Record, 0, len(samples))
	for _, s := range samples {
		actual, err := physics.PoseFromState(s.State)
		if err != nil {
			return nil, fmt.Errorf("sample at t=%g: %w", s.Time, err)
		}
		u, err := physics.ControlFromVector(s.Control)
		if err != nil {
			return nil, fmt.Errorf("sample at t=%g: %w", s.Time, err)
		}
		rec := Record{Time: s.Time, Actual: actual, Control: u, Fallback: s.Fallback}
		if s.Predicted != nil {
			p, err := physics.PoseFromState(s.Predicted)
			if err != nil {
				return nil, fmt.Errorf("prediction at t=%g: %w", s.Time, err)
			}
			rec.Predicted = &p
		}
		records = append(records, rec)
	}
	return records, nil
}

// Save writes a run and returns its ID. An empty meta.ID is generated from
// the scenario name and the timestamp.
func (s *Store) Save(meta RunMetadata, records []Record) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%d", meta.Scenario, meta.Timestamp.UnixNano())
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, telemetryFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(telemetryHeader); err != nil {
		return "", err
	}
	for _, rec := range records {
		if err := w.Write(formatRecord(rec)); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func formatRecord(rec Record) []string {
	row := make([]string, 0, len(telemetryHeader))
	row = append(row, formatFloat(rec.Time))
	for _, v := range rec.Actual.Vector() {
		row = append(row, formatFloat(v))
	}
	if rec.Predicted != nil {
		for _, v := range rec.Predicted.Vector() {
			row = append(row, formatFloat(v))
		}
	} else {
		for range physics.StateDim {
			row = append(row, "")
		}
	}
	row = append(row, formatFloat(rec.Control.Thrust), formatFloat(rec.Control.Gimbal), strconv.FormatBool(rec.Fallback))
	return row
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns stored runs, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

// Latest returns the ID of the most recent run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrNoRuns
	}
	return runs[len(runs)-1].ID, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadTelemetry(runID string) ([]Record, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, telemetryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(telemetryHeader)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if len(rows) < 2 {
		return []Record{}, nil
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRecord(row)
		if err != nil {
			return nil, fmt.Errorf("run %s row %d: %w", runID, i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRecord(row []string) (Record, error) {
	var rec Record
	vals := make([]float64, 0, 1+2*physics.StateDim+physics.ControlDim)
	predicted := row[1+physics.StateDim] != ""
	for j, field := range row[:len(row)-1] {
		if field == "" && j > physics.StateDim && j <= 2*physics.StateDim {
			vals = append(vals, 0)
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return rec, fmt.Errorf("column %s: %w", telemetryHeader[j], err)
		}
		vals = append(vals, v)
	}
	fallback, err := strconv.ParseBool(row[len(row)-1])
	if err != nil {
		return rec, fmt.Errorf("column fallback: %w", err)
	}

	rec.Time = vals[0]
	rec.Actual, _ = physics.PoseFromState(vals[1 : 1+physics.StateDim])
	if predicted {
		p, _ := physics.PoseFromState(vals[1+physics.StateDim : 1+2*physics.StateDim])
		rec.Predicted = &p
	}
	off := 1 + 2*physics.StateDim
	rec.Control = physics.Control{Thrust: vals[off+physics.IdxThrust], Gimbal: vals[off+physics.IdxGimbal]}
	rec.Fallback = fallback
	return rec, nil
}
