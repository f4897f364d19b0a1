package storage

import (
	"encoding/json"
	"io"
	"os"
)

// ExportData is the single-document JSON form of a stored run. Predicted
// rows are null on fallback ticks.
type ExportData struct {
	RunMetadata
	Times     []float64   `json:"times"`
	Actual    [][]float64 `json:"actual"`
	Predicted [][]float64 `json:"predicted"`
	Controls  [][]float64 `json:"controls"`
	Fallback  []bool      `json:"fallback"`
}

func NewExportData(meta RunMetadata, records []Record) ExportData {
	data := ExportData{
		RunMetadata: meta,
		Times:       make([]float64, len(records)),
		Actual:      make([][]float64, len(records)),
		Predicted:   make([][]float64, len(records)),
		Controls:    make([][]float64, len(records)),
		Fallback:    make([]bool, len(records)),
	}
	for i, rec := range records {
		data.Times[i] = rec.Time
		data.Actual[i] = rec.Actual.State()
		if rec.Predicted != nil {
			data.Predicted[i] = rec.Predicted.State()
		}
		data.Controls[i] = rec.Control.Vector()
		data.Fallback[i] = rec.Fallback
	}
	return data
}

func WriteJSON(w io.Writer, meta RunMetadata, records []Record) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(meta, records))
}

func ExportJSON(path string, meta RunMetadata, records []Record) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, meta, records)
}
