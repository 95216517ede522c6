package storage

import (
	"encoding/json"
	"io"
	"os"
)

const ReportFile = "report.json"

// Report summarizes a deviation run for later inspection.
type Report struct {
	Name       string             `json:"name"`
	Model      string             `json:"model"`
	Params     map[string]float64 `json:"params"`
	Lx         float64            `json:"lx"`
	Ly         float64            `json:"ly"`
	Nodes      int                `json:"nodes"`
	Directions int                `json:"directions"`
	Topology   string             `json:"topology"`
	Renorm     string             `json:"renorm"`
	TrackID    int                `json:"track_id"`
	Points     int                `json:"points"`
	Interval   float64            `json:"interval"`

	// Separation is the mean log separation of the tracked particle at each
	// sample; GrowthRate is its least-squares slope.
	Separation []float64 `json:"separation"`
	GrowthRate float64   `json:"growth_rate"`

	// Exponents holds the renormalized estimates, empty without renormalization.
	Exponents []float64 `json:"exponents,omitempty"`

	Metrics map[string]float64 `json:"metrics,omitempty"`
	Elapsed float64            `json:"elapsed_seconds"`
}

func WriteReport(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func SaveReport(path string, r *Report) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteReport(file, r); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
