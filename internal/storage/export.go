package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/quadsim/internal/geom"
)

type ExportData struct {
	Run    RunMetadata  `json:"run"`
	Steps  []StepRecord `json:"steps"`
	Points []geom.Point `json:"points"`
}

// ExportJSON writes a run's metadata, step history and final snapshot.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	steps, err := s.LoadSteps(runID)
	if err != nil {
		return err
	}
	pts, err := s.LoadSnapshot(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Run: *meta, Steps: steps, Points: pts})
}
