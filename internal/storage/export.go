package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/san-kum/armsim/internal/dynamo"
)

type ExportData struct {
	RunMetadata
	Steps   int         `json:"steps"`
	Times   []float64   `json:"times"`
	Q       [][]float64 `json:"qpos"`
	Targets [][]float64 `json:"targets"`
}

func newExportData(meta RunMetadata, result *dynamo.Result) ExportData {
	data := ExportData{
		RunMetadata: meta,
		Steps:       result.Len(),
		Times:       result.Times,
		Q:           make([][]float64, len(result.Q)),
		Targets:     make([][]float64, len(result.Target)),
	}
	for i, q := range result.Q {
		data.Q[i] = q
	}
	for i, t := range result.Target {
		data.Targets[i] = t
	}
	return data
}

// WriteJSON encodes a run, metadata and trajectory, to w.
func WriteJSON(w io.Writer, meta RunMetadata, result *dynamo.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newExportData(meta, result))
}

func ExportJSON(path string, meta RunMetadata, result *dynamo.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()
	return WriteJSON(f, meta, result)
}

// ExportCSV copies a run's states.csv to w.
func (s *Store) ExportCSV(runID string, w io.Writer) error {
	f, err := os.Open(s.statesPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(ErrRunNotFound, runID)
		}
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
