// Package aggregate writes the per-run summary artifact: one CSV with a row
// per merged phase, stored inside the run folder itself.
package aggregate

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"sindanrelay/internal/phase"
)

// Filename is the fixed artifact name inside each run folder.
const Filename = "allphase.csv"

var header = []string{"timestamp", "phase", "layer", "campaign_uuid", "data_count", "data_json"}

// WriteCSV writes the artifact for the given reports into dir, replacing any
// previous artifact. The write goes to a temp file first and is renamed into
// place, so a crash never leaves a half-written artifact and reruns stay
// idempotent.
func WriteCSV(dir string, reports []*phase.Report) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+Filename+".*")
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write artifact header: %w", err)
	}
	for _, rep := range reports {
		dataJSON, err := json.Marshal(rep.Data)
		if err != nil {
			tmp.Close()
			return "", fmt.Errorf("encode phase %d data: %w", rep.Phase, err)
		}
		row := []string{
			rep.Timestamp,
			strconv.Itoa(rep.Phase),
			rep.Layer,
			rep.CampaignUUID,
			strconv.Itoa(len(rep.Data)),
			string(dataJSON),
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return "", fmt.Errorf("write phase %d row: %w", rep.Phase, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("flush artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp artifact: %w", err)
	}

	path := filepath.Join(dir, Filename)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("publish artifact: %w", err)
	}
	return path, nil
}
