// Package phase models the seven SINDAN diagnostic phases and merges the raw
// per-phase report files of one run folder into a single record per phase.
package phase

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Count is the number of diagnostic phases (0 through 6).
const Count = 7

var layers = [Count]string{
	"hardware",
	"datalink",
	"interface",
	"localnet",
	"globalnet",
	"dns",
	"app",
}

// Layer returns the layer name for a phase number, or "" if out of range.
func Layer(n int) string {
	if n < 0 || n >= Count {
		return ""
	}
	return layers[n]
}

// Files returns the report files for phase n in dir, sorted by name.
// A missing directory or a phase with no files yields an empty slice.
func Files(dir string, n int) ([]string, error) {
	layer := Layer(n)
	if layer == "" {
		return nil, fmt.Errorf("phase %d out of range", n)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "sindan_"+layer+"_*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// CampaignFiles returns the campaign summary files in dir, sorted by name.
func CampaignFiles(dir string) []string {
	matches, _ := filepath.Glob(filepath.Join(dir, "campaign_*.json"))
	sort.Strings(matches)
	return matches
}

// HasReports reports whether dir contains any phase report file.
func HasReports(dir string) bool {
	for n := 0; n < Count; n++ {
		files, err := Files(dir, n)
		if err == nil && len(files) > 0 {
			return true
		}
	}
	return false
}
