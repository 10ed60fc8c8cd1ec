// Package campaign resolves the campaign identifier that ties all reports of
// one diagnostic run together.
package campaign

import (
	"errors"
	"fmt"

	"sindanrelay/internal/phase"
)

// UUIDField is the report field carrying the campaign identifier.
const UUIDField = "log_campaign_uuid"

// ErrUnresolved means no file in the run folder yielded a campaign
// identifier. The folder is left untouched so a later run can retry it.
var ErrUnresolved = errors.New("campaign identifier not found")

// Resolve returns the campaign identifier for the run folder dir.
//
// Precedence: the first campaign_*.json summary file that decodes and carries
// the identifier, then the phase report files in ascending phase order. An
// unreadable or corrupt file falls through to the next candidate.
func Resolve(dir string) (string, error) {
	for _, f := range phase.CampaignFiles(dir) {
		rec, err := phase.DecodeFile(f)
		if err != nil {
			continue
		}
		if id := rec.String(UUIDField); id != "" {
			return id, nil
		}
	}

	for n := 0; n < phase.Count; n++ {
		files, err := phase.Files(dir, n)
		if err != nil {
			continue
		}
		for _, f := range files {
			rec, err := phase.DecodeFile(f)
			if err != nil {
				continue
			}
			if id := rec.String(UUIDField); id != "" {
				return id, nil
			}
		}
	}

	return "", fmt.Errorf("%s: %w", dir, ErrUnresolved)
}
