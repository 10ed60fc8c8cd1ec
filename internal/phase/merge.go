package phase

import (
	"strconv"
	"strings"
	"time"
)

// Report is the merged record for one phase of one diagnostic run. It is the
// unit of publishing and one row of the aggregated artifact.
type Report struct {
	Phase        int            `json:"phase"`
	Layer        string         `json:"layer"`
	CampaignUUID string         `json:"campaign_uuid"`
	Timestamp    string         `json:"timestamp"`
	Data         map[string]any `json:"data"`
}

type entry struct {
	value      any
	occurredAt string
}

// Merge combines the raw records of phase n that belong to campaignID into a
// single Report. Returns nil when no record matches.
//
// Phases 0-3 key data by log_type; when the same log_type occurs more than
// once the record with the latest occurred_at wins. Phases 4-6 (globalnet,
// dns, app) run one measurement per target, so data is keyed target first,
// then log_type, and numeric-looking details are converted to numbers.
func Merge(n int, campaignID string, records []Record, now time.Time) *Report {
	layer := Layer(n)
	if layer == "" {
		return nil
	}

	var matched []Record
	for _, r := range records {
		if r.String("log_campaign_uuid") == campaignID {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	byTarget := n >= 4 // globalnet, dns, app

	var latest string
	flat := make(map[string]entry)
	nested := make(map[string]map[string]entry)

	for _, r := range matched {
		occurredAt := r.String("occurred_at")
		if occurredAt > latest {
			latest = occurredAt
		}

		logType := r.String("log_type")
		if logType == "" {
			continue
		}

		detail := r["detail"]
		if logType == "wlan_environment" {
			if s, ok := detail.(string); ok {
				if rows := parseScanTable(s); rows != nil {
					detail = rows
				}
			}
		}

		if target := r.String("target"); byTarget && target != "" {
			m := nested[target]
			if m == nil {
				m = make(map[string]entry)
				nested[target] = m
			}
			if prev, ok := m[logType]; !ok || occurredAt > prev.occurredAt {
				m[logType] = entry{value: numericDetail(detail), occurredAt: occurredAt}
			}
			continue
		}
		if prev, ok := flat[logType]; !ok || occurredAt > prev.occurredAt {
			flat[logType] = entry{value: detail, occurredAt: occurredAt}
		}
	}

	data := make(map[string]any, len(flat)+len(nested))
	for logType, e := range flat {
		data[logType] = e.value
	}
	for target, m := range nested {
		values := make(map[string]any, len(m))
		for logType, e := range m {
			values[logType] = e.value
		}
		data[target] = values
	}

	timestamp := latest
	if timestamp == "" {
		timestamp = now.Format(time.RFC3339)
	}

	return &Report{
		Phase:        n,
		Layer:        layer,
		CampaignUUID: campaignID,
		Timestamp:    timestamp,
		Data:         data,
	}
}

// LoadReports decodes and merges every phase present in dir. Per-file decode
// failures are returned as warnings; they never abort the folder.
func LoadReports(dir, campaignID string, now time.Time) ([]*Report, []error) {
	var reports []*Report
	var warnings []error

	for n := 0; n < Count; n++ {
		files, err := Files(dir, n)
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		var records []Record
		for _, f := range files {
			r, err := DecodeFile(f)
			if err != nil {
				warnings = append(warnings, err)
				continue
			}
			records = append(records, r)
		}
		if rep := Merge(n, campaignID, records, now); rep != nil {
			reports = append(reports, rep)
		}
	}
	return reports, warnings
}

// numericDetail converts a numeric-looking string detail to an int or float
// so measurement values publish as JSON numbers.
func numericDetail(detail any) any {
	s, ok := detail.(string)
	if !ok || s == "" {
		return detail
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return detail
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	return detail
}

// parseScanTable converts the CSV-shaped wlan_environment detail into an
// array of rows keyed by the header line. Returns nil when the text has no
// header-plus-data shape, leaving the original string in place.
func parseScanTable(detail string) []map[string]string {
	normalized := strings.ReplaceAll(detail, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(strings.TrimSpace(normalized), "\n")
	if len(lines) < 2 {
		return nil
	}

	headers := strings.Split(lines[0], ",")
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var rows []map[string]string
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := strings.Split(line, ",")
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(values) {
				row[h] = strings.TrimSpace(values[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}
	return rows
}
