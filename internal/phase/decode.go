package phase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Record is one raw diagnostic report decoded from a sindan_*.json or
// campaign_*.json file. Field sets vary by diagnostic-tool version, so the
// decode is fully generic.
type Record map[string]any

// String returns the value of key if it is a non-empty string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// DecodeError marks a single report file that could not be parsed. It is
// recoverable: the pipeline skips the file and continues with the rest of the
// folder.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeFile reads and decodes one report file. Files carrying a
// wlan_environment scan get their detail field re-escaped first, since the
// diagnostic client writes the raw scan table into the JSON unescaped.
func DecodeFile(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if strings.Contains(filepath.Base(path), "wlan_environment") {
		data = escapeWlanDetail(data)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return r, nil
}

var (
	wlanDetailStart = regexp.MustCompile(`"detail"\s*:\s*"`)
	wlanDetailEnd   = regexp.MustCompile(`",\s*"occurred_at"`)
)

// escapeWlanDetail rewrites the detail value of a wlan_environment report so
// the document parses as JSON. The value is the scan table verbatim, with
// literal newlines and quotes, delimited by `"detail" : "` in front and
// `", "occurred_at"` behind.
func escapeWlanDetail(data []byte) []byte {
	s := string(data)
	m := wlanDetailStart.FindStringIndex(s)
	if m == nil {
		return data
	}
	start := m[1]
	em := wlanDetailEnd.FindStringIndex(s[start:])
	if em == nil {
		return data
	}
	end := start + em[0]

	detail := s[start:end]
	detail = strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	).Replace(detail)

	return []byte(s[:start] + detail + s[end:])
}
