// Package scan selects the run folders eligible for one pipeline invocation.
package scan

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// TimestampLayout is the folder-name layout the diagnostic client uses,
// local time of folder creation.
const TimestampLayout = "20060102150405"

// Select returns the immediate subdirectories of root whose 14-digit
// timestamp name falls within [now-width, now], sorted by name ascending.
//
// Entries with other names, or timestamps outside the window, are ignored:
// they are either still being written, stale leftovers a later invocation
// retries, or simply not run folders. A missing root yields an empty result.
func Select(root string, now time.Time, width time.Duration) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	lower := now.Add(-width)

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ts, ok := parseName(e.Name())
		if !ok {
			continue
		}
		if ts.Before(lower) || ts.After(now) {
			continue
		}
		dirs = append(dirs, filepath.Join(root, e.Name()))
	}
	sort.Strings(dirs)
	return dirs, nil
}

func parseName(name string) (time.Time, bool) {
	if len(name) != len(TimestampLayout) {
		return time.Time{}, false
	}
	for _, c := range name {
		if c < '0' || c > '9' {
			return time.Time{}, false
		}
	}
	ts, err := time.ParseInLocation(TimestampLayout, name, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
