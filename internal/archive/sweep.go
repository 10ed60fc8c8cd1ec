package archive

import (
	"os"
	"path/filepath"
	"time"

	"sindanrelay/internal/logging"
)

// Sweep deletes archive zips in root older than maxAge, judged by file
// modification time. Runs once per pipeline invocation. Per-file failures are
// logged and skipped; a missing root is a no-op. Returns the number of
// archives removed.
func Sweep(root string, now time.Time, maxAge time.Duration) int {
	logger := logging.New("retention")

	matches, err := filepath.Glob(filepath.Join(root, "*.zip"))
	if err != nil {
		logger.Warn("archive scan failed", "root", root, "error", err)
		return 0
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			logger.Warn("stat failed, skipping", "archive", path, "error", err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			logger.Warn("delete failed, skipping", "archive", path, "error", err)
			continue
		}
		logger.Info("expired archive removed", "archive", path, "age", now.Sub(info.ModTime()).Round(time.Hour))
		removed++
	}
	return removed
}
