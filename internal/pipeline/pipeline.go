// Package pipeline sequences one scheduled invocation: select eligible run
// folders, then per folder resolve campaign, merge phases, write the CSV
// artifact, publish, and archive; finally sweep expired archives. Folder
// state lives on the filesystem, so a failed folder is simply retried by the
// next invocation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"sindanrelay/internal/aggregate"
	"sindanrelay/internal/archive"
	"sindanrelay/internal/campaign"
	"sindanrelay/internal/config"
	"sindanrelay/internal/logging"
	"sindanrelay/internal/phase"
	"sindanrelay/internal/publish"
	"sindanrelay/internal/scan"
)

// Status of one folder after an invocation.
type Status string

const (
	// StatusArchived: every present phase published and the folder was
	// moved, zipped and removed from the unsent root.
	StatusArchived Status = "archived"
	// StatusSkipped: nothing usable in the folder this round; left in place.
	StatusSkipped Status = "skipped"
	// StatusFailed: an error stopped the folder short of archival; left in
	// place (or flagged in the archive root) for retry or intervention.
	StatusFailed Status = "failed"
)

// FolderResult is the outcome of one run folder.
type FolderResult struct {
	Folder      string
	Campaign    string
	Phases      []int
	Outcomes    []publish.Outcome
	ArchivePath string
	Status      Status
	Err         error
}

// Summary aggregates one invocation for logging and exit-status decisions.
type Summary struct {
	Results       []FolderResult
	SweptArchives int
}

// Counts returns how many folders were archived, skipped and failed.
func (s *Summary) Counts() (archived, skipped, failed int) {
	for _, r := range s.Results {
		switch r.Status {
		case StatusArchived:
			archived++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return
}

// Failed reports whether any folder failed this invocation.
func (s *Summary) Failed() bool {
	_, _, failed := s.Counts()
	return failed > 0
}

// Pipeline runs the folder-selection → aggregation → publish → archive state
// machine. Host and Now are overridable for tests; New fills in defaults.
type Pipeline struct {
	Cfg  *config.Config
	Pub  publish.Publisher
	Host string
	Now  func() time.Time
}

// New returns a Pipeline using the machine hostname and wall clock.
func New(cfg *config.Config, pub publish.Publisher) *Pipeline {
	return &Pipeline{Cfg: cfg, Pub: pub, Host: publish.Hostname(), Now: time.Now}
}

// Run executes one invocation. Folder errors are isolated: they are reported
// in the summary, never returned, and never block other folders or the
// retention sweep. The returned error covers only run-level failures such as
// an unreadable unsent root.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	logger := logging.New("pipeline")
	now := p.Now()

	folders, err := scan.Select(p.Cfg.UnsentDir, now, p.Cfg.Window.Std())
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", p.Cfg.UnsentDir, err)
	}
	logger.Info("run started", "eligible_folders", len(folders), "window", p.Cfg.Window.Std().String())

	results := make([]FolderResult, len(folders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Cfg.Workers)
	for i, dir := range folders {
		g.Go(func() error {
			results[i] = p.processFolder(gctx, dir)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in results

	swept := archive.Sweep(p.Cfg.SentDir, now, p.Cfg.Retention.Std())

	summary := &Summary{Results: results, SweptArchives: swept}
	archived, skipped, failed := summary.Counts()
	logger.Info("run finished",
		"archived", archived, "skipped", skipped, "failed", failed, "swept", swept)
	return summary, nil
}

// processFolder drives one folder through the state machine. Every exit path
// leaves the filesystem in a state a later invocation can resume from.
func (p *Pipeline) processFolder(ctx context.Context, dir string) FolderResult {
	logger := logging.New("pipeline").With("folder", filepath.Base(dir))
	res := FolderResult{Folder: dir}

	id, err := campaign.Resolve(dir)
	if err != nil {
		// No side effects yet: no artifact, no publish. Retried later.
		res.Status, res.Err = StatusFailed, err
		logger.Error("campaign unresolved, folder left for retry", "error", err)
		return res
	}
	res.Campaign = id

	reports, warnings := phase.LoadReports(dir, id, p.Now())
	for _, w := range warnings {
		logger.Warn("phase report unusable", "error", w)
	}
	if len(reports) == 0 {
		res.Status = StatusSkipped
		logger.Warn("no usable phase data, folder skipped", "campaign", id)
		return res
	}
	for _, rep := range reports {
		res.Phases = append(res.Phases, rep.Phase)
	}

	if _, err := aggregate.WriteCSV(dir, reports); err != nil {
		res.Status, res.Err = StatusFailed, err
		logger.Error("artifact write failed", "error", err)
		return res
	}

	res.Outcomes = publish.Reports(ctx, p.Pub, p.Cfg.TopicBase, p.Host, reports)
	for _, o := range res.Outcomes {
		if o.Err != nil {
			logger.Error("publish failed", "topic", o.Topic, "error", o.Err)
		}
	}
	if !publish.AllPublished(res.Outcomes) {
		// Any failed phase blocks archival of the whole folder so the next
		// invocation can republish from the same unsent data.
		res.Status = StatusFailed
		res.Err = fmt.Errorf("%s: not all phases published", filepath.Base(dir))
		return res
	}

	zipPath, err := archive.Store(dir, p.Cfg.SentDir, p.Now())
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		var ze *archive.ZipError
		var ce *archive.CleanupError
		switch {
		case errors.As(err, &ze):
			logger.Error("folder moved but not compressed, manual intervention required",
				"stranded_dir", ze.Dir, "error", ze.Err)
		case errors.As(err, &ce):
			logger.Error("folder archived but uncompressed copy remains, manual removal required",
				"leftover_dir", ce.Dir, "error", ce.Err)
		default:
			logger.Error("archive move failed, folder left unsent", "error", err)
		}
		return res
	}

	res.ArchivePath = zipPath
	res.Status = StatusArchived
	logger.Info("folder archived", "campaign", id, "phases", res.Phases, "zip", zipPath)
	return res
}
