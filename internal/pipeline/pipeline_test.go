package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sindanrelay/internal/aggregate"
	"sindanrelay/internal/config"
	"sindanrelay/internal/publish"
	"sindanrelay/internal/scan"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.UnsentDir = t.TempDir()
	cfg.SentDir = t.TempDir()
	return cfg
}

func testPipeline(cfg *config.Config, pub publish.Publisher) *Pipeline {
	p := New(cfg, pub)
	p.Host = "probe01"
	p.Now = func() time.Time { return testNow }
	return p
}

// writeRunFolder creates an in-window run folder with a campaign summary and
// reports for phases 0, 2 and 6.
func writeRunFolder(t *testing.T, cfg *config.Config) string {
	t.Helper()
	dir := filepath.Join(cfg.UnsentDir, testNow.Format(scan.TimestampLayout))
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"campaign_1.json":         `{"log_campaign_uuid":"abc"}`,
		"sindan_hardware_1.json":  `{"log_campaign_uuid":"abc","log_type":"os","detail":"linux","occurred_at":"2025-06-01T11:58:00"}`,
		"sindan_interface_1.json": `{"log_campaign_uuid":"abc","log_type":"ipv4_addr","detail":"192.0.2.10","occurred_at":"2025-06-01T11:58:10"}`,
		"sindan_app_1.json":       `{"log_campaign_uuid":"abc","log_type":"http_throughput","detail":"88.1","target":"example.net","occurred_at":"2025-06-01T11:58:20"}`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	dir := writeRunFolder(t, cfg)
	rec := publish.NewRecorder()

	summary, err := testPipeline(cfg, rec).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	archived, skipped, failed := summary.Counts()
	if archived != 1 || skipped != 0 || failed != 0 {
		t.Fatalf("counts = %d/%d/%d, results %+v", archived, skipped, failed, summary.Results)
	}
	if summary.Failed() {
		t.Error("Failed() should be false")
	}

	res := summary.Results[0]
	if res.Campaign != "abc" {
		t.Errorf("campaign = %q", res.Campaign)
	}
	if diff := cmp.Diff([]int{0, 2, 6}, res.Phases); diff != "" {
		t.Errorf("phases mismatch (-want +got):\n%s", diff)
	}

	var topics []string
	for _, m := range rec.Messages() {
		topics = append(topics, m.Topic)
	}
	wantTopics := []string{"sindan/probe01/phase0", "sindan/probe01/phase2", "sindan/probe01/phase6"}
	if diff := cmp.Diff(wantTopics, topics); diff != "" {
		t.Errorf("topics mismatch (-want +got):\n%s", diff)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("run folder should be gone from unsent root")
	}
	if _, err := os.Stat(res.ArchivePath); err != nil {
		t.Errorf("archive zip missing: %v", err)
	}
}

func TestRun_PublishFailureBlocksArchival(t *testing.T) {
	cfg := testConfig(t)
	dir := writeRunFolder(t, cfg)
	rec := publish.NewRecorder()
	rec.FailTopic("sindan/probe01/phase2")

	summary, err := testPipeline(cfg, rec).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.Failed() {
		t.Fatal("expected a failed folder")
	}

	// folder stays in the unsent root, enriched only by the artifact
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("folder must remain unsent: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, aggregate.Filename)); err != nil {
		t.Errorf("artifact should exist even though publish failed: %v", err)
	}
	entries, err := os.ReadDir(cfg.SentDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("nothing may reach the archive root, found %v", entries)
	}
}

func TestRun_RetryAfterFailureArchivesOnce(t *testing.T) {
	cfg := testConfig(t)
	dir := writeRunFolder(t, cfg)

	rec := publish.NewRecorder()
	rec.FailTopic("sindan/probe01/phase6")
	p := testPipeline(cfg, rec)
	if summary, err := p.Run(context.Background()); err != nil || !summary.Failed() {
		t.Fatalf("first run: err=%v", err)
	}

	// next scheduled invocation, broker healthy again
	p.Pub = publish.NewRecorder()
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	archived, _, failed := summary.Counts()
	if archived != 1 || failed != 0 {
		t.Fatalf("second run counts: archived=%d failed=%d", archived, failed)
	}

	// the rerun regenerated the artifact in place before archiving
	res := summary.Results[0]
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("folder should be archived on retry")
	}
	if _, err := os.Stat(res.ArchivePath); err != nil {
		t.Errorf("archive zip missing: %v", err)
	}
}

func TestRun_ArtifactIdempotentAcrossReruns(t *testing.T) {
	cfg := testConfig(t)
	dir := writeRunFolder(t, cfg)
	rec := publish.NewRecorder()
	rec.FailTopic("sindan/probe01/phase0") // keep the folder unsent

	p := testPipeline(cfg, rec)
	for i := 0; i < 2; i++ {
		if _, err := p.Run(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	f, err := os.Open(filepath.Join(dir, aggregate.Filename))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 { // header + 3 phases, no duplicates
		t.Errorf("artifact has %d rows", len(rows))
	}
}

func TestRun_CampaignUnresolvedNoSideEffects(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(cfg.UnsentDir, testNow.Format(scan.TimestampLayout))
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sindan_hardware_1.json"),
		[]byte(`{"log_type":"os","detail":"linux"}`), 0644); err != nil {
		t.Fatal(err)
	}
	rec := publish.NewRecorder()

	summary, err := testPipeline(cfg, rec).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.Failed() {
		t.Fatal("unresolved campaign should count as failed")
	}
	if len(rec.Messages()) != 0 {
		t.Error("nothing may be published")
	}
	if _, err := os.Stat(filepath.Join(dir, aggregate.Filename)); !os.IsNotExist(err) {
		t.Error("no artifact may be written")
	}
}

func TestRun_FolderFailureDoesNotBlockOthers(t *testing.T) {
	cfg := testConfig(t)

	bad := filepath.Join(cfg.UnsentDir, testNow.Add(-time.Minute).Format(scan.TimestampLayout))
	if err := os.Mkdir(bad, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bad, "sindan_hardware_1.json"), []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}
	good := writeRunFolder(t, cfg)

	summary, err := testPipeline(cfg, publish.NewRecorder()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	archived, _, failed := summary.Counts()
	if archived != 1 || failed != 1 {
		t.Fatalf("counts: archived=%d failed=%d, results %+v", archived, failed, summary.Results)
	}
	if _, err := os.Stat(good); !os.IsNotExist(err) {
		t.Error("good folder should be archived despite the bad one")
	}
	if _, err := os.Stat(bad); err != nil {
		t.Error("bad folder should remain for retry")
	}
}

func TestRun_NoPhaseDataSkips(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(cfg.UnsentDir, testNow.Format(scan.TimestampLayout))
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	// campaign summary resolves, but there are no phase reports
	if err := os.WriteFile(filepath.Join(dir, "campaign_1.json"),
		[]byte(`{"log_campaign_uuid":"abc"}`), 0644); err != nil {
		t.Fatal(err)
	}

	summary, err := testPipeline(cfg, publish.NewRecorder()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, skipped, failed := summary.Counts()
	if skipped != 1 || failed != 0 {
		t.Errorf("counts: skipped=%d failed=%d", skipped, failed)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Error("skipped folder must stay in place")
	}
}

func TestRun_SweepRunsEvenWithNoFolders(t *testing.T) {
	cfg := testConfig(t)
	expired := filepath.Join(cfg.SentDir, "20250401120000.zip")
	if err := os.WriteFile(expired, []byte("zip"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(expired, testNow, testNow.Add(-31*24*time.Hour)); err != nil {
		t.Fatal(err)
	}

	summary, err := testPipeline(cfg, publish.NewRecorder()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.SweptArchives != 1 {
		t.Errorf("swept = %d, want 1", summary.SweptArchives)
	}
	if _, err := os.Stat(expired); !os.IsNotExist(err) {
		t.Error("expired archive should be removed")
	}
}

func TestRun_ParallelWorkers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers = 4
	var dirs []string
	for i := 0; i < 5; i++ {
		dir := filepath.Join(cfg.UnsentDir, testNow.Add(-time.Duration(i)*time.Minute).Format(scan.TimestampLayout))
		if err := os.Mkdir(dir, 0755); err != nil {
			t.Fatal(err)
		}
		body := `{"log_campaign_uuid":"abc","log_type":"os","detail":"linux","occurred_at":"2025-06-01T11:58:00"}`
		if err := os.WriteFile(filepath.Join(dir, "sindan_hardware_1.json"), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		dirs = append(dirs, dir)
	}

	summary, err := testPipeline(cfg, publish.NewRecorder()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	archived, _, failed := summary.Counts()
	if archived != 5 || failed != 0 {
		t.Fatalf("counts: archived=%d failed=%d", archived, failed)
	}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("folder %s should be archived", dir)
		}
	}
}
