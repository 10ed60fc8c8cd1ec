package scan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSelect_Window(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	width := 10 * time.Minute

	mkdir := func(ts time.Time) string {
		t.Helper()
		name := ts.Format(TimestampLayout)
		if err := os.Mkdir(filepath.Join(root, name), 0755); err != nil {
			t.Fatal(err)
		}
		return name
	}

	inWindow := mkdir(now.Add(-5 * time.Minute))
	atLowerBound := mkdir(now.Add(-10 * time.Minute))
	atNow := mkdir(now)
	mkdir(now.Add(-10*time.Minute - time.Second)) // just outside
	mkdir(now.Add(time.Second))                   // future

	got, err := Select(root, now, width)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	want := []string{
		filepath.Join(root, atLowerBound),
		filepath.Join(root, inWindow),
		filepath.Join(root, atNow),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Select mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_IgnoresNonTimestampEntries(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)

	for _, name := range []string{"notes", "2025060112000", "20250601120000x", "2025060112000a"} {
		if err := os.Mkdir(filepath.Join(root, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
	// a regular file with a valid timestamp name is not a run folder
	if err := os.WriteFile(filepath.Join(root, now.Format(TimestampLayout)+".bak"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Select(root, now, 10*time.Minute)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no folders, got %v", got)
	}
}

func TestSelect_MissingRoot(t *testing.T) {
	got, err := Select(filepath.Join(t.TempDir(), "absent"), time.Now(), 10*time.Minute)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}
