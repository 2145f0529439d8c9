package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/use-agent/webauditor/model"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		CreatedAt:  time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		SitemapURL: "https://example.com/sitemap.xml",
		Result: model.RunResult{
			Summary: model.Summary{TotalPages: 2, Passed: 1, Failed: 1},
			Pages: []*model.PageResult{
				{URL: "https://example.com/a", Status: model.StatusPassed},
				{URL: "https://example.com/b", Status: model.StatusCrashed},
			},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	path, err := Save(dir, sampleSnapshot())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("Save wrote to %q, want directory %q", path, dir)
	}

	loaded, err := Load(dir, "20260102-150405")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SitemapURL != "https://example.com/sitemap.xml" {
		t.Errorf("loaded.SitemapURL = %q", loaded.SitemapURL)
	}
	if len(loaded.Result.Pages) != 2 {
		t.Errorf("loaded %d pages, want 2", len(loaded.Result.Pages))
	}
}

func TestSave_DerivesIDFromCreatedAtWhenUnset(t *testing.T) {
	dir := t.TempDir()
	snap := sampleSnapshot()
	snap.ID = ""

	path, err := Save(dir, snap)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := filepath.Join(dir, "20260102-150405.json")
	if path != want {
		t.Errorf("Save path = %q, want %q", path, want)
	}
}

func TestSave_HonorsExplicitID(t *testing.T) {
	dir := t.TempDir()
	snap := sampleSnapshot()
	snap.ID = "my-run"

	path, err := Save(dir, snap)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := filepath.Join(dir, "my-run.json")
	if path != want {
		t.Errorf("Save path = %q, want %q", path, want)
	}
}

func TestLoad_UnknownIDReturnsError(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir, "does-not-exist"); err == nil {
		t.Error("expected an error loading a missing snapshot")
	}
}

func TestList_NewestFirstAndSkipsCorrupt(t *testing.T) {
	dir := t.TempDir()

	older := sampleSnapshot()
	older.ID = "older"
	older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	newer := sampleSnapshot()
	newer.ID = "newer"
	newer.CreatedAt = time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)

	if _, err := Save(dir, older); err != nil {
		t.Fatalf("Save older: %v", err)
	}
	if _, err := Save(dir, newer); err != nil {
		t.Fatalf("Save newer: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "corrupt.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt snapshot: %v", err)
	}

	summaries, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if summaries[0].ID != "newer" || summaries[1].ID != "older" {
		t.Errorf("List order = [%s %s], want [newer older]", summaries[0].ID, summaries[1].ID)
	}
}

func TestList_EmptyDirReturnsNil(t *testing.T) {
	dir := t.TempDir()
	summaries, err := List(filepath.Join(dir, "does-not-exist"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if summaries != nil {
		t.Errorf("expected nil summaries for a missing directory, got %v", summaries)
	}
}

func TestPendingURLs_ExcludesSettledStatuses(t *testing.T) {
	snap := &Snapshot{
		Result: model.RunResult{
			Pages: []*model.PageResult{
				{URL: "https://example.com/passed", Status: model.StatusPassed},
				{URL: "https://example.com/skipped", Status: model.StatusSkippedRedirect},
				{URL: "https://example.com/http-error", Status: model.StatusHTTPError},
				{URL: "https://example.com/crashed", Status: model.StatusCrashed},
				{URL: "https://example.com/failed", Status: model.StatusFailed},
			},
		},
	}

	pending := PendingURLs(snap)

	want := map[string]bool{
		"https://example.com/crashed": true,
		"https://example.com/failed":  true,
	}
	if len(pending) != len(want) {
		t.Fatalf("got %d pending urls, want %d: %v", len(pending), len(want), pending)
	}
	for _, u := range pending {
		if !want[u] {
			t.Errorf("unexpected pending url %q", u)
		}
	}
}
