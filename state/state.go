// Package state implements the CLI boundary's save-state/resume/
// list-states surface. The engine core itself has no persistence
// concern (by design): this package snapshots a completed RunResult to
// a JSON file and, on --resume, reduces a snapshot back down to the
// URLs that still need auditing.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/use-agent/webauditor/model"
)

// Snapshot is one saved run, identified by ID (its filename stem).
type Snapshot struct {
	ID         string           `json:"id"`
	CreatedAt  time.Time        `json:"createdAt"`
	SitemapURL string           `json:"sitemapUrl"`
	Options    model.RunOptions `json:"options"`
	Result     model.RunResult  `json:"result"`
}

// Summary is the metadata List returns without loading every page result.
type Summary struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	SitemapURL string    `json:"sitemapUrl"`
	TotalPages int       `json:"totalPages"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
}

// Save writes a snapshot to dir/<id>.json, deriving the ID from the
// creation timestamp if the caller didn't already set one.
func Save(dir string, snap Snapshot) (string, error) {
	if snap.ID == "" {
		snap.ID = snap.CreatedAt.Format("20060102-150405")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("state: create state dir: %w", err)
	}

	path := filepath.Join(dir, snap.ID+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("state: create snapshot file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return "", fmt.Errorf("state: encode snapshot: %w", err)
	}
	return path, nil
}

// Load reads one snapshot by ID.
func Load(dir, id string) (*Snapshot, error) {
	path := filepath.Join(dir, id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("state: read snapshot %q: %w", id, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("state: decode snapshot %q: %w", id, err)
	}
	return &snap, nil
}

// List enumerates every snapshot in dir, newest first.
func List(dir string) ([]Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("state: list state dir: %w", err)
	}

	var out []Summary
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := entry.Name()[:len(entry.Name())-len(".json")]
		snap, err := Load(dir, id)
		if err != nil {
			continue // skip unreadable/corrupt snapshots rather than failing the whole listing
		}
		out = append(out, Summary{
			ID:         snap.ID,
			CreatedAt:  snap.CreatedAt,
			SitemapURL: snap.SitemapURL,
			TotalPages: snap.Result.Summary.TotalPages,
			Passed:     snap.Result.Summary.Passed,
			Failed:     snap.Result.Summary.Failed,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// PendingURLs returns the URLs from a snapshot that did not reach a
// settled, non-retriable outcome (passed, skipped-redirect, or
// http-error are all considered settled) — the set --resume re-runs
// through a fresh engine instance.
func PendingURLs(snap *Snapshot) []string {
	var pending []string
	for _, page := range snap.Result.Pages {
		switch page.Status {
		case model.StatusPassed, model.StatusSkippedRedirect, model.StatusHTTPError:
			continue
		default:
			pending = append(pending, page.URL)
		}
	}
	return pending
}
