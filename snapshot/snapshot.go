// Package snapshot manages the immutable dated raw dumps. A snapshot is a
// directory of as-received source files plus a completion marker written
// last; a directory without the marker is invisible to every reader, which
// is what makes interrupted ingestions safe to retry.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// MarkerName is the completion marker file, written only after every
// payload byte has been flushed.
const MarkerName = "_SUCCESS.json"

// Marker is the completion record stored inside a finished snapshot.
type Marker struct {
	SourceID    string    `json:"source_id"`
	RunID       string    `json:"run_id"`
	Files       []string  `json:"files"`
	RowCount    int64     `json:"row_count"`
	ContentHash string    `json:"content_hash"`
	WrittenAt   time.Time `json:"written_at"`
}

// Snapshot identifies one dated dump of one source.
type Snapshot struct {
	SourceID string
	RunID    string
	Dir      string
}

// NewRunID derives a sortable run identifier from a timestamp, matching
// the dated directory layout.
func NewRunID(t time.Time) string {
	return t.UTC().Format("20060102_150405")
}

// Begin creates the snapshot directory for a run. The directory stays
// incomplete (and therefore invisible) until Commit writes the marker.
func Begin(rawRoot, sourceID, runID string) (Snapshot, error) {
	dir := filepath.Join(rawRoot, sourceID, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Snapshot{}, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return Snapshot{SourceID: sourceID, RunID: runID, Dir: dir}, nil
}

// Commit writes the completion marker. It must be the last write of an
// ingestion attempt.
func (s Snapshot) Commit(m Marker) error {
	m.SourceID = s.SourceID
	m.RunID = s.RunID
	if m.WrittenAt.IsZero() {
		m.WrittenAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot marker: %w", err)
	}
	path := filepath.Join(s.Dir, MarkerName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot marker: %w", err)
	}
	return nil
}

// Complete reports whether the snapshot carries a completion marker.
func (s Snapshot) Complete() bool {
	_, err := os.Stat(filepath.Join(s.Dir, MarkerName))
	return err == nil
}

// ReadMarker loads the completion marker of a finished snapshot.
func (s Snapshot) ReadMarker() (Marker, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, MarkerName))
	if err != nil {
		return Marker{}, fmt.Errorf("failed to read snapshot marker: %w", err)
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return Marker{}, fmt.Errorf("failed to parse snapshot marker: %w", err)
	}
	return m, nil
}

// List returns every snapshot directory for a source, newest first,
// complete or not.
func List(rawRoot, sourceID string) ([]Snapshot, error) {
	sourceDir := filepath.Join(rawRoot, sourceID)
	entries, err := os.ReadDir(sourceDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots for %s: %w", sourceID, err)
	}
	var out []Snapshot
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		out = append(out, Snapshot{
			SourceID: sourceID,
			RunID:    e.Name(),
			Dir:      filepath.Join(sourceDir, e.Name()),
		})
	}
	// Run IDs are timestamp-formatted, so lexicographic descending is
	// newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].RunID > out[j].RunID })
	return out, nil
}

// Latest returns the newest complete snapshot containing fileName.
// Incomplete directories are skipped, never an error.
func Latest(rawRoot, sourceID, fileName string) (Snapshot, string, error) {
	snaps, err := List(rawRoot, sourceID)
	if err != nil {
		return Snapshot{}, "", err
	}
	for _, s := range snaps {
		if !s.Complete() {
			continue
		}
		candidate := filepath.Join(s.Dir, fileName)
		if _, err := os.Stat(candidate); err == nil {
			return s, candidate, nil
		}
	}
	return Snapshot{}, "", fmt.Errorf("no complete snapshot of %s contains %s", sourceID, fileName)
}
