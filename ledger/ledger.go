// Package ledger provides the durable append-only record of every
// ingestion attempt. The log is the idempotency gate: a succeeded record
// for a (source, content hash) pair means that payload has already been
// captured and must not produce a second snapshot.
package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Status of an ingestion attempt.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// IngestionRecord is one ingestion attempt. Records are append-only and
// never mutated after creation.
type IngestionRecord struct {
	SourceID     string    `json:"source_id"`
	AttemptedAt  time.Time `json:"attempted_at"`
	ContentHash  string    `json:"content_hash"`
	RowCount     int64     `json:"row_count"`
	ByteSize     int64     `json:"byte_size"`
	SnapshotPath string    `json:"snapshot_path,omitempty"`
	Status       Status    `json:"status"`
	ErrorDetail  string    `json:"error_detail,omitempty"`
}

// Log is the ledger contract the ingestor depends on. Implementations must
// make Record a durable append and support concurrent writers from
// different sources; attempts within one source are serialized by the
// caller.
type Log interface {
	Record(rec IngestionRecord) error
	// Lookup returns the most decisive status recorded for (source, hash):
	// succeeded wins over failed/skipped. ok is false when the pair has
	// never been seen.
	Lookup(sourceID, contentHash string) (Status, bool, error)
}

// FileLog stores one JSON record per line. Each append is a single write
// on an O_APPEND descriptor followed by fsync, which is the
// append-atomicity the ledger contract requires.
type FileLog struct {
	path string
	mu   sync.Mutex
}

// NewFileLog creates the ledger file's directory if needed.
func NewFileLog(path string) (*FileLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &FileLog{path: path}, nil
}

// Path returns the ledger file location.
func (l *FileLog) Path() string {
	return l.path
}

// Record appends one ingestion record.
func (l *FileLog) Record(rec IngestionRecord) error {
	if rec.AttemptedAt.IsZero() {
		rec.AttemptedAt = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ingestion record: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to append ingestion record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	return nil
}

// Lookup scans the log for (source, hash). A succeeded record is decisive
// regardless of later skipped entries for the same pair.
func (l *FileLog) Lookup(sourceID, contentHash string) (Status, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	var found Status
	var ok bool
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec IngestionRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// A torn trailing line from a crashed writer is ignorable.
			continue
		}
		if rec.SourceID != sourceID || rec.ContentHash != contentHash {
			continue
		}
		ok = true
		if rec.Status == StatusSucceeded {
			return StatusSucceeded, true, nil
		}
		found = rec.Status
	}
	if err := scanner.Err(); err != nil {
		return "", false, fmt.Errorf("failed to scan ledger: %w", err)
	}
	return found, ok, nil
}

// All returns every record in append order, for audit tooling.
func (l *FileLog) All() ([]IngestionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	var out []IngestionRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec IngestionRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan ledger: %w", err)
	}
	return out, nil
}

// MemLog is an in-memory Log for tests.
type MemLog struct {
	mu      sync.Mutex
	Records []IngestionRecord
}

func NewMemLog() *MemLog {
	return &MemLog{}
}

func (m *MemLog) Record(rec IngestionRecord) error {
	if rec.AttemptedAt.IsZero() {
		rec.AttemptedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, rec)
	return nil
}

func (m *MemLog) Lookup(sourceID, contentHash string) (Status, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found Status
	var ok bool
	for _, rec := range m.Records {
		if rec.SourceID != sourceID || rec.ContentHash != contentHash {
			continue
		}
		ok = true
		if rec.Status == StatusSucceeded {
			return StatusSucceeded, true, nil
		}
		found = rec.Status
	}
	return found, ok, nil
}
