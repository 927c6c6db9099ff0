// Package ingest implements the idempotent raw ingestor: it captures each
// source's current payload into a dated immutable snapshot, gated by the
// hash ledger so byte-identical input never produces a second snapshot.
package ingest

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cinelake/cinelake/ledger"
	"github.com/cinelake/cinelake/metrics"
	"github.com/cinelake/cinelake/snapshot"
)

// Result is the outcome of one ingestion attempt.
type Result struct {
	Source      string
	Status      ledger.Status
	ContentHash string
	RowCount    int64
	ByteSize    int64
	Snapshot    snapshot.Snapshot
	Err         error
}

// Ingestor copies raw payloads into snapshots. Attempts for one source are
// serialized by the caller; different sources may run concurrently.
type Ingestor struct {
	Ledger  ledger.Log
	RawRoot string
	Logger  *zap.Logger

	// Now is injectable for deterministic run IDs in tests.
	Now func() time.Time
}

func (ing *Ingestor) now() time.Time {
	if ing.Now != nil {
		return ing.Now()
	}
	return time.Now()
}

func (ing *Ingestor) logger() *zap.Logger {
	if ing.Logger != nil {
		return ing.Logger
	}
	return zap.NewNop()
}

// Ingest runs one attempt for one source and always appends exactly one
// ledger record: succeeded, skipped, or failed. A failure never leaves a
// completion marker behind.
func (ing *Ingestor) Ingest(ctx context.Context, src Source) Result {
	log := ing.logger().With(zap.String("source", src.Name()))

	payload, err := src.Fetch(ctx)
	if err != nil {
		return ing.fail(log, src.Name(), "", err)
	}
	if payload.Cleanup != nil {
		defer payload.Cleanup()
	}

	hash, byteSize, err := hashPayload(payload)
	if err != nil {
		return ing.fail(log, src.Name(), "", err)
	}
	log = log.With(zap.String("content_hash", hash))

	status, seen, err := ing.Ledger.Lookup(src.Name(), hash)
	if err != nil {
		return ing.fail(log, src.Name(), hash, fmt.Errorf("ledger lookup failed: %w", err))
	}
	if seen && status == ledger.StatusSucceeded {
		log.Info("payload already ingested, skipping")
		rec := ledger.IngestionRecord{
			SourceID:    src.Name(),
			AttemptedAt: ing.now().UTC(),
			ContentHash: hash,
			Status:      ledger.StatusSkipped,
		}
		if err := ing.Ledger.Record(rec); err != nil {
			log.Warn("failed to record skip", zap.Error(err))
		}
		metrics.IngestAttempts.WithLabelValues(src.Name(), string(ledger.StatusSkipped)).Inc()
		return Result{Source: src.Name(), Status: ledger.StatusSkipped, ContentHash: hash}
	}

	runID := snapshot.NewRunID(ing.now())
	snap, err := snapshot.Begin(ing.RawRoot, src.Name(), runID)
	if err != nil {
		return ing.fail(log, src.Name(), hash, err)
	}

	var rows int64
	var fileNames []string
	for _, pf := range payload.Files {
		dst := filepath.Join(snap.Dir, pf.Name)
		if err := copyFile(pf.Path, dst); err != nil {
			return ing.fail(log, src.Name(), hash, err)
		}
		n, err := countDataRows(dst)
		if err != nil {
			return ing.fail(log, src.Name(), hash, err)
		}
		rows += n
		fileNames = append(fileNames, pf.Name)
	}

	// The marker is the last write: a crash before this point leaves an
	// incomplete directory that readers never see.
	if err := snap.Commit(snapshot.Marker{
		Files:       fileNames,
		RowCount:    rows,
		ContentHash: hash,
	}); err != nil {
		return ing.fail(log, src.Name(), hash, err)
	}

	rec := ledger.IngestionRecord{
		SourceID:     src.Name(),
		AttemptedAt:  ing.now().UTC(),
		ContentHash:  hash,
		RowCount:     rows,
		ByteSize:     byteSize,
		SnapshotPath: snap.Dir,
		Status:       ledger.StatusSucceeded,
	}
	if err := ing.Ledger.Record(rec); err != nil {
		// The snapshot is complete but unrecorded; the next run will
		// re-hash and re-attempt, which is safe.
		return ing.fail(log, src.Name(), hash, fmt.Errorf("ledger append failed: %w", err))
	}

	metrics.IngestAttempts.WithLabelValues(src.Name(), string(ledger.StatusSucceeded)).Inc()
	metrics.IngestRows.WithLabelValues(src.Name()).Add(float64(rows))
	metrics.IngestBytes.WithLabelValues(src.Name()).Add(float64(byteSize))
	log.Info("snapshot captured",
		zap.String("snapshot", snap.Dir),
		zap.Int64("rows", rows),
		zap.Int64("bytes", byteSize))

	return Result{
		Source:      src.Name(),
		Status:      ledger.StatusSucceeded,
		ContentHash: hash,
		RowCount:    rows,
		ByteSize:    byteSize,
		Snapshot:    snap,
	}
}

func (ing *Ingestor) fail(log *zap.Logger, source, hash string, err error) Result {
	log.Error("ingestion failed", zap.Error(err))
	rec := ledger.IngestionRecord{
		SourceID:    source,
		AttemptedAt: ing.now().UTC(),
		ContentHash: hash,
		Status:      ledger.StatusFailed,
		ErrorDetail: err.Error(),
	}
	if recErr := ing.Ledger.Record(rec); recErr != nil {
		log.Error("failed to record ingestion failure", zap.Error(recErr))
	}
	metrics.IngestAttempts.WithLabelValues(source, string(ledger.StatusFailed)).Inc()
	return Result{Source: source, Status: ledger.StatusFailed, ContentHash: hash, Err: err}
}

// IngestAll runs every source concurrently. One source failing is
// non-fatal to the batch; each result carries its own status.
func (ing *Ingestor) IngestAll(ctx context.Context, sources []Source) []Result {
	results := make([]Result, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = ing.Ingest(ctx, src)
			return nil
		})
	}
	g.Wait()
	return results
}

// hashPayload digests the payload deterministically: files sorted by name,
// each name mixed into the digest ahead of its bytes.
func hashPayload(p Payload) (string, int64, error) {
	files := make([]PayloadFile, len(p.Files))
	copy(files, p.Files)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	h := sha256.New()
	var total int64
	for _, pf := range files {
		h.Write([]byte(pf.Name))
		h.Write([]byte{0})
		f, err := os.Open(pf.Path)
		if err != nil {
			return "", 0, fmt.Errorf("failed to open payload file %s: %w", pf.Name, err)
		}
		n, err := io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", 0, fmt.Errorf("failed to hash payload file %s: %w", pf.Name, err)
		}
		total += n
	}
	return hex.EncodeToString(h.Sum(nil)), total, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy into %s: %w", dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("failed to sync %s: %w", dst, err)
	}
	return out.Close()
}

// countDataRows counts payload lines minus the CSV header.
func countDataRows(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s for row count: %w", path, err)
	}
	defer f.Close()

	var lines int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", path, err)
	}
	if lines == 0 {
		return 0, nil
	}
	return lines - 1, nil
}
