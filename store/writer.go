// Package store publishes curated results: parquet files swapped into
// place atomically, a run manifest as the version pointer, an optional
// local mirror, and a DuckDB materialization for querying.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cinelake/cinelake/linkage"
	"github.com/cinelake/cinelake/metrics"
	"github.com/cinelake/cinelake/tables"
)

const tempPrefix = ".tmp-"

// EncodeFunc writes one table of a curated result as parquet at path.
type EncodeFunc func(table string, res linkage.Result, path string) error

// TableInfo records one published table inside a manifest.
type TableInfo struct {
	Path   string `json:"path"`
	Rows   int    `json:"rows"`
	SHA256 string `json:"sha256"`
}

// Manifest is the version pointer for one publish. latest.json always
// names a fully swapped-in set of tables.
type Manifest struct {
	RunID     string               `json:"run_id"`
	Executor  string               `json:"executor"`
	WrittenAt time.Time            `json:"written_at"`
	Tables    map[string]TableInfo `json:"tables"`
}

// Writer publishes curated tables under CuratedRoot. Layout is
// <root>/<table>/<table>.parquet plus <root>/_manifest/.
type Writer struct {
	CuratedRoot string
	Logger      *zap.Logger

	// Encode overrides the parquet encoder, mainly for tests.
	Encode EncodeFunc

	// Now is injectable for deterministic manifests in tests.
	Now func() time.Time
}

func (w *Writer) encode() EncodeFunc {
	if w.Encode != nil {
		return w.Encode
	}
	return encodeParquet
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Writer) logger() *zap.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return zap.NewNop()
}

// TablePath is where a published table lives.
func (w *Writer) TablePath(table string) string {
	return filepath.Join(w.CuratedRoot, table, table+".parquet")
}

// Publish writes all three tables and the run manifest. Each table is
// encoded to a temp file and swapped in with a rename, so readers only
// ever see the previous version or the new one. A failure mid-publish
// leaves already swapped tables in place and the manifest untouched.
func (w *Writer) Publish(res linkage.Result, runID, executor string) (Manifest, error) {
	log := w.logger().With(zap.String("run_id", runID))
	w.sweepTemps(log)

	counts := map[string]int{
		tables.TableFilms:   len(res.Films),
		tables.TableReviews: len(res.Reviews),
		tables.TablePeople:  len(res.People),
	}

	man := Manifest{
		RunID:     runID,
		Executor:  executor,
		WrittenAt: w.now().UTC(),
		Tables:    make(map[string]TableInfo, len(counts)),
	}

	for _, table := range []string{tables.TableFilms, tables.TableReviews, tables.TablePeople} {
		start := time.Now()
		sum, err := w.publishTable(table, res)
		if err != nil {
			return Manifest{}, err
		}
		metrics.PublishDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
		man.Tables[table] = TableInfo{Path: w.TablePath(table), Rows: counts[table], SHA256: sum}
		log.Info("table published", zap.String("table", table), zap.Int("rows", counts[table]))
	}

	if err := w.writeManifest(man); err != nil {
		return Manifest{}, err
	}
	return man, nil
}

func (w *Writer) publishTable(table string, res linkage.Result) (string, error) {
	dir := filepath.Join(w.CuratedRoot, table)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create table directory %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, tempPrefix+table+"-"+uuid.NewString()+".parquet")
	if err := w.encode()(table, res, tmp); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to encode %s: %w", table, err)
	}
	sum, err := hashFile(tmp)
	if err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := syncFile(tmp); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, w.TablePath(table)); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to swap in %s: %w", table, err)
	}
	return sum, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (w *Writer) writeManifest(man Manifest) error {
	dir := filepath.Join(w.CuratedRoot, "_manifest")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	for _, name := range []string{man.RunID + ".json", "latest.json"} {
		tmp := filepath.Join(dir, tempPrefix+name)
		if err := os.WriteFile(tmp, data, 0644); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
		if err := syncFile(tmp); err != nil {
			return err
		}
		if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("failed to swap in manifest: %w", err)
		}
	}
	return nil
}

// ReadLatestManifest returns the current version pointer.
func ReadLatestManifest(curatedRoot string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(curatedRoot, "_manifest", "latest.json"))
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read latest manifest: %w", err)
	}
	var man Manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse latest manifest: %w", err)
	}
	return man, nil
}

// sweepTemps removes temp files a crashed publish left behind. Renamed
// tables are never touched.
func (w *Writer) sweepTemps(log *zap.Logger) {
	for _, dir := range []string{
		filepath.Join(w.CuratedRoot, tables.TableFilms),
		filepath.Join(w.CuratedRoot, tables.TableReviews),
		filepath.Join(w.CuratedRoot, tables.TablePeople),
		filepath.Join(w.CuratedRoot, "_manifest"),
	} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), tempPrefix) {
				path := filepath.Join(dir, e.Name())
				if err := os.Remove(path); err == nil {
					log.Warn("removed stale temp file", zap.String("path", path))
				}
			}
		}
	}
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for sync: %w", path, err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return nil
}
