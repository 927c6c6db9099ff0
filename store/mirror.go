package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/cinelake/cinelake/tables"
)

// Mirror copies the published tables and the latest manifest into a local
// mirror directory, same temp-then-rename discipline as the publish
// itself. The mirror lags the curated root but is never half-written.
func Mirror(curatedRoot, mirrorRoot string) error {
	w := &Writer{CuratedRoot: curatedRoot}
	for _, table := range []string{tables.TableFilms, tables.TableReviews, tables.TablePeople} {
		dst := filepath.Join(mirrorRoot, table, table+".parquet")
		if err := mirrorFile(w.TablePath(table), dst); err != nil {
			return err
		}
	}
	return mirrorFile(
		filepath.Join(curatedRoot, "_manifest", "latest.json"),
		filepath.Join(mirrorRoot, "_manifest", "latest.json"),
	)
}

func mirrorFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s for mirroring: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create mirror directory: %w", err)
	}
	tmp := filepath.Join(filepath.Dir(dst), tempPrefix+"mirror-"+uuid.NewString())
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create mirror temp file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to mirror %s: %w", src, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync mirror temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close mirror temp file: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to swap mirror file into place: %w", err)
	}
	return nil
}
