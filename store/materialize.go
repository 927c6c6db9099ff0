package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/cinelake/cinelake/tables"
)

// Materialize loads the published parquet files into a DuckDB database
// file so the curated layer is directly queryable. Tables are replaced
// wholesale; the parquet files stay the source of truth.
func Materialize(dbPath string, w *Writer) error {
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open duckdb at %s: %w", dbPath, err)
	}
	defer db.Close()

	for _, table := range []string{tables.TableFilms, tables.TableReviews, tables.TablePeople} {
		src := strings.ReplaceAll(w.TablePath(table), "'", "''")
		stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_parquet('%s')", table, src)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to materialize %s: %w", table, err)
		}
	}
	return nil
}
