package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/cinelake/cinelake/linkage"
	"github.com/cinelake/cinelake/tables"
)

// encodeParquet stages one table in an in-memory DuckDB and copies it out
// as parquet. DuckDB owns the columnar encoding; this package only shapes
// rows.
func encodeParquet(table string, res linkage.Result, path string) error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("failed to open in-memory duckdb: %w", err)
	}
	defer db.Close()

	switch table {
	case tables.TableFilms:
		return copyFilms(db, res.Films, path)
	case tables.TableReviews:
		return copyReviews(db, res.Reviews, path)
	case tables.TablePeople:
		return copyPeople(db, res.People, path)
	}
	return fmt.Errorf("unknown table %q", table)
}

func copyFilms(db *sql.DB, rows []tables.FilmRow, path string) error {
	const create = `CREATE TABLE films (
		film_id VARCHAR, rt_id VARCHAR, imdb_id VARCHAR,
		title VARCHAR, year INTEGER,
		genres VARCHAR, primary_genre VARCHAR,
		runtime_minutes INTEGER, language VARCHAR, country VARCHAR,
		audience_score DOUBLE, tomato_meter DOUBLE, imdb_rating DOUBLE,
		metascore DOUBLE, imdb_votes DOUBLE,
		box_office_usd DOUBLE, revenue_per_minute DOUBLE,
		rt_release_date TIMESTAMP, rt_streaming_date TIMESTAMP, imdb_release_date TIMESTAMP
	)`
	const insert = `INSERT INTO films VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

	return stageAndCopy(db, "films", create, insert, path, len(rows), func(stmt *sql.Stmt, i int) error {
		f := rows[i]
		_, err := stmt.Exec(
			f.FilmID, f.RTID, f.IMDBID,
			f.Title, f.Year,
			strings.Join(f.Genres, ", "), f.PrimaryGenre,
			f.RuntimeMinutes, f.Language, f.Country,
			f.AudienceScore, f.TomatoMeter, f.IMDBRating,
			f.Metascore, f.IMDBVotes,
			f.BoxOfficeUSD, f.RevenuePerMinute,
			f.RTReleaseDate, f.RTStreamingDate, f.IMDBReleaseDate,
		)
		return err
	})
}

func copyReviews(db *sql.DB, rows []tables.ReviewRow, path string) error {
	const create = `CREATE TABLE reviews (
		review_id VARCHAR, film_id VARCHAR,
		critic_name VARCHAR, publication_name VARCHAR, is_top_critic BOOLEAN,
		original_score_raw VARCHAR, score_normalized DOUBLE,
		score_sentiment VARCHAR, sentiment INTEGER,
		review_text VARCHAR, created_at TIMESTAMP
	)`
	const insert = `INSERT INTO reviews VALUES (?,?,?,?,?,?,?,?,?,?,?)`

	return stageAndCopy(db, "reviews", create, insert, path, len(rows), func(stmt *sql.Stmt, i int) error {
		r := rows[i]
		_, err := stmt.Exec(
			r.ReviewID, r.FilmID,
			r.CriticName, r.PublicationName, r.IsTopCritic,
			r.OriginalScoreRaw, r.ScoreNormalized,
			r.ScoreSentiment, r.Sentiment,
			r.ReviewText, r.CreatedAt,
		)
		return err
	})
}

func copyPeople(db *sql.DB, rows []tables.PersonRow, path string) error {
	const create = `CREATE TABLE people (
		person_id VARCHAR, film_id VARCHAR, name VARCHAR, role VARCHAR
	)`
	const insert = `INSERT INTO people VALUES (?,?,?,?)`

	return stageAndCopy(db, "people", create, insert, path, len(rows), func(stmt *sql.Stmt, i int) error {
		p := rows[i]
		_, err := stmt.Exec(p.PersonID, p.FilmID, p.Name, p.Role)
		return err
	})
}

func stageAndCopy(db *sql.DB, table, create, insert, path string, n int, bind func(*sql.Stmt, int) error) error {
	if _, err := db.Exec(create); err != nil {
		return fmt.Errorf("failed to create staging table %s: %w", table, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin staging transaction: %w", err)
	}
	stmt, err := tx.Prepare(insert)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert for %s: %w", table, err)
	}
	for i := 0; i < n; i++ {
		if err := bind(stmt, i); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("failed to stage %s row %d: %w", table, i, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit staging for %s: %w", table, err)
	}

	copySQL := fmt.Sprintf("COPY %s TO '%s' (FORMAT PARQUET)", table, strings.ReplaceAll(path, "'", "''"))
	if _, err := db.Exec(copySQL); err != nil {
		return fmt.Errorf("failed to copy %s to parquet: %w", table, err)
	}
	return nil
}
