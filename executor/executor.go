// Package executor runs the curation pass: it reads the latest completed
// raw snapshots, normalizes and links them, and hands back curated rows.
// Two executors exist, a single-process one and a partitioned one, and
// they are output-equivalent on the same snapshots.
package executor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cinelake/cinelake/linkage"
	"github.com/cinelake/cinelake/metrics"
	"github.com/cinelake/cinelake/snapshot"
	"github.com/cinelake/cinelake/tables"
)

// SourceFile names one dataset inside the raw lake.
type SourceFile struct {
	SourceID string
	FileName string
}

// Inputs describes one curation run.
type Inputs struct {
	RawRoot    string
	RTMovies   SourceFile
	RTReviews  SourceFile
	IMDBTitles SourceFile

	// RowLimit caps rows read per dataset; <= 0 reads everything.
	RowLimit int
}

// Executor computes curated rows from the latest snapshots.
type Executor interface {
	Name() string
	Run(ctx context.Context, in Inputs) (linkage.Result, error)
}

// rawRows is the decoded content of the three latest snapshots.
type rawRows struct {
	movies  []tables.RTMovieRaw
	reviews []tables.RTReviewRaw
	titles  []tables.IMDBTitleRaw
}

// loadRows resolves each dataset to its latest completed snapshot and
// decodes it. Incomplete snapshot directories are invisible here.
func loadRows(in Inputs) (rawRows, error) {
	var rows rawRows

	err := readSnapshot(in.RawRoot, in.RTMovies, func(f *os.File) error {
		var err error
		rows.movies, err = tables.DecodeRTMovies(f, in.RowLimit)
		return err
	})
	if err != nil {
		return rawRows{}, err
	}

	err = readSnapshot(in.RawRoot, in.RTReviews, func(f *os.File) error {
		var err error
		rows.reviews, err = tables.DecodeRTReviews(f, in.RowLimit)
		return err
	})
	if err != nil {
		return rawRows{}, err
	}

	err = readSnapshot(in.RawRoot, in.IMDBTitles, func(f *os.File) error {
		var err error
		rows.titles, err = tables.DecodeIMDBTitles(f, in.RowLimit)
		return err
	})
	if err != nil {
		return rawRows{}, err
	}

	return rows, nil
}

func readSnapshot(rawRoot string, sf SourceFile, decode func(*os.File) error) error {
	_, path, err := snapshot.Latest(rawRoot, sf.SourceID, sf.FileName)
	if err != nil {
		return fmt.Errorf("no completed snapshot for %s: %w", sf.SourceID, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file %s: %w", path, err)
	}
	defer f.Close()
	if err := decode(f); err != nil {
		return fmt.Errorf("failed to decode %s: %w", sf.SourceID, err)
	}
	return nil
}

// observe records run metrics shared by both executors.
func observe(name string, start time.Time, res linkage.Result) {
	metrics.ExecutorRunDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	metrics.RowsMerged.WithLabelValues(tables.TableFilms).Add(float64(len(res.Films)))
	metrics.RowsMerged.WithLabelValues(tables.TableReviews).Add(float64(len(res.Reviews)))
	metrics.RowsMerged.WithLabelValues(tables.TablePeople).Add(float64(len(res.People)))
	for _, w := range res.Warnings {
		metrics.NormalizationWarnings.WithLabelValues(w.Field).Inc()
	}
}
