package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cinelake/cinelake/linkage"
)

// Local curates everything in-process with a single accumulator. It is
// the development and small-dataset path.
type Local struct {
	Logger *zap.Logger
}

func (l *Local) Name() string { return "local" }

func (l *Local) Run(ctx context.Context, in Inputs) (linkage.Result, error) {
	start := time.Now()
	log := l.logger()

	rows, err := loadRows(in)
	if err != nil {
		return linkage.Result{}, err
	}
	log.Info("snapshots loaded",
		zap.Int("rt_movies", len(rows.movies)),
		zap.Int("rt_reviews", len(rows.reviews)),
		zap.Int("imdb_titles", len(rows.titles)))

	acc := linkage.NewAccumulator()
	for _, m := range rows.movies {
		acc.AddRTMovie(m)
	}
	for _, r := range rows.reviews {
		acc.AddRTReview(r)
	}
	for _, t := range rows.titles {
		acc.AddIMDBTitle(t)
	}

	res := acc.Finalize()
	observe(l.Name(), start, res)
	log.Info("curation complete",
		zap.Int("films", len(res.Films)),
		zap.Int("reviews", len(res.Reviews)),
		zap.Int("people", len(res.People)),
		zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

func (l *Local) logger() *zap.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return zap.NewNop()
}
