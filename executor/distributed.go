package executor

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cinelake/cinelake/linkage"
)

// Distributed curates over partitioned workers. Each worker folds its
// stripe of rows into a private accumulator; the partials merge into one
// result. Because the accumulator is associative and commutative, the
// worker count and stripe assignment never change the output.
type Distributed struct {
	Logger *zap.Logger

	// Workers is the partition count; <= 0 uses the CPU count.
	Workers int
}

func (d *Distributed) Name() string { return "distributed" }

func (d *Distributed) workers() int {
	if d.Workers > 0 {
		return d.Workers
	}
	return runtime.NumCPU()
}

func (d *Distributed) Run(ctx context.Context, in Inputs) (linkage.Result, error) {
	start := time.Now()
	log := d.logger()
	n := d.workers()

	rows, err := loadRows(in)
	if err != nil {
		return linkage.Result{}, err
	}
	log.Info("snapshots loaded",
		zap.Int("workers", n),
		zap.Int("rt_movies", len(rows.movies)),
		zap.Int("rt_reviews", len(rows.reviews)),
		zap.Int("imdb_titles", len(rows.titles)))

	partials := make([]*linkage.Accumulator, n)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < n; w++ {
		g.Go(func() error {
			acc := linkage.NewAccumulator()
			for i := w; i < len(rows.movies); i += n {
				acc.AddRTMovie(rows.movies[i])
			}
			for i := w; i < len(rows.reviews); i += n {
				acc.AddRTReview(rows.reviews[i])
			}
			for i := w; i < len(rows.titles); i += n {
				acc.AddIMDBTitle(rows.titles[i])
			}
			partials[w] = acc
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return linkage.Result{}, err
	}

	merged := linkage.NewAccumulator()
	for _, p := range partials {
		merged.Merge(p)
	}

	res := merged.Finalize()
	observe(d.Name(), start, res)
	log.Info("curation complete",
		zap.Int("films", len(res.Films)),
		zap.Int("reviews", len(res.Reviews)),
		zap.Int("people", len(res.People)),
		zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

func (d *Distributed) logger() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return zap.NewNop()
}
