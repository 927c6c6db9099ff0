// Command transform runs the curation pass: it reads the latest
// completed snapshots, links them into the curated tables, publishes
// parquet atomically, and materializes the DuckDB view.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cinelake/cinelake/config"
	"github.com/cinelake/cinelake/executor"
	"github.com/cinelake/cinelake/metrics"
	"github.com/cinelake/cinelake/snapshot"
	"github.com/cinelake/cinelake/store"
)

// backendConf collects repeatable -backend-conf key=value overrides.
type backendConf map[string]string

func (b backendConf) String() string {
	pairs := make([]string, 0, len(b))
	for k, v := range b {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (b backendConf) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	b[k] = v
	return nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the pipeline config")
	executorKind := flag.String("executor", "", "executor override: local or distributed")
	rawBase := flag.String("raw-base", "", "raw lake root override")
	curatedBase := flag.String("curated-base", "", "curated lake root override")
	localMirror := flag.String("local-mirror", "", "mirror directory override")
	conf := backendConf{}
	flag.Var(conf, "backend-conf", "backend override as key=value, repeatable")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyOverrides(cfg, *executorKind, *rawBase, *curatedBase, *localMirror, conf)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	go func() {
		if err := metrics.Serve(cfg.MetricsPort); err != nil {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	in, err := buildInputs(cfg)
	if err != nil {
		logger.Fatal("bad source configuration", zap.Error(err))
	}

	var exec executor.Executor
	switch cfg.Executor.Kind {
	case "distributed":
		exec = &executor.Distributed{Logger: logger, Workers: cfg.Executor.Workers}
	default:
		exec = &executor.Local{Logger: logger}
	}

	logger.Info("curation starting",
		zap.String("executor", exec.Name()),
		zap.String("raw_root", in.RawRoot),
		zap.String("curated_root", cfg.Lake.CuratedRoot))

	res, err := exec.Run(context.Background(), in)
	if err != nil {
		logger.Fatal("curation failed", zap.Error(err))
	}

	runID := snapshot.NewRunID(time.Now())
	w := &store.Writer{CuratedRoot: cfg.Lake.CuratedRoot, Logger: logger}
	man, err := w.Publish(res, runID, exec.Name())
	if err != nil {
		logger.Fatal("publish failed", zap.Error(err))
	}

	if cfg.Lake.DuckDBPath != "" {
		if err := store.Materialize(cfg.Lake.DuckDBPath, w); err != nil {
			logger.Fatal("materialization failed", zap.Error(err))
		}
		logger.Info("duckdb materialized", zap.String("path", cfg.Lake.DuckDBPath))
	}
	if cfg.Lake.LocalMirror != "" {
		if err := store.Mirror(cfg.Lake.CuratedRoot, cfg.Lake.LocalMirror); err != nil {
			logger.Fatal("mirror failed", zap.Error(err))
		}
		logger.Info("mirror refreshed", zap.String("path", cfg.Lake.LocalMirror))
	}

	logger.Info("curation finished",
		zap.String("run_id", man.RunID),
		zap.Int("films", len(res.Films)),
		zap.Int("reviews", len(res.Reviews)),
		zap.Int("people", len(res.People)),
		zap.Int("warnings", len(res.Warnings)))
}

func applyOverrides(cfg *config.AppConfig, executorKind, rawBase, curatedBase, localMirror string, conf backendConf) {
	if executorKind != "" {
		cfg.Executor.Kind = executorKind
	}
	if rawBase != "" {
		cfg.Lake.RawRoot = rawBase
	}
	if curatedBase != "" {
		cfg.Lake.CuratedRoot = curatedBase
	}
	if localMirror != "" {
		cfg.Lake.LocalMirror = localMirror
	}
	for k, v := range conf {
		switch k {
		case "raw_root":
			cfg.Lake.RawRoot = v
		case "curated_root":
			cfg.Lake.CuratedRoot = v
		case "local_mirror":
			cfg.Lake.LocalMirror = v
		case "duckdb_path":
			cfg.Lake.DuckDBPath = v
		case "workers":
			if n, err := strconv.Atoi(v); err == nil {
				cfg.Executor.Workers = n
			}
		case "row_limit":
			if n, err := strconv.Atoi(v); err == nil {
				cfg.Executor.RowLimit = n
			}
		}
	}
}

func buildInputs(cfg *config.AppConfig) (executor.Inputs, error) {
	in := executor.Inputs{
		RawRoot:  cfg.Lake.RawRoot,
		RowLimit: cfg.Executor.RowLimit,
	}
	for _, bind := range []struct {
		id  string
		dst *executor.SourceFile
	}{
		{config.SourceRTMovies, &in.RTMovies},
		{config.SourceRTReviews, &in.RTReviews},
		{config.SourceIMDBTitles, &in.IMDBTitles},
	} {
		src, ok := cfg.Source(bind.id)
		if !ok {
			return executor.Inputs{}, fmt.Errorf("source %s not configured", bind.id)
		}
		*bind.dst = executor.SourceFile{SourceID: src.ID, FileName: src.FileName}
	}
	return in, nil
}
