package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const sampleYAML = `
sources:
  - id: rt_movies
    kind: csv_local
    path: /data/bulk/rotten_tomatoes_movies.csv
  - id: rt_reviews
    kind: csv_local
    path: /data/bulk/rotten_tomatoes_movie_reviews.csv
  - id: imdb_titles
    kind: http_pull
    url: https://example.com/datasets/imdb_titles.csv
    auth_env: IMDB_API_TOKEN
lake:
  raw_root: /lake/raw
executor:
  kind: distributed
  workers: 4
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Lake.LedgerPath != "/lake/raw/ingestion_ledger.jsonl" {
		t.Errorf("ledger path = %q", cfg.Lake.LedgerPath)
	}
	if cfg.LogLevel != "info" || cfg.MetricsPort != "8088" {
		t.Errorf("defaults = %q / %q", cfg.LogLevel, cfg.MetricsPort)
	}

	movies, ok := cfg.Source("rt_movies")
	if !ok || movies.FileName != "rotten_tomatoes_movies.csv" {
		t.Errorf("file name default = %q", movies.FileName)
	}
	pull, _ := cfg.Source("imdb_titles")
	if pull.FileName != "imdb_titles.csv" {
		t.Errorf("pull file name default = %q", pull.FileName)
	}

	if got := len(cfg.BuildSources()); got != 3 {
		t.Errorf("sources built = %d, want 3", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CINELAKE_LOG_LEVEL", "debug")
	t.Setenv("CINELAKE_ROW_LIMIT", "500")

	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want env override", cfg.LogLevel)
	}
	if cfg.Executor.RowLimit != 500 {
		t.Errorf("row limit = %d, want env override", cfg.Executor.RowLimit)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"duplicate id", `
sources:
  - id: rt_movies
    path: /a.csv
  - id: rt_movies
    path: /b.csv
`},
		{"pull without url", `
sources:
  - id: imdb_titles
    kind: http_pull
`},
		{"unknown kind", `
sources:
  - id: rt_movies
    kind: ftp
    path: /a.csv
`},
		{"unknown executor", `
executor:
  kind: spark
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.yaml)); err == nil {
				t.Errorf("config accepted: %s", tc.name)
			}
		})
	}
}
