// Package config loads the pipeline configuration from YAML with
// defaults and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cinelake/cinelake/ingest"
)

// Source kinds.
const (
	KindCSVLocal = "csv_local"
	KindHTTPPull = "http_pull"
)

// Well-known dataset identifiers the curation pass expects.
const (
	SourceRTMovies   = "rt_movies"
	SourceRTReviews  = "rt_reviews"
	SourceIMDBTitles = "imdb_titles"
)

// SourceConfig describes one raw dataset.
type SourceConfig struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`

	// Path is the bulk file location for csv_local sources.
	Path string `yaml:"path"`

	// URL and AuthEnv configure http_pull sources. AuthEnv names an
	// environment variable holding a bearer token.
	URL     string `yaml:"url"`
	AuthEnv string `yaml:"auth_env"`

	// FileName is the name the snapshot carries; defaults to the base of
	// Path or URL.
	FileName string `yaml:"file_name"`
}

// LakeConfig holds the lake layout.
type LakeConfig struct {
	RawRoot     string `yaml:"raw_root"`
	CuratedRoot string `yaml:"curated_root"`
	LedgerPath  string `yaml:"ledger_path"`
	LocalMirror string `yaml:"local_mirror"`
	DuckDBPath  string `yaml:"duckdb_path"`
	ContribRoot string `yaml:"contrib_root"`
}

// ExecutorConfig tunes the curation pass.
type ExecutorConfig struct {
	Kind     string `yaml:"kind"`
	Workers  int    `yaml:"workers"`
	RowLimit int    `yaml:"row_limit"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Sources     []SourceConfig `yaml:"sources"`
	Lake        LakeConfig     `yaml:"lake"`
	Executor    ExecutorConfig `yaml:"executor"`
	MetricsPort string         `yaml:"metrics_port"`
	LogLevel    string         `yaml:"log_level"`
}

// LoadConfig reads the YAML file, applies defaults and environment
// overrides, and validates the result.
func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.ApplyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) ApplyDefaults() {
	if c.Lake.RawRoot == "" {
		c.Lake.RawRoot = "data/raw"
	}
	if c.Lake.CuratedRoot == "" {
		c.Lake.CuratedRoot = "data/curated"
	}
	if c.Lake.LedgerPath == "" {
		c.Lake.LedgerPath = filepath.Join(c.Lake.RawRoot, "ingestion_ledger.jsonl")
	}
	if c.Lake.DuckDBPath == "" {
		c.Lake.DuckDBPath = "data/cinelake.duckdb"
	}
	if c.Lake.ContribRoot == "" {
		c.Lake.ContribRoot = "data/contrib"
	}
	if c.Executor.Kind == "" {
		c.Executor.Kind = "local"
	}
	if c.MetricsPort == "" {
		c.MetricsPort = "8088"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Kind == "" {
			s.Kind = KindCSVLocal
		}
		if s.FileName == "" {
			if s.Path != "" {
				s.FileName = filepath.Base(s.Path)
			} else if s.URL != "" {
				s.FileName = filepath.Base(s.URL)
			}
		}
	}
}

func (c *AppConfig) applyEnv() {
	c.LogLevel = getEnv("CINELAKE_LOG_LEVEL", c.LogLevel)
	c.Executor.RowLimit = getIntEnv("CINELAKE_ROW_LIMIT", c.Executor.RowLimit)
}

func (c *AppConfig) Validate() error {
	ids := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.ID == "" {
			return fmt.Errorf("source without id")
		}
		if ids[s.ID] {
			return fmt.Errorf("duplicate source id %q", s.ID)
		}
		ids[s.ID] = true
		switch s.Kind {
		case KindCSVLocal:
			if s.Path == "" {
				return fmt.Errorf("source %s: csv_local requires path", s.ID)
			}
		case KindHTTPPull:
			if s.URL == "" {
				return fmt.Errorf("source %s: http_pull requires url", s.ID)
			}
		default:
			return fmt.Errorf("source %s: unknown kind %q", s.ID, s.Kind)
		}
	}
	switch c.Executor.Kind {
	case "local", "distributed":
	default:
		return fmt.Errorf("unknown executor kind %q", c.Executor.Kind)
	}
	if c.Executor.Workers < 0 {
		return fmt.Errorf("executor workers must be >= 0")
	}
	return nil
}

// Source returns the configuration for one dataset id.
func (c *AppConfig) Source(id string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// BuildSources turns the configured datasets into ingestion sources.
func (c *AppConfig) BuildSources() []ingest.Source {
	out := make([]ingest.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		switch s.Kind {
		case KindHTTPPull:
			out = append(out, ingest.PullSource{
				SourceID: s.ID,
				URL:      s.URL,
				FileName: s.FileName,
				AuthEnv:  s.AuthEnv,
			})
		default:
			out = append(out, ingest.FileSource{SourceID: s.ID, Path: s.Path})
		}
	}
	return out
}

// NewLogger builds the process logger at the configured level.
func (c *AppConfig) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
