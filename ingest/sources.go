package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-retryablehttp"
)

// PayloadFile is one raw file staged for ingestion.
type PayloadFile struct {
	// Name is the file name the snapshot will carry.
	Name string
	// Path is where the staged bytes live right now.
	Path string
}

// Payload is a source's current raw content, staged locally.
type Payload struct {
	Files []PayloadFile
	// Cleanup removes staging artifacts; nil when nothing was staged.
	Cleanup func()
}

// Source produces the raw payload for one configured dataset.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Payload, error)
}

// FileSource ingests a local bulk file as-is.
type FileSource struct {
	SourceID string
	Path     string
}

func (s FileSource) Name() string {
	return s.SourceID
}

func (s FileSource) Fetch(ctx context.Context) (Payload, error) {
	if _, err := os.Stat(s.Path); err != nil {
		return Payload{}, fmt.Errorf("bulk file for source %s not found: %w", s.SourceID, err)
	}
	return Payload{
		Files: []PayloadFile{{Name: filepath.Base(s.Path), Path: s.Path}},
	}, nil
}

// PullSource downloads a dataset over HTTP with retries. When AuthEnv is
// set, the named environment variable supplies a bearer token.
type PullSource struct {
	SourceID string
	URL      string
	FileName string
	AuthEnv  string

	// Client overrides the default retrying client, mainly for tests.
	Client *retryablehttp.Client
}

func (s PullSource) Name() string {
	return s.SourceID
}

func (s PullSource) client() *retryablehttp.Client {
	if s.Client != nil {
		return s.Client
	}
	c := retryablehttp.NewClient()
	c.RetryMax = 4
	c.Logger = nil
	return c
}

func (s PullSource) Fetch(ctx context.Context) (Payload, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to build pull request for %s: %w", s.SourceID, err)
	}
	if s.AuthEnv != "" {
		if token := os.Getenv(s.AuthEnv); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("pull for %s failed: %w", s.SourceID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Payload{}, fmt.Errorf("pull for %s returned status %d", s.SourceID, resp.StatusCode)
	}

	stagingDir, err := os.MkdirTemp("", "cinelake-pull-"+s.SourceID+"-")
	if err != nil {
		return Payload{}, fmt.Errorf("failed to create staging directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(stagingDir) }

	name := s.FileName
	if name == "" {
		name = filepath.Base(req.URL.Path)
	}
	staged := filepath.Join(stagingDir, name)
	f, err := os.Create(staged)
	if err != nil {
		cleanup()
		return Payload{}, fmt.Errorf("failed to create staging file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		cleanup()
		return Payload{}, fmt.Errorf("failed to stage pulled dataset for %s: %w", s.SourceID, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return Payload{}, fmt.Errorf("failed to flush staged dataset: %w", err)
	}

	return Payload{
		Files:   []PayloadFile{{Name: name, Path: staged}},
		Cleanup: cleanup,
	}, nil
}
