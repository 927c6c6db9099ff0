// Package contrib is the user-contribution overlay: corrections and
// reviews submitted by users, kept in an append-only store beside the
// lake. The curation pipeline never reads or writes this store; overlays
// are applied at read time on top of curated rows.
package contrib

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cinelake/cinelake/tables"
)

// FilmOverride is one sparse user correction to a curated film. Only the
// non-nil fields apply.
type FilmOverride struct {
	OverrideID  string    `json:"override_id"`
	FilmID      string    `json:"film_id"`
	SubmittedBy string    `json:"submitted_by"`
	SubmittedAt time.Time `json:"submitted_at"`

	Title          *string `json:"title,omitempty"`
	Year           *int    `json:"year,omitempty"`
	RuntimeMinutes *int    `json:"runtime_minutes,omitempty"`
	PrimaryGenre   *string `json:"primary_genre,omitempty"`
}

// UserReview is one user-submitted review. Score is on the curated 0-100
// scale.
type UserReview struct {
	ReviewID    string    `json:"review_id"`
	FilmID      string    `json:"film_id"`
	Author      string    `json:"author"`
	Score       *float64  `json:"score,omitempty"`
	ReviewText  string    `json:"review_text"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Store holds contributions as JSONL files under one directory. Appends
// are single writes on O_APPEND handles; reads tolerate a torn last line.
type Store struct {
	mu   sync.Mutex
	root string

	// Now is injectable for deterministic timestamps in tests.
	Now func() time.Time
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create contribution store: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) overridesPath() string { return filepath.Join(s.root, "film_overrides.jsonl") }
func (s *Store) reviewsPath() string   { return filepath.Join(s.root, "user_reviews.jsonl") }

// AddOverride appends one correction. The identifier and timestamp are
// assigned here.
func (s *Store) AddOverride(o FilmOverride) (FilmOverride, error) {
	if o.FilmID == "" {
		return FilmOverride{}, fmt.Errorf("override without film id")
	}
	o.OverrideID = uuid.NewString()
	o.SubmittedAt = s.now().UTC()
	if err := s.appendJSON(s.overridesPath(), o); err != nil {
		return FilmOverride{}, err
	}
	return o, nil
}

// AddReview appends one user review.
func (s *Store) AddReview(r UserReview) (UserReview, error) {
	if r.FilmID == "" {
		return UserReview{}, fmt.Errorf("review without film id")
	}
	r.ReviewID = "user-" + uuid.NewString()
	r.SubmittedAt = s.now().UTC()
	if err := s.appendJSON(s.reviewsPath(), r); err != nil {
		return UserReview{}, err
	}
	return r, nil
}

// Overrides returns every stored correction in submission order.
func (s *Store) Overrides() ([]FilmOverride, error) {
	var out []FilmOverride
	err := readJSONL(s.overridesPath(), func(line []byte) error {
		var o FilmOverride
		if err := json.Unmarshal(line, &o); err != nil {
			return nil // torn trailing line
		}
		out = append(out, o)
		return nil
	})
	return out, err
}

// Reviews returns every stored user review in submission order.
func (s *Store) Reviews() ([]UserReview, error) {
	var out []UserReview
	err := readJSONL(s.reviewsPath(), func(line []byte) error {
		var r UserReview
		if err := json.Unmarshal(line, &r); err != nil {
			return nil
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

func (s *Store) appendJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal contribution: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open contribution store: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to append contribution: %w", err)
	}
	return f.Sync()
}

func readJSONL(path string, each func([]byte) error) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open contribution store: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := each(scanner.Bytes()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ApplyOverrides returns a copy of the curated films with user
// corrections layered on top, later submissions winning. Curated rows are
// never mutated.
func ApplyOverrides(films []tables.FilmRow, overrides []FilmOverride) []tables.FilmRow {
	byFilm := make(map[string][]FilmOverride)
	for _, o := range overrides {
		byFilm[o.FilmID] = append(byFilm[o.FilmID], o)
	}

	out := make([]tables.FilmRow, len(films))
	copy(out, films)
	for i := range out {
		for _, o := range byFilm[out[i].FilmID] {
			if o.Title != nil {
				out[i].Title = *o.Title
			}
			if o.Year != nil {
				y := *o.Year
				out[i].Year = &y
			}
			if o.RuntimeMinutes != nil {
				m := *o.RuntimeMinutes
				out[i].RuntimeMinutes = &m
			}
			if o.PrimaryGenre != nil {
				out[i].PrimaryGenre = *o.PrimaryGenre
			}
		}
	}
	return out
}

// MergeReviews appends user reviews to the curated reviews as rows,
// sorted by review id so the overlayed view is stable.
func MergeReviews(curated []tables.ReviewRow, user []UserReview) []tables.ReviewRow {
	out := make([]tables.ReviewRow, len(curated), len(curated)+len(user))
	copy(out, curated)
	for _, r := range user {
		row := tables.ReviewRow{
			ReviewID:   r.ReviewID,
			FilmID:     r.FilmID,
			CriticName: r.Author,
			ReviewText: r.ReviewText,
		}
		if r.Score != nil {
			v := *r.Score
			row.ScoreNormalized = &v
		}
		t := r.SubmittedAt
		row.CreatedAt = &t
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewID < out[j].ReviewID })
	return out
}
