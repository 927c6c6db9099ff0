package contrib

import (
	"os"
	"testing"
	"time"

	"github.com/cinelake/cinelake/tables"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.Now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

func TestOverridesRoundTrip(t *testing.T) {
	s := newStore(t)

	first, err := s.AddOverride(FilmOverride{FilmID: "tt1", SubmittedBy: "alex", Year: intptr(1987)})
	if err != nil {
		t.Fatalf("AddOverride: %v", err)
	}
	if first.OverrideID == "" || first.SubmittedAt.IsZero() {
		t.Errorf("override not stamped: %+v", first)
	}
	if _, err := s.AddOverride(FilmOverride{FilmID: "tt1", SubmittedBy: "sam", Title: strptr("Blue Velvet")}); err != nil {
		t.Fatalf("AddOverride: %v", err)
	}

	got, err := s.Overrides()
	if err != nil {
		t.Fatalf("Overrides: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("overrides = %d, want 2", len(got))
	}
	if got[0].SubmittedBy != "alex" || got[1].SubmittedBy != "sam" {
		t.Errorf("submission order lost: %+v", got)
	}
}

func TestAddRejectsMissingFilmID(t *testing.T) {
	s := newStore(t)
	if _, err := s.AddOverride(FilmOverride{}); err == nil {
		t.Error("override without film id accepted")
	}
	if _, err := s.AddReview(UserReview{}); err == nil {
		t.Error("review without film id accepted")
	}
}

func TestApplyOverridesLayersWithoutMutating(t *testing.T) {
	year := 1986
	films := []tables.FilmRow{
		{FilmID: "tt1", Title: "Blue Velvt", Year: &year},
		{FilmID: "tt2", Title: "Dune"},
	}
	overrides := []FilmOverride{
		{FilmID: "tt1", Title: strptr("Blue Velvet")},
		{FilmID: "tt1", Year: intptr(1987)},
	}

	got := ApplyOverrides(films, overrides)
	if got[0].Title != "Blue Velvet" || got[0].Year == nil || *got[0].Year != 1987 {
		t.Errorf("overlayed film = %+v", got[0])
	}
	if got[1].Title != "Dune" {
		t.Errorf("untargeted film changed: %+v", got[1])
	}
	// Curated input stays untouched.
	if films[0].Title != "Blue Velvt" || *films[0].Year != 1986 {
		t.Errorf("curated row mutated: %+v", films[0])
	}
}

func TestMergeReviewsAppendsUserRows(t *testing.T) {
	s := newStore(t)
	score := 85.0
	added, err := s.AddReview(UserReview{FilmID: "tt1", Author: "alex", Score: &score, ReviewText: "great"})
	if err != nil {
		t.Fatalf("AddReview: %v", err)
	}

	user, err := s.Reviews()
	if err != nil {
		t.Fatalf("Reviews: %v", err)
	}
	curated := []tables.ReviewRow{{ReviewID: "r1", FilmID: "tt1"}}
	merged := MergeReviews(curated, user)
	if len(merged) != 2 {
		t.Fatalf("merged = %d, want 2", len(merged))
	}
	var found bool
	for _, r := range merged {
		if r.ReviewID == added.ReviewID {
			found = true
			if r.ScoreNormalized == nil || *r.ScoreNormalized != 85 {
				t.Errorf("user review score = %v", r.ScoreNormalized)
			}
		}
	}
	if !found {
		t.Error("user review missing from merged view")
	}
}

func TestReadToleratesTornTrailingLine(t *testing.T) {
	s := newStore(t)
	if _, err := s.AddOverride(FilmOverride{FilmID: "tt1"}); err != nil {
		t.Fatalf("AddOverride: %v", err)
	}
	f, err := os.OpenFile(s.overridesPath(), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.WriteString(`{"override_id":"half`)
	f.Close()

	got, err := s.Overrides()
	if err != nil {
		t.Fatalf("Overrides: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("overrides = %d, want the intact line only", len(got))
	}
}
