// Package tables defines the typed row schemas for the lake: the raw
// per-source rows produced at the CSV decode boundary and the curated
// films/reviews/people rows published by the executors. Raw source columns
// never travel past this package as untyped maps.
package tables

import "time"

// FilmRow is a single row in the curated films table. One row per distinct
// film after linkage; re-runs overwrite, never append.
type FilmRow struct {
	// FilmID is the natural key: the IMDb identifier when known, else the
	// Rotten Tomatoes identifier, else a normalized title+year slug.
	FilmID string

	RTID   string
	IMDBID string

	Title string
	Year  *int

	// Genres is the union of source genre fields, case-folded and sorted.
	Genres       []string
	PrimaryGenre string

	RuntimeMinutes *int
	Language       string
	Country        string

	// Scores normalized to a common 0-100 scale.
	AudienceScore *float64
	TomatoMeter   *float64
	IMDBRating    *float64
	Metascore     *float64
	IMDBVotes     *float64

	BoxOfficeUSD *float64

	// RevenuePerMinute is box office / runtime, nil unless both are present
	// and runtime is positive.
	RevenuePerMinute *float64

	RTReleaseDate   *time.Time
	RTStreamingDate *time.Time
	IMDBReleaseDate *time.Time
}

// ReviewRow is a single row in the curated reviews table. Reviews reference
// films (many-to-one) and are immutable once curated from a snapshot.
type ReviewRow struct {
	ReviewID        string
	FilmID          string
	CriticName      string
	PublicationName string
	IsTopCritic     bool

	OriginalScoreRaw string
	// ScoreNormalized is the original score mapped to the 0-100 scale,
	// nil when the raw value is unparseable.
	ScoreNormalized *float64

	ScoreSentiment string
	// Sentiment is 1 for fresh, 0 for rotten, nil otherwise.
	Sentiment *int

	ReviewText string
	CreatedAt  *time.Time
}

// Person roles. A person may hold several roles across films; each
// (film, person, role) association is its own row.
const (
	RoleActor    = "actor"
	RoleDirector = "director"
	RoleWriter   = "writer"
)

// PersonRow is a single row in the curated people table.
type PersonRow struct {
	// PersonID is derived from the normalized name (case-folded, non-word
	// runs collapsed to underscores). Identity is name-based; distinct
	// spellings stay distinct people.
	PersonID string
	FilmID   string
	Name     string
	Role     string
}

// TableName constants for the three curated tables.
const (
	TableFilms   = "films"
	TableReviews = "reviews"
	TablePeople  = "people"
)
