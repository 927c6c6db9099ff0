// Package linkage joins and deduplicates entities across sources into the
// curated schema. The Accumulator is associative and commutative with
// respect to row partitioning: partial state is keyed per-source facts,
// duplicate keys collapse through a total order, and every cross-source
// decision happens in Finalize over sorted keys. Worker partitioning can
// never change the output.
package linkage

import (
	"sort"
	"strings"
	"time"

	"github.com/cinelake/cinelake/normalize"
	"github.com/cinelake/cinelake/tables"
)

// Result is the curated output of one merge.
type Result struct {
	Films   []tables.FilmRow
	Reviews []tables.ReviewRow
	People  []tables.PersonRow

	// Warnings carries every field that degraded to null during
	// normalization, sorted for stable reporting.
	Warnings []normalize.Warning
}

// Scalar conflict resolution is a fixed source-priority order, never
// iteration order: the pull source (IMDb) wins ties on shared film facts,
// the bulk source fills gaps. Single-source fields (audience score, tomato
// meter, imdb rating) come from their only source.
//
// This is the precedence the whole pipeline guarantees; both executors
// share it by construction.

type rtFacts struct {
	rtID             string
	title            string
	audienceScore    *float64
	tomatoMeter      *float64
	runtimeMinutes   *int
	boxOfficeUSD     *float64
	releaseTheaters  *time.Time
	releaseStreaming *time.Time
	genres           []string
	primaryGenre     string
	director         string
	writer           string
}

type imdbFacts struct {
	imdbID       string
	rtRef        string
	title        string
	year         *int
	runtime      *int
	boxOfficeUSD *float64
	rating       *float64
	votes        *float64
	metascore    *float64
	language     string
	country      string
	genres       []string
	primaryGenre string
	director     string
	writer       string
	actors       string
	released     *time.Time
}

// Accumulator collects normalized per-source facts. Zero value is not
// usable; call NewAccumulator.
type Accumulator struct {
	rt       map[string]*rtFacts
	imdb     map[string]*imdbFacts
	reviews  map[string]*tables.ReviewRow
	warnings []normalize.Warning
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		rt:      make(map[string]*rtFacts),
		imdb:    make(map[string]*imdbFacts),
		reviews: make(map[string]*tables.ReviewRow),
	}
}

func (a *Accumulator) warn(w *normalize.Warning) {
	if w != nil {
		a.warnings = append(a.warnings, *w)
	}
}

// AddRTMovie normalizes and accumulates one RT movies row.
func (a *Accumulator) AddRTMovie(raw tables.RTMovieRaw) {
	rtID := strings.TrimSpace(raw.RTID)
	if rtID == "" {
		// No identity at all; the row cannot be linked or keyed.
		a.warnings = append(a.warnings, normalize.Warning{
			Field: "rt_id", Raw: raw.Title, Reason: "row without identifier dropped",
		})
		return
	}

	f := &rtFacts{rtID: rtID, title: strings.TrimSpace(raw.Title)}
	var w *normalize.Warning
	f.audienceScore, w = normalize.Float(raw.AudienceScore)
	a.warn(w)
	f.tomatoMeter, w = normalize.Float(raw.TomatoMeter)
	a.warn(w)
	f.runtimeMinutes, w = normalize.Runtime(raw.RuntimeMinutes)
	a.warn(w)
	f.boxOfficeUSD, w = normalize.Currency(raw.BoxOffice)
	a.warn(w)
	f.releaseTheaters, w = normalize.Timestamp(raw.ReleaseDateTheaters)
	a.warn(w)
	f.releaseStreaming, w = normalize.Timestamp(raw.ReleaseDateStreaming)
	a.warn(w)
	f.genres = normalize.Genres(raw.Genre)
	f.primaryGenre = firstGenre(raw.Genre)
	f.director = raw.Director
	f.writer = raw.Writer

	if prev, ok := a.rt[rtID]; ok {
		a.rt[rtID] = chooseRT(prev, f)
		return
	}
	a.rt[rtID] = f
}

// AddIMDBTitle normalizes and accumulates one pulled IMDb row.
func (a *Accumulator) AddIMDBTitle(raw tables.IMDBTitleRaw) {
	f := &imdbFacts{
		imdbID:   strings.TrimSpace(raw.IMDBID),
		rtRef:    normalize.RTIDFromURL(raw.TomatoURL),
		title:    strings.TrimSpace(raw.Title),
		director: raw.Director,
		writer:   raw.Writer,
		actors:   raw.Actors,
		language: cleanOptional(raw.Language),
		country:  cleanOptional(raw.Country),
	}
	var w *normalize.Warning
	f.year, w = normalize.Year(raw.Year)
	a.warn(w)
	f.runtime, w = normalize.Runtime(raw.Runtime)
	a.warn(w)
	f.boxOfficeUSD, w = normalize.Currency(raw.BoxOffice)
	a.warn(w)
	f.rating, w = normalize.Float(raw.IMDBRating)
	a.warn(w)
	f.votes, w = normalize.Float(raw.IMDBVotes)
	a.warn(w)
	f.metascore, w = normalize.Float(raw.Metascore)
	a.warn(w)
	f.released, w = normalize.Timestamp(raw.Released)
	a.warn(w)
	f.genres = normalize.Genres(raw.Genre)
	f.primaryGenre = firstGenre(raw.Genre)

	// IMDb ratings are on a 0-10 scale; the curated schema is 0-100.
	if f.rating != nil {
		v := *f.rating * 10
		f.rating = &v
	}

	key := imdbKey(f)
	if key == "" {
		a.warnings = append(a.warnings, normalize.Warning{
			Field: "imdb_id", Raw: raw.Title, Reason: "row without identifier dropped",
		})
		return
	}
	if prev, ok := a.imdb[key]; ok {
		a.imdb[key] = chooseIMDB(prev, f)
		return
	}
	a.imdb[key] = f
}

// AddRTReview normalizes and accumulates one RT reviews row.
func (a *Accumulator) AddRTReview(raw tables.RTReviewRaw) {
	reviewID := strings.TrimSpace(raw.ReviewID)
	if reviewID == "" {
		a.warnings = append(a.warnings, normalize.Warning{
			Field: "review_id", Raw: raw.RTID, Reason: "row without identifier dropped",
		})
		return
	}

	row := &tables.ReviewRow{
		ReviewID:         reviewID,
		FilmID:           strings.TrimSpace(raw.RTID), // resolved in Finalize
		CriticName:       strings.TrimSpace(raw.CriticName),
		PublicationName:  normalizePublication(raw.PublicationName),
		OriginalScoreRaw: strings.TrimSpace(raw.OriginalScore),
		ScoreSentiment:   strings.TrimSpace(raw.ScoreSentiment),
		ReviewText:       normalize.DecodeText(raw.ReviewText),
		Sentiment:        normalize.Sentiment(raw.ReviewState),
	}
	if b := normalize.Bool(raw.IsTopCritic); b != nil {
		row.IsTopCritic = *b
	}
	var w *normalize.Warning
	row.ScoreNormalized, w = normalize.Score(raw.OriginalScore)
	a.warn(w)
	row.CreatedAt, w = normalize.Timestamp(raw.CreationDate)
	a.warn(w)

	if prev, ok := a.reviews[reviewID]; ok {
		a.reviews[reviewID] = chooseReview(prev, row)
		return
	}
	a.reviews[reviewID] = row
}

// Merge folds another accumulator into this one. Merge order does not
// affect the final result.
func (a *Accumulator) Merge(other *Accumulator) {
	for k, f := range other.rt {
		if prev, ok := a.rt[k]; ok {
			a.rt[k] = chooseRT(prev, f)
		} else {
			a.rt[k] = f
		}
	}
	for k, f := range other.imdb {
		if prev, ok := a.imdb[k]; ok {
			a.imdb[k] = chooseIMDB(prev, f)
		} else {
			a.imdb[k] = f
		}
	}
	for k, r := range other.reviews {
		if prev, ok := a.reviews[k]; ok {
			a.reviews[k] = chooseReview(prev, r)
		} else {
			a.reviews[k] = r
		}
	}
	a.warnings = append(a.warnings, other.warnings...)
}

// filmBuild pairs a curated row with the credit fields people are
// exploded from.
type filmBuild struct {
	row          tables.FilmRow
	rtDirector   string
	rtWriter     string
	imdbDirector string
	imdbWriter   string
	actors       string
}

// Finalize links the accumulated facts into curated rows. All iteration
// is over sorted keys so output is reproducible row for row.
func (a *Accumulator) Finalize() Result {
	// Index IMDb rows by their linkage handles.
	imdbKeys := sortedKeys(a.imdb)
	byRTRef := make(map[string]string)    // rtRef -> imdb map key
	byTitleKey := make(map[string]string) // normalized title+year -> imdb map key
	for _, k := range imdbKeys {
		f := a.imdb[k]
		if f.rtRef != "" {
			if prev, ok := byRTRef[f.rtRef]; !ok || k < prev {
				byRTRef[f.rtRef] = k
			}
		}
		if f.year != nil && f.title != "" {
			tk := normalize.TitleKey(f.title, *f.year)
			if prev, ok := byTitleKey[tk]; !ok || k < prev {
				byTitleKey[tk] = k
			}
		}
	}

	matched := make(map[string]bool)
	var builds []filmBuild

	// Pass 1: every RT film becomes a row, joined to IMDb when a link
	// exists. Precedence: explicit cross-source reference, then
	// normalized title+year. (Exact native-ID matching would come first,
	// but the bulk source does not carry IMDb identifiers.)
	for _, rtID := range sortedKeys(a.rt) {
		rt := a.rt[rtID]
		var im *imdbFacts
		if k, ok := byRTRef[rtID]; ok {
			im = a.imdb[k]
			matched[k] = true
		} else if rt.releaseTheaters != nil && rt.title != "" {
			tk := normalize.TitleKey(rt.title, rt.releaseTheaters.Year())
			if k, ok := byTitleKey[tk]; ok {
				im = a.imdb[k]
				matched[k] = true
			}
		}
		builds = append(builds, buildFilm(rt, im))
	}

	// Pass 2: unmatched IMDb rows still become films; no silent drops.
	for _, k := range imdbKeys {
		if matched[k] {
			continue
		}
		builds = append(builds, buildFilm(nil, a.imdb[k]))
	}

	// Collapse duplicate natural keys deterministically.
	sort.Slice(builds, func(i, j int) bool {
		if builds[i].row.FilmID != builds[j].row.FilmID {
			return builds[i].row.FilmID < builds[j].row.FilmID
		}
		return builds[i].row.Title < builds[j].row.Title
	})
	deduped := builds[:0]
	for _, b := range builds {
		if len(deduped) > 0 && deduped[len(deduped)-1].row.FilmID == b.row.FilmID {
			continue
		}
		deduped = append(deduped, b)
	}
	builds = deduped

	films := make([]tables.FilmRow, 0, len(builds))
	rtToFilm := make(map[string]string)
	for _, b := range builds {
		films = append(films, b.row)
		if b.row.RTID != "" {
			rtToFilm[b.row.RTID] = b.row.FilmID
		}
	}

	// Reviews: resolve the film reference through the linked key. A
	// review whose film never appeared keeps its raw reference rather
	// than being dropped.
	reviews := make([]tables.ReviewRow, 0, len(a.reviews))
	for _, id := range sortedKeys(a.reviews) {
		row := *a.reviews[id]
		if filmID, ok := rtToFilm[row.FilmID]; ok {
			row.FilmID = filmID
		}
		reviews = append(reviews, row)
	}

	people := buildPeople(builds)

	warnings := make([]normalize.Warning, len(a.warnings))
	copy(warnings, a.warnings)
	sort.Slice(warnings, func(i, j int) bool {
		if warnings[i].Field != warnings[j].Field {
			return warnings[i].Field < warnings[j].Field
		}
		return warnings[i].Raw < warnings[j].Raw
	})

	return Result{Films: films, Reviews: reviews, People: people, Warnings: warnings}
}

// buildFilm coalesces one linked pair (either side may be nil) into a
// curated film plus its credit fields.
func buildFilm(rt *rtFacts, im *imdbFacts) filmBuild {
	var b filmBuild
	row := &b.row

	if rt != nil {
		row.RTID = rt.rtID
		row.Title = rt.title
		row.AudienceScore = rt.audienceScore
		row.TomatoMeter = rt.tomatoMeter
		row.RuntimeMinutes = rt.runtimeMinutes
		row.BoxOfficeUSD = rt.boxOfficeUSD
		row.RTReleaseDate = rt.releaseTheaters
		row.RTStreamingDate = rt.releaseStreaming
		row.Genres = rt.genres
		row.PrimaryGenre = rt.primaryGenre
		if rt.releaseTheaters != nil {
			y := rt.releaseTheaters.Year()
			row.Year = &y
		}
		b.rtDirector = rt.director
		b.rtWriter = rt.writer
	}

	if im != nil {
		row.IMDBID = im.imdbID
		if row.RTID == "" {
			row.RTID = im.rtRef
		}
		// Pull-source facts take precedence on shared fields.
		if im.title != "" {
			row.Title = im.title
		}
		if im.year != nil {
			row.Year = im.year
		}
		if im.runtime != nil {
			row.RuntimeMinutes = im.runtime
		}
		if im.boxOfficeUSD != nil {
			row.BoxOfficeUSD = im.boxOfficeUSD
		}
		row.IMDBRating = im.rating
		row.IMDBVotes = im.votes
		row.Metascore = im.metascore
		row.Language = im.language
		row.Country = im.country
		row.IMDBReleaseDate = im.released
		row.Genres = unionGenres(row.Genres, im.genres)
		if row.PrimaryGenre == "" {
			row.PrimaryGenre = im.primaryGenre
		}
		b.imdbDirector = im.director
		b.imdbWriter = im.writer
		b.actors = im.actors
	}

	switch {
	case im != nil && im.imdbID != "":
		row.FilmID = im.imdbID
	case row.RTID != "":
		row.FilmID = row.RTID
	default:
		year := 0
		if row.Year != nil {
			year = *row.Year
		}
		row.FilmID = normalize.PersonID(normalize.TitleKey(row.Title, year))
	}

	if row.BoxOfficeUSD != nil && row.RuntimeMinutes != nil && *row.RuntimeMinutes > 0 {
		v := *row.BoxOfficeUSD / float64(*row.RuntimeMinutes)
		row.RevenuePerMinute = &v
	}

	return b
}

// buildPeople explodes credit fields into deduplicated role associations.
// Canonical casing per normalized name is the lexicographically smallest
// observed spelling, which is partition-independent.
func buildPeople(builds []filmBuild) []tables.PersonRow {
	type assoc struct {
		filmID string
		norm   string
		role   string
	}
	casing := make(map[string]string)
	seen := make(map[assoc]bool)
	var order []assoc

	add := func(filmID, list, role string) {
		for _, name := range normalize.SplitNames(list) {
			norm := normalize.PersonName(name)
			if norm == "" {
				continue
			}
			if best, ok := casing[norm]; !ok || name < best {
				casing[norm] = name
			}
			key := assoc{filmID: filmID, norm: norm, role: role}
			if seen[key] {
				continue
			}
			seen[key] = true
			order = append(order, key)
		}
	}

	for _, b := range builds {
		add(b.row.FilmID, b.rtDirector, tables.RoleDirector)
		add(b.row.FilmID, b.imdbDirector, tables.RoleDirector)
		add(b.row.FilmID, b.rtWriter, tables.RoleWriter)
		add(b.row.FilmID, b.imdbWriter, tables.RoleWriter)
		add(b.row.FilmID, b.actors, tables.RoleActor)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].filmID != order[j].filmID {
			return order[i].filmID < order[j].filmID
		}
		if order[i].norm != order[j].norm {
			return order[i].norm < order[j].norm
		}
		return order[i].role < order[j].role
	})

	people := make([]tables.PersonRow, 0, len(order))
	for _, k := range order {
		name := casing[k.norm]
		people = append(people, tables.PersonRow{
			PersonID: normalize.PersonID(name),
			FilmID:   k.filmID,
			Name:     name,
			Role:     k.role,
		})
	}
	return people
}

func imdbKey(f *imdbFacts) string {
	switch {
	case f.imdbID != "":
		return "id:" + f.imdbID
	case f.rtRef != "":
		return "ref:" + f.rtRef
	case f.title != "" && f.year != nil:
		return "tk:" + normalize.TitleKey(f.title, *f.year)
	case f.title != "":
		return "t:" + strings.ToLower(f.title)
	}
	return ""
}

func firstGenre(raw string) string {
	parts := normalize.Genres(raw)
	if len(parts) == 0 {
		return ""
	}
	// First element of the raw list, normalized, matches the source's own
	// notion of a primary genre.
	for _, part := range strings.Split(raw, ",") {
		g := strings.ToLower(strings.TrimSpace(part))
		if g != "" {
			return g
		}
	}
	return parts[0]
}

func unionGenres(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, g := range append(append([]string{}, a...), b...) {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

func cleanOptional(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.EqualFold(s, "n/a") {
		return ""
	}
	return s
}

var publicationSpace = strings.NewReplacer("\t", " ", "\n", " ")

func normalizePublication(raw string) string {
	s := normalize.DecodeText(publicationSpace.Replace(raw))
	return strings.Join(strings.Fields(s), " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
