package linkage

import (
	"reflect"
	"testing"

	"github.com/cinelake/cinelake/tables"
)

func dune() tables.RTMovieRaw {
	return tables.RTMovieRaw{
		RTID:                "dune_2021",
		Title:               "Dune",
		AudienceScore:       "90",
		TomatoMeter:         "83",
		RuntimeMinutes:      "155",
		ReleaseDateTheaters: "2021-10-22",
		BoxOffice:           "$108.3M",
		Genre:               "Sci-Fi, Adventure",
		Director:            "Denis Villeneuve",
		Writer:              "Jon Spaihts, Denis Villeneuve",
	}
}

func duneIMDB() tables.IMDBTitleRaw {
	return tables.IMDBTitleRaw{
		Title:      "Dune",
		Year:       "2021",
		Runtime:    "156 min",
		IMDBRating: "8.0",
		IMDBVotes:  "700000",
		Metascore:  "74",
		IMDBID:     "tt1160419",
		TomatoURL:  "https://www.rottentomatoes.com/m/dune_2021/",
		Director:   "denis villeneuve",
		Actors:     "Timothee Chalamet, Rebecca Ferguson",
		Language:   "English",
		Country:    "United States",
		Genre:      "Adventure, Drama",
		Released:   "2021-10-22",
	}
}

func TestLinkByCrossSourceReference(t *testing.T) {
	acc := NewAccumulator()
	acc.AddRTMovie(dune())
	acc.AddIMDBTitle(duneIMDB())

	res := acc.Finalize()
	if len(res.Films) != 1 {
		t.Fatalf("films = %d, want 1", len(res.Films))
	}
	f := res.Films[0]
	if f.FilmID != "tt1160419" {
		t.Errorf("film id = %q, want the native imdb id", f.FilmID)
	}
	if f.RTID != "dune_2021" || f.IMDBID != "tt1160419" {
		t.Errorf("source ids = %q / %q", f.RTID, f.IMDBID)
	}

	// Pull source wins the runtime conflict (155 vs 156).
	if f.RuntimeMinutes == nil || *f.RuntimeMinutes != 156 {
		t.Errorf("runtime = %v, want 156", f.RuntimeMinutes)
	}
	// Single-source fields survive from their side.
	if f.AudienceScore == nil || *f.AudienceScore != 90 {
		t.Errorf("audience score = %v, want 90", f.AudienceScore)
	}
	if f.IMDBRating == nil || *f.IMDBRating != 80 {
		t.Errorf("imdb rating = %v, want 80 after rescale", f.IMDBRating)
	}
	if f.Language != "English" {
		t.Errorf("language = %q", f.Language)
	}

	want := []string{"adventure", "drama", "sci-fi"}
	if !reflect.DeepEqual(f.Genres, want) {
		t.Errorf("genres = %v, want %v", f.Genres, want)
	}
	if f.PrimaryGenre != "sci-fi" {
		t.Errorf("primary genre = %q", f.PrimaryGenre)
	}
}

func TestLinkByTitleAndYear(t *testing.T) {
	im := duneIMDB()
	im.TomatoURL = ""

	acc := NewAccumulator()
	acc.AddRTMovie(dune())
	acc.AddIMDBTitle(im)

	res := acc.Finalize()
	if len(res.Films) != 1 {
		t.Fatalf("films = %d, want 1 (title+year join)", len(res.Films))
	}
	if res.Films[0].FilmID != "tt1160419" {
		t.Errorf("film id = %q", res.Films[0].FilmID)
	}
}

func TestUnmatchedRowsBecomeFilms(t *testing.T) {
	acc := NewAccumulator()
	acc.AddRTMovie(tables.RTMovieRaw{RTID: "obscure_short", Title: "Obscure Short"})
	acc.AddIMDBTitle(tables.IMDBTitleRaw{IMDBID: "tt0000001", Title: "Lone Title", Year: "1999"})

	res := acc.Finalize()
	if len(res.Films) != 2 {
		t.Fatalf("films = %d, want 2", len(res.Films))
	}
	ids := []string{res.Films[0].FilmID, res.Films[1].FilmID}
	if ids[0] != "obscure_short" || ids[1] != "tt0000001" {
		t.Errorf("film ids = %v", ids)
	}
}

func TestReviewsResolveFilmReference(t *testing.T) {
	acc := NewAccumulator()
	acc.AddRTMovie(dune())
	acc.AddIMDBTitle(duneIMDB())
	acc.AddRTReview(tables.RTReviewRaw{
		RTID:          "dune_2021",
		ReviewID:      "rev-1",
		CriticName:    "A. Critic",
		OriginalScore: "4/5",
		ReviewState:   "fresh",
		CreationDate:  "2021-10-25",
	})
	acc.AddRTReview(tables.RTReviewRaw{
		RTID:     "never_curated",
		ReviewID: "rev-2",
	})

	res := acc.Finalize()
	if len(res.Reviews) != 2 {
		t.Fatalf("reviews = %d, want 2", len(res.Reviews))
	}
	if res.Reviews[0].FilmID != "tt1160419" {
		t.Errorf("linked review film = %q, want resolved id", res.Reviews[0].FilmID)
	}
	if res.Reviews[0].ScoreNormalized == nil || *res.Reviews[0].ScoreNormalized != 80 {
		t.Errorf("score = %v, want 80", res.Reviews[0].ScoreNormalized)
	}
	if res.Reviews[0].Sentiment == nil || *res.Reviews[0].Sentiment != 1 {
		t.Errorf("sentiment = %v, want fresh", res.Reviews[0].Sentiment)
	}
	// A review whose film never appeared keeps its raw reference.
	if res.Reviews[1].FilmID != "never_curated" {
		t.Errorf("orphan review film = %q", res.Reviews[1].FilmID)
	}
}

func TestPeopleDedupAcrossSources(t *testing.T) {
	acc := NewAccumulator()
	acc.AddRTMovie(dune())
	acc.AddIMDBTitle(duneIMDB())

	res := acc.Finalize()

	byRole := map[string][]string{}
	for _, p := range res.People {
		byRole[p.Role] = append(byRole[p.Role], p.Name)
	}

	// Both sources credit the director under different casings; one row
	// survives with the smallest observed spelling.
	if !reflect.DeepEqual(byRole[tables.RoleDirector], []string{"Denis Villeneuve"}) {
		t.Errorf("directors = %v", byRole[tables.RoleDirector])
	}
	if len(byRole[tables.RoleActor]) != 2 {
		t.Errorf("actors = %v, want 2", byRole[tables.RoleActor])
	}
	if len(byRole[tables.RoleWriter]) != 2 {
		t.Errorf("writers = %v, want 2", byRole[tables.RoleWriter])
	}

	for _, p := range res.People {
		if p.FilmID != "tt1160419" {
			t.Errorf("person %s film = %q", p.PersonID, p.FilmID)
		}
	}
}

func TestRevenuePerMinuteGuard(t *testing.T) {
	acc := NewAccumulator()
	acc.AddRTMovie(tables.RTMovieRaw{
		RTID:           "has_both",
		Title:          "Has Both",
		RuntimeMinutes: "100",
		BoxOffice:      "$1M",
	})
	acc.AddRTMovie(tables.RTMovieRaw{
		RTID:      "no_runtime",
		Title:     "No Runtime",
		BoxOffice: "$1M",
	})

	res := acc.Finalize()
	if res.Films[0].RevenuePerMinute == nil || *res.Films[0].RevenuePerMinute != 10000 {
		t.Errorf("revenue per minute = %v, want 10000", res.Films[0].RevenuePerMinute)
	}
	if res.Films[1].RevenuePerMinute != nil {
		t.Errorf("revenue per minute without runtime = %v, want nil", res.Films[1].RevenuePerMinute)
	}
}

func TestDuplicateRowsCollapse(t *testing.T) {
	acc := NewAccumulator()
	acc.AddRTMovie(dune())
	acc.AddRTMovie(dune())
	acc.AddIMDBTitle(duneIMDB())
	acc.AddIMDBTitle(duneIMDB())

	res := acc.Finalize()
	if len(res.Films) != 1 {
		t.Errorf("films = %d, want duplicates collapsed", len(res.Films))
	}
}

func TestMergePartitionInvariance(t *testing.T) {
	movies := []tables.RTMovieRaw{
		dune(),
		{RTID: "blue_velvet", Title: "Blue Velvet", TomatoMeter: "94", ReleaseDateTheaters: "1986-09-19", Director: "David Lynch"},
		{RTID: "obscure_short", Title: "Obscure Short"},
	}
	titles := []tables.IMDBTitleRaw{
		duneIMDB(),
		{IMDBID: "tt0090756", Title: "Blue Velvet", Year: "1986", IMDBRating: "7.7", Director: "David Lynch"},
		{IMDBID: "tt0000001", Title: "Lone Title", Year: "1999"},
	}
	reviews := []tables.RTReviewRaw{
		{RTID: "dune_2021", ReviewID: "r1", OriginalScore: "B+", ReviewState: "fresh"},
		{RTID: "blue_velvet", ReviewID: "r2", OriginalScore: "3.5/4", ReviewState: "fresh"},
	}

	single := NewAccumulator()
	for _, m := range movies {
		single.AddRTMovie(m)
	}
	for _, ti := range titles {
		single.AddIMDBTitle(ti)
	}
	for _, r := range reviews {
		single.AddRTReview(r)
	}

	// Same rows, three partitions, reversed insertion and merge order.
	p1, p2, p3 := NewAccumulator(), NewAccumulator(), NewAccumulator()
	for i := len(movies) - 1; i >= 0; i-- {
		p1.AddRTMovie(movies[i])
	}
	for i := len(titles) - 1; i >= 0; i-- {
		p2.AddIMDBTitle(titles[i])
	}
	for i := len(reviews) - 1; i >= 0; i-- {
		p3.AddRTReview(reviews[i])
	}
	merged := NewAccumulator()
	merged.Merge(p3)
	merged.Merge(p1)
	merged.Merge(p2)

	want := single.Finalize()
	got := merged.Finalize()
	if !reflect.DeepEqual(got.Films, want.Films) {
		t.Errorf("films diverge across partitionings:\n got %+v\nwant %+v", got.Films, want.Films)
	}
	if !reflect.DeepEqual(got.Reviews, want.Reviews) {
		t.Errorf("reviews diverge across partitionings")
	}
	if !reflect.DeepEqual(got.People, want.People) {
		t.Errorf("people diverge across partitionings")
	}
	if !reflect.DeepEqual(got.Warnings, want.Warnings) {
		t.Errorf("warnings diverge across partitionings")
	}
}
