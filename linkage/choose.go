package linkage

import (
	"time"

	"github.com/cinelake/cinelake/tables"
)

// Duplicate keys collapse field-wise: a present value beats an absent one,
// and when both sides conflict the smaller value wins. Each field merge is
// associative and commutative on its own, so duplicates collapse to the
// same row under any partitioning and any merge order.

func pickStr(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" || a < b {
		return a
	}
	return b
}

func pickFloat(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil || *a < *b {
		return a
	}
	return b
}

func pickInt(a, b *int) *int {
	if a == nil {
		return b
	}
	if b == nil || *a < *b {
		return a
	}
	return b
}

func pickTime(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.Before(*b) {
		return a
	}
	return b
}

func chooseRT(a, b *rtFacts) *rtFacts {
	return &rtFacts{
		rtID:             a.rtID,
		title:            pickStr(a.title, b.title),
		audienceScore:    pickFloat(a.audienceScore, b.audienceScore),
		tomatoMeter:      pickFloat(a.tomatoMeter, b.tomatoMeter),
		runtimeMinutes:   pickInt(a.runtimeMinutes, b.runtimeMinutes),
		boxOfficeUSD:     pickFloat(a.boxOfficeUSD, b.boxOfficeUSD),
		releaseTheaters:  pickTime(a.releaseTheaters, b.releaseTheaters),
		releaseStreaming: pickTime(a.releaseStreaming, b.releaseStreaming),
		genres:           unionGenres(a.genres, b.genres),
		primaryGenre:     pickStr(a.primaryGenre, b.primaryGenre),
		director:         pickStr(a.director, b.director),
		writer:           pickStr(a.writer, b.writer),
	}
}

func chooseIMDB(a, b *imdbFacts) *imdbFacts {
	return &imdbFacts{
		imdbID:       pickStr(a.imdbID, b.imdbID),
		rtRef:        pickStr(a.rtRef, b.rtRef),
		title:        pickStr(a.title, b.title),
		year:         pickInt(a.year, b.year),
		runtime:      pickInt(a.runtime, b.runtime),
		boxOfficeUSD: pickFloat(a.boxOfficeUSD, b.boxOfficeUSD),
		rating:       pickFloat(a.rating, b.rating),
		votes:        pickFloat(a.votes, b.votes),
		metascore:    pickFloat(a.metascore, b.metascore),
		language:     pickStr(a.language, b.language),
		country:      pickStr(a.country, b.country),
		genres:       unionGenres(a.genres, b.genres),
		primaryGenre: pickStr(a.primaryGenre, b.primaryGenre),
		director:     pickStr(a.director, b.director),
		writer:       pickStr(a.writer, b.writer),
		actors:       pickStr(a.actors, b.actors),
		released:     pickTime(a.released, b.released),
	}
}

func chooseReview(a, b *tables.ReviewRow) *tables.ReviewRow {
	return &tables.ReviewRow{
		ReviewID:         a.ReviewID,
		FilmID:           pickStr(a.FilmID, b.FilmID),
		CriticName:       pickStr(a.CriticName, b.CriticName),
		PublicationName:  pickStr(a.PublicationName, b.PublicationName),
		IsTopCritic:      a.IsTopCritic || b.IsTopCritic,
		OriginalScoreRaw: pickStr(a.OriginalScoreRaw, b.OriginalScoreRaw),
		ScoreNormalized:  pickFloat(a.ScoreNormalized, b.ScoreNormalized),
		ScoreSentiment:   pickStr(a.ScoreSentiment, b.ScoreSentiment),
		Sentiment:        pickInt(a.Sentiment, b.Sentiment),
		ReviewText:       pickStr(a.ReviewText, b.ReviewText),
		CreatedAt:        pickTime(a.CreatedAt, b.CreatedAt),
	}
}
