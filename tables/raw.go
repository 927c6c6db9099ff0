package tables

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// RTMovieRaw is one row of the Rotten Tomatoes movies bulk file, fields
// as-read. Normalization happens downstream.
type RTMovieRaw struct {
	RTID                 string
	Title                string
	AudienceScore        string
	TomatoMeter          string
	RuntimeMinutes       string
	ReleaseDateTheaters  string
	ReleaseDateStreaming string
	BoxOffice            string
	Genre                string
	Director             string
	Writer               string
}

// RTReviewRaw is one row of the Rotten Tomatoes reviews bulk file.
type RTReviewRaw struct {
	RTID            string
	ReviewID        string
	CriticName      string
	PublicationName string
	IsTopCritic     string
	OriginalScore   string
	ScoreSentiment  string
	ReviewState     string
	ReviewText      string
	CreationDate    string
}

// IMDBTitleRaw is one row of the pulled IMDb dataset.
type IMDBTitleRaw struct {
	Title      string
	Year       string
	Runtime    string
	BoxOffice  string
	IMDBRating string
	IMDBVotes  string
	Metascore  string
	IMDBID     string
	TomatoURL  string
	Director   string
	Writer     string
	Actors     string
	Language   string
	Country    string
	Genre      string
	Released   string
}

// header maps column names to indexes. Lookup is case-insensitive and
// tolerant of columns the schema does not know about.
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	cols, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	h := make(header, len(cols))
	for i, c := range cols {
		h[strings.ToLower(strings.TrimSpace(c))] = i
	}
	return h, nil
}

func (h header) get(record []string, names ...string) string {
	for _, name := range names {
		if i, ok := h[strings.ToLower(name)]; ok && i < len(record) {
			return record[i]
		}
	}
	return ""
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // source files carry ragged rows
	cr.LazyQuotes = true
	return cr
}

// DecodeRTMovies decodes the RT movies bulk CSV. limit <= 0 means no cap.
func DecodeRTMovies(r io.Reader, limit int) ([]RTMovieRaw, error) {
	cr := newCSVReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	var rows []RTMovieRaw
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read rt movies row: %w", err)
		}
		rows = append(rows, RTMovieRaw{
			RTID:                 h.get(record, "id"),
			Title:                h.get(record, "title"),
			AudienceScore:        h.get(record, "audienceScore"),
			TomatoMeter:          h.get(record, "tomatoMeter"),
			RuntimeMinutes:       h.get(record, "runtimeMinutes"),
			ReleaseDateTheaters:  h.get(record, "releaseDateTheaters"),
			ReleaseDateStreaming: h.get(record, "releaseDateStreaming"),
			BoxOffice:            h.get(record, "boxOffice"),
			Genre:                h.get(record, "genre"),
			Director:             h.get(record, "director"),
			Writer:               h.get(record, "writer"),
		})
		if limit > 0 && len(rows) >= limit {
			break
		}
	}
	return rows, nil
}

// DecodeRTReviews decodes the RT reviews bulk CSV. The upstream file
// misspells publicationName as "publicatioName"; both spellings bind.
func DecodeRTReviews(r io.Reader, limit int) ([]RTReviewRaw, error) {
	cr := newCSVReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	var rows []RTReviewRaw
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read rt reviews row: %w", err)
		}
		rows = append(rows, RTReviewRaw{
			RTID:            h.get(record, "id"),
			ReviewID:        h.get(record, "reviewId"),
			CriticName:      h.get(record, "criticName"),
			PublicationName: h.get(record, "publicationName", "publicatioName"),
			IsTopCritic:     h.get(record, "isTopCritic"),
			OriginalScore:   h.get(record, "originalScore"),
			ScoreSentiment:  h.get(record, "scoreSentiment"),
			ReviewState:     h.get(record, "reviewState"),
			ReviewText:      h.get(record, "reviewText"),
			CreationDate:    h.get(record, "creationDate"),
		})
		if limit > 0 && len(rows) >= limit {
			break
		}
	}
	return rows, nil
}

// DecodeIMDBTitles decodes the pulled IMDb dataset CSV.
func DecodeIMDBTitles(r io.Reader, limit int) ([]IMDBTitleRaw, error) {
	cr := newCSVReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	var rows []IMDBTitleRaw
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read imdb row: %w", err)
		}
		rows = append(rows, IMDBTitleRaw{
			Title:      h.get(record, "Title"),
			Year:       h.get(record, "Year"),
			Runtime:    h.get(record, "Runtime"),
			BoxOffice:  h.get(record, "BoxOffice"),
			IMDBRating: h.get(record, "imdbRating"),
			IMDBVotes:  h.get(record, "imdbVotes"),
			Metascore:  h.get(record, "Metascore"),
			IMDBID:     h.get(record, "imdbID"),
			TomatoURL:  h.get(record, "tomatoURL"),
			Director:   h.get(record, "Director"),
			Writer:     h.get(record, "Writer"),
			Actors:     h.get(record, "Actors"),
			Language:   h.get(record, "Language"),
			Country:    h.get(record, "Country"),
			Genre:      h.get(record, "Genre"),
			Released:   h.get(record, "Released"),
		})
		if limit > 0 && len(rows) >= limit {
			break
		}
	}
	return rows, nil
}
