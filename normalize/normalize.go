// Package normalize holds the pure per-field transforms shared by both
// executors. Every transform is total: malformed input degrades to a nil
// value plus a Warning, never an error or a panic.
package normalize

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Warning describes a field value that could not be normalized. The row it
// belongs to is retained; only the field becomes nil.
type Warning struct {
	Field  string
	Raw    string
	Reason string
}

func warn(field, raw, reason string) *Warning {
	return &Warning{Field: field, Raw: raw, Reason: reason}
}

// missing reports values the sources use for "no data".
func missing(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n/a", "na", "null", "none":
		return true
	}
	return false
}

var fractionRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)$`)

// gradeScale maps letter grades to the 0-100 scale (GPA table scaled by 25).
var gradeScale = map[string]float64{
	"A+": 100.0, "A": 100.0, "A-": 92.5,
	"B+": 82.5, "B": 75.0, "B-": 67.5,
	"C+": 57.5, "C": 50.0, "C-": 42.5,
	"D+": 32.5, "D": 25.0, "D-": 17.5,
	"F": 0.0,
}

// Score maps heterogeneous literal score scales to a 0-100 float:
// "x/y" fractions, letter grades, and bare numerics. Bare numerics are
// interpreted by magnitude: (0,1] as ratios, (1,10] as out-of-ten,
// (10,100] as percentages. Anything else is nil.
func Score(raw string) (*float64, *Warning) {
	if missing(raw) {
		return nil, nil
	}
	s := strings.TrimSpace(raw)

	if m := fractionRe.FindStringSubmatch(s); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den == 0 {
			return nil, warn("score", raw, "zero denominator")
		}
		v := num / den * 100
		return &v, nil
	}

	if v, ok := gradeScale[strings.ToUpper(s)]; ok {
		return &v, nil
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		switch {
		case v > 0 && v <= 1:
			v *= 100
		case v > 1 && v <= 10:
			v *= 10
		case v > 10 && v <= 100:
			// already a percentage
		default:
			return nil, warn("score", raw, "numeric out of range")
		}
		return &v, nil
	}

	return nil, warn("score", raw, "unrecognized scale")
}

// Currency parses box-office style amounts into USD: strips "$" and
// thousands separators, honors K/M scale suffixes. Ambiguous or empty
// input is nil.
func Currency(raw string) (*float64, *Warning) {
	if missing(raw) {
		return nil, nil
	}
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "M"):
		multiplier = 1_000_000
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		multiplier = 1_000
		s = strings.TrimSuffix(s, "K")
	}
	s = strings.TrimPrefix(s, "$")

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, warn("currency", raw, "not a number")
	}
	v *= multiplier
	return &v, nil
}

var (
	hoursMinutesRe = regexp.MustCompile(`^(\d+)\s*h(?:\s*(\d+)\s*m?)?$`)
	minutesRe      = regexp.MustCompile(`(\d+)`)
)

// Runtime parses runtimes in "Xh Ym" or bare-minute forms ("142", "142
// min") into integer minutes. Invalid input is nil.
func Runtime(raw string) (*int, *Warning) {
	if missing(raw) {
		return nil, nil
	}
	s := strings.ToLower(strings.TrimSpace(raw))

	if m := hoursMinutesRe.FindStringSubmatch(s); m != nil {
		hours, _ := strconv.Atoi(m[1])
		mins := 0
		if m[2] != "" {
			mins, _ = strconv.Atoi(m[2])
		}
		v := hours*60 + mins
		return &v, nil
	}

	if m := minutesRe.FindStringSubmatch(s); m != nil {
		v, _ := strconv.Atoi(m[1])
		return &v, nil
	}

	return nil, warn("runtime", raw, "no minute value")
}

// Genres splits a comma-separated multi-valued genre field into a sorted,
// case-folded, deduplicated set.
func Genres(raw string) []string {
	if missing(raw) {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, ",") {
		g := strings.ToLower(strings.TrimSpace(part))
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// DecodeText resolves numeric and named HTML character references to
// literal characters.
func DecodeText(raw string) string {
	return html.UnescapeString(raw)
}

// Float parses a bare numeric field, nil on anything else.
func Float(raw string) (*float64, *Warning) {
	if missing(raw) {
		return nil, nil
	}
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, warn("numeric", raw, "not a number")
	}
	return &v, nil
}

// Year parses a four-digit year, nil otherwise.
func Year(raw string) (*int, *Warning) {
	f, w := Float(raw)
	if f == nil {
		return nil, w
	}
	y := int(*f)
	if y < 1800 || y > 3000 {
		return nil, warn("year", raw, "out of range")
	}
	return &y, nil
}

var timestampLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"Jan 2, 2006",
	"02 Jan 2006",
}

// Timestamp parses the date formats observed across sources, nil on
// anything unrecognized.
func Timestamp(raw string) (*time.Time, *Warning) {
	if missing(raw) {
		return nil, nil
	}
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, warn("timestamp", raw, "unrecognized format")
}

// Bool parses truthy/falsy literal forms, nil otherwise.
func Bool(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y":
		v := true
		return &v
	case "false", "0", "no", "n":
		v := false
		return &v
	}
	return nil
}

// Sentiment maps a review state to 1 (fresh) or 0 (rotten), nil otherwise.
func Sentiment(state string) *int {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "fresh":
		v := 1
		return &v
	case "rotten":
		v := 0
		return &v
	}
	return nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// PersonName normalizes a person name for identity comparison: case-fold
// and whitespace-collapse. Spelling variants intentionally stay distinct.
func PersonName(raw string) string {
	return strings.ToLower(whitespaceRe.ReplaceAllString(strings.TrimSpace(raw), " "))
}

var nonWordRe = regexp.MustCompile(`[^\w]+`)

// PersonID derives a stable person identifier from a name.
func PersonID(name string) string {
	id := nonWordRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return strings.Trim(id, "_")
}

var punctRe = regexp.MustCompile(`[^\p{L}\p{N} ]+`)

// TitleKey builds the fallback linkage key: title case-folded,
// punctuation-stripped, whitespace-collapsed, with the exact year.
func TitleKey(title string, year int) string {
	t := strings.ToLower(strings.TrimSpace(title))
	t = punctRe.ReplaceAllString(t, "")
	t = whitespaceRe.ReplaceAllString(t, " ")
	t = strings.TrimSpace(t)
	return fmt.Sprintf("%s (%d)", t, year)
}

var rtURLRe = regexp.MustCompile(`/m/([^/]+)/?`)

// RTIDFromURL extracts the Rotten Tomatoes identifier from a cross-source
// reference URL, "" when absent.
func RTIDFromURL(raw string) string {
	m := rtURLRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return ""
	}
	return m[1]
}

// SplitNames splits a comma-separated name list, trimming blanks.
func SplitNames(raw string) []string {
	if missing(raw) {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
