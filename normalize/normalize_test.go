package normalize

import (
	"testing"
)

func TestScore(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		null bool
	}{
		{"7/10", 70.0, false},
		{"3.5/5", 70.0, false},
		{"0/4", 0.0, false},
		{"B+", 82.5, false},
		{"A", 100.0, false},
		{"F", 0.0, false},
		{"0.8", 80.0, false},
		{"8.1", 81.0, false},
		{"91", 91.0, false},
		{"7/0", 0, true},
		{"garbage", 0, true},
		{"N/A", 0, true},
		{"", 0, true},
		{"-3", 0, true},
		{"250", 0, true},
	}
	for _, tc := range cases {
		got, _ := Score(tc.in)
		if tc.null {
			if got != nil {
				t.Errorf("Score(%q) = %v, want nil", tc.in, *got)
			}
			continue
		}
		if got == nil {
			t.Errorf("Score(%q) = nil, want %v", tc.in, tc.want)
			continue
		}
		if diff := *got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Score(%q) = %v, want %v", tc.in, *got, tc.want)
		}
	}
}

func TestScoreWarnsOnGarbage(t *testing.T) {
	v, w := Score("two thumbs up")
	if v != nil {
		t.Fatalf("expected nil value, got %v", *v)
	}
	if w == nil {
		t.Fatal("expected a warning for unparseable score")
	}
	if w.Field != "score" {
		t.Errorf("warning field = %q, want score", w.Field)
	}
}

func TestCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		null bool
	}{
		{"$1,200,000", 1_200_000, false},
		{"1.2M", 1_200_000, false},
		{"$12K", 12_000, false},
		{"800000", 800_000, false},
		{"N/A", 0, true},
		{"", 0, true},
		{"twelve dollars", 0, true},
	}
	for _, tc := range cases {
		got, _ := Currency(tc.in)
		if tc.null {
			if got != nil {
				t.Errorf("Currency(%q) = %v, want nil", tc.in, *got)
			}
			continue
		}
		if got == nil || *got != tc.want {
			t.Errorf("Currency(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRuntime(t *testing.T) {
	cases := []struct {
		in   string
		want int
		null bool
	}{
		{"2h 22m", 142, false},
		{"1h", 60, false},
		{"142 min", 142, false},
		{"90", 90, false},
		{"", 0, true},
		{"N/A", 0, true},
		{"soon", 0, true},
	}
	for _, tc := range cases {
		got, _ := Runtime(tc.in)
		if tc.null {
			if got != nil {
				t.Errorf("Runtime(%q) = %v, want nil", tc.in, *got)
			}
			continue
		}
		if got == nil || *got != tc.want {
			t.Errorf("Runtime(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestGenres(t *testing.T) {
	got := Genres("Drama, Comedy , drama,  Sci-Fi")
	want := []string{"comedy", "drama", "sci-fi"}
	if len(got) != len(want) {
		t.Fatalf("Genres returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Genres[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if Genres("N/A") != nil {
		t.Error("Genres(N/A) should be nil")
	}
}

func TestDecodeText(t *testing.T) {
	cases := map[string]string{
		"it&#39;s fine":       "it's fine",
		"Ebert &amp; Roeper":  "Ebert & Roeper",
		"caf&eacute; society": "café society",
		"no entities here":    "no entities here",
	}
	for in, want := range cases {
		if got := DecodeText(in); got != want {
			t.Errorf("DecodeText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestYear(t *testing.T) {
	if y, _ := Year("1994"); y == nil || *y != 1994 {
		t.Errorf("Year(1994) = %v", y)
	}
	if y, _ := Year("12"); y != nil {
		t.Errorf("Year(12) = %v, want nil", *y)
	}
	if y, _ := Year(""); y != nil {
		t.Error("Year(empty) should be nil")
	}
}

func TestSentiment(t *testing.T) {
	if s := Sentiment("Fresh"); s == nil || *s != 1 {
		t.Errorf("Sentiment(Fresh) = %v", s)
	}
	if s := Sentiment("rotten"); s == nil || *s != 0 {
		t.Errorf("Sentiment(rotten) = %v", s)
	}
	if s := Sentiment("meh"); s != nil {
		t.Errorf("Sentiment(meh) = %v, want nil", *s)
	}
}

func TestPersonNameAndID(t *testing.T) {
	if got := PersonName("  Steven   SPIELBERG "); got != "steven spielberg" {
		t.Errorf("PersonName = %q", got)
	}
	if got := PersonID("Samuel L. Jackson"); got != "samuel_l_jackson" {
		t.Errorf("PersonID = %q", got)
	}
}

func TestTitleKey(t *testing.T) {
	a := TitleKey("The Godfather, Part II!", 1974)
	b := TitleKey("the godfather part ii", 1974)
	if a != b {
		t.Errorf("TitleKey mismatch: %q vs %q", a, b)
	}
	c := TitleKey("the godfather part ii", 1975)
	if a == c {
		t.Error("TitleKey should distinguish years")
	}
}

func TestRTIDFromURL(t *testing.T) {
	if got := RTIDFromURL("http://www.rottentomatoes.com/m/blue_velvet/"); got != "blue_velvet" {
		t.Errorf("RTIDFromURL = %q", got)
	}
	if got := RTIDFromURL("N/A"); got != "" {
		t.Errorf("RTIDFromURL(N/A) = %q, want empty", got)
	}
}

func TestBool(t *testing.T) {
	if b := Bool("True"); b == nil || !*b {
		t.Errorf("Bool(True) = %v", b)
	}
	if b := Bool("0"); b == nil || *b {
		t.Errorf("Bool(0) = %v", b)
	}
	if b := Bool("maybe"); b != nil {
		t.Errorf("Bool(maybe) = %v, want nil", *b)
	}
}
