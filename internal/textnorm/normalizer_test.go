package textnorm

import (
	"strings"
	"testing"
)

func TestUnknownLocaleFallsBackToEnglish(t *testing.T) {
	n := New("xx")
	if n.Locale() != "en" {
		t.Fatalf("locale = %q", n.Locale())
	}
}

func TestStripNonStandard(t *testing.T) {
	n := New("en")
	got := n.StripNonStandard("Hello *world* © ok!")
	for _, bad := range []string{"*", "©"} {
		if strings.Contains(got, bad) {
			t.Fatalf("%q survived stripping: %q", bad, got)
		}
	}
	if !strings.Contains(got, "world") || !strings.Contains(got, "!") {
		t.Fatalf("allowed characters were lost: %q", got)
	}
}

func TestStripNonStandardKeepsPolishDiacritics(t *testing.T) {
	n := New("pl")
	got := n.StripNonStandard("Żółć gęślą jaźń?")
	if got != "Żółć gęślą jaźń?" {
		t.Fatalf("diacritics mangled: %q", got)
	}
}

func TestExpandAbbreviations(t *testing.T) {
	n := New("en")
	cases := []struct {
		in, want string
	}{
		{"Dr. Smith arrived", "doctor Smith arrived"},
		{"He said e.g. this", "He said for example this"},
		{"Mrs. Smith", "missus Smith"},
		{"measure vs. control", "measure versus control"},
		{"plain text stays", "plain text stays"},
	}
	for _, tc := range cases {
		if got := n.ExpandAbbreviations(tc.in); got != tc.want {
			t.Errorf("ExpandAbbreviations(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExpandAbbreviationsIsCaseInsensitive(t *testing.T) {
	n := New("en")
	if got := n.ExpandAbbreviations("DR. Smith"); got != "doctor Smith" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandAbbreviationsRespectsWordBoundaries(t *testing.T) {
	n := New("en")
	// "e.g." embedded in a longer word must not expand.
	if got := n.ExpandAbbreviations("xe.g.s"); got != "xe.g.s" {
		t.Fatalf("embedded match expanded: %q", got)
	}
}

func TestIsAbbreviationToken(t *testing.T) {
	n := New("en")
	cases := []struct {
		token string
		want  bool
	}{
		{"Dr.", true},
		{"DR.", true},
		{".", true}, // a lone dot sits inside every dotted key
		{"answer.", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := n.IsAbbreviationToken(tc.token); got != tc.want {
			t.Errorf("IsAbbreviationToken(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}
}

func TestConjunctionsFor(t *testing.T) {
	en := ConjunctionsFor("en")
	if _, ok := en["and"]; !ok {
		t.Fatal("missing 'and'")
	}
	fallback := ConjunctionsFor("xx")
	if _, ok := fallback["but"]; !ok {
		t.Fatal("unknown locale should fall back to English")
	}
	pl := ConjunctionsFor("pl")
	if _, ok := pl["ale"]; !ok {
		t.Fatal("missing 'ale'")
	}
}
