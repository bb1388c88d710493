package textnorm

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

const defaultLocale = "en"

// expansionCacheLimit bounds the per-instance memo map. The same abbreviation
// recurs across a session, so hits dominate; when the map fills up we start a
// fresh generation rather than track recency.
const expansionCacheLimit = 1024

// Normalizer rewrites raw model text into something a TTS engine pronounces
// cleanly: non-standard characters collapse to spaces and known abbreviations
// expand to their spoken form. Locale tables are data; an unknown locale falls
// back to English.
type Normalizer struct {
	locale        string
	abbrev        map[string]string
	abbrevKeysLow []string
	abbrevPattern *regexp.Regexp
	nonStandard   *regexp.Regexp

	mu    sync.Mutex
	cache map[string]string
}

func New(locale string) *Normalizer {
	table, ok := abbreviations[locale]
	if !ok {
		locale = defaultLocale
		table = abbreviations[defaultLocale]
	}

	keys := make([]string, 0, len(table))
	keysLow := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
		keysLow = append(keysLow, strings.ToLower(k))
	}
	// Longer keys first so the alternation prefers "sp. z o.o." over "sp.".
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)
	}

	charClass, ok := nonStandardChars[locale]
	if !ok {
		charClass = nonStandardChars[defaultLocale]
	}

	return &Normalizer{
		locale:        locale,
		abbrev:        table,
		abbrevKeysLow: keysLow,
		abbrevPattern: regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`),
		nonStandard:   regexp.MustCompile(charClass),
		cache:         make(map[string]string),
	}
}

// Locale reports the effective locale after fallback.
func (n *Normalizer) Locale() string { return n.locale }

// StripNonStandard replaces every run of characters outside the locale
// allow-list with a single space.
func (n *Normalizer) StripNonStandard(text string) string {
	return n.nonStandard.ReplaceAllString(text, " ")
}

// ExpandAbbreviations substitutes every recognized abbreviation with its
// spoken form. Matching is case-insensitive and word-boundary checked; text
// that matches no table key passes through unchanged.
func (n *Normalizer) ExpandAbbreviations(text string) string {
	matches := n.abbrevPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start < last || !wordBoundary(text, start, end) {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(n.expandToken(text[start:end]))
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// IsAbbreviationToken reports whether token occurs inside any abbreviation
// key, case-insensitively. The phrase chunker uses this to avoid treating the
// dot of "Dr." or "np." as a sentence terminator. Containment (not equality or
// suffix match) mirrors how multi-word keys like "sp. z o.o." keep their inner
// dots unsplit.
func (n *Normalizer) IsAbbreviationToken(token string) bool {
	if token == "" {
		return false
	}
	low := strings.ToLower(token)
	for _, key := range n.abbrevKeysLow {
		if strings.Contains(key, low) {
			return true
		}
	}
	return false
}

// ConjunctionsFor returns the locale's coordinating conjunction set, falling
// back to English.
func ConjunctionsFor(locale string) map[string]struct{} {
	words, ok := conjunctions[locale]
	if !ok {
		words = conjunctions[defaultLocale]
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// expandToken resolves one matched surface form through the casing variants
// the table might carry: exact, lower, upper, capitalized. Unmatched forms
// return unchanged. Results are memoized per distinct token string.
func (n *Normalizer) expandToken(token string) string {
	n.mu.Lock()
	if v, ok := n.cache[token]; ok {
		n.mu.Unlock()
		return v
	}
	n.mu.Unlock()

	out := token
	for _, variant := range []string{token, strings.ToLower(token), strings.ToUpper(token), capitalize(token)} {
		if v, ok := n.abbrev[variant]; ok {
			out = v
			break
		}
	}

	n.mu.Lock()
	if len(n.cache) >= expansionCacheLimit {
		n.cache = make(map[string]string)
	}
	n.cache[token] = out
	n.mu.Unlock()
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// wordBoundary reports whether text[start:end] is not embedded in a longer
// word. RE2 has no lookaround, so the neighbors are checked by hand.
func wordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
