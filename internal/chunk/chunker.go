// Package chunk turns a stream of model tokens into speakable phrases.
//
// The chunker is pure and stateful: tokens go in one at a time, and whenever a
// flush condition is met a (display, speech) phrase pair comes out. Display
// text is the exact concatenation of the buffered tokens; speech text is the
// normalized form handed to the synthesizer.
package chunk

import (
	"strings"

	"github.com/ent0n29/voicepipe/internal/textnorm"
)

// Phrase is one flushed chunk of assistant output.
type Phrase struct {
	// Display preserves the original token spacing for the UI.
	Display string
	// Speech is Display trimmed, stripped of TTS-hostile characters and with
	// known abbreviations expanded. Derived solely from Display plus locale
	// configuration.
	Speech string
}

type Config struct {
	// MinTokens gates sentence-terminator flushes: no flush is considered
	// before this many tokens are buffered. Must be positive.
	MinTokens int
	// MaxTokens forces a flush once the buffer reaches this length, splitting
	// at the last soft boundary when one exists.
	MaxTokens int
	// Locale selects the abbreviation table, character allow-list and
	// conjunction set. Unknown locales fall back to English.
	Locale string
	// Conjunctions overrides the locale conjunction set when non-nil.
	Conjunctions map[string]struct{}
}

const (
	DefaultMinTokens = 3
	DefaultMaxTokens = 50
)

// Chunker buffers streamed tokens and emits phrases at sentence terminators,
// or at soft boundaries (comma, coordinating conjunction) when the buffer hits
// its hard cap. Not safe for concurrent use; drive it from one goroutine and
// create a fresh one per response.
type Chunker struct {
	minTokens    int
	maxTokens    int
	conjunctions map[string]struct{}
	norm         *textnorm.Normalizer

	buf []string
	// boundary is a 1-based index into buf marking the last soft break point;
	// 0 means none.
	boundary int
}

func New(cfg Config) *Chunker {
	if cfg.MinTokens <= 0 {
		cfg.MinTokens = DefaultMinTokens
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	conj := cfg.Conjunctions
	if conj == nil {
		conj = textnorm.ConjunctionsFor(cfg.Locale)
	}
	return &Chunker{
		minTokens:    cfg.MinTokens,
		maxTokens:    cfg.MaxTokens,
		conjunctions: conj,
		norm:         textnorm.New(cfg.Locale),
	}
}

// AddToken appends one token and reports a phrase if a flush condition is met.
// Empty tokens must be filtered by the caller; ordering is significant.
func (c *Chunker) AddToken(token string) (Phrase, bool) {
	c.buf = append(c.buf, token)
	n := len(c.buf)
	trimmed := strings.TrimSpace(token)

	// Sentence terminator once the minimum is buffered. A trailing dot only
	// terminates when the token is not part of an abbreviation ("Dr.", "np.").
	if n >= c.minTokens {
		if strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "!") {
			return c.pop(n), true
		}
		if strings.HasSuffix(trimmed, ".") && !c.norm.IsAbbreviationToken(trimmed) {
			return c.pop(n), true
		}
	}

	// Mark soft boundaries: after a comma, before a conjunction.
	low := strings.ToLower(strings.TrimRight(trimmed, ",:;"))
	if strings.HasSuffix(trimmed, ",") {
		c.boundary = n
	}
	if _, ok := c.conjunctions[low]; ok {
		c.boundary = n - 1
	}

	// Hard cap: split at the last soft boundary when one exists, else flush
	// everything.
	if n >= c.maxTokens {
		if c.boundary > 0 {
			return c.pop(c.boundary), true
		}
		return c.pop(n), true
	}

	return Phrase{}, false
}

// Flush pops whatever remains, bypassing the min/max checks. Used at stream
// end. Reports false when the buffer is empty.
func (c *Chunker) Flush() (Phrase, bool) {
	if len(c.buf) == 0 {
		return Phrase{}, false
	}
	return c.pop(len(c.buf)), true
}

// Reset discards the buffer and boundary mark.
func (c *Chunker) Reset() {
	c.buf = c.buf[:0]
	c.boundary = 0
}

// Pending reports how many tokens are buffered.
func (c *Chunker) Pending() int { return len(c.buf) }

func (c *Chunker) pop(n int) Phrase {
	display := strings.Join(c.buf[:n], "")
	c.buf = append(c.buf[:0], c.buf[n:]...)
	if c.boundary <= n {
		c.boundary = 0
	} else {
		c.boundary -= n
	}

	speech := strings.TrimSpace(display)
	// Parentheses read badly; turn them into spoken pauses.
	speech = strings.ReplaceAll(speech, "(", " – ")
	speech = strings.ReplaceAll(speech, ")", " – ")
	speech = c.norm.StripNonStandard(speech)
	speech = c.norm.ExpandAbbreviations(speech)

	return Phrase{Display: display, Speech: speech}
}
