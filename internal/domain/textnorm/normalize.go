// Package textnorm turns raw tweet-length text into the token stream the
// sentiment classifier was trained on.
//
// The pipeline is strictly ordered: URLs, mentions and hashtags are removed,
// emoticons become sentinel words, the text is lowercased, a few contractions
// are expanded, whitespace is collapsed, punctuation is deleted, and the
// remaining words are tokenized, filtered and lemmatized or stemmed.
package textnorm

import (
	"fmt"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// Mode selects the final word reduction step.
type Mode string

// Supported modes.
const (
	Lemmatize Mode = "lemmatize"
	Stem      Mode = "stem"
)

// ParseMode maps a configuration string to a Mode. Anything that is not a
// stemmer name falls back to Lemmatize.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stem", "stemmer":
		return Stem
	default:
		return Lemmatize
	}
}

// Lemmatizer maps a word to its dictionary form.
type Lemmatizer interface {
	Lemma(word string) string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLemmatizer replaces the dictionary lemmatizer.
func WithLemmatizer(l Lemmatizer) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.lemmatizer = l
		}
	}
}

// WithStemmer replaces the Porter stemmer.
func WithStemmer(stem func(string) string) Option {
	return func(n *Normalizer) {
		if stem != nil {
			n.stem = stem
		}
	}
}

// Normalizer is stateless after construction and safe for concurrent use.
type Normalizer struct {
	lemmatizer Lemmatizer
	stem       func(string) string
}

// New builds a Normalizer. The English dictionary is loaded once here unless
// a lemmatizer is supplied; only its noun lemmas are used.
func New(opts ...Option) (*Normalizer, error) {
	n := &Normalizer{stem: porterStem}
	for _, opt := range opts {
		opt(n)
	}
	if n.lemmatizer == nil {
		l, err := golem.New(en.New())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLemmatizer, err)
		}
		n.lemmatizer = nounLemmatizer{dict: l}
	}
	return n, nil
}

// Normalize runs the full pipeline. It never panics and returns an empty
// slice for input that has no usable words.
func (n *Normalizer) Normalize(text string, mode Mode) []string {
	text = Clean(text)
	if text == "" {
		return []string{}
	}

	reduce := n.lemma
	if mode == Stem {
		reduce = n.stem
	}

	words := Tokenize(text)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if !keep(w) {
			continue
		}
		tokens = append(tokens, reduce(w))
	}
	return tokens
}

func (n *Normalizer) lemma(w string) string {
	return n.lemmatizer.Lemma(w)
}

// Clean applies the string-level stages of the pipeline, up to and including
// punctuation deletion.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = urlPattern.ReplaceAllString(text, "")
	text = mentionPattern.ReplaceAllString(text, "")
	text = hashtagPattern.ReplaceAllString(text, "")
	text = ReplaceEmoticons(text)
	text = strings.ToLower(text)
	text = expandContractions(text)
	text = collapseSpace(text)
	return stripPunctuation(text)
}

// contractions are expanded in this order by literal substring replacement.
var contractions = [...][2]string{ //nolint:gochecknoglobals // fixed lookup table
	{"i'm", "i am"},
	{"can't", "cannot"},
	{"won't", "will not"},
	{"it's", "it is"},
	{"don't", "do not"},
}

func expandContractions(text string) string {
	for _, c := range contractions {
		text = strings.ReplaceAll(text, c[0], c[1])
	}
	return text
}

func collapseSpace(text string) string {
	return strings.Join(strings.FieldsFunc(text, isSpace), " ")
}

func stripPunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if isPunct(r) {
			return -1
		}
		return r
	}, text)
}

// isPunct matches the ASCII punctuation set plus the right single quotation mark.
func isPunct(r rune) bool {
	switch {
	case r >= '!' && r <= '/', r >= ':' && r <= '@', r >= '[' && r <= '`', r >= '{' && r <= '~':
		return true
	case r == '’':
		return true
	}
	return false
}
