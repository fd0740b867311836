package textnorm

import (
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
)

// nounRules are the suffix detachments of WordNet's noun morphology.
var nounRules = [...]struct{ suffix, repl string }{ //nolint:gochecknoglobals // fixed rule table
	{"s", ""},
	{"ses", "s"},
	{"xes", "x"},
	{"zes", "z"},
	{"ches", "ch"},
	{"shes", "sh"},
	{"men", "man"},
	{"ies", "y"},
}

var irregularPlurals = map[string]string{ //nolint:gochecknoglobals // fixed lookup table
	"children": "child",
	"feet":     "foot",
	"geese":    "goose",
	"mice":     "mouse",
	"teeth":    "tooth",
	"lice":     "louse",
}

// nounLemmatizer keeps a dictionary lemma only when it is a noun
// inflection of the word. Verb and spelling-variant lemmas such as
// loved -> love or ok -> okay are dropped and the word is kept.
type nounLemmatizer struct {
	dict Lemmatizer
}

func (l nounLemmatizer) Lemma(w string) string {
	if base, ok := irregularPlurals[w]; ok {
		return base
	}
	lemma := l.dict.Lemma(w)
	if lemma == w || nounInflection(w, lemma) {
		return lemma
	}
	return w
}

func nounInflection(w, lemma string) bool {
	for _, r := range nounRules {
		if strings.HasSuffix(w, r.suffix) && strings.TrimSuffix(w, r.suffix)+r.repl == lemma {
			return true
		}
	}
	return false
}

// stemPool holds words whose stems are fixed regardless of the rules.
var stemPool = map[string]string{ //nolint:gochecknoglobals // fixed lookup table
	"skies":    "sky",
	"sky":      "sky",
	"dying":    "die",
	"lying":    "lie",
	"tying":    "tie",
	"news":     "news",
	"innings":  "inning",
	"inning":   "inning",
	"outings":  "outing",
	"outing":   "outing",
	"cannings": "canning",
	"canning":  "canning",
	"howe":     "howe",
	"proceed":  "proceed",
	"exceed":   "exceed",
	"succeed":  "succeed",
}

// porterStem is the Porter stemmer with two adjustments: pooled words map
// to fixed stems, and a final y after a vowel is kept (okay, play, enjoy).
func porterStem(w string) string {
	if s, ok := stemPool[w]; ok {
		return s
	}
	if len(w) <= 2 {
		return w
	}
	s := porterstemmer.StemString(w)
	n := len(s)
	if n >= 2 && s[n-1] == 'i' && isVowel(s[n-2]) && strings.HasPrefix(w, s[:n-1]+"y") {
		s = s[:n-1] + "y"
	}
	return s
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
