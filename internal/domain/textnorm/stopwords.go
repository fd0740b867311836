package textnorm

import "unicode/utf8"

// keepWords carry polarity and survive both the stopword and the short-word
// filters. Apostrophed entries are listed as well, but punctuation is gone
// by the time the filter runs, so only the bare forms ever match.
var keepWords = toSet( //nolint:gochecknoglobals // fixed lookup table
	"ok", "okay",
	"not", "no", "nor", "but",
	"don", "don't", "ain", "aren", "aren't", "couldn", "couldn't",
	"didn", "didn't", "doesn", "doesn't", "hadn", "hadn't", "hasn", "hasn't",
	"haven", "haven't", "isn", "isn't", "mightn", "mightn't", "mustn", "mustn't",
	"needn", "needn't", "shan", "shan't", "shouldn", "shouldn't", "wasn", "wasn't",
	"weren", "weren't", "won", "won't", "wouldn", "wouldn't",
)

// englishStopwords is the standard English stopword list.
var englishStopwords = []string{ //nolint:gochecknoglobals // fixed lookup table
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "you're",
	"you've", "you'll", "you'd", "your", "yours", "yourself", "yourselves", "he",
	"him", "his", "himself", "she", "she's", "her", "hers", "herself", "it",
	"it's", "its", "itself", "they", "them", "their", "theirs", "themselves",
	"what", "which", "who", "whom", "this", "that", "that'll", "these", "those",
	"am", "is", "are", "was", "were", "be", "been", "being", "have", "has", "had",
	"having", "do", "does", "did", "doing", "a", "an", "the", "and", "but", "if",
	"or", "because", "as", "until", "while", "of", "at", "by", "for", "with",
	"about", "against", "between", "into", "through", "during", "before",
	"after", "above", "below", "to", "from", "up", "down", "in", "out", "on",
	"off", "over", "under", "again", "further", "then", "once", "here", "there",
	"when", "where", "why", "how", "all", "any", "both", "each", "few", "more",
	"most", "other", "some", "such", "no", "nor", "not", "only", "own", "same",
	"so", "than", "too", "very", "s", "t", "can", "will", "just", "don", "don't",
	"should", "should've", "now", "d", "ll", "m", "o", "re", "ve", "y", "ain",
	"aren", "aren't", "couldn", "couldn't", "didn", "didn't", "doesn", "doesn't",
	"hadn", "hadn't", "hasn", "hasn't", "haven", "haven't", "isn", "isn't", "ma",
	"mightn", "mightn't", "mustn", "mustn't", "needn", "needn't", "shan",
	"shan't", "shouldn", "shouldn't", "wasn", "wasn't", "weren", "weren't",
	"won", "won't", "wouldn", "wouldn't",
}

// stopwords is englishStopwords minus keepWords.
var stopwords = func() map[string]struct{} { //nolint:gochecknoglobals // fixed lookup table
	s := toSet(englishStopwords...)
	for w := range keepWords {
		delete(s, w)
	}
	return s
}()

func toSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// keep reports whether a tokenized word survives filtering.
func keep(w string) bool {
	if _, stop := stopwords[w]; stop {
		return false
	}
	if isNumeric(w) {
		return false
	}
	if utf8.RuneCountInString(w) > 2 {
		return true
	}
	_, kept := keepWords[w]
	return kept
}

// IsStopword reports whether w is dropped as a stopword.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}
