package textnorm

import (
	"regexp"

	"github.com/dlclark/regexp2"
)

// Sentinel words substituted for emoticons.
const (
	HappyToken = "tokensmileyhappy"
	SadToken   = "tokensmileysad"
)

// Word and non-space classes follow Unicode rules rather than ASCII ones.
const (
	wordClass    = `[\p{L}\p{N}_]`
	nonSpaceRuns = `[^\s\x0b\x1c-\x1f\x85\p{Z}]+`
)

//nolint:gochecknoglobals // compiled once, read-only
var (
	urlPattern     = regexp.MustCompile(`https?://` + nonSpaceRuns + `|www\.` + nonSpaceRuns)
	mentionPattern = regexp.MustCompile(`@` + wordClass + `+`)
	hashtagPattern = regexp.MustCompile(`#` + wordClass + `+`)

	// Emoticons only count as whole whitespace-delimited tokens, which needs
	// lookarounds that RE2 does not have.
	happyPattern = regexp2.MustCompile(`(?<!\S)(?:[:;=8][-]?[\)D\]}pP3]|<3)(?!\S)`, regexp2.None)
	sadPattern   = regexp2.MustCompile(`(?<!\S)[:;=8][-]?[\(\[/{|c](?!\S)`, regexp2.None)
)

// ReplaceEmoticons rewrites happy and sad emoticons into sentinel words.
// On a matcher error the text is returned unchanged for that pattern.
func ReplaceEmoticons(text string) string {
	if out, err := happyPattern.Replace(text, HappyToken, -1, -1); err == nil {
		text = out
	}
	if out, err := sadPattern.Replace(text, SadToken, -1, -1); err == nil {
		text = out
	}
	return text
}
