package textnorm

import (
	"strings"
	"unicode"
)

// splitWords are whole words the word tokenizer breaks in two.
var splitWords = map[string][2]string{ //nolint:gochecknoglobals // fixed lookup table
	"cannot": {"can", "not"},
	"gimme":  {"gim", "me"},
	"gonna":  {"gon", "na"},
	"gotta":  {"got", "ta"},
	"lemme":  {"lem", "me"},
	"wanna":  {"wan", "na"},
}

// Tokenize splits cleaned, lowercased text into words. Typographic quotes and the
// ellipsis character become tokens of their own, and a few colloquial
// compounds are split into their parts.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, isSpace)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		for _, part := range splitQuotes(f) {
			if pair, ok := splitWords[part]; ok {
				out = append(out, pair[0], pair[1])
				continue
			}
			out = append(out, part)
		}
	}
	return out
}

func splitQuotes(field string) []string {
	if !strings.ContainsFunc(field, isQuote) {
		return []string{field}
	}
	var parts []string
	start := 0
	for i, r := range field {
		if !isQuote(r) {
			continue
		}
		if i > start {
			parts = append(parts, field[start:i])
		}
		parts = append(parts, string(r))
		start = i + len(string(r))
	}
	if start < len(field) {
		parts = append(parts, field[start:])
	}
	return parts
}

func isQuote(r rune) bool {
	switch r {
	case '“', '”', '«', '»', '‘', '„', '…':
		return true
	}
	return false
}

// isSpace matches unicode.IsSpace plus the ASCII file, group, record and
// unit separators.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// otherDigits holds the No-category characters that carry a digit value:
// superscripts, subscripts, circled and parenthesized digits and a few
// script-specific digit forms.
var otherDigits = &unicode.RangeTable{ //nolint:gochecknoglobals // fixed table
	R16: []unicode.Range16{
		{Lo: 0x00b2, Hi: 0x00b3, Stride: 1},
		{Lo: 0x00b9, Hi: 0x00b9, Stride: 1},
		{Lo: 0x1369, Hi: 0x1371, Stride: 1},
		{Lo: 0x19da, Hi: 0x19da, Stride: 1},
		{Lo: 0x2070, Hi: 0x2070, Stride: 1},
		{Lo: 0x2074, Hi: 0x2079, Stride: 1},
		{Lo: 0x2080, Hi: 0x2089, Stride: 1},
		{Lo: 0x2460, Hi: 0x2468, Stride: 1},
		{Lo: 0x2474, Hi: 0x247c, Stride: 1},
		{Lo: 0x2488, Hi: 0x2490, Stride: 1},
		{Lo: 0x24ea, Hi: 0x24ea, Stride: 1},
		{Lo: 0x24f5, Hi: 0x24fd, Stride: 1},
		{Lo: 0x24ff, Hi: 0x24ff, Stride: 1},
		{Lo: 0x2776, Hi: 0x277e, Stride: 1},
		{Lo: 0x2780, Hi: 0x2788, Stride: 1},
		{Lo: 0x278a, Hi: 0x2792, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x10a40, Hi: 0x10a43, Stride: 1},
		{Lo: 0x1f100, Hi: 0x1f10a, Stride: 1},
	},
}

// isNumeric reports whether w consists only of digit characters: decimal
// digits in any script plus otherDigits. Fractions such as ½ are not digits.
func isNumeric(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if !unicode.IsDigit(r) && !unicode.Is(otherDigits, r) {
			return false
		}
	}
	return true
}
