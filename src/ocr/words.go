package ocr

import (
	"regexp"
	"strings"
	"unicode"
)

const maxSingleWordLen = 50

var (
	edgeNoise   = regexp.MustCompile(`^[^\p{L}\p{M}\p{N}]+|[^\p{L}\p{M}\p{N}]+$`)
	englishWord = regexp.MustCompile(`^[A-Za-z]+(?:['-][A-Za-z]+)*$`)
)

// IsSingleWord reports whether text holds exactly one whitespace-delimited
// token of reasonable length.
func IsSingleWord(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed != "" && !strings.ContainsFunc(trimmed, unicode.IsSpace) && len(trimmed) < maxSingleWordLen
}

// CleanText trims surrounding whitespace and, for a single word, strips
// leading and trailing punctuation picked up by the recognizer.
func CleanText(text string) string {
	trimmed := strings.TrimSpace(text)
	if IsSingleWord(trimmed) {
		return edgeNoise.ReplaceAllString(trimmed, "")
	}
	return trimmed
}

// IsEnglishWord reports whether token has the shape of an English word:
// ASCII letters, optionally joined by single apostrophes or hyphens.
func IsEnglishWord(token string) bool {
	return englishWord.MatchString(token)
}
