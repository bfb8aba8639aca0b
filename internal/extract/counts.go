package extract

import (
	"strings"
	"unicode/utf8"
)

// BuildCounts reports whitespace-separated words and runes in text.
func BuildCounts(text string) (words, chars int) {
	return len(strings.Fields(text)), utf8.RuneCountInString(text)
}
