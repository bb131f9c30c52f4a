package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxContextChars bounds the contextual hint attached to a segment so
// backend prompts do not grow with document size.
const DefaultMaxContextChars = 1000

// BuildContext returns up to maxContextChars runes of source text preceding
// segment index, most-recent text last. The first segment gets no context.
// Context is taken from the source text of prior segments, not from their
// eventual translation, so all segments can be built before dispatch.
func BuildContext(segments []string, index, maxContextChars int) string {
	if index <= 0 || maxContextChars <= 0 || len(segments) == 0 {
		return ""
	}
	if index > len(segments) {
		index = len(segments)
	}

	first := index
	total := 0
	for first > 0 && total < maxContextChars {
		first--
		total += utf8.RuneCountInString(segments[first])
	}
	return tailRunes(strings.Join(segments[first:index], ""), maxContextChars)
}

func tailRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[len(runes)-n:])
}
