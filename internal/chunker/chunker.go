// Package chunker splits raw documents into translation-sized segments.
//
// Segments are contiguous slices of the input with their separators kept
// attached, so concatenating the returned segments in order reproduces the
// source text byte for byte.
package chunker

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

var ErrEmptyInput = errors.New("input text is empty")

// DefaultMaxSegmentChars bounds one backend request to roughly a chapter
// worth of prose.
const DefaultMaxSegmentChars = 4000

// Chunk splits text into an ordered sequence of segments of at most
// maxSegmentChars runes. Splitting prefers line and sentence boundaries and
// falls back to fixed-size windows only when a single unit exceeds the
// limit. Empty or whitespace-only input yields ErrEmptyInput.
func Chunk(text string, maxSegmentChars int) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if maxSegmentChars <= 0 {
		maxSegmentChars = DefaultMaxSegmentChars
	}

	units := make([]string, 0, 16)
	for _, line := range splitLines(text) {
		if utf8.RuneCountInString(line) <= maxSegmentChars {
			units = append(units, line)
			continue
		}
		for _, sentence := range splitSentences(line) {
			if utf8.RuneCountInString(sentence) <= maxSegmentChars {
				units = append(units, sentence)
				continue
			}
			units = append(units, hardCut(sentence, maxSegmentChars)...)
		}
	}

	segments := make([]string, 0, len(units))
	var current strings.Builder
	currentChars := 0
	for _, unit := range units {
		unitChars := utf8.RuneCountInString(unit)
		if currentChars > 0 && currentChars+unitChars > maxSegmentChars {
			segments = append(segments, current.String())
			current.Reset()
			currentChars = 0
		}
		current.WriteString(unit)
		currentChars += unitChars
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}
	return segments, nil
}

// splitLines cuts after every newline run, keeping the run with the
// preceding line so the pieces concatenate back to the input.
func splitLines(text string) []string {
	parts := make([]string, 0, 8)
	start := 0
	i := 0
	for i < len(text) {
		if text[i] != '\n' {
			i++
			continue
		}
		j := i + 1
		for j < len(text) && (text[j] == '\n' || text[j] == '\r') {
			j++
		}
		parts = append(parts, text[start:j])
		start = j
		i = j
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

// splitSentences cuts after terminal punctuation followed by whitespace.
// The whitespace run stays with the finished sentence.
func splitSentences(text string) []string {
	parts := make([]string, 0, 8)
	start := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if !isSentenceEnd(r) {
			continue
		}
		for i < len(text) {
			next, nextSize := utf8.DecodeRuneInString(text[i:])
			if !isSentenceEnd(next) && !isClosingMark(next) {
				break
			}
			i += nextSize
		}
		j := i
		for j < len(text) {
			next, nextSize := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(next) {
				break
			}
			j += nextSize
		}
		if j == i {
			// mid-token punctuation, e.g. "3.14" or "т.е."
			continue
		}
		parts = append(parts, text[start:j])
		start = j
		i = j
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

// hardCut slices text into fixed windows of at most maxChars runes.
func hardCut(text string, maxChars int) []string {
	parts := make([]string, 0, utf8.RuneCountInString(text)/maxChars+1)
	start := 0
	count := 0
	for i := range text {
		if count == maxChars {
			parts = append(parts, text[start:i])
			start = i
			count = 0
		}
		count++
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

func isClosingMark(r rune) bool {
	switch r {
	case '"', '\'', '»', '”', '’', ')', ']':
		return true
	}
	return false
}
