package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkEmptyInput(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty string", text: ""},
		{name: "spaces only", text: "   "},
		{name: "newlines only", text: "\n\n\t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Chunk(tt.text, 100)
			if !errors.Is(err, ErrEmptyInput) {
				t.Fatalf("Chunk(%q) error = %v, want ErrEmptyInput", tt.text, err)
			}
		})
	}
}

func TestChunkSingleSegment(t *testing.T) {
	text := "Sentence one. Sentence two."
	segments, err := Chunk(text, 4000)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("Chunk() returned %d segments, want 1", len(segments))
	}
	if segments[0] != text {
		t.Errorf("Chunk() segment = %q, want %q", segments[0], text)
	}
}

func TestChunkSplitsOnSentenceBoundaries(t *testing.T) {
	segments, err := Chunk("First. Second.", 8)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("Chunk() returned %d segments, want 2: %q", len(segments), segments)
	}
	if segments[0] != "First. " || segments[1] != "Second." {
		t.Errorf("Chunk() = %q, want [%q %q]", segments, "First. ", "Second.")
	}
}

func TestChunkRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		maxSize int
	}{
		{
			name:    "multi paragraph prose",
			text:    "Глава первая.\n\nБыло раннее утро. Туман стоял над рекой.\nНикто не спал.\n\nКонец главы.",
			maxSize: 20,
		},
		{
			name:    "no boundaries falls back to windows",
			text:    strings.Repeat("a", 57),
			maxSize: 10,
		},
		{
			name:    "long sentence hard cut",
			text:    "short. " + strings.Repeat("x", 45) + ". tail.",
			maxSize: 12,
		},
		{
			name:    "windows newlines",
			text:    "line one\r\nline two\r\n\r\nline three",
			maxSize: 12,
		},
		{
			name:    "trailing whitespace preserved",
			text:    "One. Two. Three.   ",
			maxSize: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := Chunk(tt.text, tt.maxSize)
			if err != nil {
				t.Fatalf("Chunk() error = %v", err)
			}
			if len(segments) == 0 {
				t.Fatal("Chunk() returned no segments for non-empty input")
			}
			joined := strings.Join(segments, "")
			if joined != tt.text {
				t.Errorf("round trip mismatch:\n got %q\nwant %q", joined, tt.text)
			}
			for index, segment := range segments {
				if utf8.RuneCountInString(segment) > tt.maxSize {
					t.Errorf("segment %d has %d runes, max %d", index, utf8.RuneCountInString(segment), tt.maxSize)
				}
			}
		})
	}
}

func TestChunkFixedWindowSizes(t *testing.T) {
	segments, err := Chunk(strings.Repeat("ж", 25), 10)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("Chunk() returned %d segments, want 3", len(segments))
	}
	wantSizes := []int{10, 10, 5}
	for index, segment := range segments {
		if utf8.RuneCountInString(segment) != wantSizes[index] {
			t.Errorf("segment %d has %d runes, want %d", index, utf8.RuneCountInString(segment), wantSizes[index])
		}
	}
}

func TestChunkDefaultMaxSize(t *testing.T) {
	segments, err := Chunk("hello world", 0)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(segments) != 1 {
		t.Errorf("Chunk() with zero max should use the default, got %d segments", len(segments))
	}
}

func TestChunkKeepsAbbreviationsIntact(t *testing.T) {
	// a period without following whitespace is not a sentence boundary
	segments, err := Chunk("Pi is 3.14159 which is well known. Second sentence here.", 40)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if !strings.Contains(segments[0], "3.14159") {
		t.Errorf("number was split across segments: %q", segments)
	}
}
