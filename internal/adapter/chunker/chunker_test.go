package chunker

import (
	"strings"
	"testing"

	"github.com/hsaeed3/yosemite/internal/domain"
	"github.com/hsaeed3/yosemite/internal/port"
)

// assertPartition checks the coverage invariant: chunks ordered by Seq,
// offsets non-overlapping, every byte of text covered exactly once.
func assertPartition(t *testing.T, text string, chunks []domain.Chunk) {
	t.Helper()
	covered := 0
	prevEnd := 0
	for i, c := range chunks {
		if c.Seq != i {
			t.Errorf("chunk %d has Seq %d", i, c.Seq)
		}
		if c.Start != prevEnd {
			t.Errorf("chunk %d starts at %d, want %d", i, c.Start, prevEnd)
		}
		if c.End <= c.Start {
			t.Errorf("chunk %d has empty range [%d, %d)", i, c.Start, c.End)
		}
		covered += c.End - c.Start
		prevEnd = c.End
	}
	if covered != len(text) {
		t.Errorf("offset ranges cover %d bytes, want %d", covered, len(text))
	}
	if len(chunks) > 0 && chunks[len(chunks)-1].End != len(text) {
		t.Errorf("last chunk ends at %d, want %d", chunks[len(chunks)-1].End, len(text))
	}
}

func TestWindowPartition(t *testing.T) {
	tests := []struct {
		name string
		size int
		text string
	}{
		{"short text single chunk", 100, "hello world"},
		{"splits long text", 10, "the quick brown fox jumps over the lazy dog"},
		{"no whitespace", 8, strings.Repeat("x", 50)},
		{"multibyte runes", 6, strings.Repeat("héllo wörld ", 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := NewWindow(tt.size, 0).Chunk(tt.text)
			if err != nil {
				t.Fatal(err)
			}
			if len(chunks) == 0 {
				t.Fatal("expected at least one chunk")
			}
			assertPartition(t, tt.text, chunks)
			// Without overlap chunk text equals the owned span.
			for _, c := range chunks {
				if c.Text != tt.text[c.Start:c.End] {
					t.Errorf("chunk text %q != span %q", c.Text, tt.text[c.Start:c.End])
				}
			}
		})
	}
}

func TestWindowEmptyText(t *testing.T) {
	chunks, err := NewWindow(10, 0).Chunk("")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected zero chunks for empty text, got %d", len(chunks))
	}
}

func TestWindowOverlapExtendsTextOnly(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	chunks, err := NewWindow(10, 5).Chunk(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// Offsets still partition the document.
	assertPartition(t, text, chunks)
	// Later chunks carry context from before their owned span.
	for _, c := range chunks[1:] {
		if !strings.HasSuffix(c.Text, text[c.Start:c.End]) {
			t.Errorf("chunk text %q does not end with owned span %q", c.Text, text[c.Start:c.End])
		}
		if len(c.Text) <= c.End-c.Start {
			t.Errorf("chunk text %q has no overlap context", c.Text)
		}
	}
}

func TestSentencePartition(t *testing.T) {
	text := "First sentence. Second sentence! Third one? And a fourth."
	chunks, err := NewSentence(20).Chunk(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected sentence groups to split, got %d chunks", len(chunks))
	}
	assertPartition(t, text, chunks)
	for _, c := range chunks {
		if c.Text != text[c.Start:c.End] {
			t.Errorf("chunk text %q != span %q", c.Text, text[c.Start:c.End])
		}
	}
}

func TestSentenceSingleChunk(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog."
	chunks, err := NewSentence(512).Chunk(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("chunk text %q, want full document", chunks[0].Text)
	}
	assertPartition(t, text, chunks)
}

func TestSentenceOversizedSentence(t *testing.T) {
	text := strings.Repeat("word ", 100) + "end."
	chunks, err := NewSentence(10).Chunk(text)
	if err != nil {
		t.Fatal(err)
	}
	assertPartition(t, text, chunks)
}

var (
	_ port.Chunker = (*Window)(nil)
	_ port.Chunker = (*Sentence)(nil)
)
