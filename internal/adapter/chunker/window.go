// Package chunker splits document text into retrieval units. Both
// strategies guarantee the coverage invariant: the emitted [Start, End)
// ranges partition the input text exactly, ordered by sequence.
package chunker

import (
	"unicode"
	"unicode/utf8"

	"github.com/hsaeed3/yosemite/internal/domain"
)

// Window emits fixed-size windows of roughly Size runes, breaking at
// whitespace when one falls in the back half of the window. Overlap extends
// each chunk's indexed text backwards by up to Overlap runes of context;
// the owned offset range is never extended, so offsets still partition the
// document.
type Window struct {
	size    int
	overlap int
}

// NewWindow creates a window chunker. Size must be positive; a non-positive
// overlap disables context extension.
func NewWindow(size, overlap int) *Window {
	if size <= 0 {
		size = 512
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Window{size: size, overlap: overlap}
}

func (c *Window) Chunk(text string) ([]domain.Chunk, error) {
	if len(text) == 0 {
		return nil, nil
	}

	var chunks []domain.Chunk
	start := 0
	for start < len(text) {
		end := c.windowEnd(text, start)
		body := text[start:end]
		if c.overlap > 0 && start > 0 {
			body = contextPrefix(text[:start], c.overlap) + body
		}
		chunks = append(chunks, domain.Chunk{
			Seq:   len(chunks),
			Text:  body,
			Start: start,
			End:   end,
		})
		start = end
	}
	return chunks, nil
}

// windowEnd returns the byte offset ending the window that begins at start.
func (c *Window) windowEnd(text string, start int) int {
	runes := 0
	end := start
	lastSpace := -1
	for end < len(text) && runes < c.size {
		r, width := utf8.DecodeRuneInString(text[end:])
		if unicode.IsSpace(r) && runes > c.size/2 {
			lastSpace = end + width
		}
		end += width
		runes++
	}
	if end >= len(text) {
		return len(text)
	}
	// Prefer a whitespace boundary in the back half of the window.
	if lastSpace > start {
		return lastSpace
	}
	return end
}

// contextPrefix returns up to n trailing runes of preceding.
func contextPrefix(preceding string, n int) string {
	off := len(preceding)
	for i := 0; i < n && off > 0; i++ {
		_, width := utf8.DecodeLastRuneInString(preceding[:off])
		off -= width
	}
	return preceding[off:]
}
