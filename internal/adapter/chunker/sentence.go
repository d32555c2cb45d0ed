package chunker

import (
	"unicode"
	"unicode/utf8"

	"github.com/hsaeed3/yosemite/internal/domain"
)

// Sentence groups whole sentences into chunks of up to MaxRunes runes.
// A sentence ends at '.', '!' or '?' followed by whitespace or end of text;
// trailing whitespace belongs to the sentence it follows, keeping the
// partition exact. A single oversized sentence becomes its own chunk rather
// than being split mid-sentence.
type Sentence struct {
	maxRunes int
}

// NewSentence creates a sentence chunker.
func NewSentence(maxRunes int) *Sentence {
	if maxRunes <= 0 {
		maxRunes = 1024
	}
	return &Sentence{maxRunes: maxRunes}
}

func (c *Sentence) Chunk(text string) ([]domain.Chunk, error) {
	if len(text) == 0 {
		return nil, nil
	}

	bounds := sentenceBounds(text)

	var chunks []domain.Chunk
	start := 0
	curRunes := 0
	prev := 0
	for _, b := range bounds {
		segRunes := utf8.RuneCountInString(text[prev:b])
		if curRunes > 0 && curRunes+segRunes > c.maxRunes {
			chunks = append(chunks, domain.Chunk{
				Seq:   len(chunks),
				Text:  text[start:prev],
				Start: start,
				End:   prev,
			})
			start = prev
			curRunes = 0
		}
		curRunes += segRunes
		prev = b
	}
	if start < len(text) {
		chunks = append(chunks, domain.Chunk{
			Seq:   len(chunks),
			Text:  text[start:],
			Start: start,
			End:   len(text),
		})
	}
	return chunks, nil
}

// sentenceBounds returns byte offsets just past each sentence, including
// the whitespace that follows its terminator. The final offset is len(text).
func sentenceBounds(text string) []int {
	var bounds []int
	i := 0
	for i < len(text) {
		r, width := utf8.DecodeRuneInString(text[i:])
		i += width
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Absorb any run of whitespace after the terminator.
		j := i
		for j < len(text) {
			nr, nw := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(nr) {
				break
			}
			j += nw
		}
		if j > i || j == len(text) {
			bounds = append(bounds, j)
			i = j
		}
	}
	if len(bounds) == 0 || bounds[len(bounds)-1] != len(text) {
		bounds = append(bounds, len(text))
	}
	return bounds
}
