package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedder produces deterministic bag-of-words vectors by hashing each
// whitespace-separated term into a bucket. It needs no network or model and
// keeps similar texts close, which makes it useful for offline runs and
// tests; it is not a substitute for a learned embedding model.
type HashEmbedder struct {
	dimension int
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 64
	}
	return &HashEmbedder{dimension: dimension}
}

func (e *HashEmbedder) Dimension() int { return e.dimension }

func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embedOne(text)
	}
	return vectors, nil
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	v := make([]float32, e.dimension)
	for _, term := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(term))
		sum := h.Sum32()
		v[int(sum)%e.dimension] += 1
		// A second, lower-weight bucket reduces collisions washing out similarity.
		v[int(sum>>16)%e.dimension] += 0.5
	}
	var norm float64
	for _, c := range v {
		norm += float64(c) * float64(c)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= inv
		}
	}
	return v
}
