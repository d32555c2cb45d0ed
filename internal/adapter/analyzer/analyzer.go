// Package analyzer provides the default tokenizer/cleaner used for lexical
// indexing. Callers with their own analysis pipeline can supply any
// implementation of the Analyzer port instead.
package analyzer

import (
	"context"
	"strings"
	"unicode"
)

// Standard lowercases, splits on non-alphanumeric boundaries, and optionally
// drops stopwords and stems tokens.
type Standard struct {
	stopwords map[string]struct{}
	stem      bool
}

// Option configures a Standard analyzer.
type Option func(*Standard)

// WithStemming enables suffix stemming.
func WithStemming() Option {
	return func(a *Standard) { a.stem = true }
}

// WithoutStopwords disables stopword removal, keeping every token. This is
// the keyword-style analysis mode.
func WithoutStopwords() Option {
	return func(a *Standard) { a.stopwords = nil }
}

// New creates a Standard analyzer. By default stopwords are removed and
// stemming is off.
func New(opts ...Option) *Standard {
	a := &Standard{stopwords: stopwordSet()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tokenize normalizes text into an ordered token sequence. The local
// analyzer never fails; the error return satisfies the Analyzer port, whose
// implementations may be remote.
func (a *Standard) Tokenize(_ context.Context, text string) ([]string, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.ToLower(f)
		if len(tok) < 2 {
			continue
		}
		if _, stop := a.stopwords[tok]; stop {
			continue
		}
		if a.stem {
			tok = stem(tok)
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func stopwordSet() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "which", "who",
		"what", "when", "where", "why", "how", "all", "each", "both",
		"more", "most", "other", "some", "such", "than", "too",
		"very", "just", "also",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
