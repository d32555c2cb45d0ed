// Package index holds the two retrieval index structures: the inverted
// lexical index and the approximate vector index. Both are in-memory,
// guarded single-writer/multi-reader, and snapshot deterministically to
// disk so a reloaded index reproduces identical search results.
package index

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/hsaeed3/yosemite/internal/domain"
	"github.com/hsaeed3/yosemite/internal/port"
)

var _ port.LexicalIndex = (*Lexical)(nil)

// Lexical is an inverted index mapping tokens to postings, scored with
// TF-IDF: tf(token, chunk) * ln(totalChunks / chunksContaining(token)).
type Lexical struct {
	mu sync.RWMutex
	// postings maps token -> chunkID -> term frequency.
	postings map[string]map[uint64]int
	// terms maps chunkID -> the distinct tokens it contributed, for removal.
	terms map[uint64][]string
	// order maps chunkID -> insertion rank, the deterministic tie-break.
	order map[uint64]int
	next  int
}

func NewLexical() *Lexical {
	return &Lexical{
		postings: make(map[string]map[uint64]int),
		terms:    make(map[uint64][]string),
		order:    make(map[uint64]int),
	}
}

// Index adds postings for every token in the sequence, counting repeats as
// term frequency. Re-indexing a chunk replaces its previous postings.
func (x *Lexical) Index(chunkID uint64, tokens []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, exists := x.terms[chunkID]; exists {
		x.removeLocked(chunkID)
	}

	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}

	distinct := make([]string, 0, len(tf))
	for tok, count := range tf {
		list, ok := x.postings[tok]
		if !ok {
			list = make(map[uint64]int)
			x.postings[tok] = list
		}
		list[chunkID] = count
		distinct = append(distinct, tok)
	}
	sort.Strings(distinct)
	x.terms[chunkID] = distinct
	x.order[chunkID] = x.next
	x.next++
	return nil
}

// Remove retracts the chunk from every posting list it appears in, pruning
// posting lists that become empty.
func (x *Lexical) Remove(chunkID uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(chunkID)
}

// ChunksRemoved implements the store's chunk-removed notification.
func (x *Lexical) ChunksRemoved(chunkIDs []uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range chunkIDs {
		x.removeLocked(id)
	}
}

func (x *Lexical) removeLocked(chunkID uint64) {
	for _, tok := range x.terms[chunkID] {
		list := x.postings[tok]
		delete(list, chunkID)
		if len(list) == 0 {
			delete(x.postings, tok)
		}
	}
	delete(x.terms, chunkID)
	delete(x.order, chunkID)
}

// Search scores chunks matching at least one query token and returns the
// topK best, ordered by score descending with ties broken by insertion
// order (earlier first).
func (x *Lexical) Search(queryTokens []string, topK int) ([]domain.Candidate, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top-k must be positive, got %d", domain.ErrInvalidArgument, topK)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	total := len(x.order)
	if total == 0 || len(queryTokens) == 0 {
		return nil, nil
	}

	scores := make(map[uint64]float64)
	for _, tok := range queryTokens {
		list, ok := x.postings[tok]
		if !ok {
			continue
		}
		idf := math.Log(float64(total) / float64(len(list)))
		for chunkID, tf := range list {
			scores[chunkID] += float64(tf) * idf
		}
	}

	results := make([]domain.Candidate, 0, len(scores))
	for chunkID, score := range scores {
		results = append(results, domain.Candidate{ChunkID: chunkID, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return x.order[results[i].ChunkID] < x.order[results[j].ChunkID]
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

type lexicalSnapshot struct {
	Postings []termSnapshot `json:"postings"`
	Order    []orderEntry   `json:"order"`
	Next     int            `json:"next"`
}

type termSnapshot struct {
	Term     string           `json:"term"`
	Postings []domain.Posting `json:"p"`
}

type orderEntry struct {
	ChunkID uint64 `json:"id"`
	Rank    int    `json:"rank"`
}

// Save writes a deterministic snapshot: terms sorted, postings sorted by
// chunk id.
func (x *Lexical) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	snap := lexicalSnapshot{Next: x.next}
	terms := make([]string, 0, len(x.postings))
	for tok := range x.postings {
		terms = append(terms, tok)
	}
	sort.Strings(terms)
	for _, tok := range terms {
		list := x.postings[tok]
		ps := make([]domain.Posting, 0, len(list))
		for chunkID, tf := range list {
			ps = append(ps, domain.Posting{ChunkID: chunkID, TF: tf})
		}
		sort.Slice(ps, func(i, j int) bool { return ps[i].ChunkID < ps[j].ChunkID })
		snap.Postings = append(snap.Postings, termSnapshot{Term: tok, Postings: ps})
	}
	for chunkID, rank := range x.order {
		snap.Order = append(snap.Order, orderEntry{ChunkID: chunkID, Rank: rank})
	}
	sort.Slice(snap.Order, func(i, j int) bool { return snap.Order[i].ChunkID < snap.Order[j].ChunkID })

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// Load replaces the index contents with a saved snapshot. A missing file
// leaves the index empty, so a fresh database opens cleanly.
func (x *Lexical) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var snap lexicalSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("corrupt lexical snapshot %s: %w", path, err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.postings = make(map[string]map[uint64]int, len(snap.Postings))
	x.terms = make(map[uint64][]string)
	x.order = make(map[uint64]int, len(snap.Order))
	for _, ts := range snap.Postings {
		list := make(map[uint64]int, len(ts.Postings))
		for _, p := range ts.Postings {
			list[p.ChunkID] = p.TF
			x.terms[p.ChunkID] = append(x.terms[p.ChunkID], ts.Term)
		}
		x.postings[ts.Term] = list
	}
	for _, e := range snap.Order {
		x.order[e.ChunkID] = e.Rank
	}
	x.next = snap.Next
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
