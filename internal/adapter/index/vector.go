package index

import (
	"container/heap"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"sync"

	"github.com/hsaeed3/yosemite/internal/domain"
	"github.com/hsaeed3/yosemite/internal/port"
)

var _ port.VectorIndex = (*Vector)(nil)

// leafSize bounds the number of vectors held in one tree leaf; leaves are
// scanned exactly, so small indexes behave like brute force.
const leafSize = 32

// VectorConfig tunes the approximate search trade-off. More trees and a
// larger SearchK raise recall at the cost of build and query latency.
type VectorConfig struct {
	// Trees is the number of randomized hyperplane-split trees in the
	// forest.
	Trees int
	// SearchK is the number of candidate vectors inspected per query
	// before exact rescoring. Zero means Trees * topK * 8.
	SearchK int
	// Seed makes forest construction reproducible. Identical contents and
	// seed yield identical search results, which is what makes snapshots
	// deterministic.
	Seed int64
}

// DefaultVectorConfig mirrors the forest size the original deployment used.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{Trees: 10, Seed: 42}
}

// Vector is an approximate-nearest-neighbor index over fixed-dimension
// embeddings: a forest of trees that recursively split the space with
// random hyperplanes. Search walks each tree best-first, pools candidate
// leaves, then rescores candidates with exact cosine similarity. The forest
// is rebuilt lazily on the first search after a mutation.
type Vector struct {
	mu      sync.RWMutex
	dim     int
	cfg     VectorConfig
	entries map[uint64][]float32
	order   map[uint64]int
	next    int
	forest  []*treeNode
	dirty   bool
}

type treeNode struct {
	plane  []float32
	offset float32
	left   *treeNode // negative side of the plane
	right  *treeNode // non-negative side
	ids    []uint64  // leaf payload, nil for interior nodes
}

// NewVector creates a vector index with the given fixed dimension.
func NewVector(dim int, cfg VectorConfig) (*Vector, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidArgument, dim)
	}
	if cfg.Trees <= 0 {
		cfg.Trees = DefaultVectorConfig().Trees
	}
	return &Vector{
		dim:     dim,
		cfg:     cfg,
		entries: make(map[uint64][]float32),
		order:   make(map[uint64]int),
		dirty:   true,
	}, nil
}

func (x *Vector) Dimension() int { return x.dim }

// Index inserts or replaces the chunk's vector. A length mismatch is a
// caller error, never a silent truncation or pad.
func (x *Vector) Index(chunkID uint64, vector []float32) error {
	if len(vector) != x.dim {
		return fmt.Errorf("%w: index dimension %d, vector length %d", domain.ErrDimensionMismatch, x.dim, len(vector))
	}
	v := make([]float32, len(vector))
	copy(v, vector)

	x.mu.Lock()
	defer x.mu.Unlock()
	if _, exists := x.entries[chunkID]; !exists {
		x.order[chunkID] = x.next
		x.next++
	}
	x.entries[chunkID] = v
	x.dirty = true
	return nil
}

func (x *Vector) Remove(chunkID uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, exists := x.entries[chunkID]; !exists {
		return
	}
	delete(x.entries, chunkID)
	delete(x.order, chunkID)
	x.dirty = true
}

// ChunksRemoved implements the store's chunk-removed notification.
func (x *Vector) ChunksRemoved(chunkIDs []uint64) {
	for _, id := range chunkIDs {
		x.Remove(id)
	}
}

// Search returns the topK most cosine-similar chunks, highest first, ties
// broken by insertion order.
func (x *Vector) Search(query []float32, topK int) ([]domain.Candidate, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top-k must be positive, got %d", domain.ErrInvalidArgument, topK)
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: index dimension %d, query length %d", domain.ErrDimensionMismatch, x.dim, len(query))
	}

	x.mu.RLock()
	if x.dirty {
		x.mu.RUnlock()
		x.mu.Lock()
		if x.dirty {
			x.rebuild()
		}
		x.mu.Unlock()
		x.mu.RLock()
	}
	defer x.mu.RUnlock()

	if len(x.entries) == 0 {
		return nil, nil
	}

	searchK := x.cfg.SearchK
	if searchK <= 0 {
		searchK = x.cfg.Trees * topK * 8
	}

	candidates := make(map[uint64]struct{})
	for _, root := range x.forest {
		x.walkTree(root, query, searchK, candidates)
	}

	results := make([]domain.Candidate, 0, len(candidates))
	for id := range candidates {
		results = append(results, domain.Candidate{
			ChunkID: id,
			Score:   cosineSimilarity(query, x.entries[id]),
		})
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

// walkTree traverses one tree best-first by hyperplane margin, pooling leaf
// ids until the candidate budget is met.
func (x *Vector) walkTree(root *treeNode, query []float32, budget int, out map[uint64]struct{}) {
	if root == nil {
		return
	}
	pq := &nodeQueue{}
	heap.Init(pq)
	heap.Push(pq, queuedNode{node: root, priority: math.MaxFloat32})

	for pq.Len() > 0 && len(out) < budget {
		qn := heap.Pop(pq).(queuedNode)
		n := qn.node
		if n.ids != nil {
			for _, id := range n.ids {
				out[id] = struct{}{}
			}
			continue
		}
		margin := dot(query, n.plane) - n.offset
		near, far := n.right, n.left
		if margin < 0 {
			near, far = n.left, n.right
		}
		abs := margin
		if abs < 0 {
			abs = -abs
		}
		heap.Push(pq, queuedNode{node: near, priority: qn.priority})
		heap.Push(pq, queuedNode{node: far, priority: minf(qn.priority, abs)})
	}
}

// rebuild constructs the forest from scratch. Ids are ordered by insertion
// rank before building so map iteration order never leaks into the trees.
func (x *Vector) rebuild() {
	ids := make([]uint64, 0, len(x.entries))
	for id := range x.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return x.order[ids[i]] < x.order[ids[j]] })

	x.forest = make([]*treeNode, x.cfg.Trees)
	for t := range x.forest {
		rng := rand.New(rand.NewSource(x.cfg.Seed + int64(t)))
		treeIDs := make([]uint64, len(ids))
		copy(treeIDs, ids)
		x.forest[t] = x.buildNode(treeIDs, rng, 0)
	}
	x.dirty = false
}

func (x *Vector) buildNode(ids []uint64, rng *rand.Rand, depth int) *treeNode {
	if len(ids) == 0 {
		return &treeNode{ids: []uint64{}}
	}
	if len(ids) <= leafSize || depth > 40 {
		return &treeNode{ids: ids}
	}

	// Split by the hyperplane equidistant from two sampled points.
	a := x.entries[ids[rng.Intn(len(ids))]]
	b := x.entries[ids[rng.Intn(len(ids))]]
	plane := make([]float32, x.dim)
	var norm float32
	for i := range plane {
		plane[i] = a[i] - b[i]
		norm += plane[i] * plane[i]
	}
	if norm == 0 {
		// Degenerate sample (identical points); keep as a leaf.
		return &treeNode{ids: ids}
	}
	inv := 1 / float32(math.Sqrt(float64(norm)))
	var offset float32
	for i := range plane {
		plane[i] *= inv
		offset += plane[i] * (a[i] + b[i]) / 2
	}

	var left, right []uint64
	for _, id := range ids {
		if dot(x.entries[id], plane)-offset < 0 {
			left = append(left, id)
		} else {
			right = append(right, id)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{ids: ids}
	}
	return &treeNode{
		plane:  plane,
		offset: offset,
		left:   x.buildNode(left, rng, depth+1),
		right:  x.buildNode(right, rng, depth+1),
	}
}

type queuedNode struct {
	node     *treeNode
	priority float32
	seq      int
}

type nodeQueue []queuedNode

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}
func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(v any) {
	n := v.(queuedNode)
	n.seq = len(*q)
	*q = append(*q, n)
}
func (q *nodeQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	*q = old[:len(old)-1]
	return n
}

type vectorSnapshot struct {
	Dim     int             `json:"dim"`
	Trees   int             `json:"trees"`
	SearchK int             `json:"search_k,omitempty"`
	Seed    int64           `json:"seed"`
	Next    int             `json:"next"`
	Entries []vectorElement `json:"entries"`
}

type vectorElement struct {
	ChunkID uint64    `json:"id"`
	Rank    int       `json:"rank"`
	Vector  []float32 `json:"v"`
}

// Save writes a deterministic snapshot of the raw vectors and insertion
// order. The forest itself is not serialized: rebuilding from the same seed
// and contents reproduces it exactly.
func (x *Vector) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	snap := vectorSnapshot{
		Dim:     x.dim,
		Trees:   x.cfg.Trees,
		SearchK: x.cfg.SearchK,
		Seed:    x.cfg.Seed,
		Next:    x.next,
	}
	for id, v := range x.entries {
		snap.Entries = append(snap.Entries, vectorElement{ChunkID: id, Rank: x.order[id], Vector: v})
	}
	sort.Slice(snap.Entries, func(i, j int) bool { return snap.Entries[i].ChunkID < snap.Entries[j].ChunkID })

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// Load replaces index contents from a snapshot. A missing file leaves the
// index empty.
func (x *Vector) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var snap vectorSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("corrupt vector snapshot %s: %w", path, err)
	}
	if snap.Dim != x.dim {
		return fmt.Errorf("%w: snapshot dimension %d, index dimension %d", domain.ErrDimensionMismatch, snap.Dim, x.dim)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.cfg.Trees = snap.Trees
	x.cfg.SearchK = snap.SearchK
	x.cfg.Seed = snap.Seed
	x.next = snap.Next
	x.entries = make(map[uint64][]float32, len(snap.Entries))
	x.order = make(map[uint64]int, len(snap.Entries))
	for _, e := range snap.Entries {
		x.entries[e.ChunkID] = e.Vector
		x.order[e.ChunkID] = e.Rank
	}
	x.dirty = true
	return nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
