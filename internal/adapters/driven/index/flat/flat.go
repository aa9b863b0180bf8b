// Package flat provides an in-memory exact nearest-neighbour index with
// the Empty, Building, Built, Persisted lifecycle.
package flat

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

// Entry is an indexed chunk with its vector.
type Entry struct {
	Chunk  domain.Chunk
	Vector []float32
}

// Index is a flat cosine-similarity index. It is safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	state   domain.IndexState
	dim     int
	entries []Entry
}

// New creates an empty index.
func New() *Index {
	return &Index{state: domain.IndexEmpty}
}

// FromEntries creates a persisted index from loaded entries.
func FromEntries(dim int, entries []Entry) *Index {
	return &Index{state: domain.IndexPersisted, dim: dim, entries: entries}
}

// State returns the lifecycle state.
func (x *Index) State() domain.IndexState {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.state
}

// Dimension returns the vector size, or 0 before the first Add.
func (x *Index) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dim
}

// Len returns the number of entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Add appends chunks with their vectors. Every vector must have the
// dimension of the first one added.
func (x *Index) Add(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrInvalidInput, len(chunks), len(vectors))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state != domain.IndexEmpty && x.state != domain.IndexBuilding {
		return fmt.Errorf("add in state %s: %w", x.state, domain.ErrInvalidState)
	}

	dim := x.dim
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: vector %d is empty", domain.ErrInvalidInput, i)
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrInvalidInput, i, len(v), dim)
		}
	}

	for i := range chunks {
		x.entries = append(x.entries, Entry{Chunk: chunks[i], Vector: vectors[i]})
	}
	x.dim = dim
	x.state = domain.IndexBuilding
	return nil
}

// Build finalises the index. An index with no entries builds successfully.
func (x *Index) Build(_ context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state != domain.IndexEmpty && x.state != domain.IndexBuilding {
		return fmt.Errorf("build in state %s: %w", x.state, domain.ErrInvalidState)
	}
	x.state = domain.IndexBuilt
	return nil
}

// Persist runs write over a snapshot of the index and marks it persisted
// when write succeeds. The index must be built.
func (x *Index) Persist(write func(dim int, entries []Entry) error) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state != domain.IndexBuilt {
		return fmt.Errorf("persist in state %s: %w", x.state, domain.ErrInvalidState)
	}
	if err := write(x.dim, x.entries); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexBackend, err)
	}
	x.state = domain.IndexPersisted
	return nil
}

// Search returns up to k entries by descending cosine similarity.
// Ties keep insertion order.
func (x *Index) Search(_ context.Context, query []float32, k int) ([]domain.Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.state != domain.IndexBuilt && x.state != domain.IndexPersisted {
		return nil, fmt.Errorf("search in state %s: %w", x.state, domain.ErrInvalidState)
	}
	if k <= 0 || len(x.entries) == 0 {
		return []domain.Hit{}, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d", domain.ErrInvalidInput, len(query), x.dim)
	}

	hits := make([]domain.Hit, len(x.entries))
	for i, e := range x.entries {
		hits[i] = domain.Hit{Chunk: e.Chunk, Score: CosineSimilarity(query, e.Vector)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either is a zero vector or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
