package driven

import (
	"context"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

// IndexBuilder constructs, persists and queries a vector index.
//
// Lifecycle: Empty -> Building (Add) -> Built (Build) -> Persisted (Persist).
// Calling an operation out of order returns domain.ErrInvalidState.
// Backend failures wrap domain.ErrIndexBackend.
type IndexBuilder interface {
	// State returns the current lifecycle state.
	State() domain.IndexState

	// Add incorporates a batch of chunks with their vectors.
	// len(chunks) must equal len(vectors).
	Add(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error

	// Build finalises the structure once every chunk has been added.
	Build(ctx context.Context) error

	// Persist durably writes the index.
	Persist(ctx context.Context) error

	// Search returns the k nearest chunks to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]domain.Hit, error)

	// Len returns the number of indexed chunks.
	Len() int

	// Close releases resources.
	Close() error
}
