// Package milvus provides an index builder backed by a remote Milvus or
// Zilliz Cloud collection.
package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.IndexBuilder = (*Index)(nil)

// Config configures the Milvus index.
type Config struct {
	Collection string
	Dimension  int
	BatchSize  int

	// Append keeps an existing collection. By default the collection is
	// dropped and recreated so each run replaces the index.
	Append bool
}

// Index buffers chunks and writes them to a Milvus collection in batches.
type Index struct {
	cfg   Config
	store Store

	mu       sync.Mutex
	state    domain.IndexState
	prepared bool
	pending  []Row
	count    int
}

// New creates a Milvus index over store.
func New(cfg Config, store Store) (*Index, error) {
	if store == nil {
		return nil, domain.ConfigError("milvus: store is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = domain.DefaultCollection
	}
	if cfg.Dimension <= 0 {
		return nil, domain.ConfigError("milvus: vector dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = domain.DefaultInsertBatch
	}
	return &Index{cfg: cfg, store: store, state: domain.IndexEmpty}, nil
}

// Open returns an index over an existing collection for querying only.
func Open(cfg Config, store Store) (*Index, error) {
	x, err := New(cfg, store)
	if err != nil {
		return nil, err
	}
	x.state = domain.IndexPersisted
	x.prepared = true
	return x, nil
}

// State returns the lifecycle state.
func (x *Index) State() domain.IndexState {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state
}

// Len returns the number of chunks added during this run.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.count
}

// Add validates and buffers rows. No network I/O happens until Build.
func (x *Index) Add(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrInvalidInput, len(chunks), len(vectors))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state != domain.IndexEmpty && x.state != domain.IndexBuilding {
		return fmt.Errorf("add in state %s: %w", x.state, domain.ErrInvalidState)
	}

	rows := make([]Row, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != x.cfg.Dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d",
				domain.ErrInvalidInput, i, len(vectors[i]), x.cfg.Dimension)
		}
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("%w: metadata for %s: %w", domain.ErrInvalidInput, c.ID, err)
		}
		rows[i] = Row{ID: c.ID, Text: c.Content, Source: c.Source(), Metadata: meta, Vector: vectors[i]}
	}

	x.pending = append(x.pending, rows...)
	x.count += len(rows)
	x.state = domain.IndexBuilding
	return nil
}

// Build creates the collection and inserts buffered rows in batches.
// A batch is dropped from the buffer only once inserted, so a failed
// Build can be retried without duplicating rows. An empty run still
// creates the collection so queries against it return no results.
func (x *Index) Build(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state != domain.IndexEmpty && x.state != domain.IndexBuilding {
		return fmt.Errorf("build in state %s: %w", x.state, domain.ErrInvalidState)
	}
	if err := x.prepare(ctx); err != nil {
		return err
	}

	for len(x.pending) > 0 {
		n := min(x.cfg.BatchSize, len(x.pending))
		if err := x.insert(ctx, x.pending[:n]); err != nil {
			return err
		}
		x.pending = x.pending[n:]
	}
	x.pending = nil
	x.state = domain.IndexBuilt
	return nil
}

// Persist flushes the collection so inserted rows are durable.
func (x *Index) Persist(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state != domain.IndexBuilt {
		return fmt.Errorf("persist in state %s: %w", x.state, domain.ErrInvalidState)
	}
	if err := x.store.Flush(ctx, x.cfg.Collection); err != nil {
		return x.backendErr("flush", err)
	}
	x.state = domain.IndexPersisted
	logger.Info("milvus: persisted %d chunks to %s", x.count, x.cfg.Collection)
	return nil
}

// Search returns the k nearest chunks by cosine similarity.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]domain.Hit, error) {
	x.mu.Lock()
	state := x.state
	x.mu.Unlock()

	if state != domain.IndexBuilt && state != domain.IndexPersisted {
		return nil, fmt.Errorf("search in state %s: %w", state, domain.ErrInvalidState)
	}
	if k <= 0 {
		return []domain.Hit{}, nil
	}
	if len(query) != x.cfg.Dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d", domain.ErrInvalidInput, len(query), x.cfg.Dimension)
	}

	hits, err := x.store.Search(ctx, x.cfg.Collection, query, k)
	if err != nil {
		return nil, x.backendErr("search", err)
	}
	return hits, nil
}

// Close closes the client connection.
func (x *Index) Close() error {
	return x.store.Close(context.Background())
}

// prepare creates the collection once per run. Callers hold mu.
func (x *Index) prepare(ctx context.Context) error {
	if x.prepared {
		return nil
	}

	exists, err := x.store.HasCollection(ctx, x.cfg.Collection)
	if err != nil {
		return x.backendErr("check collection", err)
	}
	if exists && !x.cfg.Append {
		logger.Info("milvus: dropping existing collection %s", x.cfg.Collection)
		if err := x.store.DropCollection(ctx, x.cfg.Collection); err != nil {
			return x.backendErr("drop collection", err)
		}
		exists = false
	}
	if !exists {
		if err := x.store.CreateCollection(ctx, x.cfg.Collection, x.cfg.Dimension); err != nil {
			return x.backendErr("create collection", err)
		}
	}

	x.prepared = true
	return nil
}

func (x *Index) insert(ctx context.Context, rows []Row) error {
	if err := x.store.Insert(ctx, x.cfg.Collection, x.cfg.Dimension, rows); err != nil {
		return x.backendErr("insert", err)
	}
	logger.Debug("milvus: inserted %d rows into %s", len(rows), x.cfg.Collection)
	return nil
}

func (x *Index) backendErr(op string, err error) error {
	return fmt.Errorf("milvus %s %s: %w: %w", op, x.cfg.Collection, domain.ErrIndexBackend, err)
}
