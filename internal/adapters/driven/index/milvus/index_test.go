package milvus

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/index/flat"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

// fakeStore is an in-memory Milvus.
type fakeStore struct {
	collections map[string][]Row
	dims        map[string]int
	batches     []int
	flushed     int
	dropped     int
	closed      bool

	insertErrs []error
	flushErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: map[string][]Row{}, dims: map[string]int{}}
}

func (f *fakeStore) HasCollection(_ context.Context, name string) (bool, error) {
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeStore) DropCollection(_ context.Context, name string) error {
	delete(f.collections, name)
	f.dropped++
	return nil
}

func (f *fakeStore) CreateCollection(_ context.Context, name string, dim int) error {
	f.collections[name] = []Row{}
	f.dims[name] = dim
	return nil
}

func (f *fakeStore) Insert(_ context.Context, name string, _ int, rows []Row) error {
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	f.collections[name] = append(f.collections[name], rows...)
	f.batches = append(f.batches, len(rows))
	return nil
}

func (f *fakeStore) Flush(context.Context, string) error {
	if f.flushErr != nil {
		return f.flushErr
	}
	f.flushed++
	return nil
}

func (f *fakeStore) Search(_ context.Context, name string, vector []float32, k int) ([]domain.Hit, error) {
	var hits []domain.Hit
	for _, r := range f.collections[name] {
		meta := map[string]any{}
		_ = json.Unmarshal(r.Metadata, &meta)
		hits = append(hits, domain.Hit{
			Chunk: domain.Chunk{ID: r.ID, Content: r.Text, Metadata: meta},
			Score: flat.CosineSimilarity(vector, r.Vector),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *fakeStore) Close(context.Context) error {
	f.closed = true
	return nil
}

func makeChunks(n int) ([]domain.Chunk, [][]float32) {
	chunks := make([]domain.Chunk, n)
	vectors := make([][]float32, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:       string(rune('a' + i)),
			Content:  "chunk",
			Metadata: map[string]any{domain.MetaSource: "src"},
		}
		vectors[i] = []float32{float32(i + 1), 1}
	}
	return chunks, vectors
}

func TestBuildInsertsInBatches(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	x, err := New(Config{Collection: "kb", Dimension: 2, BatchSize: 2}, store)
	require.NoError(t, err)

	chunks, vectors := makeChunks(5)
	require.NoError(t, x.Add(ctx, chunks[:3], vectors[:3]))
	require.NoError(t, x.Add(ctx, chunks[3:], vectors[3:]))
	assert.Empty(t, store.batches, "Add must not touch the backend")
	assert.Equal(t, domain.IndexBuilding, x.State())

	require.NoError(t, x.Build(ctx))
	assert.Equal(t, []int{2, 2, 1}, store.batches)
	assert.Len(t, store.collections["kb"], 5)
	assert.Equal(t, 2, store.dims["kb"])

	require.NoError(t, x.Persist(ctx))
	assert.Equal(t, 1, store.flushed)
	assert.Equal(t, domain.IndexPersisted, x.State())
	assert.Equal(t, 5, x.Len())

	row := store.collections["kb"][0]
	assert.Equal(t, "src", row.Source)
	assert.JSONEq(t, `{"source":"src"}`, string(row.Metadata))
}

func TestBuildRetryDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.insertErrs = []error{nil, errors.New("deadline exceeded")}
	x, err := New(Config{Collection: "kb", Dimension: 2, BatchSize: 2}, store)
	require.NoError(t, err)

	chunks, vectors := makeChunks(4)
	require.NoError(t, x.Add(ctx, chunks, vectors))

	err = x.Build(ctx)
	assert.ErrorIs(t, err, domain.ErrIndexBackend)
	assert.Equal(t, domain.IndexBuilding, x.State())

	require.NoError(t, x.Build(ctx))
	assert.Len(t, store.collections["kb"], 4)
}

func TestExistingCollection(t *testing.T) {
	ctx := context.Background()

	t.Run("recreated by default", func(t *testing.T) {
		store := newFakeStore()
		store.collections["kb"] = []Row{{ID: "stale"}}
		x, err := New(Config{Collection: "kb", Dimension: 2}, store)
		require.NoError(t, err)
		require.NoError(t, x.Build(ctx))
		assert.Empty(t, store.collections["kb"])
		assert.Equal(t, 1, store.dropped)
	})

	t.Run("kept in append mode", func(t *testing.T) {
		store := newFakeStore()
		store.collections["kb"] = []Row{{ID: "kept"}}
		x, err := New(Config{Collection: "kb", Dimension: 2, Append: true}, store)
		require.NoError(t, err)
		require.NoError(t, x.Build(ctx))
		assert.Len(t, store.collections["kb"], 1)
		assert.Zero(t, store.dropped)
	})
}

func TestEmptyRunCreatesCollection(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	x, err := New(Config{Collection: "kb", Dimension: 3}, store)
	require.NoError(t, err)

	require.NoError(t, x.Build(ctx))
	require.NoError(t, x.Persist(ctx))

	_, ok := store.collections["kb"]
	assert.True(t, ok)

	hits, err := x.Search(ctx, []float32{1, 0, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	x, err := New(Config{Collection: "kb", Dimension: 2}, store)
	require.NoError(t, err)

	chunks, vectors := makeChunks(3)
	require.NoError(t, x.Add(ctx, chunks, vectors))

	_, err = x.Search(ctx, []float32{1, 1}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	require.NoError(t, x.Build(ctx))

	hits, err := x.Search(ctx, []float32{3, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c", hits[0].Chunk.ID)
	assert.Equal(t, "src", hits[0].Chunk.Source())

	_, err = x.Search(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOpenIsQueryable(t *testing.T) {
	store := newFakeStore()
	store.collections["kb"] = []Row{{ID: "x", Text: "hello", Metadata: []byte(`{"source":"s"}`), Vector: []float32{1, 0}}}

	x, err := Open(Config{Collection: "kb", Dimension: 2}, store)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexPersisted, x.State())

	hits, err := x.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "hello", hits[0].Chunk.Content)

	require.NoError(t, x.Close())
	assert.True(t, store.closed)
}

func TestPersistFailure(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.flushErr = errors.New("unavailable")
	x, err := New(Config{Collection: "kb", Dimension: 2}, store)
	require.NoError(t, err)
	require.NoError(t, x.Build(ctx))

	assert.ErrorIs(t, x.Persist(ctx), domain.ErrIndexBackend)
	assert.Equal(t, domain.IndexBuilt, x.State())
}

func TestValidation(t *testing.T) {
	_, err := New(Config{Dimension: 2}, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = New(Config{}, newFakeStore())
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	x, err := New(Config{Dimension: 2}, newFakeStore())
	require.NoError(t, err)
	chunks, _ := makeChunks(1)
	assert.ErrorIs(t, x.Add(context.Background(), chunks, [][]float32{{1, 2, 3}}), domain.ErrInvalidInput)
	assert.ErrorIs(t, x.Add(context.Background(), chunks, nil), domain.ErrInvalidInput)
}
