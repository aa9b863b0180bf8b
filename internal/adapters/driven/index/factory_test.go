package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

func TestNewAndOpen_FileBackends(t *testing.T) {
	for _, backend := range []domain.IndexBackend{domain.IndexLocal, domain.IndexSQLite} {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			cfg := domain.IndexConfig{Backend: backend, Path: filepath.Join(t.TempDir(), "index")}

			x, err := New(ctx, cfg, 2)
			require.NoError(t, err)
			require.NoError(t, x.Add(ctx, []domain.Chunk{{ID: "c", Content: "hello", Metadata: map[string]any{domain.MetaSource: "s"}}}, [][]float32{{1, 0}}))
			require.NoError(t, x.Build(ctx))
			require.NoError(t, x.Persist(ctx))
			require.NoError(t, x.Close())

			opened, err := Open(ctx, cfg, 2)
			require.NoError(t, err)
			defer opened.Close()

			hits, err := opened.Search(ctx, []float32{1, 0}, 1)
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, "hello", hits[0].Chunk.Content)
			assert.Equal(t, "s", hits[0].Chunk.Source())
		})
	}
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  domain.IndexConfig
	}{
		{name: "unknown backend", cfg: domain.IndexConfig{Backend: "faiss"}},
		{name: "local without path", cfg: domain.IndexConfig{Backend: domain.IndexLocal}},
		{name: "milvus without address", cfg: domain.IndexConfig{Backend: domain.IndexMilvus}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(ctx, tc.cfg, 8)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestOpen_MissingIndex(t *testing.T) {
	_, err := Open(context.Background(), domain.IndexConfig{Backend: domain.IndexLocal, Path: filepath.Join(t.TempDir(), "none")}, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
