package embedding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       domain.EmbeddingConfig
		wantModel string
		wantErr   error
	}{
		{
			name:      "openai",
			cfg:       domain.EmbeddingConfig{Backend: domain.EmbeddingOpenAI, APIKey: "k"},
			wantModel: "text-embedding-3-small",
		},
		{
			name:    "openai without key",
			cfg:     domain.EmbeddingConfig{Backend: domain.EmbeddingOpenAI},
			wantErr: domain.ErrConfiguration,
		},
		{
			name:      "ollama",
			cfg:       domain.EmbeddingConfig{Backend: domain.EmbeddingOllama, Model: "all-minilm"},
			wantModel: "all-minilm",
		},
		{
			name:    "unknown",
			cfg:     domain.EmbeddingConfig{Backend: "cohere"},
			wantErr: domain.ErrConfiguration,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := New(tc.cfg)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantModel, svc.ModelName())
		})
	}
}

func TestNewValidated(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer up.Close()

	svc, err := NewValidated(context.Background(), domain.EmbeddingConfig{Backend: domain.EmbeddingOllama, BaseURL: up.URL})
	require.NoError(t, err)
	assert.NotNil(t, svc)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	_, err = NewValidated(context.Background(), domain.EmbeddingConfig{Backend: domain.EmbeddingOllama, BaseURL: down.URL})
	assert.ErrorIs(t, err, domain.ErrEmbeddingBackend)
}
