// Package embedding selects an embedding backend from configuration.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/embedding/ollama"
	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/embedding/openai"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
)

// pingTimeout bounds the connectivity check in NewValidated.
const pingTimeout = 5 * time.Second

// New creates the embedding service named by cfg.Backend.
// An unknown backend is a configuration error.
func New(cfg domain.EmbeddingConfig) (driven.EmbeddingService, error) {
	switch cfg.Backend {
	case domain.EmbeddingOpenAI:
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	case domain.EmbeddingOllama:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil
	default:
		return nil, domain.ConfigError("unknown embedding backend %q", cfg.Backend)
	}
}

// NewValidated creates the service and pings it so a bad key or an
// unreachable server fails before any extraction work.
func NewValidated(ctx context.Context, cfg domain.EmbeddingConfig) (driven.EmbeddingService, error) {
	svc, err := New(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%s embedding backend unreachable: %w", cfg.Backend, err)
	}
	return svc, nil
}
