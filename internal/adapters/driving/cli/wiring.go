package cli

import (
	"context"
	"errors"

	googleauth "github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/auth/google"
	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/embedding"
	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/index"
	"github.com/tamil-acog/aganitha-chatbot/internal/connectors"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/services"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
	"github.com/tamil-acog/aganitha-chatbot/internal/postprocessors"
)

// components builds the adapters a command needs. Tests replace it.
type components struct {
	extractors func(ctx context.Context, cfg domain.PipelineConfig) ([]driven.Extractor, error)
	embedder   func(ctx context.Context, cfg domain.EmbeddingConfig) (driven.EmbeddingService, error)
	newIndex   func(ctx context.Context, cfg domain.IndexConfig, dim int) (driven.IndexBuilder, error)
	openIndex  func(ctx context.Context, cfg domain.IndexConfig, dim int) (driven.IndexBuilder, error)
}

var wiring = defaultComponents()

func defaultComponents() components {
	return components{
		extractors: func(_ context.Context, cfg domain.PipelineConfig) ([]driven.Extractor, error) {
			deps := connectors.Dependencies{Credentials: googleauth.New(cfg.Google)}
			return connectors.NewFactory(deps).Build(cfg)
		},
		embedder:  embedding.NewValidated,
		newIndex:  index.New,
		openIndex: index.Open,
	}
}

// runPipeline wires fresh components for cfg and performs one pass.
func runPipeline(ctx context.Context, cfg domain.PipelineConfig) (report *domain.RunReport, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sources, err := wiring.extractors(ctx, cfg)
	if err != nil {
		return nil, err
	}

	emb, err := wiring.embedder(ctx, cfg.Embedding)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := emb.Close(); cerr != nil {
			logger.Debug("close embedder: %v", cerr)
		}
	}()

	builder, err := wiring.newIndex(ctx, cfg.Index, emb.Dimensions())
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, builder.Close())
	}()

	chunker, err := postprocessors.NewChunkingPipeline(cfg.Chunk)
	if err != nil {
		return nil, err
	}

	pipeline, err := services.NewPipeline(cfg, sources, chunker, emb, builder)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(ctx)
}
