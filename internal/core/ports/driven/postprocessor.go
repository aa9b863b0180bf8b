package driven

import (
	"context"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

// PostProcessor processes document content to produce chunks.
// PostProcessors are chained in a pipeline.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// A chunk-creating processor (the chunker) receives nil chunks.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs one document through all processors in order.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)

	// ProcessAll runs every document in order and concatenates the chunks,
	// preserving document order and split order.
	ProcessAll(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error)
}
