package driven

import (
	"context"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

// Extractor produces Documents from a single source type.
// Implementations recover per-item failures locally and report them via
// Failures; a returned error is fatal to the pipeline run.
type Extractor interface {
	// Name returns the source identifier (website, drive, video, local-dir).
	Name() string

	// Extract fetches and converts every item of the source.
	Extract(ctx context.Context) ([]domain.Document, error)

	// Failures returns the items skipped during the last Extract call.
	Failures() []domain.Failure
}

// Preparer is implemented by extractors that must reset shared state
// before extractors run concurrently.
type Preparer interface {
	Prepare(ctx context.Context) error
}
