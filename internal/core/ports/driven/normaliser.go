package driven

import (
	"context"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

// Normaliser turns raw bytes of a known format into Documents.
// Each normaliser handles specific MIME types (e.g., PDF, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts text from raw. Paged formats return one
	// Document per page; others return a single Document.
	Normalise(ctx context.Context, raw *domain.RawDocument) ([]domain.Document, error)
}

// NormaliserRegistry selects a normaliser for a MIME type.
type NormaliserRegistry interface {
	// Get returns the highest-priority normaliser for mimeType.
	Get(mimeType string) (Normaliser, bool)

	// Normalise dispatches raw to the matching normaliser.
	Normalise(ctx context.Context, raw *domain.RawDocument) ([]domain.Document, error)
}
