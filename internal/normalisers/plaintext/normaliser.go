// Package plaintext provides the fallback normaliser for text formats.
package plaintext

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/tab-separated-values",
		"text/x-rst",
		"text/yaml",
		"text/toml",
		"text/xml",
		"application/json",
		"application/xml",
		"application/x-yaml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise converts raw bytes to a single document verbatim.
// Content that is not valid UTF-8 is rejected as binary.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) ([]domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if !utf8.Valid(raw.Content) {
		return nil, fmt.Errorf("%s is not valid UTF-8 text: %w", raw.URI, domain.ErrUnsupportedType)
	}

	return []domain.Document{raw.NewDocument(string(raw.Content))}, nil
}
