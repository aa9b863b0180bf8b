// Package pdf provides a Normaliser for PDF documents backed by the
// poppler pdftotext tool. Each page becomes its own Document.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/process"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const toolName = "pdftotext"

// pageBreak separates pages in pdftotext output.
const pageBreak = "\f"

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found: " + InstallInstructions())

// Normaliser handles PDF documents.
type Normaliser struct {
	runner driven.CommandRunner
}

// New creates a PDF normaliser that shells out to pdftotext.
func New() *Normaliser {
	return NewWithRunner(process.NewRunner())
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner driven.CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{domain.MIMEPDF}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts a PDF into one Document per page with 0-based page metadata.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) ([]domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	pages, err := n.Pages(ctx, raw.Content)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", raw.URI, err)
	}

	docs := make([]domain.Document, 0, len(pages))
	for i, page := range pages {
		doc := raw.NewDocument(page)
		doc.Metadata[domain.MetaPage] = i
		docs = append(docs, doc)
	}
	return docs, nil
}

// Pages extracts the text of each page in order.
func (n *Normaliser) Pages(ctx context.Context, content []byte) ([]string, error) {
	if len(content) == 0 {
		return nil, domain.ErrInvalidInput
	}

	tmp, err := os.CreateTemp("", "aganitha-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	out, err := n.runner.Run(ctx, toolName, "-layout", tmp.Name(), "-")
	if err != nil {
		if errors.Is(err, process.ErrToolNotFound) {
			return nil, ErrPDFToolNotFound
		}
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	return splitPages(string(out)), nil
}

// splitPages splits on form feeds. pdftotext terminates every page with one,
// so the empty remainder after the last page is dropped.
func splitPages(text string) []string {
	if text == "" {
		return nil
	}
	pages := strings.Split(text, pageBreak)
	if strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	for i, p := range pages {
		pages[i] = strings.TrimSpace(p)
	}
	return pages
}

// CheckAvailable verifies pdftotext is on PATH.
func CheckAvailable() error {
	if !process.Available(toolName) {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns how to install pdftotext.
func InstallInstructions() string {
	return "install poppler (macOS: brew install poppler, Debian/Ubuntu: apt install poppler-utils)"
}
