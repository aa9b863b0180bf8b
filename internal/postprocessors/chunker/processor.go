// Package chunker provides a separator-aware text chunking processor.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// DefaultSeparator is the token boundary used for splitting.
const DefaultSeparator = domain.DefaultChunkSeparator

// Processor splits document content on separator boundaries and greedily
// packs tokens into chunks of at most chunkSize characters.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
	separator string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparator sets the token separator.
func WithSeparator(sep string) Option {
	return func(p *Processor) {
		if sep != "" {
			p.separator = sep
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		separator: DefaultSeparator,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Every chunk carries a copy of the document metadata.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	pieces := p.Split(doc.Content)
	if len(pieces) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, domain.Chunk{
			ID:       uuid.New().String(),
			Content:  piece,
			Metadata: domain.CopyMetadata(doc.Metadata),
		})
	}
	return chunks, nil
}

// Split returns the chunk texts for content in left-to-right order.
// Empty tokens produced by repeated separators are dropped. A single
// token longer than the chunk size is cut into chunk-size pieces.
func (p *Processor) Split(content string) []string {
	var (
		out    []string
		cur    []string
		curLen int
	)
	sepLen := utf8.RuneCountInString(p.separator)

	emit := func(text string) {
		if text = strings.TrimSpace(text); text != "" {
			out = append(out, text)
		}
	}

	for _, tok := range strings.Split(content, p.separator) {
		if tok == "" {
			continue
		}
		tokLen := utf8.RuneCountInString(tok)

		if tokLen > p.chunkSize {
			if len(cur) > 0 {
				emit(strings.Join(cur, p.separator))
				cur, curLen = nil, 0
			}
			for _, part := range splitRunes(tok, p.chunkSize) {
				emit(part)
			}
			continue
		}

		if len(cur) > 0 && curLen+sepLen+tokLen > p.chunkSize {
			emit(strings.Join(cur, p.separator))

			// Keep a tail of at most overlap characters that still leaves
			// room for the incoming token.
			for len(cur) > 0 && (curLen > p.overlap || curLen+sepLen+tokLen > p.chunkSize) {
				curLen -= utf8.RuneCountInString(cur[0])
				if len(cur) > 1 {
					curLen -= sepLen
				}
				cur = cur[1:]
			}
		}

		if len(cur) > 0 {
			curLen += sepLen
		}
		cur = append(cur, tok)
		curLen += tokLen
	}

	if len(cur) > 0 {
		emit(strings.Join(cur, p.separator))
	}
	return out
}

func splitRunes(s string, size int) []string {
	runes := []rune(s)
	parts := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
