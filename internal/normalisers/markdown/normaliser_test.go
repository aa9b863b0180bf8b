package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/markdown")
	assert.Contains(t, mimeTypes, "text/x-markdown")
	assert.Len(t, mimeTypes, 2)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawDocument{
		URI:      "/path/to/document.md",
		MIMEType: "text/markdown",
		Content:  []byte("# Hello World\n\nThis is a **test** with a [link](https://example.com)."),
	}

	docs, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "Hello World\n\nThis is a test with a link.", doc.Content)
	assert.Equal(t, "Hello World", doc.Metadata[domain.MetaTitle])
	assert.Equal(t, "/path/to/document.md", doc.Source())
}

func TestNormalise_TitleFromRawWins(t *testing.T) {
	raw := &domain.RawDocument{
		URI:      "/x.md",
		Content:  []byte("# Heading\nbody"),
		Metadata: map[string]any{domain.MetaTitle: "Drive Title"},
	}

	docs, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "Drive Title", docs[0].Metadata[domain.MetaTitle])
}

func TestNormalise_NilDocument(t *testing.T) {
	docs, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, docs)
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"headings", "## Section\ntext", "Section\ntext"},
		{"lists", "- one\n* two\n1. three", "one\ntwo\nthree"},
		{"inline code kept", "run `go test` now", "run go test now"},
		{"code fence body kept", "```go\nfmt.Println()\n```", "fmt.Println()"},
		{"image alt", "![diagram](d.png)", "diagram"},
		{"blockquote", "> quoted", "quoted"},
		{"snake case untouched", "use max_depth here", "use max_depth here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripMarkdown(tt.input))
		})
	}
}
