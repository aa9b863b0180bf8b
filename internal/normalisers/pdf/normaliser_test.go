package pdf

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/process"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	if len(args) >= 2 {
		// The input file must exist while the tool runs.
		if _, err := os.Stat(args[1]); err != nil {
			return nil, err
		}
	}
	return m.output, m.err
}

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()
	assert.Equal(t, []string{"application/pdf"}, mimeTypes)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "poppler")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

func TestNewWithRunner(t *testing.T) {
	runner := &mockRunner{output: []byte("test output")}
	normaliser := NewWithRunner(runner)
	assert.Equal(t, runner, normaliser.runner)
}

func TestSplitPages(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{name: "empty", text: "", expected: nil},
		{name: "trailing form feed", text: "one\ftwo\f", expected: []string{"one", "two"}},
		{name: "no trailing form feed", text: "one\ftwo", expected: []string{"one", "two"}},
		{name: "blank middle page kept", text: "one\f\fthree\f", expected: []string{"one", "", "three"}},
		{name: "trims layout padding", text: "  one  \n\f", expected: []string{"one"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, splitPages(tc.text))
		})
	}
}

func TestNormalise_WithMockRunner(t *testing.T) {
	runner := &mockRunner{output: []byte("Page one text\fPage two text\f")}
	normaliser := NewWithRunner(runner)

	raw := &domain.RawDocument{
		URI:      "/docs/report.pdf",
		Name:     "report.pdf",
		MIMEType: "application/pdf",
		Content:  []byte("%PDF-1.4 fake pdf content"),
	}

	docs, err := normaliser.Normalise(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "pdftotext", runner.name)
	assert.Equal(t, "-layout", runner.args[0])
	assert.Equal(t, "-", runner.args[2])

	for i, doc := range docs {
		assert.Equal(t, i, doc.Metadata[domain.MetaPage])
		assert.Equal(t, "/docs/report.pdf", doc.Source())
		assert.Equal(t, "report.pdf", doc.Metadata[domain.MetaTitle])
	}
	assert.Equal(t, "Page one text", docs[0].Content)
	assert.Equal(t, "Page two text", docs[1].Content)

	_, statErr := os.Stat(runner.args[1])
	assert.True(t, os.IsNotExist(statErr), "temp file should be removed")
}

func TestNormalise_RunnerError(t *testing.T) {
	normaliser := NewWithRunner(&mockRunner{err: errors.New("pdftotext crashed")})
	raw := &domain.RawDocument{URI: "/docs/report.pdf", Content: []byte("%PDF-1.4")}

	result, err := normaliser.Normalise(context.Background(), raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
	assert.Nil(t, result)
}

func TestPages_ToolMissing(t *testing.T) {
	normaliser := NewWithRunner(&mockRunner{err: process.ErrToolNotFound})

	_, err := normaliser.Pages(context.Background(), []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
}

func TestPages_EmptyContent(t *testing.T) {
	_, err := New().Pages(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
