package normalisers

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
	"github.com/tamil-acog/aganitha-chatbot/internal/normalisers/docx"
	"github.com/tamil-acog/aganitha-chatbot/internal/normalisers/eml"
	"github.com/tamil-acog/aganitha-chatbot/internal/normalisers/html"
	"github.com/tamil-acog/aganitha-chatbot/internal/normalisers/markdown"
	"github.com/tamil-acog/aganitha-chatbot/internal/normalisers/pdf"
	"github.com/tamil-acog/aganitha-chatbot/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// extensionTypes maps file extensions to MIME types. It takes precedence
// over content sniffing, which cannot tell markdown or docx apart from
// plain text or zip.
var extensionTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".csv":      "text/csv",
	".tsv":      "text/tab-separated-values",
	".rst":      "text/x-rst",
	".json":     "application/json",
	".xml":      "application/xml",
	".yaml":     "application/x-yaml",
	".yml":      "application/x-yaml",
	".toml":     "text/toml",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".pdf":      domain.MIMEPDF,
	".docx":     docx.MIMEType,
	".eml":      "message/rfc822",
}

// Registry selects normalisers by MIME type.
type Registry struct {
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMIME: make(map[string][]driven.Normaliser)}
}

// NewDefaultRegistry creates a registry with every built-in normaliser.
// The runner is used by normalisers that call external tools.
func NewDefaultRegistry(runner driven.CommandRunner) *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(pdf.NewWithRunner(runner))
	r.Register(eml.New())
	return r
}

// Register adds a normaliser for each of its MIME types.
func (r *Registry) Register(n driven.Normaliser) {
	for _, mt := range n.SupportedMIMETypes() {
		list := append(r.byMIME[mt], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byMIME[mt] = list
	}
}

// Get returns the highest-priority normaliser for mimeType.
// Parameters such as charset are ignored.
func (r *Registry) Get(mimeType string) (driven.Normaliser, bool) {
	list := r.byMIME[baseType(mimeType)]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// Normalise dispatches raw to the matching normaliser. When raw.MIMEType
// is empty it is detected from the name and content.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) ([]domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	mt := raw.MIMEType
	if mt == "" {
		name := raw.Name
		if name == "" {
			name = raw.URI
		}
		mt = DetectMIME(name, raw.Content)
	}

	n, ok := r.Get(mt)
	if !ok {
		return nil, fmt.Errorf("%s (%s): %w", raw.URI, baseType(mt), domain.ErrUnsupportedType)
	}
	return n.Normalise(ctx, raw)
}

// SupportedMIMETypes returns all registered MIME types in sorted order.
func (r *Registry) SupportedMIMETypes() []string {
	types := make([]string, 0, len(r.byMIME))
	for mt := range r.byMIME {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

// DetectMIME returns the MIME type for a file, using its extension first
// and falling back to content sniffing.
func DetectMIME(name string, content []byte) string {
	if mt, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return baseType(http.DetectContentType(content))
}

// baseType strips parameters and normalises case.
func baseType(mimeType string) string {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
