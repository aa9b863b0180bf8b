package html

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Elements removed before text extraction.
const removeSelector = "script, style, noscript, svg, template, iframe, nav, footer, aside"

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts an HTML document to its readable text.
// The <title> element becomes the title unless the raw metadata already has one.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) ([]domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	title, content, err := Extract(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", raw.URI, err)
	}

	doc := raw.NewDocument(content)
	if _, ok := raw.Metadata[domain.MetaTitle]; !ok && title != "" {
		doc.Metadata[domain.MetaTitle] = title
	}
	return []domain.Document{doc}, nil
}

// Extract parses markup and returns the page title and body text.
func Extract(markup []byte) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return "", "", err
	}

	title = cleanLine(doc.Find("title").First().Text())

	doc.Find(removeSelector).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var b strings.Builder
	walk(root, &b)
	return title, cleanContent(b.String()), nil
}

// Block-level elements that start a new line.
var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true, "dd": true,
	"div": true, "dl": true, "dt": true, "figcaption": true, "figure": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "td": true, "th": true,
	"tr": true, "ul": true,
}

func walk(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch name {
		case "#text":
			b.WriteString(s.Text())
		case "#comment", "head":
			return
		default:
			block := blockElements[name]
			if block {
				b.WriteString("\n")
			}
			walk(s, b)
			if block {
				b.WriteString("\n")
			}
		}
	})
}

var multiSpaces = regexp.MustCompile(`[ \t\r\f\v\x{00a0}]+`)

func cleanLine(s string) string {
	return strings.TrimSpace(multiSpaces.ReplaceAllString(s, " "))
}

// cleanContent collapses runs of spaces and drops empty lines.
func cleanContent(content string) string {
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = cleanLine(line); line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}
