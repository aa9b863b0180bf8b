package domain

import "maps"

// Well-known metadata keys set by extractors.
const (
	MetaSource      = "source"
	MetaTitle       = "title"
	MetaID          = "id"
	MetaRow         = "row"
	MetaPage        = "page"
	MetaSlideNum    = "slide_num"
	MetaPermissions = "permissions"
)

// Document is the uniform unit produced by every extractor.
// It is created once and never mutated afterwards.
type Document struct {
	// Content is the extracted plain text.
	Content string

	// Metadata carries provenance. MetaSource is always present;
	// the remaining keys depend on the extractor.
	Metadata map[string]any
}

// Source returns the document's origin URI or path.
func (d Document) Source() string {
	s, _ := d.Metadata[MetaSource].(string)
	return s
}

// Chunk is a bounded-size slice of a Document's content.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// Content is the text content of this chunk.
	Content string

	// Metadata is a copy of the parent Document's metadata.
	Metadata map[string]any
}

// Source returns the chunk's origin URI or path.
func (c Chunk) Source() string {
	s, _ := c.Metadata[MetaSource].(string)
	return s
}

// CopyMetadata returns a shallow copy of m. A nil map yields an empty map.
func CopyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	maps.Copy(out, m)
	return out
}
