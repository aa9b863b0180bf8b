package domain

// RawDocument represents opaque bytes fetched by an extractor.
// It is the input to a normaliser.
type RawDocument struct {
	// URI is the original location (file path, URL, etc).
	URI string

	// Name is the human-readable file name, used as a title fallback.
	Name string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata is merged into every Document produced from this input.
	Metadata map[string]any
}

// NewDocument builds a Document from raw with the given content. The raw
// metadata is copied; source defaults to the URI and title to the name.
func (r *RawDocument) NewDocument(content string) Document {
	meta := CopyMetadata(r.Metadata)
	if _, ok := meta[MetaSource]; !ok && r.URI != "" {
		meta[MetaSource] = r.URI
	}
	if _, ok := meta[MetaTitle]; !ok && r.Name != "" {
		meta[MetaTitle] = r.Name
	}
	return Document{Content: content, Metadata: meta}
}
