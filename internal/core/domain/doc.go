// Package domain defines the core entities of the ingestion pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Extracted text plus provenance metadata
//   - Chunk: A bounded-size slice of a Document
//   - RawDocument: Opaque bytes handed to a normaliser
//   - FolderItem: A cloud-drive entry driving extractor dispatch
//   - PipelineConfig: The explicit configuration passed to every component
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
