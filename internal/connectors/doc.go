// Package connectors builds the ordered set of source extractors for a
// pipeline run.
//
// Each subpackage implements driven.Extractor for one source type:
//
//   - website: pages listed in a URL file
//   - google/drive: a Drive folder tree or explicit document and file ids
//   - media: local video and audio recordings
//   - filesystem: a local directory of documents
//
// The Factory enables a source when its configuration is present and
// always returns extractors in the fixed order above.
package connectors
