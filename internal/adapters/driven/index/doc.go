// Package index selects an index builder from configuration.
//
// Three backends implement driven.IndexBuilder:
//
//   - local: exact cosine search, persisted as a single gob file
//   - sqlite: exact cosine search, persisted as a SQLite database
//   - milvus: a remote Milvus or Zilliz collection with an HNSW index
//
// local and sqlite share the in-memory flat index and differ only in how
// Persist writes it.
package index
