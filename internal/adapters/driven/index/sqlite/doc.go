// Package sqlite provides a flat index persisted as a SQLite database.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO. Search runs over the in-memory flat index; the
// database is the persisted form and is rewritten wholesale on Persist.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Vectors are stored as little-endian float32
// blobs and metadata as JSON.
//
// # Atomicity
//
// Persist writes a fresh database next to the target path and renames it
// into place, so readers never observe a half-written index.
package sqlite
