// Package filesystem provides the Extractor for a local document
// directory. Files are discovered recursively, hidden entries are skipped
// and each file is parsed by the normaliser registry.
package filesystem
