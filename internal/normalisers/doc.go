// Package normalisers provides implementations of the Normaliser interface
// for various document formats. Each normaliser knows how to extract text
// content from a specific MIME type.
//
// Normalisers are registered with a Registry, which picks the
// highest-priority normaliser for a MIME type and detects the type from the
// file extension or content when the caller does not know it.
package normalisers
