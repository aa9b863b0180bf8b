// Package html provides a Normaliser implementation for HTML documents.
// It parses markup with goquery, drops scripts, styles and page chrome
// (navigation, footers, asides) and keeps block structure as line breaks.
package html
