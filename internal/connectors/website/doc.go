// Package website provides the Extractor that fetches every URL listed in a
// text file and turns each page into one Document.
//
// Pages are fetched by a bounded worker pool under a per-host rate limit.
// Results are returned in URL-file order regardless of completion order, and
// a URL that cannot be fetched is recorded as a failure and skipped.
package website
