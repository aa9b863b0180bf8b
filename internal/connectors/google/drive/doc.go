// Package drive provides the Extractor for Google Drive.
//
// A folder tree, a list of native document ids or a list of file ids is
// turned into Documents by dispatching on each item's MIME type: native
// documents are exported as text, spreadsheets yield one Document per data
// row, presentations one per slide and PDFs one per page. Folders are walked
// recursively with a visited set and a depth bound. MP4 videos are staged
// into a local directory for the media extractor, and anything else goes
// through the normaliser registry.
package drive
