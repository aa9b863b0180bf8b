package domain

// Cloud-drive MIME types that drive extractor dispatch.
const (
	MIMEGoogleDocument     = "application/vnd.google-apps.document"
	MIMEGoogleSpreadsheet  = "application/vnd.google-apps.spreadsheet"
	MIMEGooglePresentation = "application/vnd.google-apps.presentation"
	MIMEGoogleFolder       = "application/vnd.google-apps.folder"
	MIMEPDF                = "application/pdf"
	MIMEVideoMP4           = "video/mp4"
)

// FolderItem is an entry listed from a cloud-drive folder.
// It is transient and only lives for the duration of an extraction.
type FolderItem struct {
	ID       string
	Name     string
	MimeType string
}

// IsFolder reports whether the item is a folder.
func (f FolderItem) IsFolder() bool {
	return f.MimeType == MIMEGoogleFolder
}

// StagingMarker is written into the media staging directory once the
// drive extractor has finished downloading videos into it.
const StagingMarker = ".staging-complete"
