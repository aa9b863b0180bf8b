package drive

import (
	"context"
	"io"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

// API is the subset of the Drive, Sheets and Slides APIs used by the
// extractor. NewGoogleAPI provides the production implementation.
type API interface {
	// ListFolder returns every direct child of a folder, following pages.
	ListFolder(ctx context.Context, folderID string, pageSize int64) ([]domain.FolderItem, error)

	// GetFile returns the id, name and MIME type of a file.
	GetFile(ctx context.Context, fileID string) (domain.FolderItem, error)

	// ExportText exports a native document as plain text.
	ExportText(ctx context.Context, fileID string) (string, error)

	// Download streams the stored bytes of a file into w.
	Download(ctx context.Context, fileID string, w io.Writer) error

	// Spreadsheet returns every tab of a spreadsheet with its cell values.
	Spreadsheet(ctx context.Context, id string) (*Spreadsheet, error)

	// Presentation returns the text runs of every slide.
	Presentation(ctx context.Context, id string) (*Presentation, error)

	// Permissions lists the sharing entries of a file.
	Permissions(ctx context.Context, fileID string) ([]Permission, error)
}

// Spreadsheet is a native spreadsheet with all tabs loaded.
type Spreadsheet struct {
	Title  string
	Sheets []Sheet
}

// Sheet is one tab. Rows[0] is the header row when present.
type Sheet struct {
	ID    int64
	Title string
	Rows  [][]string
}

// Presentation is a native presentation.
type Presentation struct {
	Title  string
	Slides []Slide
}

// Slide holds the text runs of all shapes on a slide, in order.
type Slide struct {
	Texts []string
}

// Permission is one sharing entry of a file.
type Permission struct {
	Role         string
	Type         string
	EmailAddress string
	Domain       string
}

// String renders the permission as "role:principal".
func (p Permission) String() string {
	principal := p.EmailAddress
	if principal == "" {
		principal = p.Domain
	}
	if principal == "" {
		principal = p.Type
	}
	return p.Role + ":" + principal
}
