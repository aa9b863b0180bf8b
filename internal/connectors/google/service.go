package google

import (
	"context"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
	"google.golang.org/api/slides/v1"
)

// Read-only scopes requested by the Drive extractor.
var Scopes = []string{
	drive.DriveReadonlyScope,
	sheets.SpreadsheetsReadonlyScope,
	slides.PresentationsReadonlyScope,
}

// NewDriveService creates a Google Drive API service using the provided client.
func NewDriveService(ctx context.Context, client *http.Client) (*drive.Service, error) {
	return drive.NewService(ctx, option.WithHTTPClient(client))
}

// NewSheetsService creates a Google Sheets API service using the provided client.
func NewSheetsService(ctx context.Context, client *http.Client) (*sheets.Service, error) {
	return sheets.NewService(ctx, option.WithHTTPClient(client))
}

// NewSlidesService creates a Google Slides API service using the provided client.
func NewSlidesService(ctx context.Context, client *http.Client) (*slides.Service, error) {
	return slides.NewService(ctx, option.WithHTTPClient(client))
}
