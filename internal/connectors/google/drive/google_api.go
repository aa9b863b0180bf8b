package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
	"google.golang.org/api/slides/v1"

	"github.com/tamil-acog/aganitha-chatbot/internal/connectors/google"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

// Ensure googleAPI implements the interface.
var _ API = (*googleAPI)(nil)

// MaxExportSize is the maximum size for exported text (10MB, the Drive export limit).
const MaxExportSize = 10 * 1024 * 1024

const (
	listFields       = "nextPageToken, files(id, name, mimeType)"
	fileFields       = "id, name, mimeType"
	permissionFields = "permissions(role, type, emailAddress, domain)"
	exportMimeText   = "text/plain"
)

// googleAPI implements API with the Google client libraries.
type googleAPI struct {
	drive  *drivev3.Service
	sheets *sheets.Service
	slides *slides.Service

	driveLimit  *google.RateLimiter
	sheetsLimit *google.RateLimiter
	slidesLimit *google.RateLimiter
}

// NewGoogleAPI creates the production API from an authenticated client.
func NewGoogleAPI(ctx context.Context, client *http.Client) (API, error) {
	driveSvc, err := google.NewDriveService(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	sheetsSvc, err := google.NewSheetsService(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slidesSvc, err := google.NewSlidesService(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("create slides service: %w", err)
	}

	return &googleAPI{
		drive:       driveSvc,
		sheets:      sheetsSvc,
		slides:      slidesSvc,
		driveLimit:  google.NewRateLimiter(google.ServiceDrive),
		sheetsLimit: google.NewRateLimiter(google.ServiceSheets),
		slidesLimit: google.NewRateLimiter(google.ServiceSlides),
	}, nil
}

// call waits on the limiter, runs fn and maps its error. A 429 opens
// the limiter's backoff window.
func call(ctx context.Context, limiter *google.RateLimiter, fn func() error) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	err := fn()
	if google.IsRateLimited(err) {
		limiter.RecordRateLimitError(google.RetryAfter(err))
	}
	return google.WrapError(err)
}

func (g *googleAPI) ListFolder(ctx context.Context, folderID string, pageSize int64) ([]domain.FolderItem, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", strings.ReplaceAll(folderID, "'", `\'`))

	var items []domain.FolderItem
	pageToken := ""
	for {
		var list *drivev3.FileList
		err := call(ctx, g.driveLimit, func() error {
			req := g.drive.Files.List().
				Q(query).
				PageSize(pageSize).
				Fields(listFields).
				SupportsAllDrives(true).
				IncludeItemsFromAllDrives(true).
				Context(ctx)
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			var err error
			list, err = req.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folderID, err)
		}

		for _, f := range list.Files {
			items = append(items, domain.FolderItem{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
		}

		if list.NextPageToken == "" {
			return items, nil
		}
		pageToken = list.NextPageToken
	}
}

func (g *googleAPI) GetFile(ctx context.Context, fileID string) (domain.FolderItem, error) {
	var f *drivev3.File
	err := call(ctx, g.driveLimit, func() error {
		var err error
		f, err = g.drive.Files.Get(fileID).Fields(fileFields).SupportsAllDrives(true).Context(ctx).Do()
		return err
	})
	if err != nil {
		return domain.FolderItem{}, fmt.Errorf("get file %s: %w", fileID, err)
	}
	return domain.FolderItem{ID: f.Id, Name: f.Name, MimeType: f.MimeType}, nil
}

func (g *googleAPI) ExportText(ctx context.Context, fileID string) (string, error) {
	var data []byte
	err := call(ctx, g.driveLimit, func() error {
		resp, err := g.drive.Files.Export(fileID, exportMimeText).Context(ctx).Download()
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err = io.ReadAll(io.LimitReader(resp.Body, MaxExportSize))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("export %s: %w", fileID, err)
	}
	return string(data), nil
}

func (g *googleAPI) Download(ctx context.Context, fileID string, w io.Writer) error {
	err := call(ctx, g.driveLimit, func() error {
		resp, err := g.drive.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, err = io.Copy(w, resp.Body)
		return err
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", fileID, err)
	}
	return nil
}

func (g *googleAPI) Spreadsheet(ctx context.Context, id string) (*Spreadsheet, error) {
	var ss *sheets.Spreadsheet
	err := call(ctx, g.sheetsLimit, func() error {
		var err error
		ss, err = g.sheets.Spreadsheets.Get(id).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet %s: %w", id, err)
	}

	out := &Spreadsheet{}
	if ss.Properties != nil {
		out.Title = ss.Properties.Title
	}

	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		var vr *sheets.ValueRange
		err := call(ctx, g.sheetsLimit, func() error {
			var err error
			vr, err = g.sheets.Spreadsheets.Values.Get(id, quoteSheetRange(sh.Properties.Title)).Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("get values %s/%s: %w", id, sh.Properties.Title, err)
		}

		out.Sheets = append(out.Sheets, Sheet{
			ID:    sh.Properties.SheetId,
			Title: sh.Properties.Title,
			Rows:  stringRows(vr.Values),
		})
	}
	return out, nil
}

func (g *googleAPI) Presentation(ctx context.Context, id string) (*Presentation, error) {
	var p *slides.Presentation
	err := call(ctx, g.slidesLimit, func() error {
		var err error
		p, err = g.slides.Presentations.Get(id).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get presentation %s: %w", id, err)
	}

	out := &Presentation{Title: p.Title}
	for _, page := range p.Slides {
		var slide Slide
		for _, el := range page.PageElements {
			if el.Shape == nil || el.Shape.Text == nil {
				continue
			}
			for _, te := range el.Shape.Text.TextElements {
				if te.TextRun != nil {
					slide.Texts = append(slide.Texts, te.TextRun.Content)
				}
			}
		}
		out.Slides = append(out.Slides, slide)
	}
	return out, nil
}

func (g *googleAPI) Permissions(ctx context.Context, fileID string) ([]Permission, error) {
	var list *drivev3.PermissionList
	err := call(ctx, g.driveLimit, func() error {
		var err error
		list, err = g.drive.Permissions.List(fileID).Fields(permissionFields).SupportsAllDrives(true).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list permissions %s: %w", fileID, err)
	}

	perms := make([]Permission, 0, len(list.Permissions))
	for _, p := range list.Permissions {
		perms = append(perms, Permission{Role: p.Role, Type: p.Type, EmailAddress: p.EmailAddress, Domain: p.Domain})
	}
	return perms, nil
}

// quoteSheetRange turns a tab title into an A1 range covering the whole tab.
func quoteSheetRange(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func stringRows(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		rows = append(rows, cells)
	}
	return rows
}
