package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/process"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
	"github.com/tamil-acog/aganitha-chatbot/internal/normalisers"
	"github.com/tamil-acog/aganitha-chatbot/internal/normalisers/pdf"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Ensure Extractor implements the optional preparation hook.
var _ driven.Preparer = (*Extractor)(nil)

// Name is the stage name reported in failures and logs.
const Name = "drive"

// PageSplitter extracts per-page text from PDF bytes.
type PageSplitter interface {
	Pages(ctx context.Context, content []byte) ([]string, error)
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithPageSplitter sets the PDF page extractor.
func WithPageSplitter(p PageSplitter) Option {
	return func(e *Extractor) {
		e.pdf = p
	}
}

// WithNormalisers sets the registry used for files without a dedicated handler.
func WithNormalisers(r driven.NormaliserRegistry) Option {
	return func(e *Extractor) {
		e.normalisers = r
	}
}

// Extractor loads documents from Google Drive.
type Extractor struct {
	cfg         Config
	newAPI      func(ctx context.Context) (API, error)
	api         API
	pdf         PageSplitter
	normalisers driven.NormaliserRegistry

	mu       sync.Mutex
	failures []domain.Failure
	visited  map[string]bool
}

// New creates a Drive extractor over an existing API.
func New(cfg Config, api API, opts ...Option) (*Extractor, error) {
	if api == nil {
		return nil, domain.ConfigError("drive: api is required")
	}
	return newExtractor(cfg, func(context.Context) (API, error) { return api, nil }, opts...)
}

// NewWithCredentials creates a Drive extractor that resolves credentials
// and builds the Google clients on the first Extract call.
func NewWithCredentials(cfg Config, creds driven.CredentialProvider, opts ...Option) (*Extractor, error) {
	if creds == nil {
		return nil, domain.ConfigError("drive: credential provider is required")
	}
	return newExtractor(cfg, func(ctx context.Context) (API, error) {
		client, err := creds.HTTPClient(ctx)
		if err != nil {
			return nil, err
		}
		return NewGoogleAPI(ctx, client)
	}, opts...)
}

func newExtractor(cfg Config, newAPI func(context.Context) (API, error), opts ...Option) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Extractor{cfg: cfg, newAPI: newAPI}
	for _, opt := range opts {
		opt(e)
	}

	if e.pdf == nil || e.normalisers == nil {
		runner := process.NewRunner()
		if e.pdf == nil {
			e.pdf = pdf.NewWithRunner(runner)
		}
		if e.normalisers == nil {
			e.normalisers = normalisers.NewDefaultRegistry(runner)
		}
	}
	return e, nil
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return Name
}

// Failures returns the per-item failures of the last Extract call.
func (e *Extractor) Failures() []domain.Failure {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Failure(nil), e.failures...)
}

// Prepare removes a stale staging marker left by a previous run. It is
// called before extractors start concurrently.
func (e *Extractor) Prepare(_ context.Context) error {
	return e.clearMarker()
}

// Extract loads every reachable item. Authentication failures abort the
// run; any other per-item failure is recorded and skipped. The staging
// marker is written when Extract returns, whatever the outcome, so a
// concurrent media extractor never waits on a failed run.
func (e *Extractor) Extract(ctx context.Context) ([]domain.Document, error) {
	e.mu.Lock()
	e.failures = nil
	e.visited = make(map[string]bool)
	e.mu.Unlock()

	defer func() {
		if err := e.writeMarker(); err != nil {
			logger.Warn("drive: %v", err)
		}
	}()
	if err := e.clearMarker(); err != nil {
		return nil, err
	}

	if e.api == nil {
		api, err := e.newAPI(ctx)
		if err != nil {
			return nil, err
		}
		e.api = api
	}

	var (
		docs []domain.Document
		err  error
	)
	switch e.cfg.Mode() {
	case ModeFolder:
		logger.Info("drive: walking folder %s", e.cfg.FolderID)
		docs, err = e.walk(ctx, e.cfg.FolderID, 0)
	case ModeDocuments:
		docs, err = e.loadIDs(ctx, e.cfg.DocumentIDs)
	case ModeFiles:
		docs, err = e.loadIDs(ctx, e.cfg.FileIDs)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("drive: extracted %d documents, %d failures", len(docs), len(e.Failures()))
	return docs, nil
}

// walk lists a folder and dispatches each child. Only a failure to list
// the root folder is returned; nested failures are recorded.
func (e *Extractor) walk(ctx context.Context, folderID string, depth int) ([]domain.Document, error) {
	if e.visited[folderID] {
		logger.Warn("drive: folder %s already visited, skipping", folderID)
		return nil, nil
	}
	if depth > e.cfg.MaxDepth {
		logger.Warn("drive: folder %s exceeds max depth %d, skipping", folderID, e.cfg.MaxDepth)
		return nil, nil
	}
	e.visited[folderID] = true

	items, err := e.api.ListFolder(ctx, folderID, e.cfg.PageSize)
	if err != nil {
		if depth == 0 || isFatal(err) {
			return nil, domain.NewStageError(Name, folderID, kindOf(err), err)
		}
		e.recordFailure(folderID, err)
		return nil, nil
	}

	var docs []domain.Document
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := e.dispatch(ctx, item, depth)
		if err != nil {
			if isFatal(err) || ctx.Err() != nil {
				return nil, err
			}
			e.recordFailure(item.ID, fmt.Errorf("%s (%s): %w", item.Name, item.MimeType, err))
			continue
		}
		docs = append(docs, got...)
	}
	return docs, nil
}

// loadIDs resolves explicit ids and dispatches them like folder items.
func (e *Extractor) loadIDs(ctx context.Context, ids []string) ([]domain.Document, error) {
	var docs []domain.Document
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item, err := e.api.GetFile(ctx, id)
		if err == nil {
			var got []domain.Document
			got, err = e.dispatch(ctx, item, 0)
			docs = append(docs, got...)
		}
		if err != nil {
			if isFatal(err) {
				return nil, domain.NewStageError(Name, id, domain.ErrAuthentication, err)
			}
			e.recordFailure(id, err)
		}
	}
	return docs, nil
}

// dispatch routes an item to the handler for its MIME type.
func (e *Extractor) dispatch(ctx context.Context, item domain.FolderItem, depth int) ([]domain.Document, error) {
	logger.Debug("drive: %s %q (%s)", item.ID, item.Name, item.MimeType)

	switch item.MimeType {
	case domain.MIMEGoogleDocument:
		return e.loadDocument(ctx, item)
	case domain.MIMEGoogleSpreadsheet:
		return e.loadSpreadsheet(ctx, item)
	case domain.MIMEGooglePresentation:
		return e.loadPresentation(ctx, item)
	case domain.MIMEPDF:
		return e.loadPDF(ctx, item)
	case domain.MIMEGoogleFolder:
		return e.walk(ctx, item.ID, depth+1)
	case domain.MIMEVideoMP4:
		return nil, e.stageVideo(ctx, item)
	default:
		return e.loadUnstructured(ctx, item)
	}
}

func (e *Extractor) loadDocument(ctx context.Context, item domain.FolderItem) ([]domain.Document, error) {
	text, err := e.api.ExportText(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	perms, err := e.api.Permissions(ctx, item.ID)
	if err != nil {
		if isFatal(err) {
			return nil, err
		}
		logger.Warn("drive: permissions of %s unavailable: %v", item.ID, err)
	}
	entries := make([]string, 0, len(perms))
	for _, p := range perms {
		entries = append(entries, p.String())
	}

	return []domain.Document{{
		Content: text,
		Metadata: map[string]any{
			domain.MetaSource:      DocumentURL(item.ID),
			domain.MetaTitle:       item.Name,
			domain.MetaPermissions: entries,
			domain.MetaID:          item.ID,
		},
	}}, nil
}

// loadSpreadsheet emits one Document per data row of every tab. The first
// row of a tab is its header and is not emitted.
func (e *Extractor) loadSpreadsheet(ctx context.Context, item domain.FolderItem) ([]domain.Document, error) {
	ss, err := e.api.Spreadsheet(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	title := ss.Title
	if title == "" {
		title = item.Name
	}

	var docs []domain.Document
	for _, sheet := range ss.Sheets {
		if len(sheet.Rows) == 0 {
			continue
		}
		header := sheet.Rows[0]
		for i, row := range sheet.Rows[1:] {
			docs = append(docs, domain.Document{
				Content: rowContent(header, row),
				Metadata: map[string]any{
					domain.MetaSource: SpreadsheetURL(item.ID, sheet.ID),
					domain.MetaTitle:  title + " - " + sheet.Title,
					domain.MetaRow:    i + 1,
					domain.MetaID:     item.ID,
				},
			})
		}
	}
	return docs, nil
}

// rowContent renders a row as "column: value" lines, one per cell present
// in the row. Cells beyond the header get an empty column title.
func rowContent(header, row []string) string {
	lines := make([]string, 0, len(row))
	for j, v := range row {
		var column string
		if j < len(header) {
			column = strings.TrimSpace(header[j])
		}
		lines = append(lines, column+": "+strings.TrimSpace(v))
	}
	return strings.Join(lines, "\n")
}

func (e *Extractor) loadPresentation(ctx context.Context, item domain.FolderItem) ([]domain.Document, error) {
	p, err := e.api.Presentation(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	title := p.Title
	if title == "" {
		title = item.Name
	}

	docs := make([]domain.Document, 0, len(p.Slides))
	for num, slide := range p.Slides {
		docs = append(docs, domain.Document{
			Content: strings.Join(slide.Texts, "\n"),
			Metadata: map[string]any{
				domain.MetaSource:   PresentationURL(item.ID),
				domain.MetaTitle:    title,
				domain.MetaSlideNum: num,
				domain.MetaID:       item.ID,
			},
		})
	}
	return docs, nil
}

func (e *Extractor) loadPDF(ctx context.Context, item domain.FolderItem) ([]domain.Document, error) {
	var buf bytes.Buffer
	if err := e.api.Download(ctx, item.ID, &buf); err != nil {
		return nil, err
	}

	pages, err := e.pdf.Pages(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(pages))
	for i, page := range pages {
		docs = append(docs, domain.Document{
			Content: page,
			Metadata: map[string]any{
				domain.MetaSource: FileURL(item.ID),
				domain.MetaTitle:  item.Name,
				domain.MetaPage:   i,
				domain.MetaID:     item.ID,
			},
		})
	}
	return docs, nil
}

// loadUnstructured downloads a file and hands it to the normaliser registry.
// When no normaliser claims the Drive MIME type the registry detects the
// format from the file name and content.
func (e *Extractor) loadUnstructured(ctx context.Context, item domain.FolderItem) ([]domain.Document, error) {
	if !downloadable(item.MimeType) {
		return nil, fmt.Errorf("no text content: %w", domain.ErrUnsupportedType)
	}

	mimeType := item.MimeType
	if _, ok := e.normalisers.Get(mimeType); !ok {
		mimeType = ""
	}

	var buf bytes.Buffer
	if err := e.api.Download(ctx, item.ID, &buf); err != nil {
		return nil, err
	}

	return e.normalisers.Normalise(ctx, &domain.RawDocument{
		URI:      FileURL(item.ID),
		Name:     item.Name,
		MIMEType: mimeType,
		Content:  buf.Bytes(),
		Metadata: map[string]any{domain.MetaID: item.ID},
	})
}

// downloadable excludes native types without binary content and media
// that no normaliser reads.
func downloadable(mimeType string) bool {
	for _, prefix := range []string{"application/vnd.google-apps.", "image/", "audio/", "video/"} {
		if strings.HasPrefix(mimeType, prefix) {
			return false
		}
	}
	return true
}

// stageVideo downloads a video into the staging dir unless a file with
// the same name is already there. The download is written to a temp file
// and renamed so a partial file is never visible under the final name.
func (e *Extractor) stageVideo(ctx context.Context, item domain.FolderItem) error {
	name := filepath.Base(item.Name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = item.ID + ".mp4"
	}
	dest := filepath.Join(e.cfg.StagingDir, name)

	if _, err := os.Stat(dest); err == nil {
		logger.Debug("drive: %s already staged, skipping", dest)
		return nil
	}

	if err := os.MkdirAll(e.cfg.StagingDir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	tmp, err := os.CreateTemp(e.cfg.StagingDir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := e.api.Download(ctx, item.ID, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}

	logger.Info("drive: staged %s", dest)
	return nil
}

// removeFile is replaced in tests.
var removeFile = os.Remove

func (e *Extractor) clearMarker() error {
	err := removeFile(filepath.Join(e.cfg.StagingDir, domain.StagingMarker))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear staging marker: %w", err)
	}
	return nil
}

func (e *Extractor) writeMarker() error {
	if err := os.MkdirAll(e.cfg.StagingDir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(e.cfg.StagingDir, domain.StagingMarker), nil, 0o644); err != nil {
		return fmt.Errorf("write staging marker: %w", err)
	}
	return nil
}

func (e *Extractor) recordFailure(item string, err error) {
	logger.Warn("drive: skipping %s: %v", item, err)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = append(e.failures, domain.Failure{Stage: Name, Item: item, Err: err})
}

func isFatal(err error) bool {
	return errors.Is(err, domain.ErrAuthentication)
}

func kindOf(err error) error {
	if isFatal(err) {
		return domain.ErrAuthentication
	}
	return domain.ErrSourceFetch
}
