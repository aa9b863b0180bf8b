package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Name is the stage name reported in failures and logs.
const Name = "local-dir"

// DefaultMaxFileSize skips files larger than this many bytes.
const DefaultMaxFileSize = 50 << 20

// Extractor loads documents from a local directory tree.
type Extractor struct {
	rootPath    string
	registry    driven.NormaliserRegistry
	maxFileSize int64

	mu       sync.Mutex
	failures []domain.Failure
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(e *Extractor) {
		e.maxFileSize = n
	}
}

// New creates a local directory extractor.
func New(rootPath string, registry driven.NormaliserRegistry, opts ...Option) (*Extractor, error) {
	if strings.TrimSpace(rootPath) == "" {
		return nil, domain.ConfigError("local-dir: directory is required")
	}
	if registry == nil {
		return nil, domain.ConfigError("local-dir: normaliser registry is required")
	}

	e := &Extractor{
		rootPath:    rootPath,
		registry:    registry,
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return Name
}

// Failures returns the per-file failures of the last Extract call.
func (e *Extractor) Failures() []domain.Failure {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Failure(nil), e.failures...)
}

// Extract walks the directory in lexical order and returns the Documents
// of every supported file. PDFs yield one Document per page.
func (e *Extractor) Extract(ctx context.Context) ([]domain.Document, error) {
	e.mu.Lock()
	e.failures = nil
	e.mu.Unlock()

	info, err := os.Stat(e.rootPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ConfigError("local-dir: directory %s does not exist", e.rootPath)
		}
		return nil, domain.ConfigError("local-dir: %v", err)
	}
	if !info.IsDir() {
		return nil, domain.ConfigError("local-dir: %s is not a directory", e.rootPath)
	}

	var docs []domain.Document
	err = filepath.WalkDir(e.rootPath, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			e.recordFailure(path, walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if path != e.rootPath && isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		got, err := e.loadFile(ctx, path, d)
		if err != nil {
			e.recordFailure(path, err)
			return nil
		}
		docs = append(docs, got...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("local-dir: extracted %d documents from %s, %d failures", len(docs), e.rootPath, len(e.Failures()))
	return docs, nil
}

func (e *Extractor) loadFile(ctx context.Context, path string, d fs.DirEntry) ([]domain.Document, error) {
	info, err := d.Info()
	if err != nil {
		return nil, err
	}
	if info.Size() > e.maxFileSize {
		return nil, fmt.Errorf("file size %d exceeds limit %d", info.Size(), e.maxFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return e.registry.Normalise(ctx, &domain.RawDocument{
		URI:     path,
		Name:    d.Name(),
		Content: content,
	})
}

func (e *Extractor) recordFailure(path string, err error) {
	logger.Warn("local-dir: skipping %s: %v", path, err)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = append(e.failures, domain.Failure{Stage: Name, Item: path, Err: err})
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
