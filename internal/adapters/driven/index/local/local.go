// Package local provides a file-backed flat index serialised with gob.
package local

import (
	"bufio"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/index/flat"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.IndexBuilder = (*Index)(nil)

// formatVersion is bumped when the on-disk layout changes.
const formatVersion = 1

func init() {
	// Metadata values travel as interfaces.
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// file is the on-disk layout.
type file struct {
	Version   int
	Dimension int
	Entries   []entry
}

type entry struct {
	ID       string
	Content  string
	Metadata map[string]any
	Vector   []float32
}

// Index is a flat index persisted to a single file.
type Index struct {
	*flat.Index
	path string
}

// New creates an empty index that persists to path.
func New(path string) (*Index, error) {
	if path == "" {
		return nil, domain.ConfigError("local index: path is required")
	}
	return &Index{Index: flat.New(), path: path}, nil
}

// Path returns the index file path.
func (x *Index) Path() string {
	return x.path
}

// Persist writes the index to a temporary file in the target directory,
// syncs it and renames it over the path.
func (x *Index) Persist(_ context.Context) error {
	return x.Index.Persist(func(dim int, entries []flat.Entry) error {
		return writeFile(x.path, dim, entries)
	})
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

// Load reads a persisted index for querying.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("index %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open index: %w: %w", domain.ErrIndexBackend, err)
	}
	defer f.Close()

	var data file
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode index %s: %w: %w", path, domain.ErrIndexBackend, err)
	}
	if data.Version != formatVersion {
		return nil, fmt.Errorf("index %s has format version %d, want %d: %w",
			path, data.Version, formatVersion, domain.ErrIndexBackend)
	}

	entries := make([]flat.Entry, len(data.Entries))
	for i, e := range data.Entries {
		meta := e.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		entries[i] = flat.Entry{
			Chunk:  domain.Chunk{ID: e.ID, Content: e.Content, Metadata: meta},
			Vector: e.Vector,
		}
	}

	logger.Debug("local index: loaded %d entries from %s", len(entries), path)
	return &Index{Index: flat.FromEntries(data.Dimension, entries), path: path}, nil
}

func writeFile(path string, dim int, entries []flat.Entry) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	data := file{Version: formatVersion, Dimension: dim, Entries: make([]entry, len(entries))}
	for i, e := range entries {
		data.Entries[i] = entry{
			ID:       e.Chunk.ID,
			Content:  e.Chunk.Content,
			Metadata: e.Chunk.Metadata,
			Vector:   e.Vector,
		}
	}

	w := bufio.NewWriter(tmp)
	if err := gob.NewEncoder(w).Encode(&data); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename index: %w", err)
	}

	logger.Info("local index: wrote %d entries to %s", len(entries), path)
	return nil
}
