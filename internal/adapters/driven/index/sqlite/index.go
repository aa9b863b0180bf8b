package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/index/flat"
	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/index/sqlite/migrations"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.IndexBuilder = (*Index)(nil)

// dsnOptions are applied to every connection.
const dsnOptions = "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// Index is a flat index persisted to a SQLite file.
type Index struct {
	*flat.Index
	path string
}

// New creates an empty index that persists to path.
func New(path string) (*Index, error) {
	if path == "" {
		return nil, domain.ConfigError("sqlite index: path is required")
	}
	return &Index{Index: flat.New(), path: path}, nil
}

// Path returns the database file path.
func (x *Index) Path() string {
	return x.path
}

// Persist writes every entry into a new database and renames it over
// the configured path.
func (x *Index) Persist(ctx context.Context) error {
	return x.Index.Persist(func(dim int, entries []flat.Entry) error {
		return writeDB(ctx, x.path, dim, entries)
	})
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

// Load reads a persisted database into a queryable index.
func Load(ctx context.Context, path string) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("index %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("stat index: %w: %w", domain.ErrIndexBackend, err)
	}

	db, err := sql.Open("sqlite", path+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w: %w", domain.ErrIndexBackend, err)
	}
	defer db.Close()

	dim, entries, err := readAll(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("reading index %s: %w: %w", path, domain.ErrIndexBackend, err)
	}

	logger.Debug("sqlite index: loaded %d entries from %s", len(entries), path)
	return &Index{Index: flat.FromEntries(dim, entries), path: path}, nil
}

func writeDB(ctx context.Context, path string, dim int, entries []flat.Entry) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	db, err := sql.Open("sqlite", tmpPath+dsnOptions)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(db, migrations.FS); err != nil {
		db.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	if err := insertAll(ctx, db, dim, entries); err != nil {
		db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename index: %w", err)
	}

	logger.Info("sqlite index: wrote %d entries to %s", len(entries), path)
	return nil
}

func insertAll(ctx context.Context, db *sql.DB, dim int, entries []flat.Entry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO index_meta (key, value) VALUES ('dimension', ?)`, strconv.Itoa(dim)); err != nil {
		return fmt.Errorf("saving dimension: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (seq, id, content, source, metadata, vector)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		meta, err := json.Marshal(e.Chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", e.Chunk.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, i, e.Chunk.ID, e.Chunk.Content, e.Chunk.Source(),
			string(meta), encodeVector(e.Vector)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", e.Chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func readAll(ctx context.Context, db *sql.DB) (int, []flat.Entry, error) {
	var dimText string
	if err := db.QueryRowContext(ctx, `SELECT value FROM index_meta WHERE key = 'dimension'`).Scan(&dimText); err != nil {
		return 0, nil, fmt.Errorf("reading dimension: %w", err)
	}
	dim, err := strconv.Atoi(dimText)
	if err != nil {
		return 0, nil, fmt.Errorf("parsing dimension %q: %w", dimText, err)
	}

	rows, err := db.QueryContext(ctx, `SELECT id, content, metadata, vector FROM chunks ORDER BY seq`)
	if err != nil {
		return 0, nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var entries []flat.Entry
	for rows.Next() {
		var (
			id, content, metaJSON string
			blob                  []byte
		)
		if err := rows.Scan(&id, &content, &metaJSON, &blob); err != nil {
			return 0, nil, fmt.Errorf("scanning chunk: %w", err)
		}

		meta := map[string]any{}
		if metaJSON != "" && metaJSON != "null" {
			if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
				return 0, nil, fmt.Errorf("unmarshalling metadata for %s: %w", id, err)
			}
		}

		vec, err := decodeVector(blob)
		if err != nil {
			return 0, nil, fmt.Errorf("chunk %s: %w", id, err)
		}
		entries = append(entries, flat.Entry{
			Chunk:  domain.Chunk{ID: id, Content: content, Metadata: meta},
			Vector: vec,
		})
	}
	return dim, entries, rows.Err()
}

// migrate runs all up migrations in version order.
func migrate(db *sql.DB, fsys fs.FS) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// encodeVector packs v as little-endian float32.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
