package domain

import "path/filepath"

const unknownDescription = "Unknown"

// Default pipeline settings.
const (
	DefaultChunkSize      = 1024
	DefaultChunkOverlap   = 0
	DefaultChunkSeparator = " "
	DefaultIndexPath      = "search_index.gob"
	DefaultCollection     = "aganitha_chatbot"
	DefaultEmbedBatchSize = 64
	DefaultInsertBatch    = 256
	DefaultMaxRetries     = 3
	DefaultDriveMaxDepth  = 16
	DefaultMediaDir       = "video_files"
	DefaultWhisperModel   = "small"
)

// EmbeddingBackend is the closed set of embedding backends.
type EmbeddingBackend string

// Available embedding backends.
const (
	// EmbeddingOpenAI uses the OpenAI embeddings API.
	EmbeddingOpenAI EmbeddingBackend = "openai"

	// EmbeddingOllama uses a local Ollama instance.
	EmbeddingOllama EmbeddingBackend = "ollama"
)

// IsValid returns true if the embedding backend is recognised.
func (b EmbeddingBackend) IsValid() bool {
	switch b {
	case EmbeddingOpenAI, EmbeddingOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this backend needs an API key.
func (b EmbeddingBackend) RequiresAPIKey() bool {
	return b == EmbeddingOpenAI
}

// String returns the string representation.
func (b EmbeddingBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b EmbeddingBackend) Description() string {
	switch b {
	case EmbeddingOpenAI:
		return "OpenAI (cloud)"
	case EmbeddingOllama:
		return "Ollama (local)"
	default:
		return unknownDescription
	}
}

// IndexBackend is the closed set of index backends.
type IndexBackend string

// Available index backends.
const (
	// IndexLocal is an in-process index serialised to a single file.
	IndexLocal IndexBackend = "local"

	// IndexSQLite is an in-process index persisted as a SQLite database file.
	IndexSQLite IndexBackend = "sqlite"

	// IndexMilvus is a remote managed Milvus (or Zilliz) collection.
	IndexMilvus IndexBackend = "milvus"
)

// IsValid returns true if the index backend is recognised.
func (b IndexBackend) IsValid() bool {
	switch b {
	case IndexLocal, IndexSQLite, IndexMilvus:
		return true
	default:
		return false
	}
}

// IsRemote returns true if durability is delegated to a remote service.
func (b IndexBackend) IsRemote() bool {
	return b == IndexMilvus
}

// String returns the string representation.
func (b IndexBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b IndexBackend) Description() string {
	switch b {
	case IndexLocal:
		return "Local file (gob)"
	case IndexSQLite:
		return "Local file (SQLite)"
	case IndexMilvus:
		return "Milvus (remote)"
	default:
		return unknownDescription
	}
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	Backend    EmbeddingBackend `toml:"backend" yaml:"backend"`
	Model      string           `toml:"model" yaml:"model"`
	BaseURL    string           `toml:"base_url" yaml:"base_url"`
	Dimensions int              `toml:"dimensions" yaml:"dimensions"`

	// APIKey is never read from the config file.
	APIKey string `toml:"-" yaml:"-"`
}

// MilvusConfig is the remote connection profile. Credentials are
// sourced from the environment only.
type MilvusConfig struct {
	Address string `toml:"address" yaml:"address"`
	TLS     bool   `toml:"tls" yaml:"tls"`

	// Append keeps an existing collection instead of recreating it.
	Append bool `toml:"append" yaml:"append"`

	Username string `toml:"-" yaml:"-"`
	Password string `toml:"-" yaml:"-"`
	Token    string `toml:"-" yaml:"-"`
}

// IndexConfig selects and configures the index backend.
type IndexConfig struct {
	Backend    IndexBackend `toml:"backend" yaml:"backend"`
	Path       string       `toml:"path" yaml:"path"`
	Collection string       `toml:"collection" yaml:"collection"`
	BatchSize  int          `toml:"batch_size" yaml:"batch_size"`
	Milvus     MilvusConfig `toml:"milvus" yaml:"milvus"`
}

// ChunkConfig configures the chunker.
type ChunkConfig struct {
	Size      int    `toml:"size" yaml:"size"`
	Overlap   int    `toml:"overlap" yaml:"overlap"`
	Separator string `toml:"separator" yaml:"separator"`
}

// SourcesConfig enables sources. An empty value disables that source.
type SourcesConfig struct {
	URLFile string `toml:"url_file" yaml:"url_file"`

	DriveFolderID    string   `toml:"drive_folder_id" yaml:"drive_folder_id"`
	DriveDocumentIDs []string `toml:"drive_document_ids" yaml:"drive_document_ids"`
	DriveFileIDs     []string `toml:"drive_file_ids" yaml:"drive_file_ids"`
	DriveMaxDepth    int      `toml:"drive_max_depth" yaml:"drive_max_depth"`

	// MediaDir is the staging directory written by the drive extractor
	// and read by the video extractor.
	MediaDir     string `toml:"media_dir" yaml:"media_dir"`
	AudioDir     string `toml:"audio_dir" yaml:"audio_dir"`
	VideoEnabled bool   `toml:"video" yaml:"video"`

	DocsDir string `toml:"docs_dir" yaml:"docs_dir"`
}

// DriveEnabled returns true if any drive selector is configured.
func (s SourcesConfig) DriveEnabled() bool {
	return s.driveSelectors() > 0
}

func (s SourcesConfig) driveSelectors() int {
	n := 0
	if s.DriveFolderID != "" {
		n++
	}
	if len(s.DriveDocumentIDs) > 0 {
		n++
	}
	if len(s.DriveFileIDs) > 0 {
		n++
	}
	return n
}

// GoogleConfig points at credential material for the drive source.
type GoogleConfig struct {
	ServiceAccountFile string `toml:"service_account_file" yaml:"service_account_file"`
	ClientSecretsFile  string `toml:"client_secrets_file" yaml:"client_secrets_file"`
	TokenFile          string `toml:"token_file" yaml:"token_file"`
}

// RunConfig controls orchestration.
type RunConfig struct {
	Concurrent     bool   `toml:"concurrent" yaml:"concurrent"`
	EmbedBatchSize int    `toml:"embed_batch_size" yaml:"embed_batch_size"`
	// MaxRetries is the number of extra attempts for embedding and index
	// calls. Zero means DefaultMaxRetries; a negative value disables retries.
	MaxRetries     int    `toml:"max_retries" yaml:"max_retries"`
	Schedule       string `toml:"schedule" yaml:"schedule"`
}

// PipelineConfig is the explicit configuration passed to every component.
type PipelineConfig struct {
	Embedding EmbeddingConfig `toml:"embedding" yaml:"embedding"`
	Index     IndexConfig     `toml:"index" yaml:"index"`
	Chunk     ChunkConfig     `toml:"chunk" yaml:"chunk"`
	Sources   SourcesConfig   `toml:"sources" yaml:"sources"`
	Google    GoogleConfig    `toml:"google" yaml:"google"`
	Pipeline  RunConfig       `toml:"pipeline" yaml:"pipeline"`
}

// DefaultPipelineConfig returns a configuration with all defaults applied.
func DefaultPipelineConfig() PipelineConfig {
	var cfg PipelineConfig
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults.
func (c *PipelineConfig) ApplyDefaults() {
	if c.Embedding.Backend == "" {
		c.Embedding.Backend = EmbeddingOpenAI
	}
	if c.Index.Backend == "" {
		c.Index.Backend = IndexLocal
	}
	if c.Index.Path == "" {
		c.Index.Path = DefaultIndexPath
	}
	if c.Index.Collection == "" {
		c.Index.Collection = DefaultCollection
	}
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = DefaultInsertBatch
	}
	if c.Chunk.Size <= 0 {
		c.Chunk.Size = DefaultChunkSize
	}
	if c.Chunk.Separator == "" {
		c.Chunk.Separator = DefaultChunkSeparator
	}
	if c.Sources.DriveMaxDepth <= 0 {
		c.Sources.DriveMaxDepth = DefaultDriveMaxDepth
	}
	if c.Sources.MediaDir == "" {
		c.Sources.MediaDir = DefaultMediaDir
	}
	if c.Sources.AudioDir == "" {
		c.Sources.AudioDir = filepath.Join(filepath.Dir(filepath.Clean(c.Sources.MediaDir)), "audio_files")
	}
	if c.Pipeline.EmbedBatchSize <= 0 {
		c.Pipeline.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if c.Pipeline.MaxRetries == 0 {
		c.Pipeline.MaxRetries = DefaultMaxRetries
	}
}

// Validate checks the configuration for contradictions.
// All failures wrap ErrConfiguration.
func (c *PipelineConfig) Validate() error {
	if !c.Embedding.Backend.IsValid() {
		return ConfigError("unknown embedding backend %q", c.Embedding.Backend)
	}
	if !c.Index.Backend.IsValid() {
		return ConfigError("unknown index backend %q", c.Index.Backend)
	}
	if c.Chunk.Size <= 0 {
		return ConfigError("chunk size must be positive, got %d", c.Chunk.Size)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return ConfigError("chunk overlap %d must be in [0, %d)", c.Chunk.Overlap, c.Chunk.Size)
	}
	if c.Chunk.Separator == "" {
		return ConfigError("chunk separator must not be empty")
	}
	if c.Sources.driveSelectors() > 1 {
		return ConfigError("drive source needs exactly one of folder id, document ids or file ids")
	}
	if c.Embedding.Backend.RequiresAPIKey() && c.Embedding.APIKey == "" {
		return ConfigError("embedding backend %s requires an API key", c.Embedding.Backend)
	}
	return nil
}
