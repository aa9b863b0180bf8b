package drive

import (
	"strings"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

const (
	// DefaultMaxDepth bounds folder recursion.
	DefaultMaxDepth = domain.DefaultDriveMaxDepth
	// DefaultPageSize is the listing page size.
	DefaultPageSize int64 = 1000
)

// Mode identifies which selector drives an extraction.
type Mode string

const (
	// ModeFolder walks a folder tree.
	ModeFolder Mode = "folder"
	// ModeDocuments exports an explicit list of native documents.
	ModeDocuments Mode = "documents"
	// ModeFiles loads an explicit list of files.
	ModeFiles Mode = "files"
)

// Config holds Google Drive extractor configuration.
// Exactly one of FolderID, DocumentIDs and FileIDs must be set.
type Config struct {
	// FolderID is the root folder to walk.
	FolderID string
	// DocumentIDs are native document ids to export.
	DocumentIDs []string
	// FileIDs are file ids to load.
	FileIDs []string
	// StagingDir receives downloaded video files for the media extractor.
	StagingDir string
	// MaxDepth bounds folder recursion. Zero means DefaultMaxDepth.
	MaxDepth int
	// PageSize is the listing page size. Zero means DefaultPageSize.
	PageSize int64
}

// Validate checks the selector invariant and fills defaults.
func (c *Config) Validate() error {
	c.FolderID = strings.TrimSpace(c.FolderID)
	selectors := 0
	if c.FolderID != "" {
		selectors++
	}
	if len(c.DocumentIDs) > 0 {
		selectors++
	}
	if len(c.FileIDs) > 0 {
		selectors++
	}
	switch {
	case selectors == 0:
		return domain.ConfigError("drive: one of folder id, document ids or file ids is required")
	case selectors > 1:
		return domain.ConfigError("drive: folder id, document ids and file ids are mutually exclusive")
	}

	if strings.TrimSpace(c.StagingDir) == "" {
		return domain.ConfigError("drive: staging dir is required")
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	return nil
}

// Mode returns the configured selector.
func (c *Config) Mode() Mode {
	switch {
	case strings.TrimSpace(c.FolderID) != "":
		return ModeFolder
	case len(c.DocumentIDs) > 0:
		return ModeDocuments
	default:
		return ModeFiles
	}
}
