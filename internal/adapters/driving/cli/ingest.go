package cli

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

var (
	ingestURLs         string
	ingestDriveFolder  string
	ingestDriveDocs    []string
	ingestDriveFiles   []string
	ingestVideoDir     string
	ingestVideo        bool
	ingestDocsDir      string
	ingestConcurrent   bool
	ingestIndexBackend string
	ingestIndexPath    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract, chunk, embed and index all enabled sources",
	Long: `Runs one ingestion pass. Sources are enabled by the config file or by
flags, and are processed in a fixed order: website, drive, video, local-dir.

Items that fail to download or parse are skipped and listed at the end.
Missing configuration or credentials abort the run.`,
	Example: `  aganitha ingest --urls urls.txt --docs-dir ./docs
  aganitha ingest --drive-folder 1AbC... --video --concurrent
  aganitha ingest -c config.toml`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&ingestURLs, "urls", "", "file with one URL per line")
	f.StringVar(&ingestDriveFolder, "drive-folder", "", "Google Drive folder id to walk")
	f.StringSliceVar(&ingestDriveDocs, "drive-docs", nil, "Google Docs/Sheets/Slides ids to export")
	f.StringSliceVar(&ingestDriveFiles, "drive-files", nil, "Google Drive file ids to load")
	f.StringVar(&ingestVideoDir, "video-dir", "", "directory of recordings to transcribe (enables the video source)")
	f.BoolVar(&ingestVideo, "video", false, "transcribe recordings in the configured media directory")
	f.StringVar(&ingestDocsDir, "docs-dir", "", "local directory of documents")
	f.BoolVar(&ingestConcurrent, "concurrent", false, "run extractors concurrently")
	f.StringVar(&ingestIndexBackend, "index-backend", "", "index backend: local, sqlite or milvus")
	f.StringVar(&ingestIndexPath, "index-path", "", "index file for the local and sqlite backends")
	ingestCmd.MarkFlagsMutuallyExclusive("drive-folder", "drive-docs", "drive-files")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyIngestFlags(cmd, &cfg)

	report, err := runPipeline(cmd.Context(), cfg)
	if report != nil {
		printReport(cmd, cfg, report)
	}
	return err
}

// applyIngestFlags overlays explicitly set flags onto cfg.
func applyIngestFlags(cmd *cobra.Command, cfg *domain.PipelineConfig) {
	flags := cmd.Flags()
	src := &cfg.Sources

	if flags.Changed("urls") {
		src.URLFile = ingestURLs
	}

	if flags.Changed("drive-folder") || flags.Changed("drive-docs") || flags.Changed("drive-files") {
		src.DriveFolderID = ingestDriveFolder
		src.DriveDocumentIDs = ingestDriveDocs
		src.DriveFileIDs = ingestDriveFiles
	}

	if flags.Changed("video-dir") {
		derived := filepath.Join(filepath.Dir(filepath.Clean(src.MediaDir)), "audio_files")
		if src.AudioDir == derived {
			src.AudioDir = ""
		}
		src.MediaDir = ingestVideoDir
		src.VideoEnabled = true
	}
	if flags.Changed("video") {
		src.VideoEnabled = ingestVideo
	}

	if flags.Changed("docs-dir") {
		src.DocsDir = ingestDocsDir
	}
	if flags.Changed("concurrent") {
		cfg.Pipeline.Concurrent = ingestConcurrent
	}
	if flags.Changed("index-backend") {
		cfg.Index.Backend = domain.IndexBackend(ingestIndexBackend)
	}
	if flags.Changed("index-path") {
		cfg.Index.Path = ingestIndexPath
	}

	cfg.ApplyDefaults()
}

func printReport(cmd *cobra.Command, cfg domain.PipelineConfig, r *domain.RunReport) {
	cmd.Printf("Ingested %d documents into %d chunks (index %s, %s)\n",
		r.Documents, r.Chunks, r.IndexState, indexLocation(cfg.Index))

	for _, s := range r.Sources {
		cmd.Printf("  %-10s %4d documents  %3d skipped  %s\n",
			s.Name, s.Documents, len(s.Failures), s.Duration.Round(time.Millisecond))
	}

	if r.FailureCount() == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Skipped:")
	for _, s := range r.Sources {
		for _, f := range s.Failures {
			cmd.Printf("  [%s] %s: %v\n", s.Name, f.Item, f.Err)
		}
	}
}

func indexLocation(cfg domain.IndexConfig) string {
	if cfg.Backend.IsRemote() {
		return string(cfg.Backend) + " collection " + cfg.Collection
	}
	return string(cfg.Backend) + " " + cfg.Path
}
