// Package cli provides the cobra command tree for the aganitha binary.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/config/file"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "aganitha",
	Short: "Build a searchable vector index from websites, Drive, recordings and local files",
	Long: `aganitha ingests content from a list of web pages, a Google Drive folder
or file list, audio and video recordings, and a local directory. The text is
split into chunks, embedded and written to a vector index that the query
command searches.

Secrets are read from the environment or a .env file:
  OPENAI_API_KEY                       OpenAI embeddings
  MILVUS_URI, MILVUS_USER,
  MILVUS_PASSWORD, MILVUS_TOKEN        Milvus index backend`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (.toml, .yml or .yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the config named by --config with secrets overlaid.
func loadConfig() (domain.PipelineConfig, error) {
	return file.Load(cfgFile)
}
