package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
)

// DefaultQueryK is the number of hits returned by query.
const DefaultQueryK = 4

var (
	queryK            int
	queryIndexBackend string
	queryIndexPath    string
	queryMaxChars     int
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search the index for the chunks closest to a question",
	Long: `Embeds the query text with the configured embedding backend and prints
the nearest chunks from the persisted index together with their source.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.IntVarP(&queryK, "k", "k", DefaultQueryK, "number of results")
	f.StringVar(&queryIndexBackend, "index-backend", "", "index backend: local, sqlite or milvus")
	f.StringVar(&queryIndexPath, "index-path", "", "index file for the local and sqlite backends")
	f.IntVar(&queryMaxChars, "max-chars", 0, "truncate printed content (0 prints everything)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(args[0])
	if text == "" {
		return domain.ConfigError("query text must not be empty")
	}
	if queryK <= 0 {
		return domain.ConfigError("-k must be positive, got %d", queryK)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("index-backend") {
		cfg.Index.Backend = domain.IndexBackend(queryIndexBackend)
	}
	if cmd.Flags().Changed("index-path") {
		cfg.Index.Path = queryIndexPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	emb, err := wiring.embedder(ctx, cfg.Embedding)
	if err != nil {
		return err
	}
	defer emb.Close()

	idx, err := wiring.openIndex(ctx, cfg.Index, emb.Dimensions())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no index at %s, run ingest first: %w", indexLocation(cfg.Index), err)
		}
		return err
	}
	defer idx.Close()

	vec, err := emb.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}
	logger.Debug("searching %d chunks", idx.Len())

	hits, err := idx.Search(ctx, vec, queryK)
	if err != nil {
		return fmt.Errorf("search index: %w", err)
	}

	printHits(cmd, hits)
	return nil
}

func printHits(cmd *cobra.Command, hits []domain.Hit) {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return
	}

	for i, h := range hits {
		cmd.Printf("[%d] %.4f  %s\n", i+1, h.Score, h.Chunk.Source())
		content := h.Chunk.Content
		if queryMaxChars > 0 && len([]rune(content)) > queryMaxChars {
			content = string([]rune(content)[:queryMaxChars]) + "..."
		}
		cmd.Println(indent(content, "    "))
		cmd.Println()
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
