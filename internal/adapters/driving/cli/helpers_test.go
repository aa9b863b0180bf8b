package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/pflag"

	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/index"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
)

// mockExtractor returns fixed documents.
type mockExtractor struct {
	name     string
	docs     []domain.Document
	failures []domain.Failure
	err      error
}

func (m *mockExtractor) Name() string { return m.name }

func (m *mockExtractor) Extract(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockExtractor) Failures() []domain.Failure { return m.failures }

// letterEmbedder embeds text as letter frequencies so similar words score high.
type letterEmbedder struct{}

func (letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 27)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	v[26] = 0.01
	return v, nil
}

func (e letterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func (letterEmbedder) Dimensions() int              { return 27 }
func (letterEmbedder) ModelName() string            { return "letters" }
func (letterEmbedder) Ping(_ context.Context) error { return nil }
func (letterEmbedder) Close() error                 { return nil }

// useFakes swaps the wiring for the duration of a test and records the
// configuration handed to the extractor factory.
func useFakes(t *testing.T, exts ...driven.Extractor) *domain.PipelineConfig {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	for _, k := range []string{"MILVUS_URI", "MILVUS_USER", "MILVUS_PASSWORD", "MILVUS_TOKEN", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(k, "")
	}

	var (
		mu   sync.Mutex
		seen domain.PipelineConfig
	)
	old := wiring
	wiring = components{
		extractors: func(_ context.Context, cfg domain.PipelineConfig) ([]driven.Extractor, error) {
			mu.Lock()
			seen = cfg
			mu.Unlock()
			return exts, nil
		},
		embedder: func(context.Context, domain.EmbeddingConfig) (driven.EmbeddingService, error) {
			return letterEmbedder{}, nil
		},
		newIndex:  index.New,
		openIndex: index.Open,
	}
	t.Cleanup(func() { wiring = old })
	return &seen
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag to its default between tests.
func resetFlags() {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
	}
}

func doc(source, content string) domain.Document {
	return domain.Document{Content: content, Metadata: map[string]any{domain.MetaSource: source}}
}
