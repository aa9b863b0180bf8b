package connectors

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamil-acog/aganitha-chatbot/internal/connectors/media"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
)

type mockRunner struct{}

func (mockRunner) Run(context.Context, string, ...string) ([]byte, error) { return nil, nil }

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(context.Context, string) ([]driven.Segment, error) { return nil, nil }

type fakeCredentials struct{}

func (fakeCredentials) HTTPClient(context.Context) (*http.Client, error) { return http.DefaultClient, nil }

func names(extractors []driven.Extractor) []string {
	out := make([]string, 0, len(extractors))
	for _, e := range extractors {
		out = append(out, e.Name())
	}
	return out
}

func newTestFactory() *Factory {
	return NewFactory(Dependencies{
		Runner:      mockRunner{},
		Transcriber: fakeTranscriber{},
		Credentials: fakeCredentials{},
	})
}

func TestBuild_FixedOrder(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	cfg.Sources.DocsDir = t.TempDir()
	cfg.Sources.VideoEnabled = true
	cfg.Sources.DriveFolderID = "folder"
	cfg.Sources.MediaDir = t.TempDir()
	cfg.Sources.URLFile = "urls.txt"

	extractors, err := newTestFactory().Build(cfg)
	require.NoError(t, err)
	assert.Equal(t, SourceOrder, names(extractors))
	assert.Equal(t, []string{"website", "drive", "video", "local-dir"}, SourceOrder)
}

func TestBuild_OnlyEnabledSources(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.SourcesConfig)
		want   []string
	}{
		{name: "none", mutate: func(*domain.SourcesConfig) {}, want: []string{}},
		{name: "website", mutate: func(s *domain.SourcesConfig) { s.URLFile = "urls.txt" }, want: []string{"website"}},
		{name: "drive documents", mutate: func(s *domain.SourcesConfig) { s.DriveDocumentIDs = []string{"d1"} }, want: []string{"drive"}},
		{name: "video", mutate: func(s *domain.SourcesConfig) { s.VideoEnabled = true }, want: []string{"video"}},
		{name: "local dir", mutate: func(s *domain.SourcesConfig) { s.DocsDir = "docs" }, want: []string{"local-dir"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := domain.DefaultPipelineConfig()
			tc.mutate(&cfg.Sources)

			extractors, err := newTestFactory().Build(cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, names(extractors))
		})
	}
}

func TestBuild_DriveWithoutCredentials(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	cfg.Sources.DriveFolderID = "folder"

	_, err := NewFactory(Dependencies{Runner: mockRunner{}, Transcriber: fakeTranscriber{}}).Build(cfg)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestBuild_ConcurrentVideoWaitsOnlyWithDrive(t *testing.T) {
	staging := t.TempDir()
	cfg := domain.DefaultPipelineConfig()
	cfg.Pipeline.Concurrent = true
	cfg.Sources.VideoEnabled = true
	cfg.Sources.MediaDir = staging

	// Without a drive source there is no one to write the marker, so the
	// video extractor must not wait for it.
	extractors, err := newTestFactory().Build(cfg)
	require.NoError(t, err)
	require.Len(t, extractors, 1)
	_, ok := extractors[0].(*media.Extractor)
	require.True(t, ok)

	docs, err := extractors[0].Extract(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}
