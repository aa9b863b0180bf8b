package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
)

// mockRunner records ffmpeg invocations and writes the output file.
type mockRunner struct {
	mu    sync.Mutex
	calls [][]string
	fail  map[string]bool
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string{name}, args...))
	m.mu.Unlock()

	in := args[2]
	if m.fail[filepath.Base(in)] {
		return nil, errors.New("ffmpeg exited with status 1: invalid data")
	}
	out := args[len(args)-1]
	return nil, os.WriteFile(out, []byte("mp3"), 0o644)
}

// fakeTranscriber returns canned segments keyed by file name.
type fakeTranscriber struct {
	segments map[string][]driven.Segment
	fail     map[string]bool
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) ([]driven.Segment, error) {
	name := filepath.Base(path)
	if f.fail[name] {
		return nil, errors.New("whisper failed")
	}
	return f.segments[name], nil
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("data"), 0o644))
	}
}

func TestExtract_TranscodesAndTranscribes(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "video_files")
	writeFiles(t, src, "abc123__townhall.mp4", "memo.mp3", "notes.txt", ".hidden.mp4")

	runner := &mockRunner{}
	tr := &fakeTranscriber{segments: map[string][]driven.Segment{
		"abc123__townhall.mp3": {{Text: " Welcome everyone."}, {Text: " Let's begin. "}},
		"memo.mp3":             {{Text: " Quick memo."}},
	}}

	e, err := New(Config{SourceDir: src}, runner, tr)
	require.NoError(t, err)

	docs, err := e.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Empty(t, e.Failures())

	audioDir := filepath.Join(root, "audio_files")
	assert.Equal(t, "Welcome everyone. Let's begin.", docs[0].Content)
	assert.Equal(t, filepath.Join(audioDir, "abc123__townhall.mp3"), docs[0].Source())
	assert.Equal(t, "abc123", docs[0].Metadata[domain.MetaID])

	assert.Equal(t, "Quick memo.", docs[1].Content)
	assert.Equal(t, filepath.Join(src, "memo.mp3"), docs[1].Source())
	assert.Equal(t, "memo.mp3", docs[1].Metadata[domain.MetaID])

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{
		"ffmpeg", "-y", "-i", filepath.Join(src, "abc123__townhall.mp4"),
		"-vn", "-acodec", "libmp3lame", filepath.Join(audioDir, "abc123__townhall.mp3"),
	}, runner.calls[0])
	assert.DirExists(t, audioDir)
}

func TestExtract_AudioDirIsIdempotent(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "video_files")
	audioDir := filepath.Join(root, "audio")
	writeFiles(t, src, "a.mp4")
	require.NoError(t, os.MkdirAll(audioDir, 0o755))

	tr := &fakeTranscriber{segments: map[string][]driven.Segment{"a.mp3": {{Text: "hi"}}}}
	e, err := New(Config{SourceDir: src, AudioDir: audioDir}, &mockRunner{}, tr)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		docs, err := e.Extract(context.Background())
		require.NoError(t, err)
		require.Len(t, docs, 1)
	}
}

func TestExtract_PerFileFailuresDoNotAbort(t *testing.T) {
	src := filepath.Join(t.TempDir(), "video_files")
	writeFiles(t, src, "bad.mp4", "good.mp4", "mute.wav")

	runner := &mockRunner{fail: map[string]bool{"bad.mp4": true}}
	tr := &fakeTranscriber{
		segments: map[string][]driven.Segment{"good.mp3": {{Text: "ok"}}},
		fail:     map[string]bool{"mute.wav": true},
	}
	e, err := New(Config{SourceDir: src}, runner, tr)
	require.NoError(t, err)

	docs, err := e.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ok", docs[0].Content)

	failures := e.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, filepath.Join(src, "bad.mp4"), failures[0].Item)
	assert.Equal(t, filepath.Join(src, "mute.wav"), failures[1].Item)
	assert.ErrorIs(t, failures[0].AsError(), domain.ErrSourceFetch)
}

func TestExtract_MissingSourceDir(t *testing.T) {
	e, err := New(Config{SourceDir: filepath.Join(t.TempDir(), "nope")}, &mockRunner{}, &fakeTranscriber{})
	require.NoError(t, err)

	docs, err := e.Extract(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{}, &mockRunner{}, &fakeTranscriber{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = New(Config{SourceDir: "x"}, nil, &fakeTranscriber{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestExtract_WaitsForMarker(t *testing.T) {
	src := filepath.Join(t.TempDir(), "video_files")
	tr := &fakeTranscriber{segments: map[string][]driven.Segment{"late.mp3": {{Text: "late"}}}}
	e, err := New(Config{SourceDir: src, WaitForMarker: true, MarkerTimeout: 10 * time.Second}, &mockRunner{}, tr)
	require.NoError(t, err)

	type result struct {
		docs []domain.Document
		err  error
	}
	done := make(chan result, 1)
	go func() {
		docs, err := e.Extract(context.Background())
		done <- result{docs, err}
	}()

	// Wait for Extract to create the watched directory before staging.
	require.Eventually(t, func() bool {
		_, err := os.Stat(src)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	writeFiles(t, src, "late.mp3")
	require.NoError(t, os.WriteFile(filepath.Join(src, domain.StagingMarker), nil, 0o644))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.Len(t, r.docs, 1)
		assert.Equal(t, "late", r.docs[0].Content)
	case <-time.After(10 * time.Second):
		t.Fatal("Extract did not return after marker was written")
	}
}

func TestExtract_MarkerAlreadyPresent(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, domain.StagingMarker)

	e, err := New(Config{SourceDir: src, WaitForMarker: true}, &mockRunner{}, &fakeTranscriber{})
	require.NoError(t, err)

	docs, err := e.Extract(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestExtract_MarkerTimeout(t *testing.T) {
	e, err := New(Config{SourceDir: t.TempDir(), WaitForMarker: true, MarkerTimeout: 50 * time.Millisecond}, &mockRunner{}, &fakeTranscriber{})
	require.NoError(t, err)

	_, err = e.Extract(context.Background())
	assert.ErrorIs(t, err, ErrMarkerTimeout)
	assert.ErrorIs(t, err, domain.ErrSourceFetch)
}

func TestExtract_MarkerWaitCancelled(t *testing.T) {
	e, err := New(Config{SourceDir: t.TempDir(), WaitForMarker: true}, &mockRunner{}, &fakeTranscriber{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Extract(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordingID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"abc123__townhall.mp3", "abc123"},
		{"a__b__c.mp3", "a"},
		{"plain.mp3", "plain.mp3"},
		{"__lead.mp3", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RecordingID(tc.name))
		})
	}
}

func TestTranscript(t *testing.T) {
	assert.Equal(t, "", Transcript(nil))
	assert.Equal(t, "one two", Transcript([]driven.Segment{{Text: "  one"}, {Text: " two  "}}))
}
