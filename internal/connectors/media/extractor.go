package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Name is the stage name reported in failures and logs.
const Name = "video"

// DefaultMarkerTimeout bounds the wait for the staging marker.
const DefaultMarkerTimeout = 30 * time.Minute

// idMarker separates the recording id from the rest of a file name.
const idMarker = "__"

var (
	audioExts = map[string]bool{
		".mp3": true, ".wav": true, ".m4a": true,
		".flac": true, ".ogg": true, ".aac": true,
	}
	videoExts = map[string]bool{
		".mp4": true, ".mkv": true, ".mov": true,
		".avi": true, ".webm": true,
	}
)

// ErrMarkerTimeout is returned when the staging marker never appears.
var ErrMarkerTimeout = errors.New("timed out waiting for staging marker")

// Config configures the media extractor.
type Config struct {
	// SourceDir holds the video and audio files.
	SourceDir string

	// AudioDir receives transcoded audio. Defaults to an audio_files
	// directory next to SourceDir.
	AudioDir string

	// WaitForMarker blocks Extract until domain.StagingMarker exists in
	// SourceDir.
	WaitForMarker bool

	// MarkerTimeout bounds the wait. Defaults to DefaultMarkerTimeout.
	MarkerTimeout time.Duration
}

// Extractor transcribes recordings into Documents.
type Extractor struct {
	cfg         Config
	runner      driven.CommandRunner
	transcriber driven.Transcriber

	mu       sync.Mutex
	failures []domain.Failure
}

// New creates a media extractor.
func New(cfg Config, runner driven.CommandRunner, transcriber driven.Transcriber) (*Extractor, error) {
	if strings.TrimSpace(cfg.SourceDir) == "" {
		return nil, domain.ConfigError("video: source directory is required")
	}
	if runner == nil || transcriber == nil {
		return nil, domain.ConfigError("video: command runner and transcriber are required")
	}
	if cfg.AudioDir == "" {
		cfg.AudioDir = filepath.Join(filepath.Dir(filepath.Clean(cfg.SourceDir)), "audio_files")
	}
	if cfg.MarkerTimeout <= 0 {
		cfg.MarkerTimeout = DefaultMarkerTimeout
	}
	return &Extractor{cfg: cfg, runner: runner, transcriber: transcriber}, nil
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return Name
}

// Failures returns the per-file failures of the last Extract call.
func (e *Extractor) Failures() []domain.Failure {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Failure(nil), e.failures...)
}

// Extract transcodes videos, transcribes every audio file and returns one
// Document per transcript. A missing source directory yields no documents.
func (e *Extractor) Extract(ctx context.Context) ([]domain.Document, error) {
	e.mu.Lock()
	e.failures = nil
	e.mu.Unlock()

	if e.cfg.WaitForMarker {
		if err := waitForMarker(ctx, e.cfg.SourceDir, e.cfg.MarkerTimeout); err != nil {
			return nil, domain.NewStageError(Name, e.cfg.SourceDir, domain.ErrSourceFetch, err)
		}
	}

	entries, err := os.ReadDir(e.cfg.SourceDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("video: %s does not exist, nothing to transcribe", e.cfg.SourceDir)
			return nil, nil
		}
		return nil, domain.NewStageError(Name, e.cfg.SourceDir, domain.ErrSourceFetch, err)
	}

	audio, err := e.collectAudio(ctx, entries)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(audio))
	for _, path := range audio {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := e.transcribe(ctx, path)
		if err != nil {
			e.recordFailure(path, err)
			continue
		}
		docs = append(docs, doc)
	}

	logger.Info("video: transcribed %d recordings, %d failures", len(docs), len(e.Failures()))
	return docs, nil
}

// collectAudio returns the audio paths to transcribe, in source order.
// Videos are transcoded first; audio files are used in place.
func (e *Extractor) collectAudio(ctx context.Context, entries []os.DirEntry) ([]string, error) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var audio []string
	audioDirReady := false
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		path := filepath.Join(e.cfg.SourceDir, name)

		switch {
		case audioExts[ext]:
			audio = append(audio, path)
		case videoExts[ext]:
			if !audioDirReady {
				if err := os.MkdirAll(e.cfg.AudioDir, 0o755); err != nil {
					return nil, domain.NewStageError(Name, e.cfg.AudioDir, domain.ErrSourceFetch, err)
				}
				audioDirReady = true
			}
			out, err := e.transcode(ctx, path)
			if err != nil {
				e.recordFailure(path, err)
				continue
			}
			audio = append(audio, out)
		default:
			logger.Debug("video: ignoring %s", path)
		}
	}
	return audio, nil
}

func (e *Extractor) transcode(ctx context.Context, path string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(e.cfg.AudioDir, base+".mp3")

	logger.Debug("video: transcoding %s", path)
	if _, err := e.runner.Run(ctx, "ffmpeg", "-y", "-i", path, "-vn", "-acodec", "libmp3lame", out); err != nil {
		return "", fmt.Errorf("transcode: %w", err)
	}
	return out, nil
}

func (e *Extractor) transcribe(ctx context.Context, audioPath string) (domain.Document, error) {
	logger.Debug("video: transcribing %s", audioPath)
	segments, err := e.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return domain.Document{}, err
	}

	name := filepath.Base(audioPath)
	return domain.Document{
		Content: Transcript(segments),
		Metadata: map[string]any{
			domain.MetaSource: audioPath,
			domain.MetaID:     RecordingID(name),
		},
	}, nil
}

func (e *Extractor) recordFailure(path string, err error) {
	logger.Warn("video: skipping %s: %v", path, err)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = append(e.failures, domain.Failure{Stage: Name, Item: path, Err: err})
}

// Transcript concatenates segment texts and trims the result.
func Transcript(segments []driven.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return strings.TrimSpace(b.String())
}

// RecordingID returns the part of name before the first "__", or name
// itself when there is no marker.
func RecordingID(name string) string {
	if i := strings.Index(name, idMarker); i >= 0 {
		return name[:i]
	}
	return name
}

// waitForMarker blocks until domain.StagingMarker exists in dir.
// The watch is registered before the existence check so a marker written
// in between is not missed.
func waitForMarker(ctx context.Context, dir string, timeout time.Duration) error {
	marker := filepath.Join(dir, domain.StagingMarker)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if _, err := os.Stat(marker); err == nil {
		return nil
	}

	logger.Info("video: waiting for %s", marker)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("%s: %w", marker, ErrMarkerTimeout)
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if filepath.Base(event.Name) != domain.StagingMarker {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			logger.Warn("video: watcher error: %v", err)
		}
	}
}
