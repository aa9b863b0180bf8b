// Package transcriber provides Transcriber implementations.
package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
)

// Ensure Whisper implements the interface.
var _ driven.Transcriber = (*Whisper)(nil)

// DefaultBinary is the openai-whisper command line tool.
const DefaultBinary = "whisper"

// Whisper transcribes audio by running the whisper CLI and reading its
// JSON output.
type Whisper struct {
	runner driven.CommandRunner
	binary string
	model  string
}

// Option configures Whisper.
type Option func(*Whisper)

// WithModel sets the model size (tiny, base, small, medium, large).
func WithModel(model string) Option {
	return func(w *Whisper) {
		w.model = model
	}
}

// WithBinary overrides the executable name.
func WithBinary(bin string) Option {
	return func(w *Whisper) {
		w.binary = bin
	}
}

// NewWhisper creates a whisper CLI transcriber.
func NewWhisper(runner driven.CommandRunner, opts ...Option) *Whisper {
	w := &Whisper{
		runner: runner,
		binary: DefaultBinary,
		model:  domain.DefaultWhisperModel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Model returns the configured model size.
func (w *Whisper) Model() string {
	return w.model
}

// output mirrors the JSON written by --output_format json.
type output struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe returns the timed segments of audioPath in order.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string) ([]driven.Segment, error) {
	outDir, err := os.MkdirTemp("", "whisper-*")
	if err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	_, err = w.runner.Run(ctx, w.binary, audioPath,
		"--model", w.model,
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", "False",
	)
	if err != nil {
		return nil, fmt.Errorf("transcribe %s: %w", audioPath, err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	var out output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	segments := make([]driven.Segment, 0, len(out.Segments))
	for _, s := range out.Segments {
		segments = append(segments, driven.Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	return segments, nil
}
