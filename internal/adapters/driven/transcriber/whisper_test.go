package transcriber

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRunner writes a canned JSON transcript into the --output_dir argument.
type mockRunner struct {
	json string
	err  error
	name string
	args []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	if m.err != nil {
		return nil, m.err
	}
	var outDir string
	for i, a := range args {
		if a == "--output_dir" && i+1 < len(args) {
			outDir = args[i+1]
		}
	}
	base := filepath.Base(args[0])
	base = base[:len(base)-len(filepath.Ext(base))]
	return nil, os.WriteFile(filepath.Join(outDir, base+".json"), []byte(m.json), 0o600)
}

func TestTranscribe(t *testing.T) {
	runner := &mockRunner{json: `{"text":" Hello world. Bye.","segments":[
		{"id":0,"start":0.0,"end":1.5,"text":" Hello world."},
		{"id":1,"start":1.5,"end":2.0,"text":" Bye."}],"language":"en"}`}
	w := NewWhisper(runner)

	segments, err := w.Transcribe(context.Background(), "/audio/abc__townhall.mp3")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, " Hello world.", segments[0].Text)
	assert.Equal(t, 1.5, segments[1].Start)
	assert.Equal(t, 2.0, segments[1].End)

	assert.Equal(t, "whisper", runner.name)
	assert.Equal(t, "/audio/abc__townhall.mp3", runner.args[0])
	assert.Equal(t, []string{"--model", "small"}, runner.args[1:3])
	assert.Equal(t, []string{"--output_format", "json"}, runner.args[3:5])
}

func TestTranscribe_Options(t *testing.T) {
	runner := &mockRunner{json: `{"segments":[]}`}
	w := NewWhisper(runner, WithModel("tiny"), WithBinary("whisper-cli"))
	assert.Equal(t, "tiny", w.Model())

	segments, err := w.Transcribe(context.Background(), "/audio/silence.wav")
	require.NoError(t, err)
	assert.Empty(t, segments)
	assert.Equal(t, "whisper-cli", runner.name)
	assert.Equal(t, "tiny", runner.args[2])
}

func TestTranscribe_RunnerError(t *testing.T) {
	w := NewWhisper(&mockRunner{err: errors.New("exit status 1")})

	_, err := w.Transcribe(context.Background(), "/audio/bad.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcribe /audio/bad.mp3")
}

func TestTranscribe_BadJSON(t *testing.T) {
	w := NewWhisper(&mockRunner{json: "not json"})

	_, err := w.Transcribe(context.Background(), "/audio/a.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode transcript")
}
