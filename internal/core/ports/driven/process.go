package driven

import (
	"context"
	"net/http"
)

// CommandRunner executes an external program without a shell.
// It returns stdout; a non-zero exit status is an error carrying stderr.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Segment is one timed span of a transcript.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Transcriber converts speech in an audio file to ordered text segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]Segment, error)
}

// CredentialProvider resolves an authenticated HTTP client for a
// remote source. Failure wraps domain.ErrAuthentication.
type CredentialProvider interface {
	HTTPClient(ctx context.Context) (*http.Client, error)
}
