// Package process provides the CommandRunner that executes external tools
// (pdftotext, ffmpeg, whisper) without a shell.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
)

// Ensure Runner implements the interface.
var _ driven.CommandRunner = (*Runner)(nil)

// maxStderr bounds the stderr text carried in errors.
const maxStderr = 2048

// ErrToolNotFound is returned when the requested binary is not on PATH.
var ErrToolNotFound = errors.New("tool not found in PATH")

// Runner runs commands with os/exec.
type Runner struct{}

// NewRunner creates a command runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes name with args and returns stdout.
// A non-zero exit status yields an error containing the exit code and stderr.
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrToolNotFound)
	}

	logger.Debug("exec: %s %s", name, strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s exited with status %d: %s",
				name, exitErr.ExitCode(), truncate(strings.TrimSpace(stderr.String())))
		}
		return nil, fmt.Errorf("run %s: %w", name, err)
	}

	return stdout.Bytes(), nil
}

// Available reports whether name resolves on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func truncate(s string) string {
	if len(s) <= maxStderr {
		return s
	}
	return s[len(s)-maxStderr:]
}
