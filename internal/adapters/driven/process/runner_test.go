package process

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_MissingTool(t *testing.T) {
	_, err := NewRunner().Run(context.Background(), "definitely-not-a-real-tool-xyz")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestRun_Stdout(t *testing.T) {
	if !Available("sh") {
		t.Skip("sh not available")
	}

	out, err := NewRunner().Run(context.Background(), "sh", "-c", "printf hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestRun_NonZeroExitCarriesStderr(t *testing.T) {
	if !Available("sh") {
		t.Skip("sh not available")
	}

	_, err := NewRunner().Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 3")
	assert.Contains(t, err.Error(), "boom")
}

func TestTruncate(t *testing.T) {
	long := make([]byte, maxStderr+10)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, truncate(string(long)), maxStderr)
	assert.Equal(t, "short", truncate("short"))
}
