//nolint:noctx // Test file uses http.Get for convenience; context not required in tests
package google

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, state string) *callbackServer {
	t.Helper()
	server := newCallbackServer(0, state)
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func TestCallbackServer_PicksPort(t *testing.T) {
	server := startServer(t, "s")

	assert.NotZero(t, server.Port())
	assert.Equal(t, fmt.Sprintf("http://localhost:%d/callback", server.Port()), server.RedirectURI())
}

func TestCallbackServer_Success(t *testing.T) {
	server := startServer(t, "state-abc")

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback?code=xyz&state=state-abc", server.Port()))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	code, err := server.WaitForCode(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "xyz", code)
}

func TestCallbackServer_Failures(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{"state mismatch", "code=xyz&state=wrong", "state mismatch"},
		{"missing code", "state=good", "no authorization code"},
		{"provider error", "error=access_denied&error_description=denied", "access_denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startServer(t, "good")

			resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback?%s", server.Port(), tt.query))
			require.NoError(t, err)
			resp.Body.Close()

			_, err = server.WaitForCode(context.Background(), time.Second)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCallbackServer_WaitTimeout(t *testing.T) {
	server := startServer(t, "s")

	_, err := server.WaitForCode(context.Background(), 20*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallbackServer_StopTwice(t *testing.T) {
	server := newCallbackServer(0, "s")
	require.NoError(t, server.Stop())

	require.NoError(t, server.Start())
	require.NoError(t, server.Stop())
	require.NoError(t, server.Stop())
}

func TestGenerateState_Unique(t *testing.T) {
	a, err := generateState()
	require.NoError(t, err)
	b, err := generateState()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}
