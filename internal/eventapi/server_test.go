package eventapi_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faughnn/factreel/internal/eventapi"
	"github.com/faughnn/factreel/internal/workspace"
)

func newTestServer(t *testing.T) *eventapi.Server {
	t.Helper()
	ws, err := workspace.Ensure(t.TempDir(), workspace.EpisodeRef{Label: "ep1"})
	require.NoError(t, err)

	srv, err := eventapi.NewServer(eventapi.DefaultConfig(), ws, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Shutdown() })
	return srv
}

func TestNewServerAllocatesADynamicPort(t *testing.T) {
	srv := newTestServer(t)
	assert.Greater(t, srv.Port(), 0)
}

func TestHealthEndpointReportsHealthy(t *testing.T) {
	srv := newTestServer(t)

	var resp *http.Response
	var err error
	for i := 0; i < 20; i++ {
		resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", srv.Port()))
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestShutdownStopsAcceptingConnections(t *testing.T) {
	ws, err := workspace.Ensure(t.TempDir(), workspace.EpisodeRef{Label: "ep2"})
	require.NoError(t, err)
	srv, err := eventapi.NewServer(eventapi.DefaultConfig(), ws, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, srv.Start())

	port := srv.Port()
	require.NoError(t, srv.Shutdown())

	_, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	assert.Error(t, err, "no listener should remain after shutdown")
}
