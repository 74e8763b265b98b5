package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xypriss/xypriss/internal/plugin"
)

func TestNew_ValidatesAsPlugin(t *testing.T) {
	p, pool := New(Options{Pool: Config{MaxConnections: 10, CleanupInterval: time.Hour}})
	defer pool.Stop()

	require.NoError(t, p.Validate())
	assert.Equal(t, plugin.ClassNetwork, p.Classification)
	assert.Equal(t, plugin.PriorityCritical, p.Priority)
}

func TestPlugin_ExecuteTouchesPoolAndSetsKeepAlive(t *testing.T) {
	p, pool := New(Options{Pool: Config{MaxConnections: 10, CleanupInterval: time.Hour}})
	defer pool.Stop()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	ec := &plugin.ExecutionContext{
		Context:  context.Background(),
		Request:  req,
		Response: w,
		Network:  plugin.NetworkContext{RemoteAddr: "198.51.100.1", RemotePort: "4000"},
	}

	result, err := p.Hooks.Execute(ec.Context, ec)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "keep-alive", w.Header().Get("Connection"))
	assert.Equal(t, 1, pool.Size())
	assert.Equal(t, false, ec.Data["connection.reused"])

	_, err = p.Hooks.Execute(ec.Context, ec)
	require.NoError(t, err)
	assert.Equal(t, true, ec.Data["connection.reused"])
}
