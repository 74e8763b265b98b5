package compression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xypriss/xypriss/internal/plugin"
)

func TestNew_RegistersLastBucketMiddleware(t *testing.T) {
	p := New(DefaultConfig())
	require.NoError(t, p.Validate())
	require.Len(t, p.Middleware, 1)
	assert.Equal(t, plugin.MiddlewareLast, p.Middleware[0].Priority)
}
