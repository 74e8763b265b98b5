package xems

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xypriss/xypriss/internal/plugin"
)

func TestNewPlugin_ContributesNormalBucketMiddleware(t *testing.T) {
	m := testManager()
	p := NewPlugin(m, MiddlewareConfig{Sandbox: "default"})
	assert.Equal(t, "xypriss.security.xems", p.ID)
	assert.Equal(t, plugin.ClassSecurity, p.Classification)
	assert.Len(t, p.Middleware, 1)
	assert.Equal(t, plugin.MiddlewareNormal, p.Middleware[0].Priority)
}
