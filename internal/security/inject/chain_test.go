package inject

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteConfig_Allows(t *testing.T) {
	rc := RouteConfig{Include: []string{"/api"}, Exclude: []string{"/api/health"}}
	assert.True(t, rc.allows("/api/users"))
	assert.False(t, rc.allows("/api/health"))
	assert.False(t, rc.allows("/public"))
}

func TestRouteConfig_NoIncludeAllowsAll(t *testing.T) {
	rc := RouteConfig{Exclude: []string{"/health"}}
	assert.True(t, rc.allows("/anything"))
	assert.False(t, rc.allows("/health"))
}

func TestChain_InspectRestoresBody(t *testing.T) {
	c := NewChain(DefaultConfig())
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"q": "1 UNION SELECT 1"}`))

	finding, err := c.Inspect(r)
	assert.NoError(t, err)
	assert.NotNil(t, finding)

	remaining, err := readAll(r.Body)
	assert.NoError(t, err)
	assert.Contains(t, remaining, "UNION SELECT")
}

func TestChain_InspectClean(t *testing.T) {
	c := NewChain(DefaultConfig())
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"q": "hello"}`))
	finding, err := c.Inspect(r)
	assert.NoError(t, err)
	assert.Nil(t, finding)
}

func TestChain_MiddlewareBlocksAndReports(t *testing.T) {
	var reported map[string]interface{}
	cfg := DefaultConfig()
	cfg.Reporter = func(r *http.Request, attackData map[string]interface{}) {
		reported = attackData
	}
	c := NewChain(cfg)

	handlerCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { handlerCalled = true })

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/search?q=1+UNION+SELECT+1", nil)
	c.Middleware()(next).ServeHTTP(w, r)

	assert.False(t, handlerCalled)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotNil(t, reported)
	assert.Equal(t, string(AttackSQL), reported["type"])
}

func TestChain_MiddlewareAllowsClean(t *testing.T) {
	c := NewChain(DefaultConfig())
	handlerCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { handlerCalled = true })

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/search?q=hello", nil)
	c.Middleware()(next).ServeHTTP(w, r)

	assert.True(t, handlerCalled)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChain_MiddlewareSkipsExcludedRoute(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Routes = RouteConfig{Exclude: []string{"/internal"}}
	c := NewChain(cfg)

	handlerCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { handlerCalled = true })

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/internal?q=1+UNION+SELECT+1", nil)
	c.Middleware()(next).ServeHTTP(w, r)

	assert.True(t, handlerCalled)
}

func TestChain_ReportsWithoutBlockingWhenNotConfiguredToBlock(t *testing.T) {
	var reported map[string]interface{}
	cfg := DefaultConfig()
	cfg.Detector.BlockOnDetection = false
	cfg.Reporter = func(r *http.Request, attackData map[string]interface{}) { reported = attackData }
	c := NewChain(cfg)

	handlerCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { handlerCalled = true })

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/search?q=1+UNION+SELECT+1", nil)
	c.Middleware()(next).ServeHTTP(w, r)

	assert.True(t, handlerCalled)
	assert.Equal(t, false, reported["blocked"])
}

func TestClientIP_ForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", clientIP(r))
}

func TestClientIP_RemoteAddr(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.10:4321"
	assert.Equal(t, "192.0.2.10", clientIP(r))
}

func readAll(rc interface{ Read([]byte) (int, error) }) (string, error) {
	buf := make([]byte, 256)
	n, err := rc.Read(buf)
	if err != nil && n == 0 {
		return "", err
	}
	return string(buf[:n]), nil
}
