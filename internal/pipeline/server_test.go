package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xypriss/xypriss/internal/config"
	"github.com/xypriss/xypriss/internal/plugin"
	"github.com/xypriss/xypriss/internal/router"
)

func testServer() *Server {
	cm := config.NewManager(config.Default())
	return New(cm, nil)
}

func TestServer_RoutesThroughHandler(t *testing.T) {
	s := testServer()
	s.Router().Get("/hello", func(req *router.Request, res *router.Response) {
		res.Status(http.StatusOK)
		res.Send("hi")
	})

	require.NoError(t, s.registry.Initialize(context.Background()))

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/hello", nil)
	s.Handler().ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi", w.Body.String())
}

func TestServer_ProxyRouteBypassesRouter(t *testing.T) {
	s := testServer()
	called := false
	s.Proxy("/svc/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	s.Router().Get("/svc/ignored", func(req *router.Request, res *router.Response) {
		t.Fatal("router handler should not run for a proxied prefix")
	})

	require.NoError(t, s.registry.Initialize(context.Background()))

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/svc/anything", nil)
	s.Handler().ServeHTTP(w, r)

	assert.True(t, called)
}

func TestServer_LongerProxyPrefixWinsOverShorter(t *testing.T) {
	s := testServer()
	var hit string
	s.Proxy("/api/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hit = "api" }))
	s.Proxy("/api/v2/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hit = "v2" }))

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v2/thing", nil)
	s.dispatch().ServeHTTP(w, r)

	assert.Equal(t, "v2", hit)
}

func TestServer_UseRegistersPlugin(t *testing.T) {
	s := testServer()
	p := &plugin.Plugin{
		ID:      "test.plugin",
		Name:    "Test",
		Version: "1.0.0",
		Hooks: plugin.Hooks{
			Execute: func(ctx context.Context, ec *plugin.ExecutionContext) (*plugin.Result, error) {
				return &plugin.Result{Success: true, ShouldContinue: true}, nil
			},
		},
	}
	require.NoError(t, s.Use(context.Background(), p))
	assert.Equal(t, 1, s.registry.Count())
}

func TestServer_HealthAndReadyRoutes(t *testing.T) {
	s := testServer()
	s.registerOpsRoutes()
	require.NoError(t, s.registry.Initialize(context.Background()))

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)
	s.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/ready", nil)
	s.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}
