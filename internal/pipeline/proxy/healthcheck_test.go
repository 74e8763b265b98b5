package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthChecker_MarksUpstreamHealthyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u := mustUpstream(t, srv.URL, 1)
	u.SetHealthy(false)

	hc := NewHealthChecker(HealthCheckConfig{Path: "/health", Timeout: time.Second}, []*Upstream{u})
	hc.CheckAll(context.Background())

	assert.True(t, u.Healthy())
}

func TestHealthChecker_MarksUpstreamUnhealthyOn500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	u := mustUpstream(t, srv.URL, 1)
	hc := NewHealthChecker(HealthCheckConfig{Path: "/health", Timeout: time.Second}, []*Upstream{u})
	hc.CheckAll(context.Background())

	assert.False(t, u.Healthy())
}

func TestHealthChecker_UnreachableUpstreamIsUnhealthy(t *testing.T) {
	u := mustUpstream(t, "http://127.0.0.1:1", 1)
	hc := NewHealthChecker(HealthCheckConfig{Path: "/health", Timeout: 50 * time.Millisecond}, []*Upstream{u})
	hc.CheckAll(context.Background())

	assert.False(t, u.Healthy())
}
