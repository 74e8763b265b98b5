// Package proxy implements the Network Pipeline's reverse proxy and load
// balancer: upstream health checks, selection strategies, and forwarding
// with request/response header rewriting (spec.md §4.4).
package proxy

import (
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// Upstream is one backend target the load balancer can route to.
type Upstream struct {
	URL    *url.URL
	Weight int // used by weighted-round-robin; 0 excludes the upstream

	mu      sync.RWMutex
	healthy bool

	activeConns int64

	requestCount int64
	errorCount   int64
	totalLatency int64 // nanoseconds, accumulated for a running average
}

// NewUpstream builds an Upstream targeting rawURL, healthy by default so a
// newly added backend is eligible before its first health check runs.
func NewUpstream(rawURL string, weight int) (*Upstream, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if weight < 0 {
		weight = 0
	}
	return &Upstream{URL: u, Weight: weight, healthy: true}, nil
}

// Healthy reports the upstream's last-known health check result.
func (u *Upstream) Healthy() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.healthy
}

// SetHealthy updates the health check result.
func (u *Upstream) SetHealthy(healthy bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.healthy = healthy
}

// ActiveConnections returns the current in-flight request count, used by
// the least-connections strategy.
func (u *Upstream) ActiveConnections() int64 {
	return atomic.LoadInt64(&u.activeConns)
}

// BeginRequest increments the in-flight counter; callers must defer
// EndRequest.
func (u *Upstream) BeginRequest() {
	atomic.AddInt64(&u.activeConns, 1)
}

// EndRequest decrements the in-flight counter and records latency/error
// stats for the completed request.
func (u *Upstream) EndRequest(d time.Duration, failed bool) {
	atomic.AddInt64(&u.activeConns, -1)
	atomic.AddInt64(&u.requestCount, 1)
	atomic.AddInt64(&u.totalLatency, int64(d))
	if failed {
		atomic.AddInt64(&u.errorCount, 1)
	}
}

// Stats is a point-in-time snapshot of an upstream's usage.
type Stats struct {
	RequestCount   int64
	ErrorCount     int64
	AverageLatency time.Duration
	ActiveConns    int64
	Healthy        bool
}

// Snapshot returns the upstream's current Stats.
func (u *Upstream) Snapshot() Stats {
	requests := atomic.LoadInt64(&u.requestCount)
	var avg time.Duration
	if requests > 0 {
		avg = time.Duration(atomic.LoadInt64(&u.totalLatency) / requests)
	}
	return Stats{
		RequestCount:   requests,
		ErrorCount:     atomic.LoadInt64(&u.errorCount),
		AverageLatency: avg,
		ActiveConns:    u.ActiveConnections(),
		Healthy:        u.Healthy(),
	}
}
