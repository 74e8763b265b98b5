package proxy

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// HealthCheckConfig controls the periodic active health check.
type HealthCheckConfig struct {
	Interval time.Duration
	Path     string
	Timeout  time.Duration
}

// DefaultHealthCheckConfig matches spec.md §4.4's defaults.
func DefaultHealthCheckConfig() HealthCheckConfig {
	return HealthCheckConfig{
		Interval: 30 * time.Second,
		Path:     "/health",
		Timeout:  5 * time.Second,
	}
}

// HealthChecker periodically probes a set of upstreams and updates their
// health state.
type HealthChecker struct {
	cfg       HealthCheckConfig
	upstreams []*Upstream
	client    *http.Client

	stop chan struct{}
}

// NewHealthChecker builds a checker for upstreams using cfg.
func NewHealthChecker(cfg HealthCheckConfig, upstreams []*Upstream) *HealthChecker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultHealthCheckConfig().Interval
	}
	if cfg.Path == "" {
		cfg.Path = DefaultHealthCheckConfig().Path
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHealthCheckConfig().Timeout
	}

	return &HealthChecker{
		cfg:       cfg,
		upstreams: upstreams,
		client:    &http.Client{Timeout: cfg.Timeout},
		stop:      make(chan struct{}),
	}
}

// Start runs the periodic probe loop until Stop is called. It probes once
// immediately so upstreams are classified before the first interval tick.
func (h *HealthChecker) Start() {
	h.CheckAll(context.Background())

	go func() {
		ticker := time.NewTicker(h.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.CheckAll(context.Background())
			case <-h.stop:
				return
			}
		}
	}()
}

// Stop halts the probe loop.
func (h *HealthChecker) Stop() {
	close(h.stop)
}

// CheckAll probes every upstream once, synchronously.
func (h *HealthChecker) CheckAll(ctx context.Context) {
	for _, u := range h.upstreams {
		h.checkOne(ctx, u)
	}
}

func (h *HealthChecker) checkOne(ctx context.Context, u *Upstream) {
	reqCtx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	target := u.URL.ResolveReference(&url.URL{Path: h.cfg.Path}).String()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		u.SetHealthy(false)
		return
	}

	resp, err := h.client.Do(req)
	if err != nil {
		u.SetHealthy(false)
		return
	}
	defer resp.Body.Close()

	u.SetHealthy(resp.StatusCode >= 200 && resp.StatusCode < 400)
}
