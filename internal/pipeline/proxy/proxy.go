package proxy

import (
	"context"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/google/uuid"

	slhttputil "github.com/xypriss/xypriss/infrastructure/httputil"
	"github.com/xypriss/xypriss/infrastructure/ratelimit"
)

// Config wires a Balancer's upstream set into a forwarding handler.
type Config struct {
	Balancer   *Balancer
	Retries    int
	TrustProxy bool

	// UpstreamTimeout bounds each upstream round trip; zero uses
	// infrastructure/httputil's client default (30s).
	UpstreamTimeout time.Duration

	// OutboundRateLimit caps the aggregate rate of requests this Proxy
	// forwards upstream, independent of any inbound per-IP limiting
	// (spec.md §4.4's forwarding contract says nothing about protecting a
	// fragile upstream from a retry storm, so this is opt-in: nil means
	// no outbound throttling).
	OutboundRateLimit *ratelimit.RateLimitConfig
}

// Proxy forwards requests to a balancer-selected upstream, retrying a
// bounded number of times against a different upstream on failure before
// responding 502 (spec.md §4.4).
type Proxy struct {
	cfg     Config
	limiter *ratelimit.RateLimiter
	client  *http.Client
}

// New builds a Proxy over cfg.
func New(cfg Config) *Proxy {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	client, _ := slhttputil.NewClient(
		slhttputil.ClientConfig{Timeout: cfg.UpstreamTimeout},
		slhttputil.DefaultClientDefaults(),
	)
	p := &Proxy{cfg: cfg, client: client}
	if cfg.OutboundRateLimit != nil {
		p.limiter = ratelimit.New(*cfg.OutboundRateLimit)
	}
	return p
}

// ServeHTTP selects an upstream, rewrites headers per spec.md §6's
// forwarding contract, and streams the request/response both directions.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.limiter != nil && !p.limiter.Allow() {
		http.Error(w, "upstream rate limit exceeded", http.StatusServiceUnavailable)
		return
	}

	clientIP := clientIPOf(r, p.cfg.TrustProxy)
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}

	attempts := p.cfg.Retries + 1
	tried := map[*Upstream]bool{}

	for attempt := 0; attempt < attempts; attempt++ {
		upstream := p.selectUnused(clientIP, tried)
		if upstream == nil {
			http.Error(w, "no healthy upstream available", http.StatusBadGateway)
			return
		}
		tried[upstream] = true

		if p.forwardOnce(w, r, upstream, clientIP, requestID) {
			return
		}
	}

	http.Error(w, "upstream request failed after retries", http.StatusBadGateway)
}

func (p *Proxy) selectUnused(clientIP string, tried map[*Upstream]bool) *Upstream {
	for i := 0; i < len(p.cfg.Balancer.upstreams); i++ {
		u := p.cfg.Balancer.Select(clientIP)
		if u == nil {
			return nil
		}
		if !tried[u] {
			return u
		}
	}
	return nil
}

// forwardOnce proxies the request to upstream once, returning true if a
// response was successfully written (even a non-2xx upstream status
// counts as success here — only transport-level failures trigger retry).
func (p *Proxy) forwardOnce(w http.ResponseWriter, r *http.Request, upstream *Upstream, clientIP, requestID string) bool {
	start := time.Now()
	upstream.BeginRequest()

	if p.client.Timeout > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), p.client.Timeout)
		defer cancel()
		r = r.WithContext(ctx)
	}

	failed := false
	rp := httputil.NewSingleHostReverseProxy(upstream.URL)
	if p.client.Transport != nil {
		rp.Transport = p.client.Transport
	}

	originalDirector := rp.Director
	rp.Director = func(req *http.Request) {
		originalDirector(req)
		req.Header.Set("X-Forwarded-By", "xypriss")
		req.Header.Set("X-Request-ID", requestID)
		if p.cfg.TrustProxy {
			req.Header.Set("X-Forwarded-For", clientIP)
		}
	}

	rp.ModifyResponse = func(resp *http.Response) error {
		resp.Header.Set("X-Proxied-By", "xypriss")
		resp.Header.Set("X-Upstream", upstream.URL.Host)
		return nil
	}

	rp.ErrorHandler = func(rw http.ResponseWriter, req *http.Request, err error) {
		failed = true
	}

	rp.ServeHTTP(w, r)
	upstream.EndRequest(time.Since(start), failed)
	return !failed
}

func clientIPOf(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return xff
		}
	}
	host := r.RemoteAddr
	if idx := lastColon(host); idx >= 0 {
		return host[:idx]
	}
	return host
}

func lastColon(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}
