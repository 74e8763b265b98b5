// Package pipeline wires every subsystem (plugin engine, network pipeline,
// security chain, cluster/cpu monitor hooks) into the single Server type a
// process boots (spec.md §2 data flow, §4 component design).
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	slconfig "github.com/xypriss/xypriss/infrastructure/config"
	"github.com/xypriss/xypriss/infrastructure/logging"
	slmetrics "github.com/xypriss/xypriss/infrastructure/metrics"
	slmiddleware "github.com/xypriss/xypriss/infrastructure/middleware"
	"github.com/xypriss/xypriss/internal/config"
	"github.com/xypriss/xypriss/internal/pipeline/compression"
	"github.com/xypriss/xypriss/internal/pipeline/connection"
	"github.com/xypriss/xypriss/internal/plugin"
	"github.com/xypriss/xypriss/internal/router"
	"github.com/xypriss/xypriss/pkg/version"
)

// proxyRoute pairs a path prefix with the handler that forwards requests
// under it (reverse-proxy routes bypass the user handler entirely, per
// spec.md §2's "Proxy routes bypass user handler" data-flow note).
type proxyRoute struct {
	prefix  string
	handler http.Handler
}

// Server owns the Router, the Plugin Registry & Engine, and the connection
// pool, and composes them into one http.Handler per request (spec.md §4.1
// "applyMiddleware"/"applyErrorHandlers" data flow).
type Server struct {
	cfgManager *config.Manager
	log        *logging.Logger
	metrics    *slmetrics.Metrics

	registry *plugin.Registry
	engine   *plugin.Engine
	router   *router.Router
	connPool *connection.Pool

	proxyRoutes []proxyRoute

	httpServer *http.Server
	closers    []func()
}

// OnShutdown registers fn to run during Shutdown, after the HTTP server has
// stopped accepting new connections. Used by optional subsystems (e.g. the
// XEMS session store) that own a background goroutine but aren't otherwise
// reachable from Server.
func (s *Server) OnShutdown(fn func()) {
	s.closers = append(s.closers, fn)
}

// New builds a Server from cm's current configuration. Plugins are
// registered via Use/UseConnectionPool/UseCompression/etc. before Start.
func New(cm *config.Manager, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default()
	}
	registry := plugin.NewRegistry(log)
	return &Server{
		cfgManager: cm,
		log:        log,
		metrics:    slmetrics.Init("xypriss"),
		registry:   registry,
		engine:     plugin.NewEngine(registry, log),
		router:     router.New(),
	}
}

// Config returns a snapshot of the process-wide configuration.
func (s *Server) Config() config.Config { return s.cfgManager.Get() }

// Use registers a plugin with the engine's registry.
func (s *Server) Use(ctx context.Context, p *plugin.Plugin) error {
	return s.registry.Register(ctx, p)
}

// Engine exposes the plugin engine so callers can wire cross-cutting
// integrations (e.g. inject.WireReporter) before Start.
func (s *Server) Engine() *plugin.Engine { return s.engine }

// Router exposes the underlying Router for route registration
// (Get/Post/Put/Delete/Patch), so callers compose handlers the way the
// teacher's own cmd/gateway composes mux routes.
func (s *Server) Router() *router.Router { return s.router }

// Proxy mounts handler on every request path starting with prefix,
// bypassing the router and user handlers (spec.md §2 proxy data flow).
// Longer prefixes are checked first so a more specific mount wins.
func (s *Server) Proxy(prefix string, handler http.Handler) {
	s.proxyRoutes = append(s.proxyRoutes, proxyRoute{prefix: prefix, handler: handler})
	sort.SliceStable(s.proxyRoutes, func(i, j int) bool {
		return len(s.proxyRoutes[i].prefix) > len(s.proxyRoutes[j].prefix)
	})
}

// UseConnectionPool wires the Connection Plugin and keeps the pool handle
// for graceful shutdown.
func (s *Server) UseConnectionPool(ctx context.Context, opts connection.Options) error {
	p, pool := connection.New(opts)
	s.connPool = pool
	return s.Use(ctx, p)
}

// UseCompression wires the Compression Plugin.
func (s *Server) UseCompression(ctx context.Context, cfg compression.Config) error {
	return s.Use(ctx, compression.New(cfg))
}

// dispatch is the base handler: proxy routes short-circuit before the
// Router ever sees the request.
func (s *Server) dispatch() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, pr := range s.proxyRoutes {
			if strings.HasPrefix(r.URL.Path, pr.prefix) {
				pr.handler.ServeHTTP(w, r)
				return
			}
		}
		s.router.ServeHTTP(w, r)
	})
}

// Handler builds the full per-request chain: the ambient stack (tracing,
// rate limiting, body limits, timeouts) wraps metrics recording, which
// wraps error handlers, which wrap the plugin-ordered middleware stack,
// which wraps the proxy/router dispatch (spec.md §4.1
// "applyErrorHandlers(applyMiddleware(dispatch))").
func (s *Server) Handler() http.Handler {
	withMiddleware := s.engine.ApplyMiddleware(s.dispatch())
	withErrors := s.engine.ApplyErrorHandlers(withMiddleware)
	withMetrics := s.recordMetrics(withErrors)
	return s.ambientStack(withMetrics)
}

// ambientStack layers the teacher's general-purpose HTTP middleware
// (infrastructure/middleware) around the plugin pipeline: request tracing,
// per-IP rate limiting, request body caps, and request timeouts, each
// driven off RequestManagementConfig (spec.md §5).
func (s *Server) ambientStack(h http.Handler) http.Handler {
	cfg := s.cfgManager.Get().RequestManagement

	h = slmiddleware.NewTimeoutMiddleware(cfg.Timeouts.DefaultTimeout).Handler(h)
	h = slmiddleware.NewBodyLimitMiddleware(s.maxBodyBytes(cfg.MaxBodySize)).Handler(h)
	if cfg.Concurrency.MaxPerIP > 0 {
		h = slmiddleware.NewRateLimiter(cfg.Concurrency.MaxPerIP, cfg.Concurrency.MaxPerIP, s.log).Handler(h)
	}
	h = slmiddleware.NewTracingMiddleware(s.log).Handler(h)
	return h
}

// recordMetrics wraps h so every response is counted/timed into the
// process's Prometheus collectors (infrastructure/metrics, carried
// verbatim into this domain per SPEC_FULL.md's domain-stack wiring).
func (s *Server) recordMetrics(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		s.metrics.RecordHTTPRequest("xypriss", r.Method, r.URL.Path, strconv.Itoa(rec.status), time.Since(start))
	})
}

// maxBodyBytes parses a "1MB"/"512KB"-style size string into bytes for the
// body-limit middleware; an empty or unparseable value falls back to that
// middleware's own default by returning 0.
func (s *Server) maxBodyBytes(raw string) int64 {
	if raw == "" {
		return 0
	}
	n, err := slconfig.ParseByteSize(raw)
	if err != nil {
		s.log.Warn(context.Background(), "invalid maxBodySize, using default", map[string]interface{}{"value": raw, "error": err.Error()})
		return 0
	}
	return n
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// registerOpsRoutes adds the health/ready/metrics endpoints spec.md §6
// names as part of the external interface.
func (s *Server) registerOpsRoutes() {
	s.router.Get("/health", func(req *router.Request, res *router.Response) {
		res.Status(http.StatusOK)
		res.JSON(map[string]interface{}{"status": "ok"})
	})
	s.router.Get("/ready", func(req *router.Request, res *router.Response) {
		res.Status(http.StatusOK)
		res.JSON(map[string]interface{}{
			"status":      "ready",
			"version":     version.Version,
			"plugins":     s.registry.Count(),
			"connections": s.connPoolSize(),
		})
	})
}

func (s *Server) connPoolSize() int {
	if s.connPool == nil {
		return 0
	}
	return s.connPool.Size()
}

// Start initializes the plugin registry (running onServerStart in
// dependency order), binds the listener, and fires onServerReady once it
// is actually accepting connections (spec.md §4.1).
func (s *Server) Start(ctx context.Context) error {
	s.registerOpsRoutes()

	if err := s.registry.Initialize(ctx); err != nil {
		return fmt.Errorf("pipeline: initialize plugins: %w", err)
	}

	cfg := s.cfgManager.Get()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", s.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ln, err := bindWithAutoPortSwitch(addr, cfg.Server.AutoPortSwitch)
	if err != nil {
		return fmt.Errorf("pipeline: bind %s: %w", addr, err)
	}
	s.httpServer.Addr = ln.Addr().String()

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.log.Info(ctx, "server listening", map[string]interface{}{"addr": s.httpServer.Addr, "version": version.FullVersion()})
	s.registry.Ready(ctx)

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// Shutdown drains in-flight requests, stops every plugin in reverse
// resolved order, and closes the connection pool's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.registry.Stop(ctx)
	s.engine.Close()
	if s.connPool != nil {
		s.connPool.Stop()
	}
	for _, closer := range s.closers {
		closer()
	}
	return err
}
