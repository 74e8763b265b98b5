// Package main is the XyPriss process entry point: a cluster-aware
// supervisor/worker binary that wires the Server (router, plugin engine,
// security chain) together from the Configuration Manager (spec.md §2,
// §4.1, §4.5).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/xypriss/xypriss/infrastructure/hex"
	"github.com/xypriss/xypriss/infrastructure/logging"
	"github.com/xypriss/xypriss/infrastructure/ratelimit"
	"github.com/xypriss/xypriss/infrastructure/utils"
	"github.com/xypriss/xypriss/internal/cluster"
	"github.com/xypriss/xypriss/internal/config"
	"github.com/xypriss/xypriss/internal/cpumonitor"
	"github.com/xypriss/xypriss/internal/pipeline"
	"github.com/xypriss/xypriss/internal/pipeline/compression"
	"github.com/xypriss/xypriss/internal/pipeline/connection"
	"github.com/xypriss/xypriss/internal/pipeline/proxy"
	"github.com/xypriss/xypriss/internal/security"
	"github.com/xypriss/xypriss/internal/security/classify"
	"github.com/xypriss/xypriss/internal/security/inject"
	"github.com/xypriss/xypriss/internal/security/xems"
)

// workerEnvFlag marks a process as a spawned cluster worker, distinguishing
// it from the primary/supervisor process that forks it (spec.md §4.5: the
// Node.js cluster module's primary/worker split, reinterpreted here as a
// self-re-exec subprocess model since Go has no fork+shared-socket
// primitive).
const workerEnvFlag = "XYPRISS_WORKER"

func main() {
	cm, err := config.NewManagerFromEnv()
	if err != nil {
		log.Fatalf("xypriss: load configuration: %v", err)
	}
	cfg := cm.Get()

	logger := logging.NewFromEnv("xypriss")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cluster.Enabled && os.Getenv(workerEnvFlag) != "1" {
		runSupervisor(ctx, cm, logger)
		return
	}
	runWorker(ctx, cm, logger)
}

// runWorker builds the Server and every registered plugin from cfg, then
// blocks until ctx is cancelled (a worker subprocess, or the whole process
// when clustering is disabled).
func runWorker(ctx context.Context, cm *config.Manager, logger *logging.Logger) {
	cfg := cm.Get()
	srv := pipeline.New(cm, logger)

	if err := srv.UseConnectionPool(ctx, connection.Options{Pool: connection.DefaultConfig()}); err != nil {
		logger.Fatal(ctx, "register connection plugin", err)
	}
	if err := srv.UseCompression(ctx, compression.DefaultConfig()); err != nil {
		logger.Fatal(ctx, "register compression plugin", err)
	}

	registerAccessPolicies(ctx, srv, cfg.Security, logger)
	registerInjectionChain(ctx, srv, cfg.Security, logger)
	registerXEMS(ctx, srv, cfg.XEMS, logger)
	registerCPUMonitor(ctx, srv, logger)
	registerUpstreamProxy(ctx, srv, cfg, logger)

	if err := srv.Start(ctx); err != nil {
		logger.Fatal(ctx, "start server", err)
	}

	<-ctx.Done()
	logger.Info(ctx, "shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Cluster.GracefulShutdown.Timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutdown", err, nil)
	}
}

// runSupervisor spawns and heartbeat-monitors the worker pool and drives
// the autoscaler's control loop until ctx is cancelled (spec.md §4.5).
func runSupervisor(ctx context.Context, cm *config.Manager, logger *logging.Logger) {
	cfg := cm.Get()

	spec := cluster.WorkerSpec{
		Command: os.Args[0],
		Args:    os.Args[1:],
		Env:     append(os.Environ(), workerEnvFlag+"=1"),
	}

	supCfg := cluster.DefaultConfig()
	supCfg.Workers = resolveWorkerCount(cfg.Cluster.Workers)
	if cfg.Cluster.GracefulShutdown.Timeout > 0 {
		supCfg.DrainDeadline = cfg.Cluster.GracefulShutdown.Timeout
	}

	supervisor := cluster.NewSupervisor(spec, supCfg)
	if err := supervisor.Start(ctx); err != nil {
		logger.Fatal(ctx, "start cluster supervisor", err)
	}

	monitor := cpumonitor.New(cpumonitor.Config{}, logger)
	monitor.Start(ctx)
	defer monitor.Stop()

	autoCfg := cluster.AutoscalerConfig{
		Interval:     cfg.Cluster.AutoScale.ScaleInterval,
		CPUThreshold: cfg.Cluster.AutoScale.CPUThreshold,
		MemThreshold: cfg.Cluster.AutoScale.MemoryThreshold,
		MinWorkers:   cfg.Cluster.AutoScale.Min,
		MaxWorkers:   cfg.Cluster.AutoScale.Max,
	}
	autoscaler := cluster.NewAutoscaler(autoCfg, supervisor, monitor)
	autoscaler.Start(ctx)
	defer autoscaler.Stop()

	logger.Info(ctx, "cluster supervisor running", map[string]interface{}{"workers": supervisor.Count()})

	<-ctx.Done()
	logger.Info(ctx, "draining workers", nil)

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Cluster.GracefulShutdown.Timeout)
	defer cancel()
	supervisor.Shutdown(drainCtx)
}

// resolveWorkerCount accepts either an integer string or "auto" (spec.md
// §4.5's workers:"auto"|N), falling back to one worker per logical CPU.
func resolveWorkerCount(raw string) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// registerAccessPolicies wires a classify Policy for every enabled
// browser/terminal/mobile-only mode (spec.md §4.7).
func registerAccessPolicies(ctx context.Context, srv *pipeline.Server, sec config.SecurityConfig, logger *logging.Logger) {
	modes := []struct {
		mode classify.Mode
		cfg  config.ScoredAccessConfig
	}{
		{classify.ModeBrowserOnly, sec.BrowserOnly},
		{classify.ModeTerminalOnly, sec.TerminalOnly},
		{classify.ModeMobileOnly, sec.MobileOnly},
	}

	for _, m := range modes {
		if !m.cfg.Enabled {
			continue
		}
		policyCfg := classify.DefaultConfig()
		policyCfg.Mode = m.mode
		policyCfg.Threshold = m.cfg.Threshold
		policyCfg.DebugMode = m.cfg.DebugMode
		policyCfg.Routes = toSecurityRouteConfig(m.cfg.RouteConfig)

		policy := classify.New(policyCfg)
		if err := srv.Use(ctx, classify.NewPlugin(policy)); err != nil {
			logger.Fatal(ctx, "register classify plugin: "+string(m.mode), err)
		}
	}
}

// registerInjectionChain merges the five configured detector knobs into the
// chain's single DetectorConfig (the chain runs SQL, path-traversal,
// command, XXE and LDAP detectors together per request; it does not toggle
// them independently) and wires the chain's Reporter into the plugin
// engine's onSecurityAttack hook (spec.md §4.8).
func registerInjectionChain(ctx context.Context, srv *pipeline.Server, sec config.SecurityConfig, logger *logging.Logger) {
	detectors := []config.InjectionDetectorConfig{
		sec.SQLInjection, sec.PathTraversal, sec.CommandInjection, sec.XXEInjection, sec.LDAPInjection,
	}

	merged := inject.DefaultDetectorConfig()
	merged.Enabled = false
	threshold := 1.0
	for _, d := range detectors {
		if !d.Enabled {
			continue
		}
		merged.Enabled = true
		merged.BlockOnDetection = merged.BlockOnDetection || d.BlockOnDetection
		merged.ContextualAnalysis = merged.ContextualAnalysis || d.ContextualAnalysis
		if d.FalsePositiveThreshold > 0 && d.FalsePositiveThreshold < threshold {
			threshold = d.FalsePositiveThreshold
		}
	}
	if !merged.Enabled {
		return
	}
	merged.FalsePositiveThreshold = threshold

	chainCfg := inject.DefaultConfig()
	chainCfg.Detector = merged
	routes := toSecurityRouteConfig(sec.RouteConfig)
	chainCfg.Routes = inject.RouteConfig{Include: routes.Include, Exclude: routes.Exclude}

	chain := inject.NewChain(chainCfg)
	if err := srv.Use(ctx, inject.NewPlugin(chain)); err != nil {
		logger.Fatal(ctx, "register injection chain", err)
	}
	inject.WireReporter(chain, srv.Engine())
}

// registerXEMS wires the encrypted session store and its middleware plugin
// when enabled (spec.md §4.9).
func registerXEMS(ctx context.Context, srv *pipeline.Server, cfg config.XEMSConfig, logger *logging.Logger) {
	if !cfg.Enabled {
		return
	}
	xemsCfg := xems.DefaultConfig()
	if decoded, ok := hex.TryDecode(cfg.Secret); ok {
		xemsCfg.Secret = decoded
	} else {
		xemsCfg.Secret = []byte(cfg.Secret)
	}
	xemsCfg.CookieName = cfg.CookieName
	xemsCfg.HeaderName = cfg.HeaderName
	if cfg.DefaultTTL > 0 {
		xemsCfg.DefaultTTL = cfg.DefaultTTL
	}
	if cfg.GracePeriod > 0 {
		xemsCfg.GracePeriod = cfg.GracePeriod
	}
	if cfg.MaxRetention > 0 {
		xemsCfg.MaxRetention = cfg.MaxRetention
	}

	var store xems.Store
	if cfg.RedisAddr != "" {
		redisStore, err := xems.NewRedisStore(xems.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Fatal(ctx, "connect xems redis store", err)
		}
		store = redisStore
	} else {
		memStore := xems.NewMemoryStore(xemsCfg.DefaultTTL, time.Minute)
		srv.OnShutdown(memStore.Close)
		store = memStore
	}

	manager := xems.NewManager(xemsCfg, store)
	mwCfg := xems.MiddlewareConfig{Rotate: cfg.AutoRotation, TTL: xemsCfg.DefaultTTL, GracePeriod: xemsCfg.GracePeriod}
	if err := srv.Use(ctx, xems.NewPlugin(manager, mwCfg)); err != nil {
		logger.Fatal(ctx, "register xems plugin", err)
	}
}

// registerCPUMonitor wires the per-process CPU/memory sampler as a plugin
// so the registry starts and stops it alongside everything else.
func registerCPUMonitor(ctx context.Context, srv *pipeline.Server, logger *logging.Logger) {
	monitor := cpumonitor.New(cpumonitor.Config{}, logger)
	if err := monitor.Watch("xypriss", int32(os.Getpid())); err != nil {
		logger.Error(ctx, "watch process for cpu monitor", err, nil)
		return
	}
	if err := srv.Use(ctx, cpumonitor.NewPlugin(monitor)); err != nil {
		logger.Fatal(ctx, "register cpumonitor plugin", err)
	}
}

// registerUpstreamProxy mounts a reverse proxy over /proxy/ when
// XYPRISS_PROXY_UPSTREAMS (comma-separated weight@url pairs) is set,
// bypassing the router entirely for that prefix (spec.md §4.4).
func registerUpstreamProxy(ctx context.Context, srv *pipeline.Server, cfg config.Config, logger *logging.Logger) {
	raw := os.Getenv("XYPRISS_PROXY_UPSTREAMS")
	if raw == "" {
		return
	}
	upstreams, err := parseUpstreams(raw)
	if err != nil {
		logger.Fatal(ctx, "parse proxy upstreams", err)
	}
	balancer := proxy.NewBalancer(proxy.RoundRobin, upstreams)
	limitCfg := ratelimit.DefaultConfig()
	p := proxy.New(proxy.Config{
		Balancer:          balancer,
		Retries:           2,
		TrustProxy:        cfg.Server.TrustProxy,
		OutboundRateLimit: &limitCfg,
	})
	srv.Proxy("/proxy/", p)
}

func toSecurityRouteConfig(rc config.RouteConfig) security.RouteConfig {
	return security.RouteConfig{Include: rc.Include, Exclude: rc.Exclude}
}

// parseUpstreams parses "weight@url,weight@url,..." (weight optional,
// defaults to 1) into Upstream records for the Balancer.
func parseUpstreams(raw string) ([]*proxy.Upstream, error) {
	var ups []*proxy.Upstream
	for _, entry := range utils.TrimEmpty(utils.SplitTrim(raw, ",")) {
		weight := 1
		url := entry
		if idx := strings.IndexByte(entry, '@'); idx >= 0 {
			if w, err := strconv.Atoi(entry[:idx]); err == nil && w > 0 {
				weight = w
			}
			url = entry[idx+1:]
		}
		u, err := proxy.NewUpstream(url, weight)
		if err != nil {
			return nil, fmt.Errorf("proxy upstream %q: %w", entry, err)
		}
		ups = append(ups, u)
	}
	return ups, nil
}
