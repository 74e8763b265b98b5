package plugin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/xypriss/xypriss/infrastructure/cache"
	"github.com/xypriss/xypriss/infrastructure/errors"
	"github.com/xypriss/xypriss/infrastructure/logging"
	"github.com/xypriss/xypriss/infrastructure/resilience"
)

// Engine runs the resolved plugin chain against each request. It owns the
// per-plugin circuit breakers and the cacheable-plugin result cache.
type Engine struct {
	registry *Registry
	pool     *ContextPool
	log      *logging.Logger
	cache    *cache.Cache

	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
}

// NewEngine builds an Engine over an already-populated Registry.
func NewEngine(registry *Registry, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Default()
	}
	return &Engine{
		registry: registry,
		pool:     NewContextPool(),
		log:      log,
		cache:    cache.NewCache(cache.DefaultConfig()),
		breakers: make(map[string]*resilience.CircuitBreaker),
	}
}

func (e *Engine) breakerFor(p *Plugin) *resilience.CircuitBreaker {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.breakers[p.ID]; ok {
		return b
	}
	b := breakerFor(5, 30*time.Second, func(from, to resilience.State) {
		e.log.LogCircuitBreaker(context.Background(), p.ID, from.String(), to.String())
	})
	e.breakers[p.ID] = b
	return b
}

// BreakerState exposes the current circuit-breaker state for a plugin
// (used by health reporting, per §4.1 "health reports surface the count").
func (e *Engine) BreakerState(pluginID string) (resilience.State, bool) {
	e.mu.Lock()
	b, ok := e.breakers[pluginID]
	e.mu.Unlock()
	if !ok {
		return resilience.StateClosed, false
	}
	return b.State(), true
}

// Acquire pulls a fresh ExecutionContext for an incoming request.
func (e *Engine) Acquire(ctx context.Context, r *http.Request, w http.ResponseWriter, net NetworkContext) *ExecutionContext {
	return e.pool.Acquire(ctx, r, w, net)
}

// Release returns ec to the pool.
func (e *Engine) Release(ec *ExecutionContext) {
	e.pool.Release(ec)
}

// RunRequest executes onRequest across every registered plugin in resolved
// order. Every plugin runs through its circuit breaker, and one with a
// MaxExecutionTime gets runWithBudget's soft deadline. A critical plugin's
// failure aborts the chain; any other plugin's failure is logged and the
// chain goes on (spec.md §4.1 "Failure semantics"). Execution stops early if a plugin's result carries
// ShouldContinue=false.
func (e *Engine) RunRequest(ec *ExecutionContext) error {
	for _, p := range e.registry.Plugins() {
		if p.Hooks.OnRequest == nil && p.Hooks.Execute == nil {
			continue
		}

		result, err := e.runOne(ec, p)
		if err != nil && p.Priority == PriorityCritical {
			return errors.PluginFailed(p.ID, err)
		}
		if result != nil && !result.ShouldContinue {
			return nil
		}
	}
	return nil
}

func (e *Engine) runOne(ec *ExecutionContext, p *Plugin) (*Result, error) {
	hook := p.Hooks.OnRequest
	if hook == nil {
		hook = p.Hooks.Execute
	}

	if p.Cacheable {
		if cached, ok := e.cache.Get(e.fingerprint(p, ec)); ok {
			if result, ok := cached.(*Result); ok {
				return result, nil
			}
		}
	}

	start := time.Now()
	var result *Result
	runErr := e.breakerFor(p).Execute(ec.Context, func() error {
		r, err := e.runWithBudget(ec, p, hook)
		result = r
		return err
	})
	duration := time.Since(start)

	success := runErr == nil
	e.log.LogPluginExecution(ec.Context, p.ID, duration, success, runErr)

	if runErr != nil {
		return &Result{Success: false, ExecutionTime: duration, ShouldContinue: p.Priority != PriorityCritical, Err: runErr}, runErr
	}

	if result == nil {
		result = &Result{Success: true, ShouldContinue: true}
	}
	result.ExecutionTime = duration

	if p.Cacheable && result.Success {
		e.cache.Set(e.fingerprint(p, ec), result, 0)
	}

	return result, nil
}

// runWithBudget enforces MaxExecutionTime as a soft deadline: the hook
// still runs to completion (Go has no safe preemption primitive), but a
// result arriving after the budget is treated as a failure so the circuit
// breaker counts it.
func (e *Engine) runWithBudget(ec *ExecutionContext, p *Plugin, hook func(context.Context, *ExecutionContext) (*Result, error)) (*Result, error) {
	if p.MaxExecutionTime <= 0 {
		return hook(ec.Context, ec)
	}

	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := hook(ec.Context, ec)
		done <- outcome{r, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-time.After(p.MaxExecutionTime):
		return nil, errors.PluginBudgetExceeded(p.ID, p.MaxExecutionTime)
	}
}

// fingerprint computes the cache key for a cacheable plugin's result, from
// the request method/path/query — the "request-relevant fields" a plugin's
// contract declares (spec.md §4.1). Plugins needing a richer fingerprint
// can still set ec.Data["cache_key"] to override this.
func (e *Engine) fingerprint(p *Plugin, ec *ExecutionContext) string {
	if override, ok := ec.Data["cache_key"].(string); ok && override != "" {
		return p.ID + ":" + override
	}
	h := sha256.New()
	if ec.Request != nil {
		h.Write([]byte(ec.Request.Method))
		h.Write([]byte(ec.Request.URL.Path))
		h.Write([]byte(ec.Request.URL.RawQuery))
	}
	return p.ID + ":" + hex.EncodeToString(h.Sum(nil))
}

// ExecuteHook runs the named lifecycle hook on every plugin in resolved
// order. A hook that errors is logged and does not abort the loop
// (spec.md §4.1 "executeHook").
func (e *Engine) ExecuteHook(ctx context.Context, hook HookName) {
	for _, p := range e.registry.Plugins() {
		var err error
		switch hook {
		case HookOnServerStart:
			if p.Hooks.OnServerStart != nil {
				err = p.Hooks.OnServerStart(ctx)
			}
		case HookOnServerReady:
			if p.Hooks.OnServerReady != nil {
				err = p.Hooks.OnServerReady(ctx)
			}
		case HookOnServerStop:
			if p.Hooks.OnServerStop != nil {
				err = p.Hooks.OnServerStop(ctx)
			}
		}
		if err != nil {
			e.log.Warn(ctx, "plugin hook failed", map[string]interface{}{"plugin_id": p.ID, "hook": string(hook), "error": err.Error()})
		}
	}
}

// RunResponse runs onResponse across every plugin in resolved order,
// collecting header Modifications for the caller to apply.
func (e *Engine) RunResponse(ec *ExecutionContext) {
	for _, p := range e.registry.Plugins() {
		if p.Hooks.OnResponse == nil {
			continue
		}
		result, err := p.Hooks.OnResponse(ec.Context, ec)
		if err != nil {
			e.log.Warn(ec.Context, "plugin onResponse hook failed", map[string]interface{}{"plugin_id": p.ID, "error": err.Error()})
			continue
		}
		if result == nil {
			continue
		}
		for k, v := range result.Modifications {
			ec.Modifications[k] = v
		}
	}
}

// RunSecurityAttack dispatches attackData to every plugin's onSecurityAttack
// hook in resolved order (spec.md §4.8 "Reporting"). Hooks cannot abort
// the chain; the request has already been decided by the time this fires.
func (e *Engine) RunSecurityAttack(ec *ExecutionContext, attackData map[string]interface{}) {
	for _, p := range e.registry.Plugins() {
		if p.Hooks.OnSecurityAttack == nil {
			continue
		}
		p.Hooks.OnSecurityAttack(ec.Context, ec, attackData)
	}
}

// RunError dispatches err to every plugin's onError hook in resolved
// order; the first hook whose result reports the response already sent
// (ShouldContinue=false) wins and RunError stops.
func (e *Engine) RunError(ec *ExecutionContext, handlerErr error) (handled bool) {
	for _, p := range e.registry.Plugins() {
		if p.Hooks.OnError == nil {
			continue
		}
		result, err := p.Hooks.OnError(ec.Context, ec, handlerErr)
		if err != nil {
			e.log.Warn(ec.Context, "plugin onError hook failed", map[string]interface{}{"plugin_id": p.ID, "error": err.Error()})
			continue
		}
		if result != nil && !result.ShouldContinue {
			return true
		}
	}
	return false
}

// ApplyMiddleware composes every plugin's contributed middleware into the
// three buckets (first, normal, last) and wraps base with them in that
// order (spec.md §4.1 "applyMiddleware").
func (e *Engine) ApplyMiddleware(base http.Handler) http.Handler {
	var first, normal, last []func(http.Handler) http.Handler

	for _, p := range e.registry.Plugins() {
		for _, entry := range p.Middleware {
			switch entry.Priority {
			case MiddlewareFirst:
				first = append(first, entry.Middleware)
			case MiddlewareLast:
				last = append(last, entry.Middleware)
			default:
				normal = append(normal, entry.Middleware)
			}
		}
	}

	ordered := make([]func(http.Handler) http.Handler, 0, len(first)+len(normal)+len(last))
	ordered = append(ordered, first...)
	ordered = append(ordered, normal...)
	ordered = append(ordered, last...)

	handler := base
	for i := len(ordered) - 1; i >= 0; i-- {
		handler = ordered[i](handler)
	}
	return handler
}

// ApplyErrorHandlers wraps h so a panic inside it is routed to every
// plugin's onError hook before a 500 is written, matching spec.md §4.1
// "applyErrorHandlers".
func (e *Engine) ApplyErrorHandlers(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("plugin: recovered panic in handler: %v", rec)
				ec := e.Acquire(r.Context(), r, w, NetworkContext{RemoteAddr: r.RemoteAddr})
				defer e.Release(ec)
				if !e.RunError(ec, err) {
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}
		}()
		h.ServeHTTP(w, r)
	})
}

// Close stops the engine's result-cache cleanup goroutine. Safe to call
// more than once.
func (e *Engine) Close() {
	e.cache.Stop()
}

// sortedIDs returns the ids of plugins sorted alphabetically.
func sortedIDs(plugins []*Plugin) []string {
	ids := make([]string, len(plugins))
	for i, p := range plugins {
		ids[i] = p.ID
	}
	sort.Strings(ids)
	return ids
}
