package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xypriss/xypriss/infrastructure/logging"
)

// Registry owns the set of registered plugins and their computed execution
// order. It is read-mostly after boot — Register after initialize() takes
// the write lock and fully re-integrates the plugin inline (spec.md §5
// "Plugin registry: read-mostly after boot; writes... take a write lock").
// The locking shape follows system/core/registry.go's Registry.
type Registry struct {
	mu   sync.RWMutex
	log  *logging.Logger
	deps *dependencyGraph

	plugins      map[string]*Plugin
	order        []string // plugin ids in registration order (input to resolveOrder)
	resolved     []string // last successfully resolved execution order
	initialized  bool
}

// NewRegistry builds an empty Registry.
func NewRegistry(log *logging.Logger) *Registry {
	if log == nil {
		log = logging.Default()
	}
	return &Registry{
		log:     log,
		deps:    newDependencyGraph(),
		plugins: make(map[string]*Plugin),
	}
}

// Register validates and adds a plugin. Duplicate ids are rejected with a
// logged warning rather than an error, matching spec.md §4.1's
// "rejects duplicates by logging a warning and returning". If the registry
// has already completed initialize(), the plugin is integrated immediately:
// the dependency order is recomputed and onServerStart/onServerReady fire
// for the newcomer only.
func (r *Registry) Register(ctx context.Context, p *Plugin) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.plugins[p.ID]; exists {
		r.mu.Unlock()
		r.log.Warn(ctx, "plugin already registered, ignoring", map[string]interface{}{"plugin_id": p.ID})
		return nil
	}

	r.plugins[p.ID] = p
	r.order = append(r.order, p.ID)
	r.deps.set(p.ID, p.Dependencies...)
	wasInitialized := r.initialized
	r.mu.Unlock()

	if p.Hooks.OnRegister != nil {
		if err := p.Hooks.OnRegister(ctx); err != nil {
			r.log.Warn(ctx, "plugin onRegister hook failed", map[string]interface{}{"plugin_id": p.ID, "error": err.Error()})
		}
	}

	if !wasInitialized {
		return nil
	}

	if err := r.recomputeOrder(); err != nil {
		return err
	}
	if p.Hooks.OnServerStart != nil {
		if err := p.Hooks.OnServerStart(ctx); err != nil {
			return fmt.Errorf("plugin: late registration %q onServerStart: %w", p.ID, err)
		}
	}
	if p.Hooks.OnServerReady != nil {
		if err := p.Hooks.OnServerReady(ctx); err != nil {
			return fmt.Errorf("plugin: late registration %q onServerReady: %w", p.ID, err)
		}
	}
	return nil
}

// Unregister removes a plugin and drops its dependency record.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.plugins, id)
	r.deps.remove(id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	for i, existing := range r.resolved {
		if existing == id {
			r.resolved = append(r.resolved[:i], r.resolved[i+1:]...)
			break
		}
	}
}

// Lookup returns the plugin with the given id, if registered.
func (r *Registry) Lookup(id string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[id]
	return p, ok
}

// Plugins returns the registered plugins in resolved execution order (or
// registration order, before Initialize has run).
func (r *Registry) Plugins() []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.resolved
	if len(ids) == 0 {
		ids = r.order
	}
	out := make([]*Plugin, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.plugins[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Initialize resolves the dependency order (priority-stable within each
// dependency layer), marks the registry initialized, and fires
// onServerStart on every plugin in that order (spec.md §4.1 "initialize()").
func (r *Registry) Initialize(ctx context.Context) error {
	if err := r.recomputeOrder(); err != nil {
		return err
	}

	r.mu.Lock()
	r.initialized = true
	ordered := append([]string(nil), r.resolved...)
	r.mu.Unlock()

	for _, id := range ordered {
		p, ok := r.Lookup(id)
		if !ok || p.Hooks.OnServerStart == nil {
			continue
		}
		if err := p.Hooks.OnServerStart(ctx); err != nil {
			return fmt.Errorf("plugin: %q onServerStart: %w", id, err)
		}
	}
	return nil
}

// Ready fires onServerReady on every plugin in resolved order, once the
// transport is actually listening.
func (r *Registry) Ready(ctx context.Context) {
	for _, p := range r.Plugins() {
		if p.Hooks.OnServerReady == nil {
			continue
		}
		if err := p.Hooks.OnServerReady(ctx); err != nil {
			r.log.Warn(ctx, "plugin onServerReady hook failed", map[string]interface{}{"plugin_id": p.ID, "error": err.Error()})
		}
	}
}

// Stop fires onServerStop on every plugin in reverse resolved order.
func (r *Registry) Stop(ctx context.Context) {
	plugins := r.Plugins()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if p.Hooks.OnServerStop == nil {
			continue
		}
		if err := p.Hooks.OnServerStop(ctx); err != nil {
			r.log.Warn(ctx, "plugin onServerStop hook failed", map[string]interface{}{"plugin_id": p.ID, "error": err.Error()})
		}
	}
}

func (r *Registry) recomputeOrder() error {
	r.mu.Lock()
	ids := append([]string(nil), r.order...)
	plugins := make(map[string]*Plugin, len(r.plugins))
	for k, v := range r.plugins {
		plugins[k] = v
	}
	r.mu.Unlock()

	if err := r.deps.verify(ids); err != nil {
		return err
	}

	// Stable sort by priority first so resolveOrder's "preserve input
	// order within a layer" behavior yields priority order within each
	// dependency layer (critical < high < normal < low).
	sort.SliceStable(ids, func(i, j int) bool {
		return plugins[ids[i]].Priority.rank() < plugins[ids[j]].Priority.rank()
	})

	resolved, err := r.deps.resolveOrder(ids)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.resolved = resolved
	r.mu.Unlock()
	return nil
}
