package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/xypriss/xypriss/infrastructure/utils"
)

// ChangeListener is notified after a successful Update, following the
// teacher's health-monitor-as-observer pattern (infrastructure/service).
type ChangeListener func(cfg Config)

// Manager owns the single process-wide Config instance. update takes a
// write lock, deep-merges, and emits a change event, matching spec.md §5's
// "Configuration Manager: singleton... emits a change event" shared-resource
// policy. Components should receive a *Manager through their constructor
// (injected dependency, per Design Notes) rather than reaching for Global()
// except from bootstrap code.
type Manager struct {
	mu        sync.RWMutex
	cfg       Config
	raw       map[string]interface{}
	listeners []ChangeListener
}

// NewManager builds a Manager seeded with the given config.
func NewManager(initial Config) *Manager {
	raw, err := toRaw(initial)
	if err != nil {
		// Default() always round-trips through JSON cleanly; a caller
		// supplying an unmarshalable Config is a programmer error.
		panic(fmt.Sprintf("config: initial config is not JSON-representable: %v", err))
	}
	return &Manager{cfg: initial, raw: raw}
}

// NewDefaultManager builds a Manager seeded with Default().
func NewDefaultManager() *Manager {
	return NewManager(Default())
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// OnChange registers a listener invoked after every successful Update.
func (m *Manager) OnChange(l ChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Update deep-merges patch into the current configuration and replaces the
// typed Config from the result. Object subtrees merge recursively; arrays
// concatenate (additive, per spec.md §3/§8's "arrays-as-lists" semantics).
// A subtree containing ImmutableFlag=true rejects any write that would
// change one of its existing values — it fails loudly with an error naming
// the offending key path, never silently dropping the write.
func (m *Manager) Update(patch map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged, err := deepMerge(m.raw, patch, nil)
	if err != nil {
		return err
	}

	var next Config
	b, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("config: re-encode merged tree: %w", err)
	}
	if err := json.Unmarshal(b, &next); err != nil {
		return fmt.Errorf("config: decode merged tree: %w", err)
	}

	m.raw = merged
	m.cfg = next

	listeners := append([]ChangeListener(nil), m.listeners...)
	cfgCopy := m.cfg
	// Listeners run without the lock held so they may call Get() safely. A
	// panicking listener must not take down the process that triggered the
	// config update that happened to run it.
	utils.SafeGo(func() {
		for _, l := range listeners {
			l(cfgCopy)
		}
	}, func(err error) {
		log.Printf("config: change listener panicked: %v", err)
	})

	return nil
}

// Raw returns a deep copy of the internal generic tree, useful for
// inspection/diagnostics.
func (m *Manager) Raw() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out, _ := deepMerge(nil, m.raw, nil)
	return out
}

func toRaw(cfg Config) (map[string]interface{}, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// deepMerge merges src into dst (both possibly nil) and returns the result.
// path accumulates the key path for error messages. Maps merge key-by-key;
// slices concatenate; any other type in src replaces dst's value, subject
// to the immutability check.
func deepMerge(dst, src map[string]interface{}, path []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}

	immutable, _ := out[ImmutableFlag].(bool)

	for k, sv := range src {
		if k == ImmutableFlag {
			out[k] = sv
			continue
		}
		childPath := append(append([]string{}, path...), k)

		dv, existed := out[k]
		if !existed {
			out[k] = sv
			continue
		}

		if immutable {
			// A partial object patch is accepted when merging it leaves
			// every existing value unchanged.
			dm, dok := dv.(map[string]interface{})
			sm, sok := sv.(map[string]interface{})
			if dok && sok {
				if merged, err := deepMerge(dm, sm, childPath); err == nil && valuesEqual(dm, merged) {
					out[k] = merged
					continue
				}
			}
			if !valuesEqual(dv, sv) {
				return nil, fmt.Errorf("config: %s is immutable, cannot change value", joinPath(childPath))
			}
		}

		switch svt := sv.(type) {
		case map[string]interface{}:
			dvt, ok := dv.(map[string]interface{})
			if !ok {
				if immutable {
					return nil, fmt.Errorf("config: %s is immutable, cannot change type", joinPath(childPath))
				}
				out[k] = svt
				continue
			}
			merged, err := deepMerge(dvt, svt, childPath)
			if err != nil {
				return nil, err
			}
			out[k] = merged
		case []interface{}:
			dvt, ok := dv.([]interface{})
			if !ok {
				out[k] = svt
				continue
			}
			out[k] = append(append([]interface{}{}, dvt...), svt...)
		default:
			out[k] = sv
		}
	}

	return out, nil
}

func valuesEqual(a, b interface{}) bool {
	ab, aerr := json.Marshal(a)
	bb, berr := json.Marshal(b)
	if aerr != nil || berr != nil {
		return false
	}
	return string(ab) == string(bb)
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

var (
	globalMu sync.RWMutex
	global   *Manager
)

// Global returns the process-wide Manager, creating one seeded with
// Default() on first use. Per Design Notes this is "an internal
// convenience for scripts, not a load-bearing mechanism" — prefer passing
// a *Manager explicitly to component constructors.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = NewDefaultManager()
	}
	return global
}

// SetGlobal installs m as the process-wide Manager (e.g. at boot, after
// loading env/file configuration).
func SetGlobal(m *Manager) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = m
}
