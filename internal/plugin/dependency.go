package plugin

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// dependencyGraph tracks declared plugin dependencies and computes a
// registration order that honors them. The waiting-set algorithm and its
// cycle-detection error shape follow the teacher's module dependency
// manager; what changed is that names are pre-sorted by Priority before
// resolution so that, within a dependency layer, critical plugins come
// before high, high before normal, normal before low (spec.md §4.1).
type dependencyGraph struct {
	mu   sync.RWMutex
	deps map[string][]string
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{deps: make(map[string][]string)}
}

func (d *dependencyGraph) set(id string, deps ...string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	filtered := make([]string, 0, len(deps))
	for _, dep := range deps {
		if dep = strings.TrimSpace(dep); dep != "" {
			filtered = append(filtered, dep)
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deps[id] = filtered
}

func (d *dependencyGraph) remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.deps, id)
}

// verify ensures every declared dependency is itself a registered plugin.
func (d *dependencyGraph) verify(registered []string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	have := make(map[string]bool, len(registered))
	for _, id := range registered {
		have[id] = true
	}
	for id, deps := range d.deps {
		for _, dep := range deps {
			if !have[dep] {
				return fmt.Errorf("plugin %q depends on unregistered plugin %q", id, dep)
			}
		}
	}
	return nil
}

// resolveOrder returns ids ordered so that every dependency precedes its
// dependents, and — among plugins with no ordering constraint between them
// — in the order they were supplied (callers pre-sort by priority so this
// preserves priority within a dependency layer). An unresolvable set
// (cycle, or a dependency missing from ids) is reported with the full list
// of ids that never became ready.
func (d *dependencyGraph) resolveOrder(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return ids, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	resolved := make([]string, 0, len(ids))
	done := make(map[string]bool, len(ids))

	for len(resolved) < len(ids) {
		progressed := false

		for _, id := range ids {
			if done[id] {
				continue
			}

			waiting := false
			for _, dep := range d.deps[id] {
				if !set[dep] {
					continue
				}
				if !done[dep] {
					waiting = true
					break
				}
			}
			if waiting {
				continue
			}

			resolved = append(resolved, id)
			done[id] = true
			progressed = true
		}

		if !progressed {
			var unresolved []string
			for _, id := range ids {
				if !done[id] {
					unresolved = append(unresolved, id)
				}
			}
			sort.Strings(unresolved)
			return nil, fmt.Errorf("plugin: dependency cycle or unresolved dependencies among: %v", unresolved)
		}
	}

	return resolved, nil
}
