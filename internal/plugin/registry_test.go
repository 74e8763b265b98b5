package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlugin(id string, priority Priority, deps ...string) *Plugin {
	return &Plugin{
		ID:           id,
		Name:         id,
		Version:      "1.0.0",
		Priority:     priority,
		Dependencies: deps,
		Hooks: Hooks{
			Execute: func(ctx context.Context, ec *ExecutionContext) (*Result, error) {
				return &Result{Success: true, ShouldContinue: true}, nil
			},
		},
	}
}

func TestRegistry_RegisterRejectsMissingFields(t *testing.T) {
	r := NewRegistry(nil)
	err := r.Register(context.Background(), &Plugin{Name: "no-id"})
	assert.Error(t, err)
}

func TestRegistry_RegisterIgnoresDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(context.Background(), testPlugin("auth", PriorityNormal)))
	require.NoError(t, r.Register(context.Background(), testPlugin("auth", PriorityNormal)))
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_InitializeOrdersByDependencyThenPriority(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(context.Background(), testPlugin("low-prio", PriorityLow)))
	require.NoError(t, r.Register(context.Background(), testPlugin("critical", PriorityCritical)))
	require.NoError(t, r.Register(context.Background(), testPlugin("connection", PriorityHigh)))
	require.NoError(t, r.Register(context.Background(), testPlugin("compression", PriorityHigh, "connection")))

	require.NoError(t, r.Initialize(context.Background()))

	var ids []string
	for _, p := range r.Plugins() {
		ids = append(ids, p.ID)
	}

	assert.Equal(t, "critical", ids[0])
	connIdx, compIdx := -1, -1
	for i, id := range ids {
		if id == "connection" {
			connIdx = i
		}
		if id == "compression" {
			compIdx = i
		}
	}
	assert.Less(t, connIdx, compIdx, "connection must precede its dependent compression")
}

func TestRegistry_InitializeFailsOnCycle(t *testing.T) {
	r := NewRegistry(nil)
	a := testPlugin("a", PriorityNormal, "b")
	b := testPlugin("b", PriorityNormal, "a")
	require.NoError(t, r.Register(context.Background(), a))
	require.NoError(t, r.Register(context.Background(), b))

	err := r.Initialize(context.Background())
	assert.Error(t, err)
}

func TestRegistry_LateRegistrationAfterInitializeIntegratesImmediately(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(context.Background(), testPlugin("first", PriorityNormal)))
	require.NoError(t, r.Initialize(context.Background()))

	started := false
	late := testPlugin("late", PriorityNormal)
	late.Hooks.OnServerStart = func(ctx context.Context) error {
		started = true
		return nil
	}
	require.NoError(t, r.Register(context.Background(), late))
	assert.True(t, started)
	assert.Equal(t, 2, r.Count())
}
