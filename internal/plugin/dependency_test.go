package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyGraph_ResolveOrderRespectsDependencies(t *testing.T) {
	g := newDependencyGraph()
	g.set("compression", "connection")
	g.set("connection")

	order, err := g.resolveOrder([]string{"compression", "connection"})
	require.NoError(t, err)
	assert.Equal(t, []string{"connection", "compression"}, order)
}

func TestDependencyGraph_PreservesInputOrderWithinLayer(t *testing.T) {
	g := newDependencyGraph()
	order, err := g.resolveOrder([]string{"b", "a", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, order)
}

func TestDependencyGraph_CycleIsReported(t *testing.T) {
	g := newDependencyGraph()
	g.set("a", "b")
	g.set("b", "a")

	_, err := g.resolveOrder([]string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestDependencyGraph_VerifyCatchesMissingDependency(t *testing.T) {
	g := newDependencyGraph()
	g.set("compression", "connection")

	err := g.verify([]string{"compression"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection")
}
