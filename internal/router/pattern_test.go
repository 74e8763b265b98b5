package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompilePattern_Specificity(t *testing.T) {
	exact := compilePattern("/users/active")
	param := compilePattern("/users/:id")
	wildcard := compilePattern("/users/*")

	assert.Less(t, exact.specificity, param.specificity)
	assert.Less(t, param.specificity, wildcard.specificity)
}

func TestCompiledPattern_MatchExact(t *testing.T) {
	cp := compilePattern("/health")
	params, ok := cp.match("/health")
	assert.True(t, ok)
	assert.Empty(t, params)

	_, ok = cp.match("/healthz")
	assert.False(t, ok)
}

func TestCompiledPattern_MatchParam(t *testing.T) {
	cp := compilePattern("/users/:id")
	params, ok := cp.match("/users/42")
	assert.True(t, ok)
	assert.Equal(t, "42", params["id"])
}

func TestCompiledPattern_MatchWildcard(t *testing.T) {
	cp := compilePattern("/static/*")
	params, ok := cp.match("/static/js/app.js")
	assert.True(t, ok)
	assert.Equal(t, "js/app.js", params["*"])
}

func TestCompiledPattern_MismatchedSegmentCount(t *testing.T) {
	cp := compilePattern("/users/:id")
	_, ok := cp.match("/users/42/edit")
	assert.False(t, ok)
}
