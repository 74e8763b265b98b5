package connection

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates_OnlyForHTMLRequests(t *testing.T) {
	assert.NotEmpty(t, Candidates("/index.html", "text/html"))
	assert.Nil(t, Candidates("/api/users", "application/json"))
}

func TestShouldPush_MissingFileIsNotEligible(t *testing.T) {
	dir := t.TempDir()
	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)

	_, ok := ShouldPush(dir, Candidate{Path: "/index.css", Class: AssetDaily}, req)
	assert.False(t, ok)
}

func TestShouldPush_ExistingFileIsEligible(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.css"), []byte("body{}"), 0o644))
	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)

	full, ok := ShouldPush(dir, Candidate{Path: "index.css", Class: AssetDaily}, req)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "index.css"), full)
}

func TestShouldPush_SaveDataVetoesNonImmutableAssets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.css"), []byte("body{}"), 0o644))
	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	req.Header.Set("Save-Data", "on")

	_, ok := ShouldPush(dir, Candidate{Path: "index.css", Class: AssetDaily}, req)
	assert.False(t, ok)
}

func TestShouldPush_MatchingETagIsNotStale(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.css"), []byte("body{}"), 0o644))
	info, err := os.Stat(filepath.Join(dir, "index.css"))
	require.NoError(t, err)
	etag := ComputeETag("index.css", info.ModTime(), info.Size())

	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	req.Header.Set("If-None-Match", etag)

	_, ok := ShouldPush(dir, Candidate{Path: "index.css", Class: AssetDaily}, req)
	assert.False(t, ok)
}

func TestCacheControl_VariesByClass(t *testing.T) {
	assert.Contains(t, CacheControl(AssetImmutable), "immutable")
	assert.Contains(t, CacheControl(AssetDaily), "max-age=86400")
	assert.Contains(t, CacheControl(AssetHourly), "max-age=3600")
}

type noPushWriter struct{ http.ResponseWriter }

func TestPushCandidates_NoOpsWithoutPusherOrHTTP2(t *testing.T) {
	dir := t.TempDir()
	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	w := httptest.NewRecorder()

	// httptest.ResponseRecorder does not implement http.Pusher, so this
	// must silently no-op rather than panic on a type assertion.
	PushCandidates(w, req, dir, true)
	PushCandidates(noPushWriter{w}, req, dir, false)
}
