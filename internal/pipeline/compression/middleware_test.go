package compression

import (
	"bytes"
	"compress/flate"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handlerWithBody(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
}

func TestMiddleware_CompressesAboveThreshold(t *testing.T) {
	cfg := Config{AllowList: []Algorithm{Gzip}, Threshold: 10}
	handler := Middleware(cfg)(handlerWithBody(strings.Repeat("x", 100)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	gr, err := gzip.NewReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	decoded, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 100), string(decoded))
}

func TestMiddleware_SkipsCompressionBelowThreshold(t *testing.T) {
	cfg := Config{AllowList: []Algorithm{Gzip}, Threshold: 1024}
	handler := Middleware(cfg)(handlerWithBody("tiny"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "tiny", w.Body.String())
}

func TestMiddleware_ExactThresholdBytesUncompressed(t *testing.T) {
	cfg := Config{AllowList: []Algorithm{Gzip}, Threshold: 10}
	handler := Middleware(cfg)(handlerWithBody(strings.Repeat("x", 10)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Content-Encoding"), "a body of exactly threshold bytes must not be compressed")
	assert.Equal(t, strings.Repeat("x", 10), w.Body.String())
}

func TestMiddleware_ThresholdPlusOneByteCompressed(t *testing.T) {
	cfg := Config{AllowList: []Algorithm{Gzip}, Threshold: 10}
	handler := Middleware(cfg)(handlerWithBody(strings.Repeat("x", 11)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"), "a body one byte over threshold must be compressed")
}

func TestMiddleware_NeverUsesAlgorithmOutsideAllowListEvenIfLarger(t *testing.T) {
	cfg := Config{AllowList: []Algorithm{Deflate}, Threshold: 1}
	handler := Middleware(cfg)(handlerWithBody(strings.Repeat("y", 50)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "br, gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Content-Encoding"), "client did not accept deflate, and config forbids br/gzip")
	assert.Equal(t, strings.Repeat("y", 50), w.Body.String())
}

func TestMiddleware_VetoForcesIdentity(t *testing.T) {
	cfg := Config{AllowList: []Algorithm{Gzip}, Threshold: 1, Veto: func(r *http.Request) bool { return true }}
	handler := Middleware(cfg)(handlerWithBody(strings.Repeat("z", 50)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func TestMiddleware_BrotliRoundTrips(t *testing.T) {
	cfg := Config{AllowList: []Algorithm{Brotli}, Threshold: 1}
	handler := Middleware(cfg)(handlerWithBody(strings.Repeat("w", 200)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "br")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	decoded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("w", 200), string(decoded))
}

func TestMiddleware_DeflateRoundTrips(t *testing.T) {
	cfg := Config{AllowList: []Algorithm{Deflate}, Threshold: 1}
	handler := Middleware(cfg)(handlerWithBody(strings.Repeat("v", 200)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "deflate")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "deflate", w.Header().Get("Content-Encoding"))
	fr := flate.NewReader(bytes.NewReader(w.Body.Bytes()))
	decoded, err := io.ReadAll(fr)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("v", 200), string(decoded))
}
