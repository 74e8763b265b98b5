package compression

import (
	"bytes"
	"net/http"
)

// Config controls negotiation and the size threshold below which
// compression is skipped even for an accepted, allowed algorithm.
type Config struct {
	AllowList []Algorithm
	Threshold int // bytes; default 1 KiB per spec.md §4.3

	// Veto, when non-nil, can force identity encoding for a specific
	// request regardless of negotiation (e.g. streaming endpoints).
	Veto func(r *http.Request) bool
}

// DefaultConfig allows every supported algorithm with the spec's default
// 1 KiB threshold.
func DefaultConfig() Config {
	return Config{
		AllowList: []Algorithm{Brotli, Gzip, Deflate},
		Threshold: 1024,
	}
}

// Middleware buffers the handler's response so the threshold check can see
// the full body size before committing to an encoding, then negotiates
// and applies compression (grounded on the teacher's plain
// func(http.Handler) http.Handler middleware shape).
func Middleware(cfg Config) func(http.Handler) http.Handler {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buf := &bufferingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(buf, r)
			buf.flush(cfg, r)
		})
	}
}

// bufferingWriter accumulates the handler's output instead of writing it
// immediately, so the full body length is known before an encoding
// decision is made.
type bufferingWriter struct {
	http.ResponseWriter
	body          bytes.Buffer
	status        int
	headerWritten bool
}

func (b *bufferingWriter) WriteHeader(status int) {
	b.status = status
	b.headerWritten = true
}

func (b *bufferingWriter) Write(p []byte) (int, error) {
	return b.body.Write(p)
}

func (b *bufferingWriter) flush(cfg Config, r *http.Request) {
	body := b.body.Bytes()
	algorithm := Identity

	veto := cfg.Veto != nil && cfg.Veto(r)
	if !veto && len(body) > cfg.Threshold {
		algorithm = Negotiate(r.Header.Get("Accept-Encoding"), cfg.AllowList)
	}

	if algorithm == Identity {
		b.ResponseWriter.WriteHeader(b.status)
		b.ResponseWriter.Write(body)
		return
	}

	b.ResponseWriter.Header().Set("Content-Encoding", string(algorithm))
	b.ResponseWriter.Header().Add("Vary", "Accept-Encoding")
	b.ResponseWriter.Header().Del("Content-Length")
	b.ResponseWriter.WriteHeader(b.status)

	cw := AcquireWriter(algorithm, b.ResponseWriter)
	cw.Write(body)
	cw.Close()
	ReleaseWriter(algorithm, cw)
}
