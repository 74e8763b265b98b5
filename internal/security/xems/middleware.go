package xems

import (
	"context"
	"net/http"
	"time"
)

type contextKey string

const sessionContextKey contextKey = "xems_session"

// FromContext returns the payload a Middleware attached to the request, if
// any (spec.md §4.9 "attaches req[attachTo] = data").
func FromContext(ctx context.Context) ([]byte, bool) {
	v, ok := ctx.Value(sessionContextKey).([]byte)
	return v, ok
}

// MiddlewareConfig binds a Manager to one sandbox and rotation policy.
type MiddlewareConfig struct {
	Sandbox     string
	Rotate      bool
	TTL         time.Duration
	GracePeriod time.Duration
}

// Middleware extracts a token from MiddlewareConfig's cookie/header,
// resolves it, and attaches the payload to the request context. A missing
// or invalid token is not an error: downstream handlers decide whether a
// session is required. On rotation, the new token is written into both the
// cookie and header before the first byte of the response.
func Middleware(m *Manager, mwCfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r, m.cfg)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := m.ResolveSession(r.Context(), token, ResolveOptions{
				Sandbox:     mwCfg.Sandbox,
				Rotate:      mwCfg.Rotate,
				TTL:         mwCfg.TTL,
				GracePeriod: mwCfg.GracePeriod,
			})
			if err != nil || result == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, result.Data)
			r = r.WithContext(ctx)

			if result.NewToken == "" {
				next.ServeHTTP(w, r)
				return
			}

			rw := &rotatingWriter{ResponseWriter: w, cfg: m.cfg, newToken: result.NewToken}
			next.ServeHTTP(rw, r)
		})
	}
}

func extractToken(r *http.Request, cfg Config) string {
	if cfg.CookieName != "" {
		if c, err := r.Cookie(cfg.CookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}
	if cfg.HeaderName != "" {
		if v := r.Header.Get(cfg.HeaderName); v != "" {
			return v
		}
	}
	return ""
}

// rotatingWriter injects the rotated token into the response cookie and
// header the first time headers are written, whichever comes first
// (WriteHeader or an implicit one via Write).
type rotatingWriter struct {
	http.ResponseWriter
	cfg       Config
	newToken  string
	committed bool
}

func (w *rotatingWriter) inject() {
	if w.committed {
		return
	}
	w.committed = true
	http.SetCookie(w.ResponseWriter, &http.Cookie{
		Name:     w.cfg.CookieName,
		Value:    w.newToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
	w.Header().Set(w.cfg.HeaderName, w.newToken)
}

func (w *rotatingWriter) WriteHeader(status int) {
	w.inject()
	w.ResponseWriter.WriteHeader(status)
}

func (w *rotatingWriter) Write(b []byte) (int, error) {
	w.inject()
	return w.ResponseWriter.Write(b)
}
