package classify

import (
	"net/http"

	"github.com/xypriss/xypriss/internal/security"
)

// Middleware returns an http middleware enforcing the Policy. Blocked
// requests get the shared security envelope; allowed requests continue
// unmodified.
func Middleware(p *Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !p.cfg.Routes.Allows(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			verdict := p.Classify(r)
			if verdict.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			security.WriteBlocked(w, r, http.StatusForbidden, "Access denied", "classify", verdict.Code, verdict.Reason, p.cfg.DebugMode)
		})
	}
}
