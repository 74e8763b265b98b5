// Package security holds the shared error envelope used by every layer of
// the request inspection chain (classifiers, injection detectors, XEMS).
package security

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/xypriss/xypriss/internal/httputil"
)

// Envelope is the wire shape of a blocked-request response (spec.md §6).
// Production responses carry only Error/Code/Timestamp; XyPriss (the debug detail) is populated
// only when the caller runs in debug mode, never in production, to avoid
// handing classifier internals to a would-be attacker fingerprinting it.
type Envelope struct {
	Error     string       `json:"error"`
	Code      string       `json:"code"`
	Timestamp string       `json:"timestamp"`
	XyPriss   *DebugDetail `json:"xypriss,omitempty"`
}

// DebugDetail carries the internals surfaced only in debug mode.
type DebugDetail struct {
	Module    string `json:"module"`
	InnerCode string `json:"innerCode"`
	Details   string `json:"details"`
	UserAgent string `json:"userAgent"`
}

// Code derives a short, stable, opaque code from a module+reason pair so
// the same failure always produces the same code without leaking the
// reason text itself in production responses.
func Code(module, reason string) string {
	sum := sha256.Sum256([]byte(module + ":" + reason))
	return "NX" + hex.EncodeToString(sum[:])[:12]
}

// WriteBlocked writes the standard envelope for a blocked request. message
// is the generic, user-safe text; module/innerCode/details are included
// only when debug is true.
func WriteBlocked(w http.ResponseWriter, r *http.Request, status int, message, module, innerCode, details string, debug bool) {
	env := Envelope{
		Error:     message,
		Code:      Code(module, innerCode),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if debug {
		env.XyPriss = &DebugDetail{
			Module:    module,
			InnerCode: innerCode,
			Details:   details,
			UserAgent: r.UserAgent(),
		}
	}
	httputil.WriteJSON(w, status, env)
}
