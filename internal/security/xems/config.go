// Package xems implements the Encrypted Memory Store: session-style
// storage with sandbox isolation, atomic token rotation, and server-side
// encryption (spec.md §4.9).
package xems

import "time"

// Config tunes a Manager. Secret must be exactly 32 bytes; writes attempted
// without one fail loudly (spec.md §4.9 "operations without a valid secret
// fail loudly").
// Go's context.Context has no string-keyed external accessor the way a
// request object does, so unlike the HTTP binding's configurable
// attachTo field, the resolved payload is always retrieved via FromContext
// rather than a caller-chosen key name.
type Config struct {
	Secret       []byte
	DefaultTTL   time.Duration
	GracePeriod  time.Duration
	MaxRetention time.Duration
	CookieName   string
	HeaderName   string
}

// DefaultConfig returns the documented defaults: 30-minute sessions, a
// 30-second rotation grace window, and the spec's 5-day global retention
// ceiling.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:   30 * time.Minute,
		GracePeriod:  30 * time.Second,
		MaxRetention: 5 * 24 * time.Hour,
		CookieName:   "xems_token",
		HeaderName:   "x-xypriss-token",
	}
}
