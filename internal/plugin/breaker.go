package plugin

import (
	"time"

	"github.com/xypriss/xypriss/infrastructure/resilience"
)

// breakerFor builds the per-plugin circuit breaker named in spec.md §4.1's
// state machine (Closed -> Open on N failures in window W -> Half-Open
// after cooldown C -> Closed on one success, Open on one failure). It
// wraps infrastructure/resilience.CircuitBreaker, the teacher's existing
// fault-tolerance primitive, rather than reimplementing the state machine.
func breakerFor(maxFailures int, cooldown time.Duration, onChange func(from, to resilience.State)) *resilience.CircuitBreaker {
	cfg := resilience.DefaultConfig()
	if maxFailures > 0 {
		cfg.MaxFailures = maxFailures
	}
	if cooldown > 0 {
		cfg.Timeout = cooldown
	}
	// A single successful probe in half-open closes the breaker again,
	// matching "Closed on one success" — the teacher's default requires
	// HalfOpenMax consecutive successes, so pin it to 1 here.
	cfg.HalfOpenMax = 1
	cfg.OnStateChange = onChange
	return resilience.New(cfg)
}
