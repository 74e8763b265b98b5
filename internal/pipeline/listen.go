package pipeline

import (
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"strings"

	"github.com/xypriss/xypriss/internal/config"
)

// bindWithAutoPortSwitch binds addr, retrying on a different port when the
// configured port is already in use and autoPortSwitch is enabled (spec.md
// §3 "server.autoPortSwitch{enabled,maxAttempts,portRange,strategy}").
func bindWithAutoPortSwitch(addr string, cfg config.AutoPortSwitchConfig) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err == nil || !cfg.Enabled {
		return ln, err
	}

	host, portStr, splitErr := net.SplitHostPort(addr)
	if splitErr != nil {
		return nil, err
	}
	port, convErr := strconv.Atoi(portStr)
	if convErr != nil {
		return nil, err
	}

	lo, hi := cfg.PortRange[0], cfg.PortRange[1]
	if lo == 0 && hi == 0 {
		lo, hi = port, port+cfg.MaxAttempts
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate := nextPort(port, lo, hi, attempt, cfg.Strategy)
		ln, err = net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(candidate)))
		if err == nil {
			return ln, nil
		}
	}
	return nil, fmt.Errorf("auto port switch: exhausted %d attempts in range %d-%d: %w", maxAttempts, lo, hi, err)
}

func nextPort(base, lo, hi, attempt int, strategy string) int {
	if strings.EqualFold(strategy, "random") {
		if hi <= lo {
			return base + attempt
		}
		return lo + rand.Intn(hi-lo+1)
	}
	// increment (default)
	candidate := base + attempt
	if hi > lo && candidate > hi {
		candidate = lo + (candidate-lo)%(hi-lo+1)
	}
	return candidate
}
