// Package config provides the XyPriss Configuration Manager: a single
// process-wide, section-based configuration record with deep-merge update
// semantics and per-subtree immutability, following the sectioned-struct
// style of the teacher's pkg/config and the env/secret loading helpers of
// infrastructure/config/loader.go.
package config

import (
	"os"
	"strings"
	"time"
)

// Environment mirrors the teacher's internal/config environment enum.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// ImmutableFlag is the reserved key that seals a subtree against further
// writes of a different value. Matches spec.md §6's __isXyPrissImmutable.
const ImmutableFlag = "__isXyPrissImmutable"

// AutoPortSwitchConfig controls fallback port selection on bind failure.
type AutoPortSwitchConfig struct {
	Enabled     bool   `json:"enabled" env:"SERVER_AUTO_PORT_SWITCH"`
	MaxAttempts int    `json:"maxAttempts" env:"SERVER_AUTO_PORT_MAX_ATTEMPTS"`
	PortRange   [2]int `json:"portRange"`
	Strategy    string `json:"strategy" env:"SERVER_AUTO_PORT_STRATEGY"` // increment|random
}

// ServerConfig controls the listening HTTP server.
type ServerConfig struct {
	Port           int                  `json:"port" env:"XYPRISS_PORT"`
	Host           string               `json:"host" env:"XYPRISS_HOST"`
	TrustProxy     bool                 `json:"trustProxy" env:"XYPRISS_TRUST_PROXY"`
	AutoPortSwitch AutoPortSwitchConfig `json:"autoPortSwitch"`
}

// AutoScaleConfig governs the cluster autoscaler control loop (§4.5).
type AutoScaleConfig struct {
	Min             int           `json:"min" env:"XYPRISS_AUTOSCALE_MIN"`
	Max             int           `json:"max" env:"XYPRISS_AUTOSCALE_MAX"`
	CPUThreshold    float64       `json:"cpuThreshold" env:"XYPRISS_AUTOSCALE_CPU_THRESHOLD"`
	MemoryThreshold float64       `json:"memoryThreshold" env:"XYPRISS_AUTOSCALE_MEM_THRESHOLD"`
	ScaleInterval   time.Duration `json:"scaleInterval" env:"XYPRISS_AUTOSCALE_INTERVAL"`
}

// GracefulShutdownConfig governs worker drain-on-stop behavior.
type GracefulShutdownConfig struct {
	Enabled bool          `json:"enabled" env:"XYPRISS_SHUTDOWN_ENABLED"`
	Timeout time.Duration `json:"timeout" env:"XYPRISS_SHUTDOWN_TIMEOUT"`
}

// ClusterConfig controls the multi-worker supervisor (§4.5).
type ClusterConfig struct {
	Enabled          bool                   `json:"enabled" env:"XYPRISS_CLUSTER_ENABLED"`
	Workers          string                 `json:"workers" env:"XYPRISS_CLUSTER_WORKERS"` // integer or "auto"
	AutoScale        AutoScaleConfig        `json:"autoScale"`
	GracefulShutdown GracefulShutdownConfig `json:"gracefulShutdown"`
}

// CacheConfig controls the connection/plugin-result cache (§4.2).
type CacheConfig struct {
	DefaultTTL      time.Duration `json:"defaultTTL" env:"XYPRISS_CACHE_TTL"`
	MaxSize         int           `json:"maxSize" env:"XYPRISS_CACHE_MAX_SIZE"`
	CleanupInterval time.Duration `json:"cleanupInterval" env:"XYPRISS_CACHE_CLEANUP_INTERVAL"`
}

// RouteTimeout overrides the default request/response timeout for one route.
type RouteTimeout struct {
	Pattern string        `json:"pattern"`
	Timeout time.Duration `json:"timeout"`
}

// TimeoutsConfig controls per-request and per-route deadlines (§5).
type TimeoutsConfig struct {
	DefaultTimeout time.Duration  `json:"defaultTimeout" env:"XYPRISS_DEFAULT_TIMEOUT"`
	Routes         []RouteTimeout `json:"routes"`
}

// ConcurrencyConfig controls request back-pressure (§5).
type ConcurrencyConfig struct {
	MaxConcurrentRequests int `json:"maxConcurrentRequests" env:"XYPRISS_MAX_CONCURRENT_REQUESTS"`
	MaxPerIP              int `json:"maxPerIP" env:"XYPRISS_MAX_PER_IP"`
}

// RequestManagementConfig groups timeout/concurrency policy.
type RequestManagementConfig struct {
	Timeouts    TimeoutsConfig    `json:"timeouts"`
	Concurrency ConcurrencyConfig `json:"concurrency"`

	// MaxBodySize is a human size string ("1MB", "512KB") applied to the
	// body-limit middleware; empty keeps that middleware's own 8MiB
	// default (§5).
	MaxBodySize string `json:"maxBodySize" env:"XYPRISS_MAX_BODY_SIZE"`
}

// RouteConfig applies include/exclude route lists to a security classifier
// or detector (§4.8).
type RouteConfig struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// ScoredAccessConfig configures a browser/terminal/mobile-only classifier (§4.7).
type ScoredAccessConfig struct {
	Enabled       bool        `json:"enabled"`
	Threshold     float64     `json:"threshold"`
	DebugMode     bool        `json:"debugMode" env:"XYPRISS_SECURITY_DEBUG"`
	CustomHeaders []string    `json:"customHeaders"`
	RouteConfig   RouteConfig `json:"routeConfig"`
}

// InjectionDetectorConfig configures one injection detector (§4.8).
type InjectionDetectorConfig struct {
	Enabled               bool        `json:"enabled"`
	BlockOnDetection      bool        `json:"blockOnDetection"`
	FalsePositiveThreshold float64    `json:"falsePositiveThreshold"`
	ContextualAnalysis    bool        `json:"contextualAnalysis"`
	RouteConfig           RouteConfig `json:"routeConfig"`
}

// SecurityConfig groups every classifier and detector plus XEMS routing
// (the xems cookie/header config lives in XEMSConfig, referenced from here
// for the HTTP binding in §4.9).
type SecurityConfig struct {
	BrowserOnly      ScoredAccessConfig                 `json:"browserOnly"`
	TerminalOnly     ScoredAccessConfig                 `json:"terminalOnly"`
	MobileOnly       ScoredAccessConfig                 `json:"mobileOnly"`
	SQLInjection     InjectionDetectorConfig            `json:"sqlInjection"`
	PathTraversal    InjectionDetectorConfig            `json:"pathTraversal"`
	CommandInjection InjectionDetectorConfig            `json:"commandInjection"`
	XXEInjection     InjectionDetectorConfig            `json:"xxeInjection"`
	LDAPInjection    InjectionDetectorConfig            `json:"ldapInjection"`
	RouteConfig      RouteConfig                        `json:"routeConfig"`
	PluginPermissions []PluginPermission                `json:"pluginPermissions"`
}

// PluginPermission allow-lists hooks a named plugin may register (§6).
type PluginPermission struct {
	Name          string   `json:"name"`
	AllowedHooks  []string `json:"allowedHooks"`
}

// PluginsConfig lists plugins to register at boot (§6).
type PluginsConfig struct {
	Register []string `json:"register"`
}

// MultiServerConfig holds self-contained sub-configurations for additional
// listeners (§6). Each entry is itself a full Config so resolution is
// recursive; to avoid infinite type recursion the sub-config is stored
// opaquely and resolved by the caller via RawServers().
type MultiServerConfig struct {
	Servers []map[string]interface{} `json:"servers"`
}

// LoggingConfig controls ambient logging (infrastructure/logging).
type LoggingConfig struct {
	Level            string            `json:"level" env:"LOG_LEVEL"`
	Format           string            `json:"format" env:"LOG_FORMAT"`
	Components       map[string]string `json:"components"`
	SuppressPatterns []string          `json:"suppressPatterns"`
}

// XEMSConfig controls the encrypted session store (§4.9).
type XEMSConfig struct {
	Enabled         bool          `json:"enabled" env:"XYPRISS_XEMS_ENABLED"`
	Secret          string        `json:"secret" env:"XYPRISS_XEMS_SECRET"`
	CookieName      string        `json:"cookieName" env:"XYPRISS_XEMS_COOKIE"`
	HeaderName      string        `json:"headerName" env:"XYPRISS_XEMS_HEADER"`
	DefaultTTL      time.Duration `json:"defaultTTL" env:"XYPRISS_XEMS_TTL"`
	AutoRotation    bool          `json:"autoRotation" env:"XYPRISS_XEMS_AUTOROTATE"`
	GracePeriod     time.Duration `json:"gracePeriod" env:"XYPRISS_XEMS_GRACE"`
	MaxRetention    time.Duration `json:"maxRetention" env:"XYPRISS_XEMS_MAX_RETENTION"`
	RedisAddr       string        `json:"redisAddr" env:"XYPRISS_XEMS_REDIS_ADDR"`
}

// Config is the full XyPriss configuration record (spec.md §3/§6).
type Config struct {
	Server            ServerConfig             `json:"server"`
	Cluster           ClusterConfig            `json:"cluster"`
	Cache             CacheConfig              `json:"cache"`
	RequestManagement RequestManagementConfig  `json:"requestManagement"`
	Security          SecurityConfig           `json:"security"`
	Plugins           PluginsConfig            `json:"plugins"`
	MultiServer       MultiServerConfig        `json:"multiServer"`
	Logging           LoggingConfig            `json:"logging"`
	XEMS              XEMSConfig               `json:"xems"`
}

// Default returns the built-in defaults, following the teacher's
// DefaultConfig() pattern used throughout infrastructure/resilience and
// infrastructure/cache.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
			AutoPortSwitch: AutoPortSwitchConfig{
				Enabled:     true,
				MaxAttempts: 10,
				PortRange:   [2]int{8080, 8180},
				Strategy:    "increment",
			},
		},
		Cluster: ClusterConfig{
			Enabled: false,
			Workers: "auto",
			AutoScale: AutoScaleConfig{
				Min:             2,
				Max:             8,
				CPUThreshold:    80,
				MemoryThreshold: 80,
				ScaleInterval:   30 * time.Second,
			},
			GracefulShutdown: GracefulShutdownConfig{
				Enabled: true,
				Timeout: 10 * time.Second,
			},
		},
		Cache: CacheConfig{
			DefaultTTL:      5 * time.Minute,
			MaxSize:         1000,
			CleanupInterval: 10 * time.Minute,
		},
		RequestManagement: RequestManagementConfig{
			Timeouts: TimeoutsConfig{
				DefaultTimeout: 30 * time.Second,
			},
			Concurrency: ConcurrencyConfig{
				MaxConcurrentRequests: 10000,
				MaxPerIP:              100,
			},
			MaxBodySize: "8MB",
		},
		Security: SecurityConfig{
			BrowserOnly:  ScoredAccessConfig{Threshold: 3},
			TerminalOnly: ScoredAccessConfig{Threshold: 3},
			MobileOnly:   ScoredAccessConfig{Threshold: 3},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		XEMS: XEMSConfig{
			CookieName:   "xems_token",
			HeaderName:   "x-xypriss-token",
			DefaultTTL:   15 * time.Minute,
			GracePeriod:  2 * time.Second,
			MaxRetention: 5 * 24 * time.Hour,
		},
	}
}

// ParseEnvironment mirrors the teacher's internal/runtime environment
// parsing, generalized from MARBLE_ENV to XYPRISS_ENV.
func ParseEnvironment(raw string) (Environment, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "development", "dev", "":
		return Development, true
	case "staging", "stage":
		return Staging, true
	case "production", "prod":
		return Production, true
	default:
		return "", false
	}
}

// CurrentEnvironment reads XYPRISS_ENV, defaulting to development.
func CurrentEnvironment() Environment {
	env, ok := ParseEnvironment(os.Getenv("XYPRISS_ENV"))
	if !ok {
		return Development
	}
	return env
}
