// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/JonMunkholm/saptables/internal/oapi"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Automation AutomationConfig
	Journal    JournalConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 90s).
	// Large tables take a while to cross the automation boundary.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`

	// MaxBodySize caps uploaded table files in bytes (default: 32MB)
	MaxBodySize int64 `env:"SERVER_MAX_BODY_SIZE" default:"33554432"`
}

// AutomationConfig selects and tunes the automation backend.
type AutomationConfig struct {
	// Backend is "com" (the running application) or "sim" (offline simulator)
	Backend string `env:"AUTOMATION_BACKEND" default:"com"`

	// Attach connects to a running instance instead of starting one (default: true)
	Attach bool `env:"AUTOMATION_ATTACH" default:"true"`

	// ProgramPath is the executable started when Attach is false
	ProgramPath string `env:"AUTOMATION_PROGRAM_PATH"`

	// HandleWait bounds how long a request waits for the automation handle (default: 30s)
	HandleWait time.Duration `env:"AUTOMATION_HANDLE_WAIT" default:"30s"`

	// CanonicalUnits is the unit system table data is read in (default: kN_m_C)
	CanonicalUnits oapi.Units `env:"AUTOMATION_CANONICAL_UNITS" default:"kN_m_C"`
}

// JournalConfig holds edit journal settings.
type JournalConfig struct {
	// DatabaseURL selects the PostgreSQL journal. Empty keeps the journal in memory.
	DatabaseURL string `env:"JOURNAL_DATABASE_URL" envAlt:"DATABASE_URL"`

	// MemorySize is the number of entries the in-memory journal keeps (default: 1000)
	MemorySize int `env:"JOURNAL_MEMORY_SIZE" default:"1000"`

	// Retention is the age after which entries are pruned (default: 2160h, 90 days)
	Retention time.Duration `env:"JOURNAL_RETENTION" default:"2160h"`

	// PruneInterval is how often the pruner runs (default: 24h)
	PruneInterval time.Duration `env:"JOURNAL_PRUNE_INTERVAL" default:"24h"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// EditLimit is requests per minute for endpoints that stage or commit edits (default: 20)
	EditLimit int `env:"RATE_LIMIT_EDITS" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects /api routes with an X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error, critical (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// DiagLevel is the minimum level kept in the diagnostics buffer (default: debug)
	DiagLevel string `env:"LOG_DIAG_LEVEL" default:"debug"`

	// BufferLines is how many diagnostic lines are kept in memory (default: 500)
	BufferLines int `env:"LOG_BUFFER_LINES" default:"500"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
