// Package config loads the intake server settings from environment
// variables, applies defaults, and validates everything up front so a bad
// deployment fails at startup instead of on the first request.
package config

import (
	"strconv"
	"time"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Generator GeneratorConfig
	Draft     DraftConfig
	Session   SessionConfig
	Branch    BranchConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is 0 by default so the commit progress stream is not cut off.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds ordinary API requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxBodyBytes caps JSON request bodies (default: 10MB)
	MaxBodyBytes int64 `env:"SERVER_MAX_BODY_BYTES" default:"10485760"`
}

// StoreConfig selects where drafts and session mirrors are kept.
type StoreConfig struct {
	// Backend is memory, redis or postgres (default: memory)
	Backend string `env:"STORE_BACKEND" default:"memory"`

	// PurgeAfter removes session keys untouched for this long; postgres only (default: 168h)
	PurgeAfter time.Duration `env:"STORE_PURGE_AFTER" default:"168h"`

	// PurgeInterval is how often the purge runs (default: 1h)
	PurgeInterval time.Duration `env:"STORE_PURGE_INTERVAL" default:"1h"`
}

// DatabaseConfig holds PostgreSQL settings. URL is required only for the
// postgres backend.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL" envAlt:"DB_URL"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// RedisConfig holds Redis settings for the redis backend.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" default:"0"`

	// KeyPrefix namespaces every key (default: timetable:)
	KeyPrefix string `env:"REDIS_KEY_PREFIX" default:"timetable:"`

	// TTL expires keys after this long; 0 keeps them (default: 0s)
	TTL time.Duration `env:"REDIS_TTL" default:"0s"`
}

// GeneratorConfig points at the timetable generation service.
type GeneratorConfig struct {
	BaseURL string `env:"GENERATOR_BASE_URL" envAlt:"API_BASE_URL" default:"http://localhost:5000"`

	// Timeout bounds one commit end to end (default: 2m)
	Timeout time.Duration `env:"GENERATOR_TIMEOUT" default:"2m"`

	// AuxTimeout bounds schedule edit helper calls (default: 15s)
	AuxTimeout time.Duration `env:"GENERATOR_AUX_TIMEOUT" default:"15s"`

	// MaxConcurrent is how many commits may call the service at once (default: 4)
	MaxConcurrent int `env:"GENERATOR_MAX_CONCURRENT" default:"4"`

	// MaxWait is how long a commit waits for a free slot (default: 30s)
	MaxWait time.Duration `env:"GENERATOR_MAX_WAIT" default:"30s"`

	// MaxIterations is passed to the solver; 0 keeps its default
	MaxIterations int `env:"GENERATOR_MAX_ITERATIONS" default:"0"`
}

// DraftConfig controls auto-save.
type DraftConfig struct {
	AutosaveInterval time.Duration `env:"DRAFT_AUTOSAVE_INTERVAL" default:"30s"`

	// MaxAge is how long a draft is offered for restore (default: 24h)
	MaxAge time.Duration `env:"DRAFT_MAX_AGE" default:"24h"`
}

// SessionConfig controls in-memory session lifetime.
type SessionConfig struct {
	// IdleTimeout ends sessions with no activity; 0 disables the reaper (default: 2h)
	IdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" default:"2h"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"1m"`
}

// BranchConfig locates the branch structure file.
type BranchConfig struct {
	// File is a YAML or JSON file with a top-level branches list
	File string `env:"BRANCH_FILE" default:"branches.yaml"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// CommitLimit is requests per minute for commit endpoints (default: 10)
	CommitLimit int `env:"RATE_LIMIT_COMMIT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey turns on X-API-Key authentication for /api routes
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// AllowedOrigins is a comma-separated CORS allow list; empty disables CORS headers
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
