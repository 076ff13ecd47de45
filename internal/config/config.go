package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	EnvFile           string        `mapstructure:"env_file" yaml:"env_file"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret    string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer    string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience  string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	TokenTTL     time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	CookieName   string        `mapstructure:"cookie_name" yaml:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure" yaml:"cookie_secure"`

	// AllowedOrigins are extra host patterns accepted on /ws besides same-origin.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	MaxMessageBytes    int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	OutboundQueueSize  int   `mapstructure:"outbound_queue_size" yaml:"outbound_queue_size"`
	RateLimitPerMinute int   `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`

	PersistQueueSize int           `mapstructure:"persist_queue_size" yaml:"persist_queue_size"`
	PersistWorkers   int           `mapstructure:"persist_workers" yaml:"persist_workers"`
	PersistTimeout   time.Duration `mapstructure:"persist_timeout" yaml:"persist_timeout"`

	MetricsEnabled bool `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

// DefaultCookieName is the cookie carrying the session token.
const DefaultCookieName = "chatroom-token"

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":3000",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		EnvFile:            "config.env",
		DatabasePath:       "chatroom.db",
		JWTSecret:          "change-me",
		JWTIssuer:          "chatroom",
		TokenTTL:           5 * 24 * time.Hour,
		CookieName:         DefaultCookieName,
		MaxMessageBytes:    1 << 20,
		OutboundQueueSize:  64,
		RateLimitPerMinute: 0,
		PersistQueueSize:   1024,
		PersistWorkers:     4,
		PersistTimeout:     5 * time.Second,
		MetricsEnabled:     true,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.EnvFile != "" {
		c.EnvFile = other.EnvFile
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.TokenTTL != 0 {
		c.TokenTTL = other.TokenTTL
	}
	if other.CookieName != "" {
		c.CookieName = other.CookieName
	}
	if other.CookieSecure {
		c.CookieSecure = true
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.OutboundQueueSize != 0 {
		c.OutboundQueueSize = other.OutboundQueueSize
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if other.PersistQueueSize != 0 {
		c.PersistQueueSize = other.PersistQueueSize
	}
	if other.PersistWorkers != 0 {
		c.PersistWorkers = other.PersistWorkers
	}
	if other.PersistTimeout != 0 {
		c.PersistTimeout = other.PersistTimeout
	}
}
