package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (GLOW_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string        `env:"DATABASE_URL" yaml:"database_url" usage:"PostgreSQL connection URL (GLOW_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL     string        `env:"REDIS_URL" yaml:"redis_url" usage:"Redis URL for the view cache; in-process cache when empty" flag:"redis-url"`
	ImageBaseURL string        `env:"IMAGE_BASE_URL" yaml:"image_base_url" default:"" usage:"Base URL for product images (e.g. https://cdn.example.com)" flag:"image-base-url"`
	JWTSecret    string        `env:"JWT_SECRET" yaml:"jwt_secret" usage:"HMAC secret for bearer tokens" flag:"jwt-secret"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" yaml:"token_ttl" default:"24h" usage:"Lifetime of issued bearer tokens" flag:"token-ttl"`
	Orders       OrdersConfig `yaml:"orders"`
	Mail         MailConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// OrdersConfig controls the order status workflow.
type OrdersConfig struct {
	EnforceTransitions bool          `env:"ENFORCE_TRANSITIONS" yaml:"enforce_transitions" default:"true" usage:"Reject status changes outside the transition table" flag:"enforce-transitions"`
	ViewCacheTTL       time.Duration `env:"VIEW_CACHE_TTL" yaml:"view_cache_ttl" default:"5m" usage:"Lifetime of cached order views" flag:"view-cache-ttl"`
}

// MailConfig configures the notification mail transport. An empty Host
// logs emails instead of sending them.
type MailConfig struct {
	Host     string `usage:"SMTP host" flag:"mail-host"`
	Port     int    `default:"587" usage:"SMTP port (465 for implicit TLS)" flag:"mail-port"`
	Username string `usage:"SMTP username" flag:"mail-username"`
	Password string `usage:"SMTP password" flag:"mail-password"`
	From     string `default:"orders@seoulglow.shop" usage:"Sender address" flag:"mail-from"`
	FromName string `env:"FROM_NAME" default:"Seoul Glow" usage:"Sender display name" flag:"mail-from-name"`
}

// RateLimitConfig controls the per-client fixed window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags, YAML
// config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		Files: []string{"config.yaml", "/etc/glow/config.yaml"},
	})
}

func loadConfig(base aconfig.Config) (*Config, error) {
	var cfg Config
	base.EnvPrefix = "GLOW"
	base.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}
	if err := aconfig.LoaderFor(&cfg, base).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set GLOW_DATABASE_URL or DATABASE_URL")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required: set GLOW_JWT_SECRET")
	}
	if c.Orders.ViewCacheTTL <= 0 {
		return errors.Errorf("view cache ttl must be positive, got %s", c.Orders.ViewCacheTTL)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's GLOW_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
