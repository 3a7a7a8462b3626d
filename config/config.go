package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// devJWTSecret is only accepted outside production.
const devJWTSecret = "magic-auth-local-development-secret-do-not-use"

type Config struct {
	Env         string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port        string `env:"PORT" envDefault:"8080" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres" validate:"oneof=postgres redis memory"`
	DatabaseURL  string `env:"DATABASE_URL" validate:"required_unless=StoreBackend memory"`
	RedisURL     string `env:"REDIS_URL" validate:"required_if=StoreBackend redis"`
	DBMaxConns   int32  `env:"DB_MAX_CONNS" envDefault:"10" validate:"min=1,max=200"`
	DBMinConns   int32  `env:"DB_MIN_CONNS" envDefault:"2" validate:"min=0,ltefield=DBMaxConns"`

	JWTSecret    string        `env:"JWT_SECRET" validate:"required,min=32"`
	MagicLinkTTL time.Duration `env:"MAGIC_LINK_TTL" envDefault:"15m" validate:"min=1m,max=24h"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"168h" validate:"min=1m"`

	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1h" validate:"min=1s"`
	RateLimitQuota     int           `env:"RATE_LIMIT_QUOTA" envDefault:"3" validate:"min=1"`
	RateLimitRetention time.Duration `env:"RATE_LIMIT_RETENTION" envDefault:"24h" validate:"gtefield=RateLimitWindow"`

	ResendAPIKey  string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom    string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`
	MagicLinkBase string `env:"MAGIC_LINK_BASE_URL" envDefault:"http://localhost:8080" validate:"url"`
	FrontendURL   string `env:"FRONTEND_URL" envDefault:"http://localhost:3000" validate:"url"`
	CookieName    string `env:"COOKIE_NAME" envDefault:"session" validate:"required,alphanum"`

	SweepTokensCron     string `env:"SWEEP_TOKENS_CRON" envDefault:"@every 1h" validate:"required"`
	SweepRateLimitsCron string `env:"SWEEP_RATE_LIMITS_CRON" envDefault:"@every 6h" validate:"required"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFromMap reads the configuration from m instead of the environment.
func LoadFromMap(m map[string]string) (*Config, error) {
	return load(env.Options{Environment: m})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		cfg.JWTSecret = devJWTSecret
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.IsProduction() {
		if cfg.JWTSecret == devJWTSecret {
			return nil, errors.New("invalid config: JWT_SECRET must not be the development secret in production")
		}
		if cfg.StoreBackend == "memory" {
			return nil, errors.New("invalid config: STORE_BACKEND=memory is not allowed in production")
		}
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

func (c *Config) IsLocal() bool { return c.Env == "local" }

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
