package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration values.  It is parsed once at
// startup and passed explicitly to the components that need it; nothing
// reads the environment after Load returns.
type Config struct {
	Env             string        `env:"APP_ENV" envDefault:"development"` // application environment (development/test/production)
	Port            string        `env:"APP_PORT" envDefault:"8080"`       // HTTP port to listen on
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	Database        Database      `envPrefix:"DB_"`
	JWT             JWT           `envPrefix:"JWT_"`
	RefreshTTLDays  int           `env:"REFRESH_TOKEN_TTL_DAYS" envDefault:"30"` // refresh token time‑to‑live in days
	Password        Password      `envPrefix:"PASSWORD_"`
	CORS            CORS          `envPrefix:"CORS_"`
	RateLimit       RateLimit     `envPrefix:"RATE_LIMIT_"`
	AuthRateLimit   RateLimit     `envPrefix:"AUTH_RATE_LIMIT_"`
	Redis           Redis         `envPrefix:"REDIS_"`
	Cache           Cache         `envPrefix:"CACHE_"`
	AMQP            AMQP          `envPrefix:"AMQP_"`
	TokenGCInterval time.Duration `env:"TOKEN_GC_INTERVAL" envDefault:"1h"` // 0 disables the expired-token sweep
}

// Database contains MySQL connection parameters.
type Database struct {
	User    string `env:"USER" envDefault:"root"`
	Pass    string `env:"PASS"` // empty allowed
	Host    string `env:"HOST" envDefault:"127.0.0.1"`
	Port    string `env:"PORT" envDefault:"3306"`
	Name    string `env:"NAME" envDefault:"blog"`
	Migrate bool   `env:"MIGRATE" envDefault:"true"` // apply embedded migrations on startup
}

// JWT contains access-token parameters.
type JWT struct {
	Secret    string        `env:"SECRET,required,notEmpty"` // secret used to sign JWTs
	AccessTTL time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
}

// Password selects the hashing algorithm for new hashes.
type Password struct {
	Hasher     string `env:"HASHER" envDefault:"bcrypt"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"12"`
}

// CORS lists allowed cross-origin hosts.
type CORS struct {
	Origins []string `env:"ORIGINS" envSeparator:","`
}

// AMQP configures the account-event publisher and the audit consumer.
// An empty URL disables both.
type AMQP struct {
	URL           string `env:"URL"`
	Queue         string `env:"QUEUE" envDefault:"account.events"`
	AuditConsumer bool   `env:"AUDIT_CONSUMER" envDefault:"false"`
	AuditLogPath  string `env:"AUDIT_LOG_PATH" envDefault:"logs/audit.log"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.RefreshTTLDays < 1 {
		return Config{}, errors.New("REFRESH_TOKEN_TTL_DAYS must be at least 1")
	}
	cfg.RateLimit = cfg.RateLimit.normalize()
	cfg.AuthRateLimit = authDefaults(cfg.AuthRateLimit, func(k string) bool {
		_, ok := os.LookupEnv(k)
		return ok
	})
	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool { return c.Env == "production" }

// ExposeErrors reports whether internal error detail may appear in
// responses.  Only non-production configurations expose it.
func (c Config) ExposeErrors() bool { return !c.IsProduction() }

// RefreshTTL converts RefreshTTLDays into a duration.
func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}
