package config

import (
	"strings"
	"time"
)

// Cache defines settings for the response cache middleware applied to
// public read endpoints.  When Enabled is false or no Redis client is
// configured, caching is disabled.
type Cache struct {
	Enabled      bool          `env:"ENABLED" envDefault:"true"`
	Methods      []string      `env:"METHODS" envDefault:"GET" envSeparator:","`
	TTL          time.Duration `env:"TTL" envDefault:"30s"`
	Prefix       string        `env:"PREFIX" envDefault:"cache"`
	MaxBodyBytes int           `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

// Caches reports whether responses to method may be cached.
func (c Cache) Caches(method string) bool {
	for _, m := range c.Methods {
		if strings.EqualFold(strings.TrimSpace(m), method) {
			return true
		}
	}
	return false
}
