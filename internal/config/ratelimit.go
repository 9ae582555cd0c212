package config

import "time"

// RateLimit configures one token-bucket limiter.  The general limiter
// reads RATE_LIMIT_*, the stricter auth limiter AUTH_RATE_LIMIT_*; both
// share the same field names below the prefix.
type RateLimit struct {
	Enabled        bool          `env:"ENABLED" envDefault:"true"`
	Capacity       int           `env:"CAPACITY" envDefault:"100"`
	RefillTokens   int           `env:"REFILL_TOKENS" envDefault:"1"`
	RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"1s"`
	TTL            time.Duration `env:"TTL" envDefault:"10m"`
	KeyStrategy    string        `env:"KEY_STRATEGY" envDefault:"ip"`
	Prefix         string        `env:"PREFIX" envDefault:"rl"`
	LocalCacheSize int           `env:"LOCAL_CACHE_SIZE" envDefault:"10000"`
	Debug          bool          `env:"DEBUG" envDefault:"false"`
}

// authDefaults are applied to AUTH_RATE_LIMIT_* keys the operator left
// unset: ten attempts, one more every 90 seconds (about 10 per 15 min).
func authDefaults(r RateLimit, set func(string) bool) RateLimit {
	if !set("AUTH_RATE_LIMIT_CAPACITY") {
		r.Capacity = 10
	}
	if !set("AUTH_RATE_LIMIT_REFILL_INTERVAL") {
		r.RefillInterval = 90 * time.Second
	}
	if !set("AUTH_RATE_LIMIT_PREFIX") {
		r.Prefix = "rl:auth"
	}
	return r.normalize()
}

func (r RateLimit) normalize() RateLimit {
	if r.Capacity < 1 {
		r.Capacity = 1
	}
	if r.RefillTokens < 1 {
		r.RefillTokens = 1
	}
	if r.RefillInterval <= 0 {
		r.RefillInterval = time.Second
	}
	if minTTL := 5 * r.RefillInterval; r.TTL < minTTL {
		r.TTL = minTTL
	}
	if r.LocalCacheSize < 1 {
		r.LocalCacheSize = 1
	}
	if r.Prefix == "" {
		r.Prefix = "rl"
	}
	return r
}
