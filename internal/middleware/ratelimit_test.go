package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blog-api/internal/config"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/testutil"
)

func localLimitConfig() config.RateLimit {
	return config.RateLimit{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl:test",
		LocalCacheSize: 16,
	}
}

func limitedServer(cfg config.RateLimit) *echo.Echo {
	e := echo.New()
	e.GET("/x", okHandler, NewTokenBucket(cfg, nil, testutil.MakeNoopLogger()))
	return e
}

func hit(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = ip + ":4321"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTokenBucket_LocalFallback(t *testing.T) {
	e := limitedServer(localLimitConfig())

	first := hit(e, "10.0.0.1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1").Code)

	blocked := hit(e, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	retry, err := strconv.Atoi(blocked.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)
	assert.LessOrEqual(t, retry, 60)

	// Buckets are per client.
	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.2").Code)
}

func TestTokenBucket_Redis(t *testing.T) {
	mr, rdb := newRedis(t)
	e := echo.New()
	e.GET("/x", okHandler, NewTokenBucket(localLimitConfig(), rdb, testutil.MakeNoopLogger()))

	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1").Code)
	blocked := hit(e, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	// State lives in Redis, so a second limiter instance shares the bucket.
	other := echo.New()
	other.GET("/x", okHandler, NewTokenBucket(localLimitConfig(), rdb, testutil.MakeNoopLogger()))
	assert.Equal(t, http.StatusTooManyRequests, hit(other, "10.0.0.1").Code)

	assert.True(t, mr.Exists("rl:test:ip:10.0.0.1"))
}

func TestTokenBucket_Disabled(t *testing.T) {
	cfg := localLimitConfig()
	cfg.Enabled = false
	e := limitedServer(cfg)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/api/auth/login", map[string]string{echo.HeaderXRealIP: "1.2.3.4"})
	c.SetPath("/api/auth/login")

	cfg := config.RateLimit{Prefix: "rl"}
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:1.2.3.4", buildRateKey(cfg, c))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:anon", buildRateKey(cfg, c))
	cfg.KeyStrategy = "ip_route"
	assert.Equal(t, "rl:ip:1.2.3.4:route:POST /api/auth/login", buildRateKey(cfg, c))

	SetIdentity(c, model.Identity{UserID: 42, Role: model.RoleUser})
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:42", buildRateKey(cfg, c))
}

func TestAsInt64(t *testing.T) {
	assert.Equal(t, int64(3), asInt64(int64(3)))
	assert.Equal(t, int64(3), asInt64("3"))
	assert.Equal(t, int64(3), asInt64(3.9))
	assert.Equal(t, int64(0), asInt64(nil))
}
