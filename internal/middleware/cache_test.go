package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blog-api/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func cacheConfig() config.Cache {
	return config.Cache{Enabled: true, Methods: []string{"GET"}, TTL: 30 * time.Second, Prefix: "cache", MaxBodyBytes: 1 << 20}
}

// cachedServer mirrors the production chain: CORS and secure headers are
// global, the cache wraps individual read routes.
func cachedServer(rdb *redis.Client, calls *atomic.Int32) *echo.Echo {
	e := echo.New()
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: []string{"https://a.example", "https://b.example"}}))
	cache := NewRedisCache(cacheConfig(), rdb)
	e.GET("/api/tags", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusOK, echo.Map{"tags": []string{"go"}})
	}, cache)
	e.GET("/api/missing", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusNotFound, echo.Map{"message": "nope"})
	}, cache)
	return e
}

func get(e *echo.Echo, target, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if origin != "" {
		req.Header.Set(echo.HeaderOrigin, origin)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCacheKey(t *testing.T) {
	cfg := config.Cache{Prefix: "cache"}
	a, _ := newContext(http.MethodGet, "/api/categories/1", nil)
	b, _ := newContext(http.MethodGet, "/api/categories/2", nil)
	q, _ := newContext(http.MethodGet, "/api/categories/1?x=1", nil)

	ka := cacheKey(cfg, a)
	assert.True(t, strings.HasPrefix(ka, "cache:"))
	assert.Len(t, ka, len("cache:")+64)
	assert.NotEqual(t, ka, cacheKey(cfg, b))
	assert.NotEqual(t, ka, cacheKey(cfg, q))

	again, _ := newContext(http.MethodGet, "/api/categories/1", nil)
	assert.Equal(t, ka, cacheKey(cfg, again))
}

func TestRedisCache_PassThroughWithoutRedis(t *testing.T) {
	mw := NewRedisCache(config.Cache{Enabled: true, Methods: []string{"GET"}}, nil)
	c, rec := newContext(http.MethodGet, "/api/tags", nil)
	require.NoError(t, mw(okHandler)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestRedisCache_MissThenHit(t *testing.T) {
	_, rdb := newRedis(t)
	var calls atomic.Int32
	e := cachedServer(rdb, &calls)

	first := get(e, "/api/tags", "https://a.example")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := get(e, "/api/tags", "https://b.example")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, int32(1), calls.Load())
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))

	// Request-dependent headers come from this request only.
	assert.Equal(t, []string{"https://b.example"}, second.Header().Values(echo.HeaderAccessControlAllowOrigin))
	assert.Len(t, second.Header().Values(echo.HeaderXContentTypeOptions), 1)
	assert.Len(t, second.Header().Values(echo.HeaderContentType), 1)
}

func TestRedisCache_StoresContentHeadersOnly(t *testing.T) {
	mr, rdb := newRedis(t)
	var calls atomic.Int32
	e := cachedServer(rdb, &calls)

	get(e, "/api/tags", "https://a.example")
	keys := mr.Keys()
	require.Len(t, keys, 1)
	raw, err := mr.Get(keys[0])
	require.NoError(t, err)
	assert.Contains(t, raw, echo.HeaderContentType)
	assert.NotContains(t, raw, "https://a.example")
	assert.NotContains(t, raw, echo.HeaderVary)
	assert.NotContains(t, raw, echo.HeaderXFrameOptions)
}

func TestRedisCache_SkipsErrorsAndExpires(t *testing.T) {
	mr, rdb := newRedis(t)
	var calls atomic.Int32
	e := cachedServer(rdb, &calls)

	assert.Equal(t, http.StatusNotFound, get(e, "/api/missing", "").Code)
	assert.Equal(t, http.StatusNotFound, get(e, "/api/missing", "").Code)
	assert.Equal(t, int32(2), calls.Load(), "non-200 responses are not stored")

	get(e, "/api/tags", "")
	mr.FastForward(31 * time.Second)
	rec := get(e, "/api/tags", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, int32(4), calls.Load())
}

func TestCacheCaches(t *testing.T) {
	cfg := config.Cache{Methods: []string{"GET", " head"}}
	assert.True(t, cfg.Caches(http.MethodGet))
	assert.True(t, cfg.Caches(http.MethodHead))
	assert.False(t, cfg.Caches(http.MethodPost))
}
