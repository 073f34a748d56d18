package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/irctc-booking-supporter/internal/config"
	"github.com/iliyamo/irctc-booking-supporter/internal/utils"
)

const secret = "test-secret"

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, "shell-1", role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	g := e.Group("/v1", JWTAuth(secret), RequireRole(utils.RoleShell))
	g.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, shellID(c))
	})

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/whoami", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/whoami", "Bearer nope").Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/v1/whoami", bearer(t, "OTHER")).Code)

	rec := do(e, http.MethodGet, "/v1/whoami", bearer(t, utils.RoleShell))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shell-1", rec.Body.String())
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: 10 * time.Minute, KeyStrategy: "ip", Prefix: "test:rl",
	}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, rdb, nil))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	first := do(e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "/ping", "").Code)

	blocked := do(e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
}

func TestTokenBucketFailsOpenWithoutRedis(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute, TTL: time.Minute}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, rdb, nil))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "/ping", "").Code)
	}
}

func TestRedisCacheHitAndInvalidation(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "user_route_query", Prefix: "test:cache", MaxBodyBytes: 1 << 16,
	}
	calls := 0
	e := echo.New()
	g := e.Group("", NewRedisCache(cfg, rdb), InvalidateOnWrite(cfg, rdb))
	g.GET("/items", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	})
	g.POST("/items", func(c echo.Context) error { return c.NoContent(http.StatusCreated) })

	miss := do(e, http.MethodGet, "/items", "")
	assert.Equal(t, "MISS", miss.Header().Get("X-Cache"))
	hit := do(e, http.MethodGet, "/items", "")
	assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.Equal(t, miss.Body.String(), hit.Body.String())
	assert.Contains(t, hit.Header().Get(echo.HeaderContentType), "application/json")
	assert.Equal(t, 1, calls)

	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/items", "").Code)
	again := do(e, http.MethodGet, "/items", "")
	assert.Equal(t, "MISS", again.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestCacheSkipsErrorsAndOversizedBodies(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		Prefix: "test:cache", MaxBodyBytes: 8,
	}
	e := echo.New()
	e.Use(NewRedisCache(cfg, rdb))
	e.GET("/big", func(c echo.Context) error { return c.String(http.StatusOK, "much more than eight bytes") })
	e.GET("/missing", func(c echo.Context) error { return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"}) })

	do(e, http.MethodGet, "/big", "")
	assert.Equal(t, "MISS", do(e, http.MethodGet, "/big", "").Header().Get("X-Cache"))
	do(e, http.MethodGet, "/missing", "")
	assert.Equal(t, "MISS", do(e, http.MethodGet, "/missing", "").Header().Get("X-Cache"))
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
	require.NoError(t, err)
	st, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, st)
	assert.Equal(t, h, hdr)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}
