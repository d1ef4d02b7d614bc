package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/config"
)

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0, 0})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok, "header length past the end")
}

func TestCacheKeyIsPerCaller(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "user_route_query"}

	c1, _ := newContext(http.MethodGet, "/api/dashboard/stats?x=1", "")
	c1.Set(userKey, admin)
	c2, _ := newContext(http.MethodGet, "/api/dashboard/stats?x=1", "")
	c2.Set(userKey, agent)
	c3, _ := newContext(http.MethodGet, "/api/dashboard/stats?x=2", "")
	c3.Set(userKey, agent)

	k1, k2, k3 := cacheKeyFrom(cfg, c1, "0"), cacheKeyFrom(cfg, c2, "0"), cacheKeyFrom(cfg, c3, "0")
	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k2, k3)
	assert.NotEqual(t, k1, cacheKeyFrom(cfg, c1, "1"))
	assert.Regexp(t, `^cache:[0-9a-f]{40}$`, k1)
}

func TestCaptureWriterLimit(t *testing.T) {
	_, rec := newContext(http.MethodGet, "/", "")
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}

	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.truncated())
	_, _ = cw.Write([]byte("def"))
	assert.True(t, cw.truncated())
	assert.Equal(t, "abcd", cw.buf.String())
	assert.Equal(t, "abcdef", rec.Body.String())
}

func TestCacheWithoutRedisPassesThrough(t *testing.T) {
	e := echo.New()
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: []string{"GET"}}, nil)
	e.Use(rc.Invalidate(), rc.Middleware())
	e.GET("/api/leads", okHandler)

	rec := hit(e, "1.1.1.1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

// memBackend is an in-memory stand-in for the Redis commands the cache uses.
type memBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemBackend() *memBackend { return &memBackend{data: map[string]string{}} }

func (m *memBackend) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memBackend) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	default:
		return redis.NewStatusResult("", errors.New("unsupported value"))
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memBackend) Incr(_ context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func TestCacheDropsEntriesAfterWrites(t *testing.T) {
	rc := newResponseCache(config.CacheConfig{Enabled: true, Methods: []string{"GET"}, Prefix: "cache"})
	rc.rdb = newMemBackend()

	count := 0
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		_ = c.JSON(apperr.Status(err), map[string]string{"error": apperr.Message(err)})
	}
	g := e.Group("/api", rc.Invalidate())
	g.GET("/tags", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]int{"count": count})
	}, rc.Middleware())
	g.PUT("/tags/:id", func(c echo.Context) error {
		if c.Param("id") == "404" {
			return apperr.NotFound("Lead not found")
		}
		count++
		return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
	})

	serve := func(method, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
		return rec
	}

	rec := serve(http.MethodGet, "/api/tags")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())

	count = 5
	rec = serve(http.MethodGet, "/api/tags")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())

	rec = serve(http.MethodPut, "/api/tags/404")
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(http.MethodGet, "/api/tags")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"), "failed writes keep the cache")

	rec = serve(http.MethodPut, "/api/tags/3")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(http.MethodGet, "/api/tags")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"count":6}`, rec.Body.String())
}
