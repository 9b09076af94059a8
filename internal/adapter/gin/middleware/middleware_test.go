package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"user-onboarding-service/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, logger.GetRequestID(c.Request.Context())) })
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	return r
}

func get(r http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := get(r, "/ping", logger.RequestIDHeader, "req-123")
	assert.Equal(t, "req-123", w.Header().Get(logger.RequestIDHeader))
	assert.Equal(t, "req-123", w.Body.String())

	w = get(r, "/ping")
	id := w.Header().Get(logger.RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Body.String())
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newEngine(RequestID(), Logger(zap.New(core)))
	r.GET("/missing-user", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	get(r, "/ping", logger.RequestIDHeader, "req-1")
	get(r, "/missing-user")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := newEngine(Recovery(zap.New(core)))

	w := get(r, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestRateLimiter_Burst(t *testing.T) {
	client, _ := setupTestRedis(t)
	cfg := TokenBucketConfig{Enabled: true, RequestsPerSecond: 0.001, BurstCapacity: 3}
	r := newEngine(RateLimiter(client, cfg, zaptest.NewLogger(t)))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/ping").Code)
	}

	w := get(r, "/ping")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestRateLimiter_Refill(t *testing.T) {
	client, mr := setupTestRedis(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mr.SetTime(start)

	cfg := TokenBucketConfig{Enabled: true, RequestsPerSecond: 1, BurstCapacity: 1}
	r := newEngine(RateLimiter(client, cfg, zaptest.NewLogger(t)))

	assert.Equal(t, http.StatusOK, get(r, "/ping").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ping").Code)

	mr.SetTime(start.Add(1500 * time.Millisecond))
	assert.Equal(t, http.StatusOK, get(r, "/ping").Code)

	ttl := mr.TTL(TokenBucketKey(http.MethodGet, "/ping", "192.0.2.1"))
	assert.Equal(t, 60*time.Second, ttl)
}

func TestRateLimiter_PerClient(t *testing.T) {
	client, _ := setupTestRedis(t)
	cfg := TokenBucketConfig{Enabled: true, RequestsPerSecond: 0.001, BurstCapacity: 1}
	r := newEngine(RateLimiter(client, cfg, zaptest.NewLogger(t)))

	serve := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":4000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, serve("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, serve("10.0.0.1"))
	assert.Equal(t, http.StatusOK, serve("10.0.0.2"))
}

func TestRateLimiter_DisabledAndFailOpen(t *testing.T) {
	client, mr := setupTestRedis(t)

	disabled := newEngine(RateLimiter(client, TokenBucketConfig{Enabled: false, RequestsPerSecond: 0.001, BurstCapacity: 1}, zaptest.NewLogger(t)))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(disabled, "/ping").Code)
	}

	mr.SetError("ERR redis unavailable")
	failing := newEngine(RateLimiter(client, TokenBucketConfig{Enabled: true, RequestsPerSecond: 0.001, BurstCapacity: 1}, zaptest.NewLogger(t)))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(failing, "/ping").Code)
	}
}
