package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newIdempotentRouter(t *testing.T, status int) (*gin.Engine, *int32, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	var calls int32
	r := gin.New()
	r.Use(IdempotencyMiddleware(client, time.Hour))
	r.POST("/v1/devices/:id/samples", func(c *gin.Context) {
		n := atomic.AddInt32(&calls, 1)
		c.JSON(status, gin.H{"call": n, "device": c.Param("id")})
	})
	r.GET("/v1/devices/:id/trip", func(c *gin.Context) {
		atomic.AddInt32(&calls, 1)
		c.JSON(http.StatusOK, gin.H{})
	})
	return r, &calls, mr
}

func send(r *gin.Engine, method, path, key string) *httptest.ResponseRecorder {
	return sendBody(r, method, path, key, `{}`)
}

func sendBody(r *gin.Engine, method, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	r, calls, mr := newIdempotentRouter(t, http.StatusCreated)

	first := send(r, http.MethodPost, "/v1/devices/car-1/samples", "k1")
	second := send(r, http.MethodPost, "/v1/devices/car-1/samples", "k1")

	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.Empty(t, first.Header().Get(ReplayedHeader))
	assert.Contains(t, second.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, time.Hour, mr.TTL("idempotency:/v1/devices/car-1/samples:k1"))
}

func TestIdempotency_KeysAreScopedByPath(t *testing.T) {
	r, calls, _ := newIdempotentRouter(t, http.StatusCreated)

	send(r, http.MethodPost, "/v1/devices/car-1/samples", "same")
	w := send(r, http.MethodPost, "/v1/devices/car-2/samples", "same")

	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	assert.Contains(t, w.Body.String(), "car-2")
}

func TestIdempotency_KeyReusedWithDifferentBody(t *testing.T) {
	r, calls, _ := newIdempotentRouter(t, http.StatusCreated)

	sendBody(r, http.MethodPost, "/v1/devices/car-1/samples", "k1", `{"lat":1}`)
	w := sendBody(r, http.MethodPost, "/v1/devices/car-1/samples", "k1", `{"lat":2}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestIdempotency_Bypassed(t *testing.T) {
	testCases := []struct {
		name   string
		method string
		path   string
		key    string
		status int
	}{
		{name: "no key", method: http.MethodPost, path: "/v1/devices/car-1/samples", status: http.StatusCreated},
		{name: "GET request", method: http.MethodGet, path: "/v1/devices/car-1/trip", key: "k", status: http.StatusOK},
		{name: "conflict not stored", method: http.MethodPost, path: "/v1/devices/car-1/samples", key: "k", status: http.StatusConflict},
		{name: "server error not stored", method: http.MethodPost, path: "/v1/devices/car-1/samples", key: "k", status: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, calls, _ := newIdempotentRouter(t, tc.status)
			send(r, tc.method, tc.path, tc.key)
			send(r, tc.method, tc.path, tc.key)
			assert.Equal(t, int32(2), atomic.LoadInt32(calls))
		})
	}
}

func TestIdempotency_RedisDown_PassesThrough(t *testing.T) {
	r, calls, mr := newIdempotentRouter(t, http.StatusCreated)
	mr.Close()

	w := send(r, http.MethodPost, "/v1/devices/car-1/samples", "k1")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"), "no CORS headers without Origin")
}

func TestDeviceAttributeMiddleware_NoTransaction(t *testing.T) {
	r := gin.New()
	r.GET("/v1/devices/:id/trip", DeviceAttributeMiddleware(), func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/devices/car-1/trip", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
