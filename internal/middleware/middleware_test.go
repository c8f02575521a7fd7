package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcrostarosa/lastword/internal/crypto"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func request(h http.Handler, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/keep-alive", nil)
	req.RemoteAddr = "203.0.113.7:4321"
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{RequestsPerMinute: 1, Burst: 2})
	defer rl.Stop()
	h := rl.Middleware(okHandler)

	assert.Equal(t, http.StatusOK, request(h, nil).Code)
	assert.Equal(t, http.StatusOK, request(h, nil).Code)

	rec := request(h, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "too many requests")

	other := request(h, func(r *http.Request) { r.RemoteAddr = "198.51.100.1:1" })
	assert.Equal(t, http.StatusOK, other.Code, "limits are per client")
}

func TestRateLimiterProxyHeaders(t *testing.T) {
	direct := NewRateLimiter(nil)
	defer direct.Stop()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:80"
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "10.0.0.1", direct.clientIP(req), "headers ignored unless trusted")

	proxied := NewRateLimiter(&RateLimitConfig{TrustProxy: true})
	defer proxied.Stop()
	assert.Equal(t, "1.2.3.4", proxied.clientIP(req))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "5.6.7.8")
	assert.Equal(t, "5.6.7.8", proxied.clientIP(req))
}

func TestRateLimiterStopTwice(t *testing.T) {
	rl := NewRateLimiter(nil)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestCronAuthPlain(t *testing.T) {
	h := NewCronAuth("cron-secret", "").Middleware(okHandler)

	ok := request(h, func(r *http.Request) { r.Header.Set("Authorization", "Bearer cron-secret") })
	assert.Equal(t, http.StatusOK, ok.Code)

	lower := request(h, func(r *http.Request) { r.Header.Set("Authorization", "bearer cron-secret") })
	assert.Equal(t, http.StatusOK, lower.Code)

	bad := request(h, func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") })
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	missing := request(h, nil)
	assert.Equal(t, http.StatusUnauthorized, missing.Code)

	basic := request(h, func(r *http.Request) { r.Header.Set("Authorization", "Basic Y3Jvbi1zZWNyZXQ=") })
	assert.Equal(t, http.StatusUnauthorized, basic.Code)
}

func TestCronAuthHash(t *testing.T) {
	hash, err := crypto.HashSecret("hashed-secret")
	require.NoError(t, err)
	auth := NewCronAuth("ignored-when-hash-set", hash)

	assert.True(t, auth.Verify("hashed-secret"))
	assert.False(t, auth.Verify("ignored-when-hash-set"))

	broken := NewCronAuth("", "$argon2id$garbage")
	assert.False(t, broken.Verify("anything"))
}

func TestCronAuthNotConfigured(t *testing.T) {
	h := NewCronAuth("", "").Middleware(okHandler)
	rec := request(h, func(r *http.Request) { r.Header.Set("Authorization", "Bearer x") })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var nilAuth *CronAuth
	assert.False(t, nilAuth.Configured())
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(req))
	req.Header.Set("Authorization", "Bearer ")
	assert.Empty(t, BearerToken(req))
	req.Header.Set("Authorization", "Bearer  abc ")
	assert.Equal(t, "abc", BearerToken(req))
}
