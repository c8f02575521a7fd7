// Package middleware provides HTTP middleware for the API server
package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lcrostarosa/lastword/internal/logging"
)

// RateLimitConfig configures the per-client limiter
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate per client IP
	RequestsPerMinute int
	// Burst is the number of requests allowed at once
	Burst int
	// CleanupInterval is how often idle limiters are dropped
	CleanupInterval time.Duration
	// MaxAge is how long an idle limiter is kept
	MaxAge time.Duration
	// TrustProxy reads the client IP from X-Forwarded-For / X-Real-IP
	TrustProxy bool
}

// DefaultRateLimitConfig suits the check-in endpoint: a person clicking a link
// needs a handful of requests, a guesser needs many.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerMinute: 10,
		Burst:             5,
		CleanupInterval:   time.Minute,
		MaxAge:            10 * time.Minute,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP
type RateLimiter struct {
	config   RateLimitConfig
	limiters map[string]*clientLimiter
	mu       sync.Mutex
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter creates a limiter and starts its cleanup loop. Zero fields
// in config take their defaults.
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	cfg := *DefaultRateLimitConfig()
	if config != nil {
		if config.RequestsPerMinute > 0 {
			cfg.RequestsPerMinute = config.RequestsPerMinute
		}
		if config.Burst > 0 {
			cfg.Burst = config.Burst
		}
		if config.CleanupInterval > 0 {
			cfg.CleanupInterval = config.CleanupInterval
		}
		if config.MaxAge > 0 {
			cfg.MaxAge = config.MaxAge
		}
		cfg.TrustProxy = config.TrustProxy
	}

	rl := &RateLimiter{
		config:   cfg,
		limiters: make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if cl, ok := rl.limiters[ip]; ok {
		cl.lastSeen = time.Now()
		return cl.limiter
	}

	every := time.Minute / time.Duration(rl.config.RequestsPerMinute)
	cl := &clientLimiter{
		limiter:  rate.NewLimiter(rate.Every(every), rl.config.Burst),
		lastSeen: time.Now(),
	}
	rl.limiters[ip] = cl
	return cl.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.config.MaxAge)
	for ip, cl := range rl.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.limiters, ip)
		}
	}
}

// Stop ends the cleanup loop. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware rejects clients over their rate with 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.clientIP(r)
		if !rl.limiterFor(ip).Allow() {
			logging.Warn("Rate limit exceeded",
				logging.String("ip", ip),
				logging.String("path", r.URL.Path))
			retry := time.Minute / time.Duration(rl.config.RequestsPerMinute)
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) clientIP(r *http.Request) string {
	if rl.config.TrustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
