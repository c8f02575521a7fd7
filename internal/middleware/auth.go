package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/lcrostarosa/lastword/internal/crypto"
	"github.com/lcrostarosa/lastword/internal/logging"
)

// CronAuth verifies the scheduler's bearer credential against a plaintext
// secret or an argon2id hash
type CronAuth struct {
	secret string
	hash   string
}

// NewCronAuth creates a verifier. When both are set the hash is used.
func NewCronAuth(secret, hash string) *CronAuth {
	return &CronAuth{secret: secret, hash: hash}
}

// Configured reports whether any credential is set
func (a *CronAuth) Configured() bool {
	return a != nil && (a.secret != "" || a.hash != "")
}

// Verify checks a presented credential
func (a *CronAuth) Verify(presented string) bool {
	if !a.Configured() || presented == "" {
		return false
	}
	if a.hash != "" {
		ok, err := crypto.VerifySecret(presented, a.hash)
		if err != nil {
			logging.Error("Configured cron secret hash is invalid", logging.Err(err))
			return false
		}
		return ok
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(a.secret)) == 1
}

// BearerToken extracts the token from an Authorization header
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// Middleware rejects requests without the credential. A missing credential
// configuration is a server error, not a client one.
func (a *CronAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Configured() {
			logging.Error("Scheduled endpoint called but no cron secret is configured",
				logging.String("path", r.URL.Path))
			writeError(w, http.StatusInternalServerError, "server configuration missing")
			return
		}
		if !a.Verify(BearerToken(r)) {
			logging.Warn("Unauthorized scheduled call", logging.String("path", r.URL.Path))
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
