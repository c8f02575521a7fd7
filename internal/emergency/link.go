package emergency

import (
	"crypto/subtle"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Query parameter names carried by a check-in link
const (
	ParamSecret = "secret"
	ParamExpiry = "timestamp"
)

// CheckInPath is the path a check-in link points at
const CheckInPath = "/api/keep-alive"

// LinkStatus is the result of validating a check-in link
type LinkStatus string

const (
	LinkOK           LinkStatus = "ok"
	LinkExpired      LinkStatus = "expired"
	LinkUnauthorized LinkStatus = "unauthorized"
	LinkMalformed    LinkStatus = "malformed"
)

// Link is a check-in capability: whoever holds an unexpired (secret, expiry)
// pair can reset the timer. Links are not single-use.
type Link struct {
	Secret    string `json:"-"`
	ExpiresAt int64  `json:"expires_at"` // epoch ms
}

// MintLink creates a link valid for the given window starting at now
func MintLink(secret string, now time.Time, validity time.Duration) Link {
	return Link{
		Secret:    secret,
		ExpiresAt: now.UnixMilli() + validity.Milliseconds(),
	}
}

// Expiry returns the expiry as a time.Time
func (l Link) Expiry() time.Time {
	return time.UnixMilli(l.ExpiresAt)
}

// URL renders the link against a public base URL
func (l Link) URL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", fmt.Errorf("public base URL not configured")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/") + CheckInPath)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set(ParamSecret, l.Secret)
	q.Set(ParamExpiry, strconv.FormatInt(l.ExpiresAt, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseLinkURL extracts the secret and raw expiry from a check-in URL
func ParseLinkURL(raw string) (secret, expiry string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse link: %w", err)
	}
	q := u.Query()
	return q.Get(ParamSecret), q.Get(ParamExpiry), nil
}

// ValidateLink checks a presented link. The secret is checked first so an
// unauthorized caller learns nothing about the expiry.
func ValidateLink(providedSecret, providedExpiry string, now int64, configuredSecret string) LinkStatus {
	if !SecretsEqual(providedSecret, configuredSecret) {
		return LinkUnauthorized
	}

	expiry, ok := ParseExpiry(providedExpiry)
	if !ok {
		return LinkMalformed
	}

	if now > expiry {
		return LinkExpired
	}
	return LinkOK
}

// ParseExpiry parses an epoch-millisecond expiry
func ParseExpiry(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SecretsEqual compares secrets in constant time. An empty configured
// secret never matches.
func SecretsEqual(provided, configured string) bool {
	if provided == "" || configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) == 1
}
