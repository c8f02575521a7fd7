package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/lcrostarosa/lastword/internal/logging"
	"github.com/lcrostarosa/lastword/internal/service"
)

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	if s.checkInSvc == nil {
		jsonError(w, http.StatusInternalServerError, "switch not configured")
		return
	}

	secret := GetQueryParam(r, "secret")
	expiry := GetQueryParam(r, "timestamp")
	result := s.checkInSvc.HandleCheckIn(r.Context(), secret, expiry)

	if s.redirectURL != "" {
		target, err := checkInRedirect(s.redirectURL, result)
		if err == nil {
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		logging.Warn("Invalid check-in redirect URL, answering with JSON", logging.Err(err))
	}

	jsonResponse(w, checkInStatus(result.Outcome), result)
}

// checkInStatus maps a check-in outcome to its HTTP status
func checkInStatus(o service.CheckInOutcome) int {
	switch o {
	case service.CheckInSuccess:
		return http.StatusOK
	case service.CheckInUnauthorized:
		return http.StatusUnauthorized
	case service.CheckInExpired:
		return http.StatusGone
	case service.CheckInMalformed:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

// checkInRedirect builds the result page URL carrying the outcome
func checkInRedirect(base string, result service.CheckInResult) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("status", string(result.Outcome))
	if result.Timestamp != 0 {
		q.Set("timestamp", strconv.FormatInt(result.Timestamp, 10))
	}
	if result.ExpiresAt != 0 {
		q.Set("expiresAt", strconv.FormatInt(result.ExpiresAt, 10))
		q.Set("currentTime", strconv.FormatInt(result.CurrentTime, 10))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
