package api

import (
	"encoding/json"
	"net/http"

	"github.com/lcrostarosa/lastword/internal/logging"
)

// jsonResponse writes v as JSON with the given status
func jsonResponse(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to encode response", logging.Err(err))
	}
}

// jsonError writes an error body with the given status
func jsonError(w http.ResponseWriter, status int, msg string) {
	jsonResponse(w, status, map[string]string{"error": msg})
}
