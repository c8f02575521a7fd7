package api

import (
	"net/http"
	"strings"
)

// GetQueryParam returns a trimmed query parameter, empty when absent
func GetQueryParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}
