// Package api provides the HTTP surface of the switch: scheduled check
// endpoints, the check-in link target, status and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/lcrostarosa/lastword/internal/logging"
	"github.com/lcrostarosa/lastword/internal/middleware"
	"github.com/lcrostarosa/lastword/internal/service"
)

// checkTimeout bounds a scheduled check started over HTTP. The check runs
// detached from the request so a disconnecting caller cannot interrupt the
// state writes that follow a send.
const checkTimeout = 2 * time.Minute

// Options wires a server to its services
type Options struct {
	Addr string

	Switch  *service.SwitchService
	CheckIn *service.CheckInService
	Status  *service.StatusService

	CronAuth  *middleware.CronAuth
	RateLimit *middleware.RateLimitConfig

	// CheckInRedirectURL, when set, turns check-in responses into redirects
	// to a result page instead of JSON
	CheckInRedirectURL string

	// Metrics serves /metrics when set
	Metrics http.Handler
}

// Server is the HTTP API server
type Server struct {
	httpServer *http.Server
	limiter    *middleware.RateLimiter
	addr       string

	// Services (business logic layer)
	switchSvc  *service.SwitchService
	checkInSvc *service.CheckInService
	statusSvc  *service.StatusService

	cronAuth    *middleware.CronAuth
	redirectURL string
	metrics     http.Handler
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	s := &Server{
		addr:        opts.Addr,
		switchSvc:   opts.Switch,
		checkInSvc:  opts.CheckIn,
		statusSvc:   opts.Status,
		cronAuth:    opts.CronAuth,
		redirectURL: opts.CheckInRedirectURL,
		metrics:     opts.Metrics,
		limiter:     middleware.NewRateLimiter(opts.RateLimit),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      withLogging(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: checkTimeout + 15*time.Second,
		ErrorLog:     logging.StdLogger(),
	}
	return s
}

// HTTPServer returns the underlying server for lifecycle management
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Shutdown stops the rate limiter and gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

// Close releases background resources without serving
func (s *Server) Close() {
	s.limiter.Stop()
}

// Addr returns the server's listen address
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
