package api

import (
	"net/http"
)

// registerRoutes sets up all API routes using Go 1.22+ method-based routing
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Health
	mux.HandleFunc("GET /health", s.handleHealth)

	// Scheduled checks (cron credential)
	cron := s.cronAuth.Middleware
	daily := cron(http.HandlerFunc(s.handleDailyCheck))
	mux.Handle("GET /api/daily-check", daily)
	mux.Handle("POST /api/daily-check", daily)

	reminder := cron(http.HandlerFunc(s.handleReminderCheck))
	mux.Handle("GET /api/send-keep-alive-email", reminder)
	mux.Handle("POST /api/send-keep-alive-email", reminder)

	inactivity := cron(http.HandlerFunc(s.handleInactivityCheck))
	mux.Handle("GET /api/inactivity-check", inactivity)
	mux.Handle("POST /api/inactivity-check", inactivity)
	mux.Handle("GET /api/check-and-send", inactivity)

	mux.Handle("GET /api/status", cron(http.HandlerFunc(s.handleStatus)))

	// Check-in links (rate limited, authenticated by the link secret)
	checkIn := s.limiter.Middleware(http.HandlerFunc(s.handleCheckIn))
	mux.Handle("GET /api/keep-alive", checkIn)
	mux.Handle("GET /api/check-in", checkIn)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
}
