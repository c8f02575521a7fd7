package api

import (
	"context"
	"net/http"

	"github.com/lcrostarosa/lastword/internal/service"
)

func (s *Server) handleDailyCheck(w http.ResponseWriter, r *http.Request) {
	s.runCheck(w, r, s.switchSvc.RunDailyCheck)
}

func (s *Server) handleReminderCheck(w http.ResponseWriter, r *http.Request) {
	s.runCheck(w, r, s.switchSvc.RunReminderCheck)
}

func (s *Server) handleInactivityCheck(w http.ResponseWriter, r *http.Request) {
	s.runCheck(w, r, s.switchSvc.RunInactivityCheck)
}

func (s *Server) runCheck(w http.ResponseWriter, r *http.Request, run func(context.Context) *service.Report) {
	if s.switchSvc == nil {
		jsonError(w, http.StatusInternalServerError, "switch not configured")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), checkTimeout)
	defer cancel()

	report := run(ctx)
	jsonResponse(w, reportStatus(report.Outcome), report)
}

// reportStatus maps a run outcome to its HTTP status
func reportStatus(o service.Outcome) int {
	switch o {
	case service.OutcomeSuccess:
		return http.StatusOK
	case service.OutcomePartial:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.statusSvc == nil {
		jsonError(w, http.StatusInternalServerError, "switch not configured")
		return
	}
	status := s.statusSvc.GetStatus(r.Context())
	code := http.StatusOK
	if status.Error != "" {
		code = http.StatusServiceUnavailable
	}
	jsonResponse(w, code, status)
}
