// Package server exposes the aggregation operations over HTTP with a
// uniform response envelope. Authentication is injected: the caller
// supplies a function extracting the request principal, and token
// issuance stays outside this module.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YuCheng1122/threat-graph/internal/errs"
	"github.com/YuCheng1122/threat-graph/internal/logger"
	"github.com/YuCheng1122/threat-graph/internal/service"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

const timeLayout = "2006-01-02T15:04:05"

// PrincipalFunc extracts the authenticated principal from a request.
type PrincipalFunc func(r *http.Request) (models.Principal, error)

// envelope is the uniform response shape.
type envelope struct {
	Success bool        `json:"success"`
	Content interface{} `json:"content"`
	Message string      `json:"message"`
}

// Server routes dashboard requests to the service layer.
type Server struct {
	r         *chi.Mux
	svc       *service.Dashboard
	principal PrincipalFunc
}

// NewServer creates the HTTP surface over the given service.
func NewServer(svc *service.Dashboard, principal PrincipalFunc) *Server {
	s := &Server{r: chi.NewRouter(), svc: svc, principal: principal}

	s.r.Use(middleware.RequestID)
	s.r.Use(middleware.Recoverer)

	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })
	s.r.Handle("/metrics", promhttp.Handler())

	s.r.Route("/api/dashboard", func(r chi.Router) {
		r.Get("/alerts", s.getAlerts)
		r.Get("/tactic_linechart", s.getTacticLinechart)
		r.Get("/cve_barchart", s.getCVEBarchart)
		r.Get("/malicious_file_barchart", s.getMaliciousFileBarchart)
		r.Get("/authentication_piechart", s.getAuthenticationBreakdown)
		r.Get("/ioc", s.getIoCBreakdown)
		r.Get("/pie_charts", s.getPieCharts)
		r.Get("/agent_summary", s.getAgentSummary)
		r.Get("/event_table", s.getEventTable)
		r.Get("/agent_name", s.getAgentEventCounts)
		r.Get("/total_event", s.getTotalEvents)
	})

	s.r.Route("/api/agent_detail", func(r chi.Router) {
		r.Get("/agent_info", s.getAgentInfo)
		r.Get("/mitre", s.getMitreCorrelation)
	})

	s.r.Get("/api/detections", s.getDetections)

	s.r.Route("/api/intake", func(r chi.Router) {
		r.Post("/agent", s.postAgent)
		r.Post("/events", s.postEvents)
	})
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.r }

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Errorf("Encoding response failed: %v", err)
	}
}

func writeContent(w http.ResponseWriter, content interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Content: content})
}

// writeError maps the error taxonomy onto HTTP statuses. Unknown
// errors collapse to 500 without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var message string
	switch {
	case errors.Is(err, errs.ErrPermissionDenied):
		status, message = http.StatusForbidden, "permission denied"
	case errors.Is(err, errs.ErrInvalidRange):
		status, message = http.StatusBadRequest, "invalid time range"
	case errors.Is(err, errs.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, errs.ErrBackendUnavailable):
		status, message = http.StatusBadGateway, "backend unavailable"
	default:
		status, message = http.StatusInternalServerError, "internal error"
	}
	if status == http.StatusInternalServerError {
		logger.Errorf("Request failed: %v", err)
	}
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func (s *Server) auth(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, err := s.principal(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "unauthorized"})
		return models.Principal{}, false
	}
	return p, true
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	start, err := time.Parse(timeLayout, r.URL.Query().Get("start_time"))
	if err != nil {
		return time.Time{}, time.Time{}, errs.ErrInvalidRange
	}
	end, err := time.Parse(timeLayout, r.URL.Query().Get("end_time"))
	if err != nil {
		return time.Time{}, time.Time{}, errs.ErrInvalidRange
	}
	return start, end, nil
}

// rangeHandler wraps the common shape of the aggregation endpoints:
// authenticate, parse the range, run one service call.
func (s *Server) rangeHandler(run func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := s.auth(w, r)
		if !ok {
			return
		}
		start, end, err := parseRange(r)
		if err != nil {
			writeError(w, err)
			return
		}
		content, err := run(r, p, start, end)
		if err != nil {
			writeError(w, err)
			return
		}
		writeContent(w, content)
	}
}

func (s *Server) getAlerts(w http.ResponseWriter, r *http.Request) {
	s.rangeHandler(func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error) {
		return s.svc.Alerts(r.Context(), p, start, end)
	})(w, r)
}

func (s *Server) getTacticLinechart(w http.ResponseWriter, r *http.Request) {
	s.rangeHandler(func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error) {
		return s.svc.TacticLinechart(r.Context(), p, start, end)
	})(w, r)
}

func (s *Server) getCVEBarchart(w http.ResponseWriter, r *http.Request) {
	s.rangeHandler(func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error) {
		return s.svc.CVEBarchart(r.Context(), p, start, end)
	})(w, r)
}

func (s *Server) getMaliciousFileBarchart(w http.ResponseWriter, r *http.Request) {
	s.rangeHandler(func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error) {
		return s.svc.MaliciousFileBarchart(r.Context(), p, start, end)
	})(w, r)
}

func (s *Server) getAuthenticationBreakdown(w http.ResponseWriter, r *http.Request) {
	s.rangeHandler(func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error) {
		return s.svc.AuthenticationBreakdown(r.Context(), p, start, end)
	})(w, r)
}

func (s *Server) getIoCBreakdown(w http.ResponseWriter, r *http.Request) {
	s.rangeHandler(func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error) {
		return s.svc.IoCBreakdown(r.Context(), p, start, end)
	})(w, r)
}

func (s *Server) getPieCharts(w http.ResponseWriter, r *http.Request) {
	s.rangeHandler(func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error) {
		return s.svc.PieCharts(r.Context(), p, start, end)
	})(w, r)
}

func (s *Server) getAgentSummary(w http.ResponseWriter, r *http.Request) {
	s.rangeHandler(func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error) {
		return s.svc.AgentSummary(r.Context(), p, start, end)
	})(w, r)
}

func (s *Server) getEventTable(w http.ResponseWriter, r *http.Request) {
	s.rangeHandler(func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error) {
		return s.svc.EventTable(r.Context(), p, start, end)
	})(w, r)
}

func (s *Server) getAgentEventCounts(w http.ResponseWriter, r *http.Request) {
	s.rangeHandler(func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error) {
		return s.svc.AgentEventCounts(r.Context(), p, start, end)
	})(w, r)
}

func (s *Server) getTotalEvents(w http.ResponseWriter, r *http.Request) {
	s.rangeHandler(func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error) {
		count, err := s.svc.TotalEvents(r.Context(), p, start, end)
		if err != nil {
			return nil, err
		}
		return map[string]int{"count": count}, nil
	})(w, r)
}

func (s *Server) getAgentInfo(w http.ResponseWriter, r *http.Request) {
	s.rangeHandler(func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error) {
		return s.svc.AgentInfo(r.Context(), p, r.URL.Query().Get("agent_name"), start, end)
	})(w, r)
}

func (s *Server) getMitreCorrelation(w http.ResponseWriter, r *http.Request) {
	s.rangeHandler(func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error) {
		return s.svc.MitreCorrelation(r.Context(), p, r.URL.Query().Get("agent_name"), start, end)
	})(w, r)
}

func (s *Server) getDetections(w http.ResponseWriter, r *http.Request) {
	s.rangeHandler(func(r *http.Request, p models.Principal, start, end time.Time) (interface{}, error) {
		return s.svc.Detections(r.Context(), p, r.URL.Query().Get("account"), start, end)
	})(w, r)
}

func (s *Server) postAgent(w http.ResponseWriter, r *http.Request) {
	p, ok := s.auth(w, r)
	if !ok {
		return
	}
	var agent models.Agent
	if err := json.NewDecoder(r.Body).Decode(&agent); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "malformed agent record"})
		return
	}
	if err := s.svc.SaveAgent(r.Context(), p, agent); err != nil {
		writeError(w, err)
		return
	}
	writeContent(w, map[string]string{"agent_id": agent.AgentID})
}

func (s *Server) postEvents(w http.ResponseWriter, r *http.Request) {
	p, ok := s.auth(w, r)
	if !ok {
		return
	}
	var events []models.WazuhEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "malformed event batch"})
		return
	}
	accepted, err := s.svc.SaveEvents(r.Context(), p, events)
	if err != nil {
		writeError(w, err)
		return
	}
	writeContent(w, map[string]int{"accepted": accepted})
}
