// Package http exposes the chat pipeline and the reports store over JSON.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"wellness-chatbot/internal/core"
	"wellness-chatbot/internal/db"
	"wellness-chatbot/internal/reports"
	"wellness-chatbot/pkg"
	"wellness-chatbot/pkg/logging"
)

const (
	maxBodyBytes         = 1 << 20
	defaultAnalyticsDays = 7
	maxAnalyticsDays     = 365
)

// ChatHandler answers one chat request.  core.ChatService implements it.
type ChatHandler interface {
	Handle(ctx context.Context, req *pkg.ChatRequest) (pkg.Response, error)
}

// ReportStore persists and reads reports.  db.Repository implements it.
type ReportStore interface {
	reports.Source
	SaveReport(ctx context.Context, userID, companyID string, rep pkg.WellnessReport) (*pkg.StoredReport, error)
	GetReport(ctx context.Context, id string) (*pkg.StoredReport, error)
}

// ReportNotifier announces saved reports.
type ReportNotifier interface {
	Notify(ctx context.Context, msg db.ReportSaved) error
}

// Pinger checks a backing store for /health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server bundles together the dependencies required by HTTP handlers.
// Reports, Notifier and DB are nil when no database is configured.
type Server struct {
	Chat     ChatHandler
	Reports  ReportStore
	Notifier ReportNotifier
	DB       Pinger
	Logger   *logging.Logger
}

// NewServer constructs a Server.
func NewServer(chat ChatHandler, store ReportStore, notifier ReportNotifier, pinger Pinger, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{Chat: chat, Reports: store, Notifier: notifier, DB: pinger, Logger: logger}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	var probe struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || !isJSONArray(probe.Messages) {
		writeError(w, http.StatusBadRequest, "Messages array is required", "")
		return
	}
	var req pkg.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	resp, err := s.Chat.Handle(r.Context(), &req)
	switch {
	case errors.Is(err, core.ErrMessagesRequired):
		writeError(w, http.StatusBadRequest, "Messages array is required", "")
		return
	case err != nil:
		s.Logger.ErrorContext(r.Context(), "chat request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process chat request", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pkg.NewEnvelope(resp))
}

func (s *Server) handleSaveReport(w http.ResponseWriter, r *http.Request) {
	if s.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, "Reports store is not configured", "")
		return
	}
	var req pkg.SaveReportRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.UserID == "" || req.CompanyID == "" {
		writeError(w, http.StatusBadRequest, "userId and companyId are required", "")
		return
	}
	for name, score := range req.Report.Scores() {
		if *score < 1 || *score > 10 {
			writeError(w, http.StatusBadRequest, "Scores must be between 1 and 10", name)
			return
		}
	}
	if req.Report.SessionType != pkg.SessionVoice {
		req.Report.SessionType = pkg.SessionText
	}

	stored, err := s.Reports.SaveReport(r.Context(), req.UserID, req.CompanyID, req.Report)
	if err != nil {
		s.Logger.ErrorContext(r.Context(), "save report failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save report", err.Error())
		return
	}
	if s.Notifier != nil {
		if err := s.Notifier.Notify(r.Context(), db.ReportSaved{ID: stored.ID, CompanyID: stored.CompanyID}); err != nil {
			s.Logger.WarnContext(r.Context(), "report notification failed", "report_id", stored.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": stored.ID})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, "Reports store is not configured", "")
		return
	}
	id := chi.URLParam(r, "reportID")
	rep, err := s.Reports.GetReport(r.Context(), id)
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "Report not found", "")
		return
	case err != nil:
		s.Logger.ErrorContext(r.Context(), "load report failed", "report_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load report", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type analyticsResponse struct {
	CompanyID string             `json:"company_id"`
	Days      int                `json:"days"`
	Anonymous bool               `json:"anonymous"`
	Analytics *reports.Analytics `json:"analytics,omitempty"`
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if s.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, "Reports store is not configured", "")
		return
	}
	companyID := chi.URLParam(r, "companyID")
	days := defaultAnalyticsDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxAnalyticsDays {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 365", "")
			return
		}
		days = n
	}

	recent, err := s.Reports.GetRecentReports(r.Context(), companyID, days)
	if err != nil {
		s.Logger.ErrorContext(r.Context(), "load analytics failed", "company_id", companyID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load analytics", err.Error())
		return
	}
	a := reports.GenerateAnalytics(recent)
	resp := analyticsResponse{CompanyID: companyID, Days: days, Anonymous: a.Anonymous()}
	// Groups below the anonymity floor get no aggregates at all.
	if resp.Anonymous {
		resp.Analytics = &a
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.DB != nil {
		if err := s.DB.PingContext(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}
	writeJSON(w, http.StatusOK, status)
}

func isJSONArray(raw json.RawMessage) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, pkg.ErrorResponse{Error: msg, Details: details})
}
