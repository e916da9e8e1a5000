// Package httpapi exposes the negotiator over HTTP: a streaming endpoint
// that runs a negotiation and emits each turn as it happens, a report
// endpoint for finished rooms, and a health check.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/crosslead/negotiator/common/trace"
	"github.com/crosslead/negotiator/internal/negotiator/observability"
	"github.com/crosslead/negotiator/internal/negotiator/session"
	"github.com/crosslead/negotiator/internal/negotiator/store"
)

// Negotiator runs negotiations; satisfied by *session.Orchestrator.
type Negotiator interface {
	Negotiate(ctx context.Context, leadID int64) <-chan session.TurnEvent
}

// ReportBuilder produces markdown reports; satisfied by *report.Builder.
type ReportBuilder interface {
	Build(ctx context.Context, roomID string) (string, error)
}

// ChatResponder answers one-off company messages; satisfied by *chat.Service.
type ChatResponder interface {
	SendMessage(ctx context.Context, companyID int64, contents, roomID string) (*store.ChatMessage, error)
}

// Server is the HTTP surface of the negotiator.
type Server struct {
	negotiator Negotiator
	reports    ReportBuilder
	chats      ChatResponder
	logger     *slog.Logger
}

// New creates a Server. A nil logger uses the default.
func New(negotiator Negotiator, reports ReportBuilder, chats ChatResponder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{negotiator: negotiator, reports: reports, chats: chats, logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /negotiations", s.handleNegotiate)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /rooms/{id}/summary", s.handleRoomSummary)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.withTrace(mux)
}

// withTrace stamps each request with a trace ID carried through the session.
func (s *Server) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = trace.GenerateID()
		}
		w.Header().Set("X-Trace-ID", traceID)
		next.ServeHTTP(w, r.WithContext(trace.WithTraceID(r.Context(), traceID)))
	})
}

type negotiateRequest struct {
	LeadID int64 `json:"lead_id"`
}

// turnRecord is one line of the negotiation stream.
type turnRecord struct {
	ID            int64     `json:"id"`
	RoomID        string    `json:"room_id"`
	FromCompanyID int64     `json:"from_company_id"`
	ToCompanyID   int64     `json:"to_company_id"`
	FromName      string    `json:"from_name"`
	ToName        string    `json:"to_name"`
	Contents      string    `json:"contents"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// errorRecord terminates a stream that cannot continue.
type errorRecord struct {
	Error string `json:"error"`
}

// handleNegotiate runs a negotiation and streams its turns as ndjson, one
// record per line, flushed as they happen. A terminal failure appears as a
// final {"error": ...} line; headers are long gone by then, so the status
// code cannot carry it.
func (s *Server) handleNegotiate(w http.ResponseWriter, r *http.Request) {
	log := observability.WithTrace(r.Context())

	var req negotiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LeadID <= 0 {
		s.writeError(w, http.StatusBadRequest, "lead_id must be a positive integer")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	for ev := range s.negotiator.Negotiate(r.Context(), req.LeadID) {
		if ev.Err != nil {
			log.Error("negotiation failed", "lead_id", req.LeadID, "err", ev.Err)
			enc.Encode(errorRecord{Error: ev.Err.Error()})
			flusher.Flush()
			return
		}
		m := ev.Message
		rec := turnRecord{
			ID:            m.ID,
			RoomID:        m.RoomID,
			FromCompanyID: m.FromCompanyID,
			ToCompanyID:   m.ToCompanyID,
			FromName:      ev.FromName,
			ToName:        ev.ToName,
			Contents:      m.Contents,
			CreatedAt:     m.CreatedAt,
			UpdatedAt:     m.UpdatedAt,
		}
		if err := enc.Encode(rec); err != nil {
			// Client went away; the orchestrator winds down via r.Context().
			log.Debug("stream write failed", "err", err)
			return
		}
		flusher.Flush()
	}
}

type chatRequest struct {
	CompanyID int64  `json:"company_id"`
	Contents  string `json:"contents"`
	RoomID    string `json:"room_id,omitempty"`
}

type chatResponse struct {
	ID        int64     `json:"id"`
	RoomID    string    `json:"room_id"`
	Contents  string    `json:"contents"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// handleChat answers one message as a company's assistant, outside any
// negotiation.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := observability.WithTrace(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyID <= 0 {
		s.writeError(w, http.StatusBadRequest, "company_id must be a positive integer")
		return
	}
	if req.Contents == "" {
		s.writeError(w, http.StatusBadRequest, "contents must not be empty")
		return
	}

	msg, err := s.chats.SendMessage(r.Context(), req.CompanyID, req.Contents, req.RoomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Error("chat reply failed", "company_id", req.CompanyID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to answer message")
		return
	}

	s.writeJSON(w, http.StatusOK, chatResponse{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		Contents:  msg.Contents,
		CreatedAt: msg.CreatedAt,
		UpdatedAt: msg.UpdatedAt,
	})
}

type summaryResponse struct {
	RoomID string `json:"room_id"`
	Report string `json:"report"`
}

func (s *Server) handleRoomSummary(w http.ResponseWriter, r *http.Request) {
	log := observability.WithTrace(r.Context())

	roomID := r.PathValue("id")
	if roomID == "" {
		s.writeError(w, http.StatusBadRequest, "room id required")
		return
	}

	report, err := s.reports.Build(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("room %s not found", roomID))
			return
		}
		log.Error("report build failed", "room_id", roomID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	s.writeJSON(w, http.StatusOK, summaryResponse{RoomID: roomID, Report: report})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("response write failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorRecord{Error: message})
}
