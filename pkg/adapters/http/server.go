package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	sequencer "github.com/scormlab/sequencer"
	"github.com/scormlab/sequencer/internal/logging"
	"github.com/scormlab/sequencer/pkg/manifest"
	"github.com/scormlab/sequencer/pkg/sequencing"
	"github.com/scormlab/sequencer/pkg/session"
)

// Server exposes the sequencing service as a JSON API.
type Server struct {
	service *sequencer.Service
	logger  *slog.Logger
	metrics http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts a Prometheus handler at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler builds the chi router for the service.
func NewHandler(service *sequencer.Service, opts ...Option) http.Handler {
	s := &Server{
		service: service,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Get("/openapi.yaml", s.openapi)
	r.Get("/swagger", s.swagger)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Post("/courses", s.registerCourse)
	r.Post("/sessions", s.createSession)
	r.Get("/sessions/{sessionID}", s.getSession)
	r.Delete("/sessions/{sessionID}", s.deleteSession)
	r.Post("/sessions/{sessionID}/navigate", s.navigate)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Request/response shapes ---

type registerCourseRequest struct {
	CourseID string `json:"courseId"`
	Manifest string `json:"manifest"`
}

type registerCourseResponse struct {
	CourseID      string `json:"courseId"`
	Title         string `json:"title"`
	ActivityCount int    `json:"activityCount"`
}

type createSessionRequest struct {
	LearnerID string `json:"learnerId"`
	CourseID  string `json:"courseId"`
}

type createSessionResponse struct {
	SessionID           string                         `json:"sessionId"`
	CurrentActivity     string                         `json:"currentActivity,omitempty"`
	NavigationState     string                         `json:"navigationState"`
	AvailableNavigation sequencing.AvailableNavigation `json:"availableNavigation"`
}

type navigateRequest struct {
	Type             string `json:"type"`
	TargetActivityID string `json:"targetActivityId,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// --- Handlers ---

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) registerCourse(w http.ResponseWriter, r *http.Request) {
	var body registerCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, "Invalid request body")
		return
	}
	if body.CourseID == "" || body.Manifest == "" {
		s.badRequest(w, "courseId and manifest are required")
		return
	}

	tree, err := s.service.RegisterCourse(body.CourseID, []byte(body.Manifest))
	if err != nil {
		var merr *manifest.Error
		if errors.As(err, &merr) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: merr.Error(), Kind: "ManifestError"})
			return
		}
		s.internalError(w, "register course", err)
		return
	}

	writeJSON(w, http.StatusCreated, registerCourseResponse{
		CourseID:      tree.CourseID,
		Title:         tree.Title,
		ActivityCount: tree.Count(),
	})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, "Invalid request body")
		return
	}
	if body.LearnerID == "" || body.CourseID == "" {
		s.badRequest(w, "learnerId and courseId are required")
		return
	}

	sess, nav, err := s.service.CreateSession(r.Context(), body.LearnerID, body.CourseID)
	if err != nil {
		if errors.Is(err, sequencer.ErrCourseNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Kind: "CourseNotFound"})
			return
		}
		s.internalError(w, "create session", err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID:           sess.ID,
		CurrentActivity:     sess.CurrentActivity,
		NavigationState:     "created",
		AvailableNavigation: nav,
	})
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, "Invalid request body")
		return
	}

	resp, err := s.service.Navigate(r.Context(), sessionID, sequencing.Request{
		Type:             sequencing.RequestType(body.Type),
		TargetActivityID: body.TargetActivityID,
	})
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Session not found", Kind: "SessionNotFound"})
			return
		}
		s.internalError(w, "navigate", err)
		return
	}

	// Failed navigations are part of the API contract, not HTTP errors:
	// the session state is untouched and the payload names the error kind.
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := s.service.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Session not found", Kind: "SessionNotFound"})
			return
		}
		s.internalError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.service.RemoveSession(r.Context(), sessionID); err != nil {
		s.internalError(w, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed", "op", op, "err", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("%s failed", op)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response encode failed", "err", err)
	}
}
