package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"slotbook/backend/internal/auth"
	"slotbook/backend/internal/metrics"
	"slotbook/backend/internal/service"
	"slotbook/backend/internal/service/categories"
	"slotbook/backend/internal/service/events"
	"slotbook/backend/internal/store"
)

type Server struct {
	events     *events.Service
	categories *categories.Service
	resolver   *auth.Resolver
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewServer(ev *events.Service, cat *categories.Service, resolver *auth.Resolver, m *metrics.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		events:     ev,
		categories: cat,
		resolver:   resolver,
		metrics:    m,
		log:        log.With(slog.String("component", "http")),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/events", s.handleListEvents)
		r.Post("/events", s.handleCreateEvent)
		r.Get("/events/allocated-time-slots", s.handleAllocatedTimeSlots)
		r.Get("/events/{eventId}", s.handleGetEvent)
		r.Patch("/events/{eventId}", s.handleUpdateEvent)
		r.Delete("/events/{eventId}", s.handleDeleteEvent)

		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleCreateCategory)
		r.Get("/categories/lecturer", s.handleLecturerCategories)
		r.Get("/categories/{categoryId}", s.handleGetCategory)
		r.Patch("/categories/{categoryId}", s.handleUpdateCategory)
		r.Delete("/categories/{categoryId}", s.handleDeleteCategory)

		r.Get("/category-owners", s.handleListOwners)
		r.Post("/category-owners", s.handleAddOwner)
		r.Delete("/category-owners", s.handleRemoveOwner)
		r.Delete("/lecturers/{email}", s.handleRemoveLecturer)
	})

	return r
}

// Auth

type statusKey struct{}

// authMiddleware resolves the bearer token into a Status. A request with no
// Authorization header is a guest; a header that does not resolve is 401.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		caller := auth.Guest()
		if strings.TrimSpace(header) != "" {
			token, ok := auth.BearerToken(header)
			if !ok {
				if s.metrics != nil {
					s.metrics.AuthFailed(auth.FailureMalformed)
				}
				writeError(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			resolved, err := s.resolver.ResolveAuth(r.Context(), token)
			if err != nil {
				s.log.Debug("token rejected", slog.Any("err", err))
				writeError(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			caller = resolved
		}
		ctx := context.WithValue(r.Context(), statusKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFromContext(ctx context.Context) auth.Status {
	if s, ok := ctx.Value(statusKey{}).(auth.Status); ok {
		return s
	}
	return auth.Guest()
}

// Helpers

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}

// writeServiceError maps service and store failures onto status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *service.ValidationError
		forbidden  *service.ForbiddenError
		notFound   *service.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: validation.Error(), Field: validation.Field})
	case errors.As(err, &forbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden", Message: forbidden.Error()})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: notFound.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, store.ErrConflict):
		if s.metrics != nil {
			s.metrics.EventOverlaps.Inc()
		}
		writeJSON(w, http.StatusConflict, errorResponse{Error: "overlap", Message: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable")
	default:
		s.log.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}
