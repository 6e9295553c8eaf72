package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"slotbook/backend/internal/domain"
	"slotbook/backend/internal/service/events"
)

type eventResponse struct {
	ID              string    `json:"id"`
	CategoryID      int64     `json:"categoryId"`
	BookingName     string    `json:"bookingName"`
	BookingEmail    string    `json:"bookingEmail"`
	StartTime       time.Time `json:"startTime"`
	DurationMinutes int       `json:"durationMinutes"`
	EndTime         time.Time `json:"endTime"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:              e.ID.String(),
		CategoryID:      e.CategoryID,
		BookingName:     e.BookingName,
		BookingEmail:    e.BookingEmail,
		StartTime:       e.StartTime.UTC(),
		DurationMinutes: e.DurationMinutes,
		EndTime:         e.EndTime().UTC(),
		Notes:           e.Notes,
		CreatedAt:       e.CreatedAt.UTC(),
		UpdatedAt:       e.UpdatedAt.UTC(),
	}
}

type slotResponse struct {
	StartTime       time.Time `json:"startTime"`
	DurationMinutes int       `json:"durationMinutes"`
	EndTime         time.Time `json:"endTime"`
}

type createEventRequest struct {
	CategoryID   int64     `json:"categoryId"`
	BookingName  string    `json:"bookingName"`
	BookingEmail string    `json:"bookingEmail"`
	StartTime    time.Time `json:"startTime"`
	Notes        string    `json:"notes"`
}

type updateEventRequest struct {
	StartTime *time.Time `json:"startTime"`
	Notes     *string    `json:"notes"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	caller := callerFromContext(r.Context())
	if caller.IsGuest() {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	query := r.URL.Query()
	categoryIDs, err := parseCategoryIDs(query["categoryId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_category_id")
		return
	}
	startAt, err := parseOptionalTime(query.Get("startAt"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_at")
		return
	}

	rows, err := s.events.ListEvents(r.Context(), caller, events.ListOptions{
		CategoryIDs: categoryIDs,
		Mode:        domain.ParseWindowMode(query.Get("type")),
		StartAt:     startAt,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := make([]eventResponse, 0, len(rows))
	for _, e := range rows {
		resp = append(resp, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	e, err := s.events.CreateEvent(r.Context(), callerFromContext(r.Context()), events.CreateInput{
		CategoryID:   req.CategoryID,
		BookingName:  req.BookingName,
		BookingEmail: req.BookingEmail,
		StartTime:    req.StartTime,
		Notes:        req.Notes,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if s.metrics != nil {
		s.metrics.EventsCreated.Inc()
	}
	s.log.Info("event booked",
		slog.String("event_id", e.ID.String()),
		slog.Int64("category_id", e.CategoryID),
		slog.Time("start_time", e.StartTime),
	)
	writeJSON(w, http.StatusCreated, toEventResponse(e))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	e, err := s.events.GetEvent(r.Context(), callerFromContext(r.Context()), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(e))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	var req updateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	e, err := s.events.UpdateEvent(r.Context(), callerFromContext(r.Context()), id, events.UpdateInput{
		StartTime: req.StartTime,
		Notes:     req.Notes,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(e))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	if err := s.events.DeleteEvent(r.Context(), callerFromContext(r.Context()), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAllocatedTimeSlots(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	categoryID, err := strconv.ParseInt(strings.TrimSpace(query.Get("categoryId")), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_category_id")
		return
	}
	startAt, err := parseOptionalTime(query.Get("startAt"))
	if err != nil || startAt == nil {
		writeError(w, http.StatusBadRequest, "invalid_start_at")
		return
	}
	excludeID := uuid.Nil
	if raw := strings.TrimSpace(query.Get("excludeEventId")); raw != "" {
		if excludeID, err = uuid.Parse(raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_event_id")
			return
		}
	}

	slots, err := s.events.AllocatedTimeSlots(r.Context(), categoryID, *startAt, excludeID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := make([]slotResponse, 0, len(slots))
	for _, slot := range slots {
		resp = append(resp, slotResponse{
			StartTime:       slot.StartTime.UTC(),
			DurationMinutes: slot.DurationMinutes,
			EndTime:         slot.EndTime.UTC(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func eventIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "eventId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_event_id")
		return uuid.Nil, false
	}
	return id, true
}

// parseCategoryIDs accepts the parameter repeated, comma separated, or both.
// Blank values mean no filter and return nil.
func parseCategoryIDs(values []string) ([]int64, error) {
	var out []int64
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		}
	}
	return out, nil
}

func parseOptionalTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
