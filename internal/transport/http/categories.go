package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"slotbook/backend/internal/domain"
	"slotbook/backend/internal/service/categories"
)

type categoryResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"durationMinutes"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toCategoryResponse(c domain.Category) categoryResponse {
	return categoryResponse{
		ID:              c.ID,
		Name:            c.Name,
		DurationMinutes: c.DurationMinutes,
		Description:     c.Description,
		CreatedAt:       c.CreatedAt.UTC(),
		UpdatedAt:       c.UpdatedAt.UTC(),
	}
}

func toCategoryResponses(rows []domain.Category) []categoryResponse {
	resp := make([]categoryResponse, 0, len(rows))
	for _, c := range rows {
		resp = append(resp, toCategoryResponse(c))
	}
	return resp
}

type ownerResponse struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"categoryId"`
	OwnerEmail string `json:"ownerEmail"`
}

type createCategoryRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
	Description     string `json:"description"`
}

type updateCategoryRequest struct {
	Name            *string `json:"name"`
	DurationMinutes *int    `json:"durationMinutes"`
	Description     *string `json:"description"`
}

type addOwnerRequest struct {
	CategoryID int64  `json:"categoryId"`
	Email      string `json:"email"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	rows, err := s.categories.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponses(rows))
}

func (s *Server) handleLecturerCategories(w http.ResponseWriter, r *http.Request) {
	rows, err := s.categories.LecturerCategories(r.Context(), callerFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponses(rows))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryIDParam(w, r)
	if !ok {
		return
	}
	c, err := s.categories.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	c, err := s.categories.Create(r.Context(), callerFromContext(r.Context()), categories.CreateInput{
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Description:     req.Description,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(c))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryIDParam(w, r)
	if !ok {
		return
	}
	var req updateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	c, err := s.categories.Update(r.Context(), callerFromContext(r.Context()), id, categories.UpdateInput{
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Description:     req.Description,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryIDParam(w, r)
	if !ok {
		return
	}
	if err := s.categories.Delete(r.Context(), callerFromContext(r.Context()), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ownership

func (s *Server) handleListOwners(w http.ResponseWriter, r *http.Request) {
	rows, err := s.categories.ListOwners(r.Context(), callerFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := make([]ownerResponse, 0, len(rows))
	for _, o := range rows {
		resp = append(resp, ownerResponse{ID: o.ID, CategoryID: o.CategoryID, OwnerEmail: o.OwnerEmail})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddOwner(w http.ResponseWriter, r *http.Request) {
	var req addOwnerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	o, err := s.categories.AddOwner(r.Context(), callerFromContext(r.Context()), req.CategoryID, req.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ownerResponse{ID: o.ID, CategoryID: o.CategoryID, OwnerEmail: o.OwnerEmail})
}

func (s *Server) handleRemoveOwner(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	categoryID, err := strconv.ParseInt(strings.TrimSpace(query.Get("categoryId")), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_category_id")
		return
	}
	if err := s.categories.RemoveOwner(r.Context(), callerFromContext(r.Context()), categoryID, query.Get("email")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveLecturer(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_email")
		return
	}
	n, err := s.categories.RemoveLecturer(r.Context(), callerFromContext(r.Context()), email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func categoryIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "categoryId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_category_id")
		return 0, false
	}
	return id, true
}
