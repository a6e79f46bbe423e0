package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"kassenbuch/internal/core"
	"kassenbuch/internal/ledger"
	applog "kassenbuch/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to list categories", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	responses := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		responses = append(responses, categoryResponse{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, responses)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := sanitizeInput(req.Name)
	if err := core.ValidateTagName(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.categories.CreateCategory(ctx, name)
	if err != nil {
		if errors.Is(err, ledger.ErrConflict) {
			writeError(w, http.StatusConflict, "Category already exists")
			return
		}
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to create category", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	writeJSON(w, http.StatusCreated, categoryResponse{ID: created.ID, Name: created.Name})
}
