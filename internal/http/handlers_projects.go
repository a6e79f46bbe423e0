package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"kassenbuch/internal/core"
	"kassenbuch/internal/ledger"
	applog "kassenbuch/internal/log"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projects, err := s.projects.ListProjects(ctx)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to list projects", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}

	responses := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		responses = append(responses, projectResponse{ID: p.ID, Name: p.Name})
	}
	writeJSON(w, http.StatusOK, responses)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
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

	created, err := s.projects.CreateProject(ctx, name)
	if err != nil {
		if errors.Is(err, ledger.ErrConflict) {
			writeError(w, http.StatusConflict, "Project already exists")
			return
		}
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to create project", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	writeJSON(w, http.StatusCreated, projectResponse{ID: created.ID, Name: created.Name})
}
