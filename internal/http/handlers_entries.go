package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"kassenbuch/internal/core"
	"kassenbuch/internal/ledger"
	applog "kassenbuch/internal/log"
)

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type projectResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type entryResponse struct {
	ID          int64             `json:"id"`
	Date        core.Date         `json:"date"`
	Description string            `json:"description"`
	Amount      decimal.Decimal   `json:"amount"`
	EntryType   core.EntryType    `json:"entry_type"`
	CategoryID  *int64            `json:"category_id"`
	Category    *categoryResponse `json:"category"`
	Projects    []projectResponse `json:"projects"`
	Notes       *string           `json:"notes"`
}

func toEntryResponse(e core.Entry) entryResponse {
	resp := entryResponse{
		ID:          e.ID,
		Date:        e.Date,
		Description: e.Description,
		Amount:      e.Amount,
		EntryType:   e.Type,
		CategoryID:  e.CategoryID,
		Projects:    []projectResponse{},
		Notes:       e.Notes,
	}
	if e.Category != nil {
		resp.Category = &categoryResponse{ID: e.Category.ID, Name: e.Category.Name}
	}
	for _, p := range e.Projects {
		resp.Projects = append(resp.Projects, projectResponse{ID: p.ID, Name: p.Name})
	}
	return resp
}

func toEntryResponses(entries []core.Entry) []entryResponse {
	responses := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, toEntryResponse(e))
	}
	return responses
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := parseEntryFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := s.entries.List(ctx, filter)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to list entries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}

	writeJSON(w, http.StatusOK, toEntryResponses(entries))
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := s.entries.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Entry not found")
			return
		}
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to get entry", "error", err, "entry_id", id)
		writeError(w, http.StatusInternalServerError, "failed to get entry")
		return
	}

	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req entryCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := req.toEntry()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.entries.Create(ctx, entry, req.ProjectIDs)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to create entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create entry")
		return
	}

	s.invalidateSummaries()
	writeJSON(w, http.StatusCreated, toEntryResponse(created))
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req entryUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd, err := req.toUpdate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.entries.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Entry not found")
			return
		}
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to update entry", "error", err, "entry_id", id)
		writeError(w, http.StatusInternalServerError, "failed to update entry")
		return
	}

	s.invalidateSummaries()
	writeJSON(w, http.StatusOK, toEntryResponse(updated))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.entries.Delete(ctx, id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Entry not found")
			return
		}
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to delete entry", "error", err, "entry_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}

	s.invalidateSummaries()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	dateFrom, err := parseOptionalDate(query, "date_from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dateTo, err := parseOptionalDate(query, "date_to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := summaryCacheKey(dateFrom, dateTo)
	if report, ok := s.summaryCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, report)
		return
	}

	report, err := s.entries.Summary(ctx, dateFrom, dateTo)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to compute summary", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}

	s.summaryCache.Set(cacheKey, report)
	writeJSON(w, http.StatusOK, report)
}

func summaryCacheKey(dateFrom, dateTo *core.Date) string {
	key := "summary:"
	if dateFrom != nil {
		key += dateFrom.String()
	}
	key += "|"
	if dateTo != nil {
		key += dateTo.String()
	}
	return key
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidEntryType) ||
		errors.Is(err, core.ErrEmptyDescription) ||
		errors.Is(err, core.ErrDescriptionTooLong) ||
		errors.Is(err, core.ErrEmptyName) ||
		errors.Is(err, core.ErrNameTooLong)
}
