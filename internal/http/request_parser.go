// This file implements parsing and validation of API request payloads.
// Sparse updates need to distinguish "field absent" from "field null", so
// the nullable columns use presence-aware optional types: encoding/json
// only invokes UnmarshalJSON when the key is present.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"kassenbuch/internal/core"
	"kassenbuch/internal/ledger"
)

// OptionalInt64 is a nullable integer that records whether its key was
// present in the payload at all.
type OptionalInt64 struct {
	Set   bool
	Valid bool
	Value int64
}

func (o *OptionalInt64) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// OptionalString is the string counterpart of OptionalInt64.
type OptionalString struct {
	Set   bool
	Valid bool
	Value string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

type entryCreateRequest struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	EntryType   string          `json:"entry_type"`
	CategoryID  *int64          `json:"category_id"`
	ProjectIDs  []int64         `json:"project_ids"`
	Notes       *string         `json:"notes"`
}

func (req entryCreateRequest) toEntry() (core.Entry, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Entry{}, err
	}
	entryType, err := core.ParseEntryType(req.EntryType)
	if err != nil {
		return core.Entry{}, err
	}
	if err := core.ValidateAmount(req.Amount); err != nil {
		return core.Entry{}, err
	}

	return core.Entry{
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount,
		Type:        entryType,
		CategoryID:  req.CategoryID,
		Notes:       req.Notes,
	}, nil
}

type entryUpdateRequest struct {
	Date        *string          `json:"date"`
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	EntryType   *string          `json:"entry_type"`
	CategoryID  OptionalInt64    `json:"category_id"`
	Notes       OptionalString   `json:"notes"`
	ProjectIDs  *[]int64         `json:"project_ids"`
}

// toUpdate builds the sparse update with one explicit branch per field.
func (req entryUpdateRequest) toUpdate() (ledger.EntryUpdate, error) {
	var upd ledger.EntryUpdate

	if req.Date != nil {
		date, err := core.ParseDate(*req.Date)
		if err != nil {
			return ledger.EntryUpdate{}, err
		}
		upd.Date = &date
	}
	if req.Description != nil {
		desc := sanitizeInput(*req.Description)
		if desc == "" {
			return ledger.EntryUpdate{}, core.ErrEmptyDescription
		}
		upd.Description = &desc
	}
	if req.Amount != nil {
		if err := core.ValidateAmount(*req.Amount); err != nil {
			return ledger.EntryUpdate{}, err
		}
		upd.Amount = req.Amount
	}
	if req.EntryType != nil {
		entryType, err := core.ParseEntryType(*req.EntryType)
		if err != nil {
			return ledger.EntryUpdate{}, err
		}
		upd.Type = &entryType
	}
	if req.CategoryID.Set {
		upd.SetCategory = true
		if req.CategoryID.Valid {
			id := req.CategoryID.Value
			upd.CategoryID = &id
		}
	}
	if req.Notes.Set {
		upd.SetNotes = true
		if req.Notes.Valid {
			notes := req.Notes.Value
			upd.Notes = &notes
		}
	}
	if req.ProjectIDs != nil {
		upd.SetProjects = true
		upd.ProjectIDs = *req.ProjectIDs
	}

	return upd, nil
}

// parseEntryFilter builds the listing filter from query parameters. Absent
// parameters impose no constraint.
func parseEntryFilter(query url.Values) (ledger.EntryFilter, error) {
	var filter ledger.EntryFilter

	categoryID, err := parseOptionalInt64(query, "category_id")
	if err != nil {
		return ledger.EntryFilter{}, err
	}
	filter.CategoryID = categoryID

	projectID, err := parseOptionalInt64(query, "project_id")
	if err != nil {
		return ledger.EntryFilter{}, err
	}
	filter.ProjectID = projectID

	if v := query.Get("entry_type"); v != "" {
		entryType, err := core.ParseEntryType(v)
		if err != nil {
			return ledger.EntryFilter{}, fmt.Errorf("invalid entry_type: %q", v)
		}
		filter.Type = &entryType
	}

	dateFrom, err := parseOptionalDate(query, "date_from")
	if err != nil {
		return ledger.EntryFilter{}, err
	}
	filter.DateFrom = dateFrom

	dateTo, err := parseOptionalDate(query, "date_to")
	if err != nil {
		return ledger.EntryFilter{}, err
	}
	filter.DateTo = dateTo

	return filter, nil
}

type nameRequest struct {
	Name string `json:"name"`
}
