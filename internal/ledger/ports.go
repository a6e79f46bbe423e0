// Package ledger declares the ports between the HTTP/service layer and the
// outbound adapters (storage, sheet export).
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"kassenbuch/internal/core"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique constraint is violated, e.g. a
	// duplicate category or project name.
	ErrConflict = errors.New("already exists")
)

// EntryFilter narrows an entry listing. Nil fields impose no constraint.
// Date bounds are inclusive. ProjectID matches entries associated with that
// project through the m2m table.
type EntryFilter struct {
	CategoryID *int64
	ProjectID  *int64
	Type       *core.EntryType
	DateFrom   *core.Date
	DateTo     *core.Date
}

// EntryUpdate is a sparse update: nil pointer fields stay unchanged. The
// nullable columns (category, notes) carry an explicit Set flag so that
// "clear this field" and "leave it alone" stay distinguishable. ProjectIDs,
// when set, replaces the entire association set.
type EntryUpdate struct {
	Date        *core.Date
	Description *string
	Amount      *decimal.Decimal
	Type        *core.EntryType
	CategoryID  *int64
	SetCategory bool
	Notes       *string
	SetNotes    bool
	ProjectIDs  []int64
	SetProjects bool
}

type (
	EntryStore interface {
		// ListEntries returns matching entries ordered by date descending,
		// each with its category and project set materialized.
		ListEntries(ctx context.Context, filter EntryFilter) ([]core.Entry, error)
		GetEntry(ctx context.Context, id int64) (core.Entry, error)
		CreateEntry(ctx context.Context, e core.Entry, projectIDs []int64) (core.Entry, error)
		UpdateEntry(ctx context.Context, id int64, upd EntryUpdate) (core.Entry, error)
		DeleteEntry(ctx context.Context, id int64) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		CreateCategory(ctx context.Context, name string) (core.Category, error)
	}

	ProjectStore interface {
		ListProjects(ctx context.Context) ([]core.Project, error)
		CreateProject(ctx context.Context, name string) (core.Project, error)
	}

	// EntryExporter appends a booked entry to an external journal.
	EntryExporter interface {
		AppendEntry(ctx context.Context, e core.Entry) error
	}
)
