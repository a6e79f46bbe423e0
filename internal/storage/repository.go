// Package storage implements the SQLite-backed ledger stores.
//
// Entries are kept with their category reference and a many-to-many project
// association; listings materialize the full object graph with explicit
// follow-up queries so nothing downstream ever triggers a lazy fetch.
// Amounts are stored as decimal strings, never as floats.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"kassenbuch/internal/core"
	"kassenbuch/internal/ledger"
)

// Export states for the async sheet export pipeline.
const (
	ExportPending = "pending"
	ExportDone    = "done"
	ExportError   = "error"
)

const entryColumns = "id, entry_date, description, amount, entry_type, category_id, notes"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the store is reachable. Used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListEntries implements ledger.EntryStore. Each present filter field
// narrows the result; the order is date descending with id as tie-break.
func (r *SQLiteRepository) ListEntries(ctx context.Context, filter ledger.EntryFilter) ([]core.Entry, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CategoryID != nil {
		conds = append(conds, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.ProjectID != nil {
		conds = append(conds, "EXISTS (SELECT 1 FROM entry_projects ep WHERE ep.entry_id = entries.id AND ep.project_id = ?)")
		args = append(args, *filter.ProjectID)
	}
	if filter.Type != nil {
		conds = append(conds, "entry_type = ?")
		args = append(args, string(*filter.Type))
	}
	if filter.DateFrom != nil {
		conds = append(conds, "entry_date >= ?")
		args = append(args, filter.DateFrom.String())
	}
	if filter.DateTo != nil {
		conds = append(conds, "entry_date <= ?")
		args = append(args, filter.DateTo.String())
	}

	query := "SELECT " + entryColumns + " FROM entries"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY entry_date DESC, id"

	entries, err := r.selectEntries(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	if err := r.attachRelations(ctx, entries); err != nil {
		return nil, fmt.Errorf("attach relations: %w", err)
	}
	return entries, nil
}

// GetEntry implements ledger.EntryStore.
func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (core.Entry, error) {
	entries, err := r.selectEntries(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	if len(entries) == 0 {
		return core.Entry{}, fmt.Errorf("entry %d: %w", id, ledger.ErrNotFound)
	}
	if err := r.attachRelations(ctx, entries); err != nil {
		return core.Entry{}, fmt.Errorf("attach relations: %w", err)
	}
	return entries[0], nil
}

// CreateEntry implements ledger.EntryStore. Unknown project ids are dropped
// silently, matching the filter-by-existence association semantics.
func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.Entry, projectIDs []int64) (core.Entry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Entry{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO entries (entry_date, description, amount, entry_type, category_id, notes) VALUES (?, ?, ?, ?, ?, ?)",
		e.Date.String(), e.Description, e.Amount.String(), string(e.Type), nullableInt64(e.CategoryID), nullableString(e.Notes))
	if err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Entry{}, fmt.Errorf("last insert id: %w", err)
	}

	if err := r.replaceProjects(ctx, tx, id, projectIDs); err != nil {
		return core.Entry{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.Entry{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved",
		"id", id,
		"description", e.Description,
		"amount", e.Amount.String(),
		"entry_type", string(e.Type))

	return r.GetEntry(ctx, id)
}

// UpdateEntry implements ledger.EntryStore with an explicit per-field merge:
// only supplied fields change, and a supplied project set replaces the
// association set wholesale.
func (r *SQLiteRepository) UpdateEntry(ctx context.Context, id int64, upd ledger.EntryUpdate) (core.Entry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Entry{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	cur, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, fmt.Errorf("entry %d: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("load entry: %w", err)
	}

	if upd.Date != nil {
		cur.Date = *upd.Date
	}
	if upd.Description != nil {
		cur.Description = *upd.Description
	}
	if upd.Amount != nil {
		cur.Amount = *upd.Amount
	}
	if upd.Type != nil {
		cur.Type = *upd.Type
	}
	if upd.SetCategory {
		cur.CategoryID = upd.CategoryID
	}
	if upd.SetNotes {
		cur.Notes = upd.Notes
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE entries SET entry_date = ?, description = ?, amount = ?, entry_type = ?, category_id = ?, notes = ?, export_state = ? WHERE id = ?",
		cur.Date.String(), cur.Description, cur.Amount.String(), string(cur.Type),
		nullableInt64(cur.CategoryID), nullableString(cur.Notes), ExportPending, id)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}

	if upd.SetProjects {
		if _, err := tx.ExecContext(ctx, "DELETE FROM entry_projects WHERE entry_id = ?", id); err != nil {
			return core.Entry{}, fmt.Errorf("clear projects: %w", err)
		}
		if err := r.replaceProjects(ctx, tx, id, upd.ProjectIDs); err != nil {
			return core.Entry{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Entry{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Entry updated", "id", id)
	return r.GetEntry(ctx, id)
}

// DeleteEntry implements ledger.EntryStore. The project associations go with
// the entry; category and project rows stay untouched.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entry_projects WHERE entry_id = ?", id); err != nil {
		return fmt.Errorf("delete entry projects: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("entry %d: %w", id, ledger.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Entry deleted", "id", id)
	return nil
}

// ListCategories implements ledger.CategoryStore, ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory implements ledger.CategoryStore.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, fmt.Errorf("category %q: %w", name, ledger.ErrConflict)
		}
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("last insert id: %w", err)
	}
	return core.Category{ID: id, Name: name}, nil
}

// ListProjects implements ledger.ProjectStore, ordered by name.
func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM projects ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []core.Project{}
	for rows.Next() {
		var p core.Project
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateProject implements ledger.ProjectStore.
func (r *SQLiteRepository) CreateProject(ctx context.Context, name string) (core.Project, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO projects (name) VALUES (?)", name)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Project{}, fmt.Errorf("project %q: %w", name, ledger.ErrConflict)
		}
		return core.Project{}, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Project{}, fmt.Errorf("last insert id: %w", err)
	}
	return core.Project{ID: id, Name: name}, nil
}

// ListPendingExport returns entries not yet appended to the external
// journal, oldest first. Used by the export worker as a backfill in case
// AMQP messages are lost.
func (r *SQLiteRepository) ListPendingExport(ctx context.Context, limit int) ([]core.Entry, error) {
	entries, err := r.selectEntries(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE export_state = ? ORDER BY id LIMIT ?",
		ExportPending, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	if err := r.attachRelations(ctx, entries); err != nil {
		return nil, fmt.Errorf("attach relations: %w", err)
	}
	return entries, nil
}

// MarkExported marks an entry as successfully exported.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	if err := r.setExportState(ctx, id, ExportDone); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Entry marked as exported", "id", id)
	return nil
}

// MarkExportError marks an entry as having failed export.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	if err := r.setExportState(ctx, id, ExportError); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Entry marked with export error", "id", id)
	return nil
}

func (r *SQLiteRepository) setExportState(ctx context.Context, id int64, state string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE entries SET export_state = ? WHERE id = ?", state, id)
	if err != nil {
		return fmt.Errorf("set export state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("entry %d: %w", id, ledger.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var (
		e          core.Entry
		dateStr    string
		amountStr  string
		typeStr    string
		categoryID sql.NullInt64
		notes      sql.NullString
	)
	if err := row.Scan(&e.ID, &dateStr, &e.Description, &amountStr, &typeStr, &categoryID, &notes); err != nil {
		return core.Entry{}, err
	}

	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Entry{}, fmt.Errorf("entry %d: %w", e.ID, err)
	}
	e.Date = date

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return core.Entry{}, fmt.Errorf("entry %d amount %q: %w", e.ID, amountStr, err)
	}
	e.Amount = amount

	e.Type = core.EntryType(typeStr)
	if categoryID.Valid {
		id := categoryID.Int64
		e.CategoryID = &id
	}
	if notes.Valid {
		n := notes.String
		e.Notes = &n
	}
	e.Projects = []core.Project{}
	return e, nil
}

func (r *SQLiteRepository) selectEntries(ctx context.Context, query string, args ...any) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []core.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// attachRelations materializes categories and project sets for the given
// entries with two lookup queries. No per-entry fetches.
func (r *SQLiteRepository) attachRelations(ctx context.Context, entries []core.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	catIDs := make(map[int64]struct{})
	entryIDs := make([]any, 0, len(entries))
	for i := range entries {
		entryIDs = append(entryIDs, entries[i].ID)
		if entries[i].CategoryID != nil {
			catIDs[*entries[i].CategoryID] = struct{}{}
		}
	}

	if len(catIDs) > 0 {
		args := make([]any, 0, len(catIDs))
		for id := range catIDs {
			args = append(args, id)
		}
		rows, err := r.db.QueryContext(ctx,
			"SELECT id, name FROM categories WHERE id IN ("+placeholders(len(args))+")", args...)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		categories := make(map[int64]core.Category)
		for rows.Next() {
			var c core.Category
			if err := rows.Scan(&c.ID, &c.Name); err != nil {
				rows.Close()
				return fmt.Errorf("scan category: %w", err)
			}
			categories[c.ID] = c
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for i := range entries {
			if entries[i].CategoryID == nil {
				continue
			}
			if c, ok := categories[*entries[i].CategoryID]; ok {
				category := c
				entries[i].Category = &category
			}
		}
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT ep.entry_id, p.id, p.name FROM entry_projects ep JOIN projects p ON p.id = ep.project_id WHERE ep.entry_id IN ("+placeholders(len(entryIDs))+") ORDER BY p.id",
		entryIDs...)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	defer rows.Close()

	byEntry := make(map[int64][]core.Project)
	for rows.Next() {
		var (
			entryID int64
			p       core.Project
		)
		if err := rows.Scan(&entryID, &p.ID, &p.Name); err != nil {
			return fmt.Errorf("scan entry project: %w", err)
		}
		byEntry[entryID] = append(byEntry[entryID], p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range entries {
		if projects, ok := byEntry[entries[i].ID]; ok {
			entries[i].Projects = projects
		}
	}
	return nil
}

// replaceProjects inserts association rows for the project ids that exist.
func (r *SQLiteRepository) replaceProjects(ctx context.Context, tx *sql.Tx, entryID int64, projectIDs []int64) error {
	if len(projectIDs) == 0 {
		return nil
	}

	args := make([]any, 0, len(projectIDs))
	for _, id := range projectIDs {
		args = append(args, id)
	}
	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM projects WHERE id IN ("+placeholders(len(args))+") ORDER BY id", args...)
	if err != nil {
		return fmt.Errorf("resolve projects: %w", err)
	}
	var existing []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan project id: %w", err)
		}
		existing = append(existing, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, projectID := range existing {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO entry_projects (entry_id, project_id) VALUES (?, ?)", entryID, projectID); err != nil {
			return fmt.Errorf("insert entry project: %w", err)
		}
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
