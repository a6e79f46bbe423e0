package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"kassenbuch/internal/core"
	"kassenbuch/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustAmount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := core.ParseAmount(s)
	require.NoError(t, err)
	return d
}

func makeEntry(t *testing.T, date core.Date, desc, amount string, typ core.EntryType) core.Entry {
	t.Helper()
	return core.Entry{
		Date:        date,
		Description: desc,
		Amount:      mustAmount(t, amount),
		Type:        typ,
	}
}

func TestCreateAndGetEntry(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.CreateCategory(ctx, "Büro")
	require.NoError(t, err)
	p1, err := repo.CreateProject(ctx, "Consulting")
	require.NoError(t, err)
	p2, err := repo.CreateProject(ctx, "SaaS")
	require.NoError(t, err)

	notes := "paid by card"
	entry := makeEntry(t, core.NewDate(2024, 6, 15), "Office chairs", "299.99", core.Expense)
	entry.CategoryID = &cat.ID
	entry.Notes = &notes

	created, err := repo.CreateEntry(ctx, entry, []int64{p1.ID, p2.ID})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "Office chairs", created.Description)
	require.True(t, created.Amount.Equal(mustAmount(t, "299.99")))
	require.Equal(t, core.Expense, created.Type)
	require.NotNil(t, created.Category)
	require.Equal(t, "Büro", created.Category.Name)
	require.Len(t, created.Projects, 2)
	require.NotNil(t, created.Notes)
	require.Equal(t, "paid by card", *created.Notes)

	got, err := repo.GetEntry(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)
}

func TestGetEntry_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetEntry(context.Background(), 4242)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestCreateEntry_DropsUnknownProjects(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p, err := repo.CreateProject(ctx, "DeFi")
	require.NoError(t, err)

	created, err := repo.CreateEntry(ctx,
		makeEntry(t, core.NewDate(2024, 1, 1), "Audit", "500", core.Expense),
		[]int64{p.ID, 9999})
	require.NoError(t, err)
	require.Len(t, created.Projects, 1)
	require.Equal(t, p.ID, created.Projects[0].ID)
}

func TestListEntries_FiltersAndOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.CreateCategory(ctx, "Reise")
	require.NoError(t, err)
	proj, err := repo.CreateProject(ctx, "Consulting")
	require.NoError(t, err)

	older := makeEntry(t, core.NewDate(2024, 1, 10), "Train ticket", "45.60", core.Expense)
	older.CategoryID = &cat.ID
	_, err = repo.CreateEntry(ctx, older, []int64{proj.ID})
	require.NoError(t, err)

	newer := makeEntry(t, core.NewDate(2024, 3, 5), "Client payment", "1200", core.Income)
	_, err = repo.CreateEntry(ctx, newer, nil)
	require.NoError(t, err)

	all, err := repo.ListEntries(ctx, ledger.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Date descending
	require.Equal(t, "Client payment", all[0].Description)
	require.Equal(t, "Train ticket", all[1].Description)

	byCategory, err := repo.ListEntries(ctx, ledger.EntryFilter{CategoryID: &cat.ID})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	require.Equal(t, "Train ticket", byCategory[0].Description)

	byProject, err := repo.ListEntries(ctx, ledger.EntryFilter{ProjectID: &proj.ID})
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	require.Equal(t, "Train ticket", byProject[0].Description)

	income := core.Income
	byType, err := repo.ListEntries(ctx, ledger.EntryFilter{Type: &income})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	require.Equal(t, "Client payment", byType[0].Description)

	from := core.NewDate(2024, 2, 1)
	byDate, err := repo.ListEntries(ctx, ledger.EntryFilter{DateFrom: &from})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	require.Equal(t, "Client payment", byDate[0].Description)

	to := core.NewDate(2024, 2, 1)
	upTo, err := repo.ListEntries(ctx, ledger.EntryFilter{DateTo: &to})
	require.NoError(t, err)
	require.Len(t, upTo, 1)
	require.Equal(t, "Train ticket", upTo[0].Description)
}

func TestListEntries_SameDateTieBreaksByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	date := core.NewDate(2024, 5, 1)
	first, err := repo.CreateEntry(ctx, makeEntry(t, date, "first", "1", core.Expense), nil)
	require.NoError(t, err)
	second, err := repo.CreateEntry(ctx, makeEntry(t, date, "second", "2", core.Expense), nil)
	require.NoError(t, err)

	entries, err := repo.ListEntries(ctx, ledger.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, first.ID, entries[0].ID)
	require.Equal(t, second.ID, entries[1].ID)
}

func TestUpdateEntry_PartialMerge(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.CreateCategory(ctx, "Software")
	require.NoError(t, err)
	proj, err := repo.CreateProject(ctx, "SaaS")
	require.NoError(t, err)

	notes := "annual plan"
	entry := makeEntry(t, core.NewDate(2024, 4, 1), "IDE license", "199", core.Expense)
	entry.CategoryID = &cat.ID
	entry.Notes = &notes
	created, err := repo.CreateEntry(ctx, entry, []int64{proj.ID})
	require.NoError(t, err)

	newAmount := mustAmount(t, "249")
	updated, err := repo.UpdateEntry(ctx, created.ID, ledger.EntryUpdate{Amount: &newAmount})
	require.NoError(t, err)

	// Only the amount changed
	require.True(t, updated.Amount.Equal(newAmount))
	require.Equal(t, created.Description, updated.Description)
	require.Equal(t, created.Date, updated.Date)
	require.Equal(t, created.CategoryID, updated.CategoryID)
	require.Equal(t, created.Notes, updated.Notes)
	require.Equal(t, created.Projects, updated.Projects)
}

func TestUpdateEntry_ClearCategoryAndNotes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.CreateCategory(ctx, "Marketing")
	require.NoError(t, err)

	notes := "temp"
	entry := makeEntry(t, core.NewDate(2024, 4, 2), "Ads", "80", core.Expense)
	entry.CategoryID = &cat.ID
	entry.Notes = &notes
	created, err := repo.CreateEntry(ctx, entry, nil)
	require.NoError(t, err)

	updated, err := repo.UpdateEntry(ctx, created.ID, ledger.EntryUpdate{
		SetCategory: true,
		SetNotes:    true,
	})
	require.NoError(t, err)
	require.Nil(t, updated.CategoryID)
	require.Nil(t, updated.Category)
	require.Nil(t, updated.Notes)
}

func TestUpdateEntry_ReplacesProjectSet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p1, err := repo.CreateProject(ctx, "Alpha")
	require.NoError(t, err)
	p2, err := repo.CreateProject(ctx, "Beta")
	require.NoError(t, err)

	created, err := repo.CreateEntry(ctx,
		makeEntry(t, core.NewDate(2024, 4, 3), "Workshop", "350", core.Expense),
		[]int64{p1.ID})
	require.NoError(t, err)

	updated, err := repo.UpdateEntry(ctx, created.ID, ledger.EntryUpdate{
		SetProjects: true,
		ProjectIDs:  []int64{p2.ID},
	})
	require.NoError(t, err)
	require.Len(t, updated.Projects, 1)
	require.Equal(t, p2.ID, updated.Projects[0].ID)

	cleared, err := repo.UpdateEntry(ctx, created.ID, ledger.EntryUpdate{
		SetProjects: true,
		ProjectIDs:  []int64{},
	})
	require.NoError(t, err)
	require.Empty(t, cleared.Projects)
}

func TestUpdateEntry_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	desc := "nope"
	_, err := repo.UpdateEntry(context.Background(), 777, ledger.EntryUpdate{Description: &desc})
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDeleteEntry(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	proj, err := repo.CreateProject(ctx, "Gamma")
	require.NoError(t, err)
	created, err := repo.CreateEntry(ctx,
		makeEntry(t, core.NewDate(2024, 4, 4), "Hosting", "12", core.Expense),
		[]int64{proj.ID})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteEntry(ctx, created.ID))

	_, err = repo.GetEntry(ctx, created.ID)
	require.ErrorIs(t, err, ledger.ErrNotFound)

	// The project itself survives the entry
	projects, err := repo.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)

	require.ErrorIs(t, repo.DeleteEntry(ctx, created.ID), ledger.ErrNotFound)
}

func TestCategories_CreateListConflict(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateCategory(ctx, "Miete")
	require.NoError(t, err)
	_, err = repo.CreateCategory(ctx, "Büro")
	require.NoError(t, err)

	_, err = repo.CreateCategory(ctx, "Miete")
	require.ErrorIs(t, err, ledger.ErrConflict)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	// Ordered by name
	require.Equal(t, "Büro", categories[0].Name)
	require.Equal(t, "Miete", categories[1].Name)
}

func TestProjects_CreateListConflict(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateProject(ctx, "Consulting")
	require.NoError(t, err)
	_, err = repo.CreateProject(ctx, "Consulting")
	require.ErrorIs(t, err, ledger.ErrConflict)

	projects, err := repo.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
}

func TestExportStateLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateEntry(ctx,
		makeEntry(t, core.NewDate(2024, 7, 1), "Invoice", "850", core.Income), nil)
	require.NoError(t, err)

	// New entries start pending
	pending, err := repo.ListPendingExport(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, created.ID, pending[0].ID)

	require.NoError(t, repo.MarkExported(ctx, created.ID))
	pending, err = repo.ListPendingExport(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	// Any update puts the entry back on the export queue
	desc := "Invoice #42"
	_, err = repo.UpdateEntry(ctx, created.ID, ledger.EntryUpdate{Description: &desc})
	require.NoError(t, err)
	pending, err = repo.ListPendingExport(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.MarkExportError(ctx, created.ID))
	pending, err = repo.ListPendingExport(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	require.ErrorIs(t, repo.MarkExported(ctx, 999), ledger.ErrNotFound)
}

func TestSeed(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Seed(ctx))

	entries, err := repo.ListEntries(ctx, ledger.EntryFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, categories)

	// Seeding twice must not duplicate anything
	require.NoError(t, repo.Seed(ctx))
	again, err := repo.ListEntries(ctx, ledger.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, again, len(entries))
}
