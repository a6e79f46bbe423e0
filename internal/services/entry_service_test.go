package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"kassenbuch/internal/core"
	"kassenbuch/internal/ledger"
)

type fakeEntryStore struct {
	entries    []core.Entry
	lastFilter ledger.EntryFilter
	created    []core.Entry
	deleted    []int64
	err        error
}

func (f *fakeEntryStore) ListEntries(ctx context.Context, filter ledger.EntryFilter) ([]core.Entry, error) {
	f.lastFilter = filter
	return f.entries, f.err
}

func (f *fakeEntryStore) GetEntry(ctx context.Context, id int64) (core.Entry, error) {
	for _, e := range f.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Entry{}, ledger.ErrNotFound
}

func (f *fakeEntryStore) CreateEntry(ctx context.Context, e core.Entry, projectIDs []int64) (core.Entry, error) {
	if f.err != nil {
		return core.Entry{}, f.err
	}
	e.ID = int64(len(f.created) + 1)
	f.created = append(f.created, e)
	return e, nil
}

func (f *fakeEntryStore) UpdateEntry(ctx context.Context, id int64, upd ledger.EntryUpdate) (core.Entry, error) {
	if f.err != nil {
		return core.Entry{}, f.err
	}
	return core.Entry{ID: id}, nil
}

func (f *fakeEntryStore) DeleteEntry(ctx context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func validEntry() core.Entry {
	return core.Entry{
		Date:        core.NewDate(2024, 6, 1),
		Description: "Invoice",
		Amount:      decimal.NewFromInt(100),
		Type:        core.Income,
	}
}

func TestEntryService_CreateValidates(t *testing.T) {
	store := &fakeEntryStore{}
	svc := NewEntryService(store, nil)

	bad := validEntry()
	bad.Description = ""
	_, err := svc.Create(context.Background(), bad, nil)
	require.ErrorIs(t, err, core.ErrEmptyDescription)
	require.Empty(t, store.created, "store must not be touched on validation failure")
}

func TestEntryService_CreateWithoutEvents(t *testing.T) {
	store := &fakeEntryStore{}
	svc := NewEntryService(store, nil)

	created, err := svc.Create(context.Background(), validEntry(), []int64{1})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Len(t, store.created, 1)
}

func TestEntryService_Get(t *testing.T) {
	entry := validEntry()
	entry.ID = 5
	store := &fakeEntryStore{entries: []core.Entry{entry}}
	svc := NewEntryService(store, nil)

	got, err := svc.Get(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, int64(5), got.ID)

	_, err = svc.Get(context.Background(), 6)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestEntryService_UpdatePropagatesNotFound(t *testing.T) {
	store := &fakeEntryStore{err: ledger.ErrNotFound}
	svc := NewEntryService(store, nil)

	_, err := svc.Update(context.Background(), 7, ledger.EntryUpdate{})
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestEntryService_Delete(t *testing.T) {
	store := &fakeEntryStore{}
	svc := NewEntryService(store, nil)

	require.NoError(t, svc.Delete(context.Background(), 3))
	require.Equal(t, []int64{3}, store.deleted)

	store.err = ledger.ErrNotFound
	require.ErrorIs(t, svc.Delete(context.Background(), 3), ledger.ErrNotFound)
}

func TestEntryService_SummaryPassesDateRange(t *testing.T) {
	income := validEntry()
	expense := core.Entry{
		Date:        core.NewDate(2024, 6, 2),
		Description: "Hosting",
		Amount:      decimal.NewFromInt(30),
		Type:        core.Expense,
		Category:    &core.Category{ID: 1, Name: "Software"},
	}
	store := &fakeEntryStore{entries: []core.Entry{income, expense}}
	svc := NewEntryService(store, nil)

	from := core.NewDate(2024, 6, 1)
	to := core.NewDate(2024, 6, 30)
	report, err := svc.Summary(context.Background(), &from, &to)
	require.NoError(t, err)

	require.Equal(t, &from, store.lastFilter.DateFrom)
	require.Equal(t, &to, store.lastFilter.DateTo)
	require.Nil(t, store.lastFilter.CategoryID)
	require.Nil(t, store.lastFilter.Type)

	require.True(t, report.TotalIncome.Equal(decimal.NewFromInt(100)))
	require.True(t, report.TotalExpense.Equal(decimal.NewFromInt(30)))
	require.True(t, report.Balance.Equal(decimal.NewFromInt(70)))
	require.Len(t, report.ByCategory, 1)
	require.Equal(t, "Software", report.ByCategory[0].Name)
}

func TestEntryService_CloseWithoutEvents(t *testing.T) {
	svc := NewEntryService(&fakeEntryStore{}, nil)
	require.NoError(t, svc.Close())
}
