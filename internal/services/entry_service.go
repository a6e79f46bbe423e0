// Package services orchestrates ledger operations across storage and the
// entry event stream.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"kassenbuch/internal/amqp"
	"kassenbuch/internal/core"
	"kassenbuch/internal/ledger"
)

// EntryService coordinates entry writes with event publishing and exposes
// the read/aggregation path. Event publishing is best effort: the write has
// already committed, so a broker failure never fails the request.
type EntryService struct {
	store  ledger.EntryStore
	events *amqp.Client
}

func NewEntryService(store ledger.EntryStore, events *amqp.Client) *EntryService {
	return &EntryService{
		store:  store,
		events: events,
	}
}

// List returns entries matching the filter, newest first.
func (s *EntryService) List(ctx context.Context, filter ledger.EntryFilter) ([]core.Entry, error) {
	return s.store.ListEntries(ctx, filter)
}

// Get returns a single entry by id.
func (s *EntryService) Get(ctx context.Context, id int64) (core.Entry, error) {
	return s.store.GetEntry(ctx, id)
}

// Create validates and persists a new entry, then publishes a created event.
func (s *EntryService) Create(ctx context.Context, e core.Entry, projectIDs []int64) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	created, err := s.store.CreateEntry(ctx, e, projectIDs)
	if err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}

	s.publishEvent(ctx, amqp.EntryCreated, created.ID)
	return created, nil
}

// Update applies a sparse update and publishes an updated event.
func (s *EntryService) Update(ctx context.Context, id int64, upd ledger.EntryUpdate) (core.Entry, error) {
	updated, err := s.store.UpdateEntry(ctx, id, upd)
	if err != nil {
		return core.Entry{}, err
	}

	s.publishEvent(ctx, amqp.EntryUpdated, id)
	return updated, nil
}

// Delete removes an entry and publishes a deleted event.
func (s *EntryService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return err
	}

	s.publishEvent(ctx, amqp.EntryDeleted, id)
	return nil
}

// Summary lists the entries inside the optional date range and aggregates
// them. The aggregation itself is pure; all filtering happens in the store.
func (s *EntryService) Summary(ctx context.Context, dateFrom, dateTo *core.Date) (core.SummaryReport, error) {
	entries, err := s.store.ListEntries(ctx, ledger.EntryFilter{
		DateFrom: dateFrom,
		DateTo:   dateTo,
	})
	if err != nil {
		return core.SummaryReport{}, fmt.Errorf("list entries for summary: %w", err)
	}
	return core.Summarize(entries), nil
}

func (s *EntryService) publishEvent(ctx context.Context, action string, id int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEntryEvent(ctx, action, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry event",
			"action", action, "id", id, "error", err)
	}
}

// Close closes the event client if one is attached.
func (s *EntryService) Close() error {
	if s.events != nil {
		return s.events.Close()
	}
	return nil
}
