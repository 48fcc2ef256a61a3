// Package metrics wraps a store.Store so every remote operation records its
// latency in the StoreLatency histogram.
package metrics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thiagomk/eventdesk/internal/model"
	"github.com/thiagomk/eventdesk/internal/observe"
	"github.com/thiagomk/eventdesk/internal/store"
)

// Wrap returns a Store that records StoreLatency for every operation.
func Wrap(inner store.Store) store.Store {
	return &metricsStore{inner: inner}
}

type metricsStore struct {
	inner store.Store
}

func (m *metricsStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	defer observe.ObserveStore("list_events", time.Now())
	return m.inner.ListEvents(ctx)
}

func (m *metricsStore) InsertEvent(ctx context.Context, row model.EventRow) (model.Event, error) {
	defer observe.ObserveStore("insert_event", time.Now())
	return m.inner.InsertEvent(ctx, row)
}

func (m *metricsStore) UpdateEvent(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	defer observe.ObserveStore("update_event", time.Now())
	return m.inner.UpdateEvent(ctx, id, fields)
}

func (m *metricsStore) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	defer observe.ObserveStore("delete_event", time.Now())
	return m.inner.DeleteEvent(ctx, id)
}

func (m *metricsStore) ListDemands(ctx context.Context) ([]model.Demand, error) {
	defer observe.ObserveStore("list_demands", time.Now())
	return m.inner.ListDemands(ctx)
}

func (m *metricsStore) InsertDemand(ctx context.Context, row model.DemandRow) (model.Demand, error) {
	defer observe.ObserveStore("insert_demand", time.Now())
	return m.inner.InsertDemand(ctx, row)
}

func (m *metricsStore) UpdateDemand(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	defer observe.ObserveStore("update_demand", time.Now())
	return m.inner.UpdateDemand(ctx, id, fields)
}

func (m *metricsStore) DeleteDemand(ctx context.Context, id uuid.UUID) error {
	defer observe.ObserveStore("delete_demand", time.Now())
	return m.inner.DeleteDemand(ctx, id)
}

func (m *metricsStore) ListNotes(ctx context.Context) ([]model.Note, error) {
	defer observe.ObserveStore("list_notes", time.Now())
	return m.inner.ListNotes(ctx)
}

func (m *metricsStore) InsertNote(ctx context.Context, row model.NoteRow) (model.Note, error) {
	defer observe.ObserveStore("insert_note", time.Now())
	return m.inner.InsertNote(ctx, row)
}

func (m *metricsStore) UpdateNote(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	defer observe.ObserveStore("update_note", time.Now())
	return m.inner.UpdateNote(ctx, id, fields)
}

func (m *metricsStore) DeleteNote(ctx context.Context, id uuid.UUID) error {
	defer observe.ObserveStore("delete_note", time.Now())
	return m.inner.DeleteNote(ctx, id)
}

func (m *metricsStore) ListContacts(ctx context.Context) ([]model.CRMContact, error) {
	defer observe.ObserveStore("list_contacts", time.Now())
	return m.inner.ListContacts(ctx)
}

func (m *metricsStore) InsertContact(ctx context.Context, row model.ContactRow) (model.CRMContact, error) {
	defer observe.ObserveStore("insert_contact", time.Now())
	return m.inner.InsertContact(ctx, row)
}

func (m *metricsStore) UpdateContact(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	defer observe.ObserveStore("update_contact", time.Now())
	return m.inner.UpdateContact(ctx, id, fields)
}

func (m *metricsStore) DeleteContact(ctx context.Context, id uuid.UUID) error {
	defer observe.ObserveStore("delete_contact", time.Now())
	return m.inner.DeleteContact(ctx, id)
}

func (m *metricsStore) Close() error { return m.inner.Close() }
