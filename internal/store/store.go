// Package store defines the remote store collaborator: per-collection select,
// insert, update and delete against the authoritative database. Updates are
// field-presence-sensitive: only the columns present in the fields map are
// touched, and a nil value writes SQL NULL.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/thiagomk/eventdesk/internal/model"
)

// Store is the remote store collaborator. List results are ordered by each
// collection's stable default key (created_at for events and demands,
// priority_date for notes and contacts) so repeated fetches of unchanged data
// are content-equal.
type Store interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	InsertEvent(ctx context.Context, row model.EventRow) (model.Event, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error

	ListDemands(ctx context.Context) ([]model.Demand, error)
	InsertDemand(ctx context.Context, row model.DemandRow) (model.Demand, error)
	UpdateDemand(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeleteDemand(ctx context.Context, id uuid.UUID) error

	ListNotes(ctx context.Context) ([]model.Note, error)
	InsertNote(ctx context.Context, row model.NoteRow) (model.Note, error)
	UpdateNote(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeleteNote(ctx context.Context, id uuid.UUID) error

	ListContacts(ctx context.Context) ([]model.CRMContact, error)
	InsertContact(ctx context.Context, row model.ContactRow) (model.CRMContact, error)
	UpdateContact(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeleteContact(ctx context.Context, id uuid.UUID) error

	Close() error
}

// NotFoundError indicates the row was not found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// MappingError indicates a fetched row violated the expected shape. It fails
// the whole batch: a partially mapped result must never replace the mirror.
type MappingError struct {
	Collection string
	Err        error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping %s: %v", e.Collection, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// ValidationError indicates a client-side validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}
