package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thiagomk/eventdesk/internal/model"
	"github.com/thiagomk/eventdesk/internal/notify"
	"github.com/thiagomk/eventdesk/internal/store"
)

// Notes mutates the notes collection.
type Notes struct {
	store    store.Store
	notifier notify.Notifier
	refresh  RefreshFunc
}

func NewNotes(s store.Store, n notify.Notifier, refresh RefreshFunc) *Notes {
	if n == nil {
		n = notify.Discard
	}
	return &Notes{store: s, notifier: n, refresh: refresh}
}

// NoteCreate carries the fields for a new note.
type NoteCreate struct {
	Subject      string
	PriorityDate time.Time
	Owner        model.Owner
}

func (in NoteCreate) validate() error {
	if in.Subject == "" {
		return &store.ValidationError{Field: "subject", Message: "is required"}
	}
	if in.PriorityDate.IsZero() {
		return &store.ValidationError{Field: "priorityDate", Message: "is required"}
	}
	if !in.Owner.Valid() {
		return &store.ValidationError{Field: "owner", Message: "unknown owner"}
	}
	return nil
}

func (g *Notes) Create(ctx context.Context, in NoteCreate) (model.Note, error) {
	if err := in.validate(); err != nil {
		return model.Note{}, err
	}
	note, err := g.store.InsertNote(ctx, model.NoteRow{
		Subject:      in.Subject,
		PriorityDate: in.PriorityDate,
		Owner:        string(in.Owner),
	})
	notifyResult(g.notifier, err, "Note created", in.Subject, "Failed to create note")
	if err != nil {
		return model.Note{}, err
	}
	g.refresh()
	return note, nil
}

// NoteUpdate is a partial update; nil fields are left untouched.
type NoteUpdate struct {
	Subject      *string
	PriorityDate *time.Time
	Owner        *model.Owner
}

func (in NoteUpdate) fields() map[string]any {
	fields := map[string]any{}
	if in.Subject != nil {
		fields["subject"] = *in.Subject
	}
	if in.PriorityDate != nil {
		fields["priority_date"] = model.FormatDate(*in.PriorityDate)
	}
	if in.Owner != nil {
		fields["owner"] = string(*in.Owner)
	}
	return fields
}

func (g *Notes) Update(ctx context.Context, id uuid.UUID, in NoteUpdate) error {
	fields := in.fields()
	if len(fields) == 0 {
		return &store.ValidationError{Field: "update", Message: "no fields to update"}
	}
	if in.Owner != nil && !in.Owner.Valid() {
		return &store.ValidationError{Field: "owner", Message: "unknown owner"}
	}
	err := g.store.UpdateNote(ctx, id, fields)
	notifyResult(g.notifier, err, "Note updated", "", "Failed to update note")
	if err != nil {
		return err
	}
	g.refresh()
	return nil
}

func (g *Notes) Delete(ctx context.Context, id uuid.UUID) error {
	err := g.store.DeleteNote(ctx, id)
	notifyResult(g.notifier, err, "Note deleted", "", "Failed to delete note")
	if err != nil {
		return err
	}
	g.refresh()
	return nil
}
