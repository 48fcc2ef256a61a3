package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thiagomk/eventdesk/internal/model"
	"github.com/thiagomk/eventdesk/internal/notify"
	"github.com/thiagomk/eventdesk/internal/store"
)

// Demands mutates the demands collection.
type Demands struct {
	store    store.Store
	notifier notify.Notifier
	refresh  RefreshFunc
}

func NewDemands(s store.Store, n notify.Notifier, refresh RefreshFunc) *Demands {
	if n == nil {
		n = notify.Discard
	}
	return &Demands{store: s, notifier: n, refresh: refresh}
}

// DemandCreate carries the fields for a new demand.
type DemandCreate struct {
	EventID uuid.UUID
	Title   string
	Subject string
	Date    time.Time
}

func (in DemandCreate) validate() error {
	if in.EventID == uuid.Nil {
		return &store.ValidationError{Field: "eventId", Message: "is required"}
	}
	if in.Title == "" {
		return &store.ValidationError{Field: "title", Message: "is required"}
	}
	if in.Date.IsZero() {
		return &store.ValidationError{Field: "date", Message: "is required"}
	}
	return nil
}

func (g *Demands) Create(ctx context.Context, in DemandCreate) (model.Demand, error) {
	if err := in.validate(); err != nil {
		return model.Demand{}, err
	}
	demand, err := g.store.InsertDemand(ctx, model.DemandRow{
		EventID: in.EventID,
		Title:   in.Title,
		Subject: in.Subject,
		Date:    in.Date,
	})
	notifyResult(g.notifier, err, "Demand created", in.Title, "Failed to create demand")
	if err != nil {
		return model.Demand{}, err
	}
	g.refresh()
	return demand, nil
}

// DemandUpdate is a partial update; nil fields are left untouched.
type DemandUpdate struct {
	Title       *string
	Subject     *string
	Date        *time.Time
	IsCompleted *bool
	IsArchived  *bool
}

func (in DemandUpdate) fields() map[string]any {
	fields := map[string]any{}
	if in.Title != nil {
		fields["title"] = *in.Title
	}
	if in.Subject != nil {
		fields["subject"] = *in.Subject
	}
	if in.Date != nil {
		fields["date"] = model.FormatDate(*in.Date)
	}
	if in.IsCompleted != nil {
		fields["is_completed"] = *in.IsCompleted
	}
	if in.IsArchived != nil {
		fields["is_archived"] = *in.IsArchived
	}
	return fields
}

func (g *Demands) Update(ctx context.Context, id uuid.UUID, in DemandUpdate) error {
	fields := in.fields()
	if len(fields) == 0 {
		return &store.ValidationError{Field: "update", Message: "no fields to update"}
	}
	if in.Title != nil && *in.Title == "" {
		return &store.ValidationError{Field: "title", Message: "cannot be empty"}
	}
	err := g.store.UpdateDemand(ctx, id, fields)
	notifyResult(g.notifier, err, "Demand updated", "", "Failed to update demand")
	if err != nil {
		return err
	}
	g.refresh()
	return nil
}

func (g *Demands) Delete(ctx context.Context, id uuid.UUID) error {
	err := g.store.DeleteDemand(ctx, id)
	notifyResult(g.notifier, err, "Demand deleted", "", "Failed to delete demand")
	if err != nil {
		return err
	}
	g.refresh()
	return nil
}
