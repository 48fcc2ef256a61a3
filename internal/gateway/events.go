package gateway

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/thiagomk/eventdesk/internal/blob"
	"github.com/thiagomk/eventdesk/internal/model"
	"github.com/thiagomk/eventdesk/internal/notify"
	"github.com/thiagomk/eventdesk/internal/store"
	"github.com/thiagomk/eventdesk/internal/triage"
)

// Events mutates the events collection.
type Events struct {
	store    store.Store
	logos    blob.Store
	notifier notify.Notifier
	refresh  RefreshFunc
	snapshot func() []model.Event
}

// NewEvents builds the events gateway. snapshot provides the current mirror
// contents; the priority toggle derives the next order from it. logos may be
// nil when no blob store is configured.
func NewEvents(s store.Store, logos blob.Store, n notify.Notifier, refresh RefreshFunc, snapshot func() []model.Event) *Events {
	if n == nil {
		n = notify.Discard
	}
	return &Events{store: s, logos: logos, notifier: n, refresh: refresh, snapshot: snapshot}
}

// EventCreate carries the fields for a new event.
type EventCreate struct {
	Name string
	Logo *string
	Date time.Time
}

func (in EventCreate) validate() error {
	if in.Name == "" {
		return &store.ValidationError{Field: "name", Message: "is required"}
	}
	if in.Date.IsZero() {
		return &store.ValidationError{Field: "date", Message: "is required"}
	}
	return nil
}

// Create inserts a new event and requests a refresh.
func (g *Events) Create(ctx context.Context, in EventCreate) (model.Event, error) {
	if err := in.validate(); err != nil {
		return model.Event{}, err
	}
	event, err := g.store.InsertEvent(ctx, model.EventRow{
		Name: in.Name,
		Logo: in.Logo,
		Date: in.Date,
	})
	notifyResult(g.notifier, err, "Event created", in.Name, "Failed to create event")
	if err != nil {
		return model.Event{}, err
	}
	g.refresh()
	return event, nil
}

// EventUpdate is a partial update. Nil fields are left untouched; ClearLogo
// wipes the logo to NULL and wins over Logo.
type EventUpdate struct {
	Name       *string
	Logo       *string
	ClearLogo  bool
	Date       *time.Time
	IsArchived *bool
}

func (in EventUpdate) fields() map[string]any {
	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.ClearLogo {
		fields["logo"] = nil
	} else if in.Logo != nil {
		fields["logo"] = *in.Logo
	}
	if in.Date != nil {
		fields["date"] = model.FormatDate(*in.Date)
	}
	if in.IsArchived != nil {
		fields["is_archived"] = *in.IsArchived
	}
	return fields
}

// Update applies a partial update and requests a refresh. A no-op update is
// rejected rather than sent to the store.
func (g *Events) Update(ctx context.Context, id uuid.UUID, in EventUpdate) error {
	fields := in.fields()
	if len(fields) == 0 {
		return &store.ValidationError{Field: "update", Message: "no fields to update"}
	}
	if in.Name != nil && *in.Name == "" {
		return &store.ValidationError{Field: "name", Message: "cannot be empty"}
	}
	err := g.store.UpdateEvent(ctx, id, fields)
	notifyResult(g.notifier, err, "Event updated", "", "Failed to update event")
	if err != nil {
		return err
	}
	g.refresh()
	return nil
}

// TogglePriority flips an event's priority flag. Promoting assigns the next
// priority order past the current maximum; demoting clears the order to NULL.
func (g *Events) TogglePriority(ctx context.Context, id uuid.UUID) error {
	events := g.snapshot()
	var current *model.Event
	for i := range events {
		if events[i].ID == id {
			current = &events[i]
			break
		}
	}
	if current == nil {
		return &store.NotFoundError{Resource: "event", ID: id.String()}
	}

	var fields map[string]any
	if current.IsPriority {
		fields = map[string]any{"is_priority": false, "priority_order": nil}
	} else {
		fields = map[string]any{"is_priority": true, "priority_order": triage.NextPriorityOrder(events)}
	}

	err := g.store.UpdateEvent(ctx, id, fields)
	notifyResult(g.notifier, err, "Event priority updated", current.Name, "Failed to update event priority")
	if err != nil {
		return err
	}
	g.refresh()
	return nil
}

// Delete removes an event. Its demands go with it via the store's cascade.
func (g *Events) Delete(ctx context.Context, id uuid.UUID) error {
	err := g.store.DeleteEvent(ctx, id)
	notifyResult(g.notifier, err, "Event deleted", "", "Failed to delete event")
	if err != nil {
		return err
	}
	g.refresh()
	return nil
}

// UploadLogo stores a logo file and returns its URL. The caller attaches the
// URL to an event via Create or Update.
func (g *Events) UploadLogo(ctx context.Context, filename string, data io.Reader, contentType string) (string, error) {
	if g.logos == nil {
		return "", fmt.Errorf("gateway: logo storage is not configured")
	}
	url, err := g.logos.Upload(ctx, filename, data, contentType)
	if err != nil {
		g.notifier.Notify("Failed to upload logo", err.Error(), notify.SeverityError)
		return "", err
	}
	return url, nil
}
