package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thiagomk/eventdesk/internal/model"
	"github.com/thiagomk/eventdesk/internal/notify"
	"github.com/thiagomk/eventdesk/internal/store"
)

// Contacts mutates the CRM contacts collection.
type Contacts struct {
	store    store.Store
	notifier notify.Notifier
	refresh  RefreshFunc
}

func NewContacts(s store.Store, n notify.Notifier, refresh RefreshFunc) *Contacts {
	if n == nil {
		n = notify.Discard
	}
	return &Contacts{store: s, notifier: n, refresh: refresh}
}

// ContactCreate carries the fields for a new CRM contact.
type ContactCreate struct {
	Name         string
	Email        string
	Phone        *string
	Subject      string
	PriorityDate time.Time
}

func (in ContactCreate) validate() error {
	if in.Name == "" {
		return &store.ValidationError{Field: "name", Message: "is required"}
	}
	if in.Email == "" {
		return &store.ValidationError{Field: "email", Message: "is required"}
	}
	if in.PriorityDate.IsZero() {
		return &store.ValidationError{Field: "priorityDate", Message: "is required"}
	}
	return nil
}

func (g *Contacts) Create(ctx context.Context, in ContactCreate) (model.CRMContact, error) {
	if err := in.validate(); err != nil {
		return model.CRMContact{}, err
	}
	contact, err := g.store.InsertContact(ctx, model.ContactRow{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Subject:      in.Subject,
		PriorityDate: in.PriorityDate,
	})
	notifyResult(g.notifier, err, "Contact created", in.Name, "Failed to create contact")
	if err != nil {
		return model.CRMContact{}, err
	}
	g.refresh()
	return contact, nil
}

// ContactUpdate is a partial update. Nil fields are left untouched; ClearPhone
// wipes the phone to NULL and wins over Phone.
type ContactUpdate struct {
	Name         *string
	Email        *string
	Phone        *string
	ClearPhone   bool
	Subject      *string
	PriorityDate *time.Time
}

func (in ContactUpdate) fields() map[string]any {
	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Email != nil {
		fields["email"] = *in.Email
	}
	if in.ClearPhone {
		fields["phone"] = nil
	} else if in.Phone != nil {
		fields["phone"] = *in.Phone
	}
	if in.Subject != nil {
		fields["subject"] = *in.Subject
	}
	if in.PriorityDate != nil {
		fields["priority_date"] = model.FormatDate(*in.PriorityDate)
	}
	return fields
}

func (g *Contacts) Update(ctx context.Context, id uuid.UUID, in ContactUpdate) error {
	fields := in.fields()
	if len(fields) == 0 {
		return &store.ValidationError{Field: "update", Message: "no fields to update"}
	}
	if in.Name != nil && *in.Name == "" {
		return &store.ValidationError{Field: "name", Message: "cannot be empty"}
	}
	err := g.store.UpdateContact(ctx, id, fields)
	notifyResult(g.notifier, err, "Contact updated", "", "Failed to update contact")
	if err != nil {
		return err
	}
	g.refresh()
	return nil
}

func (g *Contacts) Delete(ctx context.Context, id uuid.UUID) error {
	err := g.store.DeleteContact(ctx, id)
	notifyResult(g.notifier, err, "Contact deleted", "", "Failed to delete contact")
	if err != nil {
		return err
	}
	g.refresh()
	return nil
}
