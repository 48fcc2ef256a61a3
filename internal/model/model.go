package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Collection names as they exist in the remote database. These are the values
// carried by change notifications and used to key the per-collection engines.
const (
	CollectionEvents   = "events"
	CollectionDemands  = "demands"
	CollectionNotes    = "notes"
	CollectionContacts = "crm_contacts"
)

// DateLayout is the wire format for DATE columns.
const DateLayout = "2006-01-02"

// FormatDate renders a timestamp as a date-only value for the remote store.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Owner identifies who a note belongs to. The set is fixed; rows carrying any
// other value are a mapping failure for the whole fetched batch.
type Owner string

const (
	OwnerThiago Owner = "Thiago"
	OwnerKalil  Owner = "Kalil"
)

// Valid reports whether o is a known owner.
func (o Owner) Valid() bool {
	return o == OwnerThiago || o == OwnerKalil
}

// Event is a tracked event. PriorityOrder is set if and only if IsPriority is
// true; values need not be contiguous, only totally ordered.
type Event struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Logo          *string    `json:"logo,omitempty"`
	Date          time.Time  `json:"date"`
	IsArchived    bool       `json:"isArchived"`
	IsPriority    bool       `json:"isPriority"`
	PriorityOrder *int       `json:"priorityOrder,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Demand is a task owned by an event. A demand whose EventID does not resolve
// to a mirrored event is tolerated but excluded from event-grouped views.
type Demand struct {
	ID          uuid.UUID `json:"id"`
	EventID     uuid.UUID `json:"eventId"`
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	Date        time.Time `json:"date"`
	IsCompleted bool      `json:"isCompleted"`
	IsArchived  bool      `json:"isArchived"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Note struct {
	ID           uuid.UUID `json:"id"`
	Subject      string    `json:"subject"`
	PriorityDate time.Time `json:"priorityDate"`
	Owner        Owner     `json:"owner"`
	CreatedAt    time.Time `json:"createdAt"`
}

type CRMContact struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	Subject      string    `json:"subject"`
	PriorityDate time.Time `json:"priorityDate"`
	CreatedAt    time.Time `json:"createdAt"`
}

// EventRow is the remote representation of an Event.
type EventRow struct {
	ID            uuid.UUID `gorm:"primaryKey;type:uuid"`
	Name          string    `gorm:"not null"`
	Logo          *string
	Date          time.Time `gorm:"not null;type:date"`
	IsArchived    bool      `gorm:"not null;default:false;column:is_archived"`
	IsPriority    bool      `gorm:"not null;default:false;column:is_priority"`
	PriorityOrder *int      `gorm:"column:priority_order"`
	CreatedAt     time.Time `gorm:"not null;column:created_at"`
}

// TableName implements gorm.Tabler.
func (EventRow) TableName() string { return CollectionEvents }

// Entity maps the remote row to the local shape.
func (r EventRow) Entity() (Event, error) {
	if r.ID == uuid.Nil {
		return Event{}, fmt.Errorf("event row missing id")
	}
	if r.Name == "" {
		return Event{}, fmt.Errorf("event row %s missing name", r.ID)
	}
	return Event{
		ID:            r.ID,
		Name:          r.Name,
		Logo:          r.Logo,
		Date:          r.Date,
		IsArchived:    r.IsArchived,
		IsPriority:    r.IsPriority,
		PriorityOrder: r.PriorityOrder,
		CreatedAt:     r.CreatedAt,
	}, nil
}

// DemandRow is the remote representation of a Demand.
type DemandRow struct {
	ID          uuid.UUID `gorm:"primaryKey;type:uuid"`
	EventID     uuid.UUID `gorm:"not null;type:uuid;column:event_id"`
	Title       string    `gorm:"not null"`
	Subject     string    `gorm:"not null"`
	Date        time.Time `gorm:"not null;type:date"`
	IsCompleted bool      `gorm:"not null;default:false;column:is_completed"`
	IsArchived  bool      `gorm:"not null;default:false;column:is_archived"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`
}

// TableName implements gorm.Tabler.
func (DemandRow) TableName() string { return CollectionDemands }

// Entity maps the remote row to the local shape.
func (r DemandRow) Entity() (Demand, error) {
	if r.ID == uuid.Nil {
		return Demand{}, fmt.Errorf("demand row missing id")
	}
	if r.EventID == uuid.Nil {
		return Demand{}, fmt.Errorf("demand row %s missing event_id", r.ID)
	}
	if r.Title == "" {
		return Demand{}, fmt.Errorf("demand row %s missing title", r.ID)
	}
	return Demand{
		ID:          r.ID,
		EventID:     r.EventID,
		Title:       r.Title,
		Subject:     r.Subject,
		Date:        r.Date,
		IsCompleted: r.IsCompleted,
		IsArchived:  r.IsArchived,
		CreatedAt:   r.CreatedAt,
	}, nil
}

// NoteRow is the remote representation of a Note.
type NoteRow struct {
	ID           uuid.UUID `gorm:"primaryKey;type:uuid"`
	Subject      string    `gorm:"not null"`
	PriorityDate time.Time `gorm:"not null;type:date;column:priority_date"`
	Owner        string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;column:created_at"`
}

// TableName implements gorm.Tabler.
func (NoteRow) TableName() string { return CollectionNotes }

// Entity maps the remote row to the local shape.
func (r NoteRow) Entity() (Note, error) {
	if r.ID == uuid.Nil {
		return Note{}, fmt.Errorf("note row missing id")
	}
	owner := Owner(r.Owner)
	if !owner.Valid() {
		return Note{}, fmt.Errorf("note row %s has unknown owner %q", r.ID, r.Owner)
	}
	return Note{
		ID:           r.ID,
		Subject:      r.Subject,
		PriorityDate: r.PriorityDate,
		Owner:        owner,
		CreatedAt:    r.CreatedAt,
	}, nil
}

// ContactRow is the remote representation of a CRMContact.
type ContactRow struct {
	ID           uuid.UUID `gorm:"primaryKey;type:uuid"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"not null"`
	Phone        *string
	Subject      string    `gorm:"not null"`
	PriorityDate time.Time `gorm:"not null;type:date;column:priority_date"`
	CreatedAt    time.Time `gorm:"not null;column:created_at"`
}

// TableName implements gorm.Tabler.
func (ContactRow) TableName() string { return CollectionContacts }

// Entity maps the remote row to the local shape.
func (r ContactRow) Entity() (CRMContact, error) {
	if r.ID == uuid.Nil {
		return CRMContact{}, fmt.Errorf("contact row missing id")
	}
	if r.Name == "" {
		return CRMContact{}, fmt.Errorf("contact row %s missing name", r.ID)
	}
	return CRMContact{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		Subject:      r.Subject,
		PriorityDate: r.PriorityDate,
		CreatedAt:    r.CreatedAt,
	}, nil
}
