package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiagomk/eventdesk/internal/model"
	"github.com/thiagomk/eventdesk/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int

// newTestStore runs the store against an in-memory SQLite database. The SQL
// surface we use (select, insert, column updates, delete) is portable.
func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.EventRow{}, &model.DemandRow{}, &model.NoteRow{}, &model.ContactRow{},
	))
	return NewFromDB(db)
}

func date(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestInsertAndListEventsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.InsertEvent(ctx, model.EventRow{Name: "first", Date: date("2026-09-01")})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := s.InsertEvent(ctx, model.EventRow{Name: "second", Date: date("2026-09-02")})
	require.NoError(t, err)

	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, second.ID, events[0].ID)
	assert.Equal(t, first.ID, events[1].ID)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.False(t, first.CreatedAt.IsZero())
}

func TestPartialUpdateLeavesOtherColumnsUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	event, err := s.InsertEvent(ctx, model.EventRow{Name: "gala", Date: date("2026-10-01")})
	require.NoError(t, err)
	demand, err := s.InsertDemand(ctx, model.DemandRow{
		EventID: event.ID,
		Title:   "book caterer",
		Subject: "food",
		Date:    date("2026-09-20"),
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateDemand(ctx, demand.ID, map[string]any{"subject": "catering"}))

	demands, err := s.ListDemands(ctx)
	require.NoError(t, err)
	require.Len(t, demands, 1)
	got := demands[0]
	assert.Equal(t, "catering", got.Subject)
	assert.Equal(t, "book caterer", got.Title)
	assert.Equal(t, date("2026-09-20"), got.Date.UTC().Truncate(24*time.Hour))
	assert.False(t, got.IsCompleted)
	assert.False(t, got.IsArchived)
}

func TestUpdateWithNilValueWritesNull(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	event, err := s.InsertEvent(ctx, model.EventRow{Name: "expo", Date: date("2026-10-01")})
	require.NoError(t, err)

	require.NoError(t, s.UpdateEvent(ctx, event.ID, map[string]any{
		"is_priority": true, "priority_order": 3,
	}))
	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	require.NotNil(t, events[0].PriorityOrder)
	assert.Equal(t, 3, *events[0].PriorityOrder)

	require.NoError(t, s.UpdateEvent(ctx, event.ID, map[string]any{
		"is_priority": false, "priority_order": nil,
	}))
	events, err = s.ListEvents(ctx)
	require.NoError(t, err)
	assert.False(t, events[0].IsPriority)
	assert.Nil(t, events[0].PriorityOrder)
}

func TestUpdateMissingRowReturnsNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateEvent(context.Background(), uuid.New(), map[string]any{"name": "x"})
	var nfe *store.NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "event", nfe.Resource)
}

func TestDeleteMissingRowReturnsNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.DeleteContact(context.Background(), uuid.New())
	var nfe *store.NotFoundError
	require.ErrorAs(t, err, &nfe)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	note, err := s.InsertNote(ctx, model.NoteRow{
		Subject:      "send invites",
		PriorityDate: date("2026-09-05"),
		Owner:        string(model.OwnerKalil),
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteNote(ctx, note.ID))
	notes, err := s.ListNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestListNotesOrderedByPriorityDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertNote(ctx, model.NoteRow{
		Subject: "later", PriorityDate: date("2026-12-01"), Owner: string(model.OwnerThiago),
	})
	require.NoError(t, err)
	_, err = s.InsertNote(ctx, model.NoteRow{
		Subject: "sooner", PriorityDate: date("2026-09-01"), Owner: string(model.OwnerKalil),
	})
	require.NoError(t, err)

	notes, err := s.ListNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "sooner", notes[0].Subject)
	assert.Equal(t, "later", notes[1].Subject)
}

func TestListNotesRejectsBatchOnUnknownOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertNote(ctx, model.NoteRow{
		Subject: "ok", PriorityDate: date("2026-09-01"), Owner: string(model.OwnerThiago),
	})
	require.NoError(t, err)

	// Simulate a remote writer inserting a row this deployment doesn't know.
	require.NoError(t, s.db.Create(&model.NoteRow{
		ID:           uuid.New(),
		Subject:      "bad",
		PriorityDate: date("2026-09-02"),
		Owner:        "Stranger",
		CreatedAt:    time.Now(),
	}).Error)

	notes, err := s.ListNotes(ctx)
	var merr *store.MappingError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, model.CollectionNotes, merr.Collection)
	assert.Nil(t, notes)
}

func TestContactRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	phone := "+55 11 99999-0000"
	contact, err := s.InsertContact(ctx, model.ContactRow{
		Name:         "Ana",
		Email:        "ana@example.com",
		Phone:        &phone,
		Subject:      "sponsorship",
		PriorityDate: date("2026-09-10"),
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateContact(ctx, contact.ID, map[string]any{"phone": nil}))

	contacts, err := s.ListContacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Ana", contacts[0].Name)
	assert.Nil(t, contacts[0].Phone)
}
