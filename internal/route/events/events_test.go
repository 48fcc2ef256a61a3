package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiagomk/eventdesk/internal/gateway"
	"github.com/thiagomk/eventdesk/internal/mirror"
	"github.com/thiagomk/eventdesk/internal/model"
	"github.com/thiagomk/eventdesk/internal/notify"
	"github.com/thiagomk/eventdesk/internal/store"
)

// memStore backs the route tests with an in-memory events collection.
type memStore struct {
	mu     sync.Mutex
	events []model.Event
}

func (m *memStore) ListEvents(context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Event, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *memStore) InsertEvent(_ context.Context, row model.EventRow) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row.ID = uuid.New()
	row.CreatedAt = time.Now()
	event, err := row.Entity()
	if err != nil {
		return model.Event{}, err
	}
	m.events = append(m.events, event)
	return event, nil
}

func (m *memStore) UpdateEvent(_ context.Context, id uuid.UUID, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].ID != id {
			continue
		}
		if name, ok := fields["name"].(string); ok {
			m.events[i].Name = name
		}
		if v, ok := fields["is_priority"].(bool); ok {
			m.events[i].IsPriority = v
		}
		if v, ok := fields["priority_order"]; ok {
			if n, ok := v.(int); ok {
				m.events[i].PriorityOrder = &n
			} else {
				m.events[i].PriorityOrder = nil
			}
		}
		if v, ok := fields["is_archived"].(bool); ok {
			m.events[i].IsArchived = v
		}
		return nil
	}
	return &store.NotFoundError{Resource: "event", ID: id.String()}
}

func (m *memStore) DeleteEvent(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].ID == id {
			m.events = append(m.events[:i], m.events[i+1:]...)
			return nil
		}
	}
	return &store.NotFoundError{Resource: "event", ID: id.String()}
}

func (m *memStore) ListDemands(context.Context) ([]model.Demand, error) { return nil, nil }
func (m *memStore) InsertDemand(context.Context, model.DemandRow) (model.Demand, error) {
	return model.Demand{}, nil
}
func (m *memStore) UpdateDemand(context.Context, uuid.UUID, map[string]any) error { return nil }
func (m *memStore) DeleteDemand(context.Context, uuid.UUID) error                 { return nil }
func (m *memStore) ListNotes(context.Context) ([]model.Note, error)               { return nil, nil }
func (m *memStore) InsertNote(context.Context, model.NoteRow) (model.Note, error) {
	return model.Note{}, nil
}
func (m *memStore) UpdateNote(context.Context, uuid.UUID, map[string]any) error { return nil }
func (m *memStore) DeleteNote(context.Context, uuid.UUID) error                 { return nil }
func (m *memStore) ListContacts(context.Context) ([]model.CRMContact, error)    { return nil, nil }
func (m *memStore) InsertContact(context.Context, model.ContactRow) (model.CRMContact, error) {
	return model.CRMContact{}, nil
}
func (m *memStore) UpdateContact(context.Context, uuid.UUID, map[string]any) error { return nil }
func (m *memStore) DeleteContact(context.Context, uuid.UUID) error                 { return nil }
func (m *memStore) Close() error                                                   { return nil }

func newRouter(t *testing.T, ms *memStore) (*gin.Engine, *mirror.Engine[model.Event]) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	eng := mirror.Start(mirror.Options{
		Collection:   model.CollectionEvents,
		PollInterval: time.Hour,
	}, ms.ListEvents, notify.Discard)
	t.Cleanup(eng.Close)
	require.Eventually(t, eng.Ready, time.Second, 5*time.Millisecond)

	gw := gateway.NewEvents(ms, nil, notify.Discard, func() {
		eng.Request(mirror.TriggerExplicit)
	}, eng.Snapshot)

	router := gin.New()
	MountRoutes(router, eng, gw)
	return router, eng
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListEventsActiveOrdering(t *testing.T) {
	order1, order2 := 1, 2
	ms := &memStore{events: []model.Event{
		{ID: uuid.New(), Name: "A", IsPriority: true, PriorityOrder: &order2},
		{ID: uuid.New(), Name: "B", IsPriority: true, PriorityOrder: &order1},
		{ID: uuid.New(), Name: "C", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: uuid.New(), Name: "D", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{ID: uuid.New(), Name: "Z", IsArchived: true},
	}}
	router, _ := newRouter(t, ms)

	rec := doJSON(router, http.MethodGet, "/v1/events", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data  []model.Event `json:"data"`
		Ready bool          `json:"ready"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)

	names := make([]string, len(resp.Data))
	for i, e := range resp.Data {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"B", "A", "D", "C"}, names)
}

func TestListEventsArchivedView(t *testing.T) {
	ms := &memStore{events: []model.Event{
		{ID: uuid.New(), Name: "live"},
		{ID: uuid.New(), Name: "gone", IsArchived: true},
	}}
	router, _ := newRouter(t, ms)

	rec := doJSON(router, http.MethodGet, "/v1/events?view=archived", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []model.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "gone", resp.Data[0].Name)
}

func TestListEventsInvalidView(t *testing.T) {
	router, _ := newRouter(t, &memStore{})
	rec := doJSON(router, http.MethodGet, "/v1/events?view=bogus", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEventAndMirrorCatchesUp(t *testing.T) {
	ms := &memStore{}
	router, eng := newRouter(t, ms)

	rec := doJSON(router, http.MethodPost, "/v1/events", `{"name":"Launch","date":"2026-09-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Launch", created.Name)

	// The gateway requested an explicit refresh; the mirror converges.
	require.Eventually(t, func() bool {
		return len(eng.Snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCreateEventRejectsBadDate(t *testing.T) {
	router, _ := newRouter(t, &memStore{})
	rec := doJSON(router, http.MethodPost, "/v1/events", `{"name":"X","date":"01/09/2026"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateEventInvalidID(t *testing.T) {
	router, _ := newRouter(t, &memStore{})
	rec := doJSON(router, http.MethodPatch, "/v1/events/not-a-uuid", `{"name":"X"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTogglePriorityRoundTrip(t *testing.T) {
	event := model.Event{ID: uuid.New(), Name: "solo", Date: time.Now()}
	ms := &memStore{events: []model.Event{event}}
	router, eng := newRouter(t, ms)

	rec := doJSON(router, http.MethodPost, "/v1/events/"+event.ID.String()+"/priority", "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		snap := eng.Snapshot()
		return len(snap) == 1 && snap[0].IsPriority &&
			snap[0].PriorityOrder != nil && *snap[0].PriorityOrder == 1
	}, time.Second, 5*time.Millisecond)
}

func TestTogglePriorityUnknownEvent(t *testing.T) {
	router, _ := newRouter(t, &memStore{})
	rec := doJSON(router, http.MethodPost, "/v1/events/"+uuid.NewString()+"/priority", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteEvent(t *testing.T) {
	event := model.Event{ID: uuid.New(), Name: "bye", Date: time.Now()}
	ms := &memStore{events: []model.Event{event}}
	router, eng := newRouter(t, ms)

	rec := doJSON(router, http.MethodDelete, "/v1/events/"+event.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		return len(eng.Snapshot()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestExplicitRefreshEndpoint(t *testing.T) {
	ms := &memStore{}
	router, eng := newRouter(t, ms)

	ms.mu.Lock()
	ms.events = append(ms.events, model.Event{ID: uuid.New(), Name: "late arrival", Date: time.Now()})
	ms.mu.Unlock()

	rec := doJSON(router, http.MethodPost, "/v1/events/refresh", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		return len(eng.Snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}
