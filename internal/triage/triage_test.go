package triage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiagomk/eventdesk/internal/model"
)

func date(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestUrgencyScore(t *testing.T) {
	today := time.Date(2026, 8, 27, 10, 30, 0, 0, time.UTC)
	day := 24 * time.Hour

	assert.Equal(t, ScoreOverdue, UrgencyScore(today.Add(-day), today))
	assert.Equal(t, ScoreCurrent, UrgencyScore(today, today))
	assert.Equal(t, ScoreCurrent, UrgencyScore(today.Add(3*day), today))
	assert.Equal(t, ScoreUpcoming, UrgencyScore(today.Add(4*day), today))
}

func TestUrgencyScoreDateOnlyValues(t *testing.T) {
	// Due dates come from DATE columns (midnight), the evaluation instant is
	// mid-day. Due today must still rank as current, not overdue.
	now := time.Date(2026, 8, 27, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, ScoreCurrent, UrgencyScore(date("2026-08-27"), now))
	assert.Equal(t, ScoreOverdue, UrgencyScore(date("2026-08-26"), now))
	assert.Equal(t, ScoreCurrent, UrgencyScore(date("2026-08-30"), now))
	assert.Equal(t, ScoreUpcoming, UrgencyScore(date("2026-08-31"), now))
}

func intPtr(n int) *int { return &n }

func TestOrderEventsPriorityThenDate(t *testing.T) {
	a := model.Event{ID: uuid.New(), Name: "A", IsPriority: true, PriorityOrder: intPtr(2)}
	b := model.Event{ID: uuid.New(), Name: "B", IsPriority: true, PriorityOrder: intPtr(1)}
	c := model.Event{ID: uuid.New(), Name: "C", Date: date("2024-01-01")}
	d := model.Event{ID: uuid.New(), Name: "D", Date: date("2024-06-01")}

	ordered := OrderEvents([]model.Event{a, b, c, d})

	names := make([]string, len(ordered))
	for i, e := range ordered {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"B", "A", "D", "C"}, names)
}

func TestOrderEventsDoesNotMutateInput(t *testing.T) {
	in := []model.Event{
		{Name: "late", Date: date("2024-01-01")},
		{Name: "early", Date: date("2024-06-01")},
	}
	OrderEvents(in)
	assert.Equal(t, "late", in[0].Name)
}

func TestPartitionEvents(t *testing.T) {
	live := model.Event{ID: uuid.New(), Name: "live"}
	gone := model.Event{ID: uuid.New(), Name: "gone", IsArchived: true}

	active, archived := PartitionEvents([]model.Event{live, gone})
	require.Len(t, active, 1)
	require.Len(t, archived, 1)
	assert.Equal(t, "live", active[0].Name)
	assert.Equal(t, "gone", archived[0].Name)
}

func TestNextPriorityOrder(t *testing.T) {
	assert.Equal(t, 1, NextPriorityOrder(nil))
	assert.Equal(t, 1, NextPriorityOrder([]model.Event{
		{Name: "normal"},
	}))
	assert.Equal(t, 6, NextPriorityOrder([]model.Event{
		{Name: "p1", IsPriority: true, PriorityOrder: intPtr(5)},
		{Name: "p2", IsPriority: true, PriorityOrder: intPtr(2)},
		{Name: "normal"},
	}))
}

func TestActiveDemandsSortedByUrgencyThenDate(t *testing.T) {
	today := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	eventID := uuid.New()

	overdue := model.Demand{ID: uuid.New(), EventID: eventID, Title: "overdue", Date: date("2026-08-20")}
	dueSoon := model.Demand{ID: uuid.New(), EventID: eventID, Title: "dueSoon", Date: date("2026-08-28")}
	dueToday := model.Demand{ID: uuid.New(), EventID: eventID, Title: "dueToday", Date: date("2026-08-27")}
	upcoming := model.Demand{ID: uuid.New(), EventID: eventID, Title: "upcoming", Date: date("2026-09-15")}
	completed := model.Demand{ID: uuid.New(), EventID: eventID, Title: "completed", Date: date("2026-08-20"), IsCompleted: true}
	archived := model.Demand{ID: uuid.New(), EventID: eventID, Title: "archived", Date: date("2026-08-20"), IsArchived: true}

	got := ActiveDemands(
		[]model.Demand{upcoming, dueSoon, completed, overdue, archived, dueToday},
		uuid.Nil, today,
	)

	titles := make([]string, len(got))
	for i, d := range got {
		titles[i] = d.Title
	}
	assert.Equal(t, []string{"overdue", "dueToday", "dueSoon", "upcoming"}, titles)
}

func TestActiveDemandsFiltersByEvent(t *testing.T) {
	today := time.Now()
	mine := uuid.New()
	other := uuid.New()

	got := ActiveDemands([]model.Demand{
		{ID: uuid.New(), EventID: mine, Title: "mine", Date: today},
		{ID: uuid.New(), EventID: other, Title: "other", Date: today},
	}, mine, today)

	require.Len(t, got, 1)
	assert.Equal(t, "mine", got[0].Title)
}

func TestCompletedDemands(t *testing.T) {
	eventID := uuid.New()
	done := model.Demand{ID: uuid.New(), EventID: eventID, Title: "done", IsCompleted: true}
	open := model.Demand{ID: uuid.New(), EventID: eventID, Title: "open"}

	got := CompletedDemands([]model.Demand{done, open}, uuid.Nil)
	require.Len(t, got, 1)
	assert.Equal(t, "done", got[0].Title)

	assert.Empty(t, CompletedDemands([]model.Demand{done}, uuid.New()))
}

func TestGroupDemandsByEventExcludesOrphans(t *testing.T) {
	event := model.Event{ID: uuid.New(), Name: "known"}
	owned := model.Demand{ID: uuid.New(), EventID: event.ID, Title: "owned"}
	orphan := model.Demand{ID: uuid.New(), EventID: uuid.New(), Title: "orphan"}

	grouped := GroupDemandsByEvent([]model.Demand{owned, orphan}, []model.Event{event})
	require.Len(t, grouped, 1)
	require.Len(t, grouped[event.ID], 1)
	assert.Equal(t, "owned", grouped[event.ID][0].Title)
}
