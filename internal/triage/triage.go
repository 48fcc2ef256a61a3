// Package triage derives the dashboard views from mirror snapshots. Every
// function is pure: inputs are never mutated and results are fresh slices, so
// callers can hand them straight to the presentation layer.
package triage

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/thiagomk/eventdesk/internal/model"
)

// Urgency tiers for demands.
const (
	ScoreOverdue  = 3
	ScoreCurrent  = 2
	ScoreUpcoming = 1
)

// UrgencyScore ranks a demand's due date against the evaluation instant.
// Overdue beats current beats upcoming; "current" covers everything due
// within the next three days.
func UrgencyScore(due, today time.Time) int {
	diffDays := int(math.Ceil(due.Sub(today).Hours() / 24))
	switch {
	case diffDays < 0:
		return ScoreOverdue
	case diffDays <= 3:
		return ScoreCurrent
	default:
		return ScoreUpcoming
	}
}

// PartitionEvents splits events into active and archived.
func PartitionEvents(events []model.Event) (active, archived []model.Event) {
	for _, e := range events {
		if e.IsArchived {
			archived = append(archived, e)
		} else {
			active = append(active, e)
		}
	}
	return active, archived
}

// OrderEvents sorts events for display: priority events first, ascending by
// priority order, then the rest descending by date. The input is not modified.
func OrderEvents(events []model.Event) []model.Event {
	var priority, normal []model.Event
	for _, e := range events {
		if e.IsPriority {
			priority = append(priority, e)
		} else {
			normal = append(normal, e)
		}
	}
	sort.SliceStable(priority, func(i, j int) bool {
		return priorityOrder(priority[i]) < priorityOrder(priority[j])
	})
	sort.SliceStable(normal, func(i, j int) bool {
		return normal[i].Date.After(normal[j].Date)
	})
	return append(priority, normal...)
}

// priorityOrder reads the order field, pushing events that violate the
// set-iff-priority invariant to the end rather than dropping them.
func priorityOrder(e model.Event) int {
	if e.PriorityOrder == nil {
		return math.MaxInt
	}
	return *e.PriorityOrder
}

// NextPriorityOrder returns the order to assign when an event is promoted to
// priority: one past the current maximum, so the newcomer sorts last without
// renumbering anything.
func NextPriorityOrder(events []model.Event) int {
	max := 0
	for _, e := range events {
		if e.IsPriority && e.PriorityOrder != nil && *e.PriorityOrder > max {
			max = *e.PriorityOrder
		}
	}
	return max + 1
}

// ActiveDemands returns open demands (not completed, not archived), most
// urgent first, ties broken by soonest due date. Pass uuid.Nil as eventID to
// include every event.
func ActiveDemands(demands []model.Demand, eventID uuid.UUID, today time.Time) []model.Demand {
	var out []model.Demand
	for _, d := range demands {
		if d.IsCompleted || d.IsArchived {
			continue
		}
		if eventID != uuid.Nil && d.EventID != eventID {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := UrgencyScore(out[i].Date, today), UrgencyScore(out[j].Date, today)
		if si != sj {
			return si > sj
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// CompletedDemands returns completed demands in input order, optionally
// filtered to one event.
func CompletedDemands(demands []model.Demand, eventID uuid.UUID) []model.Demand {
	var out []model.Demand
	for _, d := range demands {
		if !d.IsCompleted {
			continue
		}
		if eventID != uuid.Nil && d.EventID != eventID {
			continue
		}
		out = append(out, d)
	}
	return out
}

// GroupDemandsByEvent buckets demands under their owning event. Demands whose
// event is not in the snapshot are orphans and are left out.
func GroupDemandsByEvent(demands []model.Demand, events []model.Event) map[uuid.UUID][]model.Demand {
	known := make(map[uuid.UUID]bool, len(events))
	for _, e := range events {
		known[e.ID] = true
	}
	out := make(map[uuid.UUID][]model.Demand)
	for _, d := range demands {
		if known[d.EventID] {
			out[d.EventID] = append(out[d.EventID], d)
		}
	}
	return out
}
