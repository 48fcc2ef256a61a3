// Package notify is the fire-and-forget user notification collaborator. The
// sync core and the gateways report successes and failures through it; nothing
// ever blocks on or observes a notification's delivery.
package notify

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notification is a single user-facing message.
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	At          time.Time `json:"at"`
}

// Notifier delivers user-facing notifications.
type Notifier interface {
	Notify(title, description string, severity Severity)
}

// NewLog returns a Notifier that writes to the process log.
func NewLog() Notifier { return logNotifier{} }

type logNotifier struct{}

func (logNotifier) Notify(title, description string, severity Severity) {
	if severity == SeverityError {
		log.Error(title, "description", description)
		return
	}
	log.Info(title, "description", description)
}

// Discard is a Notifier that drops everything. Useful in tests.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(string, string, Severity) {}

// Multi fans a notification out to every given Notifier.
func Multi(notifiers ...Notifier) Notifier { return multi(notifiers) }

type multi []Notifier

func (m multi) Notify(title, description string, severity Severity) {
	for _, n := range m {
		n.Notify(title, description, severity)
	}
}

// Ring retains the most recent notifications for the notifications endpoint.
type Ring struct {
	mu      sync.Mutex
	max     int
	entries []Notification
}

// NewRing returns a Ring retaining at most max notifications.
func NewRing(max int) *Ring {
	if max <= 0 {
		max = 100
	}
	return &Ring{max: max}
}

func (r *Ring) Notify(title, description string, severity Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Notification{
		Title:       title,
		Description: description,
		Severity:    severity,
		At:          time.Now(),
	})
	if len(r.entries) > r.max {
		r.entries = r.entries[len(r.entries)-r.max:]
	}
}

// Recent returns the retained notifications, newest first.
func (r *Ring) Recent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.entries))
	for i, n := range r.entries {
		out[len(out)-1-i] = n
	}
	return out
}
