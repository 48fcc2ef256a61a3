// Package watch delivers remote change notifications. A Watcher tells the sync
// engines that a collection changed; it never carries row data, the engines
// always reload the full collection themselves.
package watch

// Change signals that rows of a collection changed remotely.
type Change struct {
	Collection string
}

// Watcher emits change notifications until closed.
type Watcher interface {
	// Changes returns the notification channel. It is closed when the watcher
	// shuts down.
	Changes() <-chan Change
	Close() error
}
