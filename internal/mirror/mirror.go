// Package mirror keeps read-only, full-snapshot replicas of the remote
// collections and decides when to reload them. Each collection gets one
// Mirror (the snapshot), one Reconciler (the fetch discipline) and one Engine
// (the trigger loop tying explicit, push and poll refreshes together).
package mirror

import (
	"sync"

	"github.com/thiagomk/eventdesk/internal/observe"
)

// Mirror holds the local snapshot of one remote collection. Updates are
// whole-snapshot replacements only; there are no per-row edits. A snapshot is
// tagged with the sequence number of the fetch that produced it so a slow
// fetch can never overwrite a newer one.
type Mirror[T any] struct {
	collection string

	mu    sync.RWMutex
	items []T
	seq   uint64
	ready bool
}

// NewMirror returns an empty, not-ready mirror for the named collection.
func NewMirror[T any](collection string) *Mirror[T] {
	return &Mirror[T]{collection: collection}
}

// Snapshot returns a copy of the current items. Safe to retain and mutate.
func (m *Mirror[T]) Snapshot() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, len(m.items))
	copy(out, m.items)
	return out
}

// Ready reports whether at least one snapshot has been applied. It never goes
// back to false, not even when a later refresh fails.
func (m *Mirror[T]) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Len returns the number of items in the current snapshot.
func (m *Mirror[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// replace installs a new snapshot if seq is newer than the applied one.
// Returns false when the snapshot is stale and was discarded.
func (m *Mirror[T]) replace(items []T, seq uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seq <= m.seq && m.ready {
		return false
	}
	m.items = items
	m.seq = seq
	m.ready = true
	observe.SetMirrorItems(m.collection, len(items))
	return true
}
