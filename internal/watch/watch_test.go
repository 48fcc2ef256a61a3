package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitNeverBlocks(t *testing.T) {
	w := &ReplicationWatcher{changes: make(chan Change, 1)}

	w.emit("events")
	// Channel is full now; further emits are dropped, not queued.
	w.emit("demands")
	// Rows from tables outside the publication map to no collection.
	w.emit("")

	require.Len(t, w.changes, 1)
	change := <-w.changes
	assert.Equal(t, "events", change.Collection)
	assert.Empty(t, w.changes)
}
