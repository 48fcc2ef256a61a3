package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrorStartsEmptyAndNotReady(t *testing.T) {
	m := NewMirror[string]("events")
	assert.False(t, m.Ready())
	assert.Empty(t, m.Snapshot())
	assert.Zero(t, m.Len())
}

func TestMirrorReplaceRejectsStaleSeq(t *testing.T) {
	m := NewMirror[string]("events")

	require.True(t, m.replace([]string{"a", "b"}, 2))
	assert.True(t, m.Ready())
	assert.Equal(t, []string{"a", "b"}, m.Snapshot())

	// A slower fetch that started earlier must not win.
	require.False(t, m.replace([]string{"old"}, 1))
	require.False(t, m.replace([]string{"old"}, 2))
	assert.Equal(t, []string{"a", "b"}, m.Snapshot())

	require.True(t, m.replace([]string{"c"}, 3))
	assert.Equal(t, []string{"c"}, m.Snapshot())
}

func TestMirrorReadyNeverReverts(t *testing.T) {
	m := NewMirror[int]("demands")
	require.True(t, m.replace([]int{1}, 1))
	require.True(t, m.replace(nil, 2))
	assert.True(t, m.Ready())
	assert.Empty(t, m.Snapshot())
}

func TestMirrorSnapshotIsACopy(t *testing.T) {
	m := NewMirror[string]("notes")
	require.True(t, m.replace([]string{"x", "y"}, 1))

	snap := m.Snapshot()
	snap[0] = "mutated"

	assert.Equal(t, []string{"x", "y"}, m.Snapshot())
}
