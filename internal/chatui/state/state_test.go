package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "chat-state.json"))
}

func TestManagerRoundTrip(t *testing.T) {
	m := newTestManager(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m.SetReadMarker("conv-1", "msg-5", at)
	m.SetDraft("conv-2", "half-written reply")
	m.SetLastConversation("conv-2")
	require.NoError(t, m.SaveNow())

	reloaded := New(m.Path())
	require.NoError(t, reloaded.Load())
	marker, ok := reloaded.ReadMarker("conv-1")
	require.True(t, ok)
	require.Equal(t, "msg-5", marker.MessageID)
	require.True(t, marker.At.Equal(at))
	draft, ok := reloaded.Draft("conv-2")
	require.True(t, ok)
	require.Equal(t, "half-written reply", draft.Body)
	require.Equal(t, "conv-2", reloaded.LastConversation())
}

func TestReadMarkerNeverMovesBackwards(t *testing.T) {
	m := newTestManager(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m.SetReadMarker("conv-1", "msg-9", at)
	m.SetReadMarker("conv-1", "msg-3", at.Add(-time.Minute))
	marker, ok := m.ReadMarker("conv-1")
	require.True(t, ok)
	require.Equal(t, "msg-9", marker.MessageID)
}

func TestReadMarkerOrdersByTimestampNotID(t *testing.T) {
	// Backend ids are uuids with no lexical order; a newer message whose id
	// sorts lower must still advance the marker.
	m := newTestManager(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m.SetReadMarker("conv-1", "f6a1c2d3-0000-0000-0000-000000000001", at)
	m.SetReadMarker("conv-1", "0b9e8d7c-0000-0000-0000-000000000002", at.Add(time.Second))
	marker, ok := m.ReadMarker("conv-1")
	require.True(t, ok)
	require.Equal(t, "0b9e8d7c-0000-0000-0000-000000000002", marker.MessageID)

	// Equal timestamps fall back to id order, matching message order.
	m.SetReadMarker("conv-2", "msg-a", at)
	m.SetReadMarker("conv-2", "msg-b", at)
	marker, ok = m.ReadMarker("conv-2")
	require.True(t, ok)
	require.Equal(t, "msg-b", marker.MessageID)
}

func TestEmptyBodyDeletesDraft(t *testing.T) {
	m := newTestManager(t)

	m.SetDraft("conv-1", "keep this")
	m.SetDraft("conv-1", "   ")
	_, ok := m.Draft("conv-1")
	require.False(t, ok)
}

func TestLoadMissingFile(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, m.Load())
	_, ok := m.ReadMarker("conv-1")
	require.False(t, ok)
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat-state.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m := New(path)
	require.NoError(t, m.Load())
	require.Equal(t, CurrentVersion, m.state.Version)
}

func TestCloseFlushesPendingWrite(t *testing.T) {
	m := newTestManager(t)

	m.SetDraft("conv-1", "pending")
	require.NoError(t, m.Close())

	reloaded := New(m.Path())
	require.NoError(t, reloaded.Load())
	_, ok := reloaded.Draft("conv-1")
	require.True(t, ok)
}

func TestNormalizeDropsStaleDrafts(t *testing.T) {
	now := time.Now().UTC()
	state := ChatState{
		Drafts: map[string]Draft{
			"fresh": {ConversationID: "fresh", Body: "x", UpdatedAt: now.Add(-time.Hour)},
			"stale": {ConversationID: "stale", Body: "y", UpdatedAt: now.Add(-30 * 24 * time.Hour)},
		},
	}
	out := normalizeState(state, now)
	require.Contains(t, out.Drafts, "fresh")
	require.NotContains(t, out.Drafts, "stale")
}

func TestEmptyPathDisablesPersistence(t *testing.T) {
	m := New("")
	m.SetReadMarker("conv-1", "msg-1", time.Now().UTC())
	require.NoError(t, m.SaveNow())
	marker, ok := m.ReadMarker("conv-1")
	require.True(t, ok)
	require.Equal(t, "msg-1", marker.MessageID)
}
