// Package state persists chat surface state (read markers, compose drafts,
// last open conversation) across sessions. Writes are debounced and guarded
// by a file lock so concurrent clients sharing a config directory do not
// clobber each other.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	CurrentVersion = 1

	defaultDebounce = 1 * time.Second
	draftMaxAge     = 14 * 24 * time.Hour
)

// ChatState is the persisted payload.
type ChatState struct {
	Version          int               `json:"version"`
	ReadMarkers      map[string]Marker `json:"read_markers,omitempty"` // conversation id -> last-read message
	Drafts           map[string]Draft  `json:"drafts,omitempty"`       // conversation id -> draft
	LastConversation string            `json:"last_conversation,omitempty"`
}

// Marker records the newest message the user has read in a conversation.
// Ordering follows message order (timestamp, then id), since backend ids
// carry no order of their own.
type Marker struct {
	MessageID string    `json:"message_id"`
	At        time.Time `json:"at"`
}

// Before reports whether m is ordered before the message (at, messageID).
func (m Marker) Before(at time.Time, messageID string) bool {
	if !m.At.Equal(at) {
		return m.At.Before(at)
	}
	return m.MessageID < messageID
}

// Draft is an unsent compose line preserved across conversation switches.
type Draft struct {
	ConversationID string    `json:"conversation_id"`
	Body           string    `json:"body"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// Manager owns the state file. All mutators mark the state dirty and
// schedule a debounced save; Close flushes pending writes.
type Manager struct {
	path     string
	lockPath string

	mu        sync.Mutex
	state     ChatState
	dirty     bool
	timer     *time.Timer
	debounce  time.Duration
	lastWrite time.Time
}

// New creates a Manager for the given state file path. An empty path
// disables persistence; mutators still work in memory.
func New(path string) *Manager {
	path = strings.TrimSpace(path)
	return &Manager{
		path:     path,
		lockPath: path + ".lock",
		state: ChatState{
			Version:     CurrentVersion,
			ReadMarkers: make(map[string]Marker),
			Drafts:      make(map[string]Draft),
		},
		debounce: defaultDebounce,
	}
}

// Path returns the state file path.
func (m *Manager) Path() string { return m.path }

// Load reads the state file, tolerating a missing or empty file.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == "" {
		return nil
	}
	loaded, err := m.loadLocked()
	if err != nil {
		return err
	}
	m.state = loaded
	m.dirty = false
	return nil
}

// ReadMarker returns the last-read marker for a conversation.
func (m *Manager) ReadMarker(conversationID string) (Marker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return Marker{}, false
	}
	marker, ok := m.state.ReadMarkers[conversationID]
	return marker, ok
}

// SetReadMarker advances the read marker to the message (messageID, at).
// Markers never move backwards in message order.
func (m *Manager) SetReadMarker(conversationID, messageID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversationID = strings.TrimSpace(conversationID)
	messageID = strings.TrimSpace(messageID)
	if conversationID == "" || messageID == "" {
		return
	}
	if m.state.ReadMarkers == nil {
		m.state.ReadMarkers = make(map[string]Marker)
	}
	if prev, ok := m.state.ReadMarkers[conversationID]; ok && !prev.Before(at, messageID) {
		return
	}
	m.state.ReadMarkers[conversationID] = Marker{MessageID: messageID, At: at}
	m.markDirtyLocked()
}

// Draft returns the saved compose draft for a conversation.
func (m *Manager) Draft(conversationID string) (Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" || len(m.state.Drafts) == 0 {
		return Draft{}, false
	}
	draft, ok := m.state.Drafts[conversationID]
	return draft, ok
}

// SetDraft stores an unsent compose line. An empty body deletes the draft.
func (m *Manager) SetDraft(conversationID, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return
	}
	if m.state.Drafts == nil {
		m.state.Drafts = make(map[string]Draft)
	}
	if strings.TrimSpace(body) == "" {
		if _, ok := m.state.Drafts[conversationID]; !ok {
			return
		}
		delete(m.state.Drafts, conversationID)
		m.markDirtyLocked()
		return
	}
	m.state.Drafts[conversationID] = Draft{
		ConversationID: conversationID,
		Body:           body,
		UpdatedAt:      time.Now().UTC(),
	}
	m.markDirtyLocked()
}

// LastConversation returns the conversation open when the TUI last closed.
func (m *Manager) LastConversation() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.LastConversation
}

// SetLastConversation records the open conversation for session restore.
func (m *Manager) SetLastConversation(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == m.state.LastConversation {
		return
	}
	m.state.LastConversation = conversationID
	m.markDirtyLocked()
}

// Close flushes any pending write.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	needsSave := m.dirty
	m.mu.Unlock()
	if !needsSave {
		return nil
	}
	return m.SaveNow()
}

// SaveNow writes the state file immediately.
func (m *Manager) SaveNow() error {
	m.mu.Lock()
	if m.path == "" {
		m.mu.Unlock()
		return nil
	}
	state := cloneState(m.state)
	m.dirty = false
	m.mu.Unlock()

	state.Version = CurrentVersion
	state = normalizeState(state, time.Now().UTC())

	if err := withFileLock(m.lockPath, func() error {
		return writeAtomicJSON(m.path, state)
	}); err != nil {
		m.mu.Lock()
		m.dirty = true
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.lastWrite = time.Now().UTC()
	m.mu.Unlock()
	return nil
}

func (m *Manager) markDirtyLocked() {
	m.dirty = true
	if m.path == "" {
		return
	}
	if m.timer == nil {
		m.timer = time.AfterFunc(m.debounce, func() {
			_ = m.SaveNow()
		})
		return
	}
	_ = m.timer.Reset(m.debounce)
}

func (m *Manager) loadLocked() (ChatState, error) {
	var out ChatState
	if err := withFileLock(m.lockPath, func() error {
		payload, err := os.ReadFile(m.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				out = ChatState{Version: CurrentVersion}
				return nil
			}
			return err
		}
		if len(payload) == 0 {
			out = ChatState{Version: CurrentVersion}
			return nil
		}
		return json.Unmarshal(payload, &out)
	}); err != nil {
		return ChatState{}, err
	}

	if out.Version <= 0 {
		out.Version = CurrentVersion
	}
	if out.ReadMarkers == nil {
		out.ReadMarkers = make(map[string]Marker)
	}
	if out.Drafts == nil {
		out.Drafts = make(map[string]Draft)
	}
	return out, nil
}

func withFileLock(lockPath string, fn func() error) error {
	if strings.TrimSpace(lockPath) == "" {
		return fn()
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock %s: %w", lockPath, err)
	}
	defer func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}()
	return fn()
}

func writeAtomicJSON(path string, state ChatState) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func cloneState(state ChatState) ChatState {
	out := state
	out.ReadMarkers = make(map[string]Marker, len(state.ReadMarkers))
	for k, v := range state.ReadMarkers {
		out.ReadMarkers[k] = v
	}
	out.Drafts = make(map[string]Draft, len(state.Drafts))
	for k, v := range state.Drafts {
		out.Drafts[k] = v
	}
	return out
}

// normalizeState drops stale drafts before each write.
func normalizeState(state ChatState, now time.Time) ChatState {
	if state.ReadMarkers == nil {
		state.ReadMarkers = make(map[string]Marker)
	}
	if state.Drafts == nil {
		state.Drafts = make(map[string]Draft)
	}
	for id, draft := range state.Drafts {
		if !draft.UpdatedAt.IsZero() && now.Sub(draft.UpdatedAt) > draftMaxAge {
			delete(state.Drafts, id)
		}
	}
	return state
}
