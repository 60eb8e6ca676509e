// Package config provides configuration and session management for gigtalk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Marketplace roles a user can act as.
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
)

// Session represents the current client session (signed-in user, active role,
// last open conversation). Components receive it explicitly rather than
// reading process-wide state.
type Session struct {
	// UserID is the signed-in user.
	UserID string `yaml:"user,omitempty"`
	// UserName is the human-readable user name (for display).
	UserName string `yaml:"user_name,omitempty"`
	// Role is the active marketplace role (client or freelancer).
	Role string `yaml:"role,omitempty"`
	// ConversationID is the last open conversation.
	ConversationID string `yaml:"conversation,omitempty"`
	// ConversationName is the human-readable conversation name (for display).
	ConversationName string `yaml:"conversation_name,omitempty"`
	// UpdatedAt is when the session was last modified.
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// IsEmpty returns true if no session is set.
func (s *Session) IsEmpty() bool {
	return s.UserID == "" && s.ConversationID == ""
}

// HasUser returns true if a user is signed in.
func (s *Session) HasUser() bool {
	return s.UserID != ""
}

// HasConversation returns true if a conversation is open.
func (s *Session) HasConversation() bool {
	return s.ConversationID != ""
}

// Clear resets the session.
func (s *Session) Clear() {
	s.UserID = ""
	s.UserName = ""
	s.Role = ""
	s.ConversationID = ""
	s.ConversationName = ""
	s.UpdatedAt = time.Now()
}

// SetUser sets the signed-in user.
func (s *Session) SetUser(id, name string) {
	s.UserID = id
	s.UserName = name
	// Conversation is scoped to the user
	s.ConversationID = ""
	s.ConversationName = ""
	s.UpdatedAt = time.Now()
}

// SetRole switches the active marketplace role.
func (s *Session) SetRole(role string) error {
	switch role {
	case RoleClient, RoleFreelancer:
		s.Role = role
		s.UpdatedAt = time.Now()
		return nil
	default:
		return fmt.Errorf("unknown role %q", role)
	}
}

// SetConversation sets the open conversation.
func (s *Session) SetConversation(id, name string) {
	s.ConversationID = id
	s.ConversationName = name
	s.UpdatedAt = time.Now()
}

// String returns a human-readable representation of the session.
func (s *Session) String() string {
	if s.IsEmpty() {
		return "(no session)"
	}
	var parts []string
	if s.HasUser() {
		name := s.UserName
		if name == "" {
			name = shortID(s.UserID)
		}
		parts = append(parts, fmt.Sprintf("user:%s", name))
	}
	if s.Role != "" {
		parts = append(parts, fmt.Sprintf("role:%s", s.Role))
	}
	if s.HasConversation() {
		name := s.ConversationName
		if name == "" {
			name = shortID(s.ConversationID)
		}
		parts = append(parts, fmt.Sprintf("conversation:%s", name))
	}
	result := parts[0]
	for i := 1; i < len(parts); i++ {
		result += " " + parts[i]
	}
	return result
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// SessionStore manages loading and saving the session.
type SessionStore struct {
	path string
	mu   sync.RWMutex
}

// NewSessionStore creates a new session store.
// If path is empty, uses the default path (~/.config/gigtalk/session.yaml).
func NewSessionStore(path string) *SessionStore {
	if path == "" {
		homeDir, _ := os.UserHomeDir()
		path = filepath.Join(homeDir, ".config", "gigtalk", "session.yaml")
	}
	return &SessionStore{path: path}
}

// Path returns the session file path.
func (s *SessionStore) Path() string {
	return s.path
}

// Load reads the session from disk.
// Returns an empty session if the file doesn't exist.
func (s *SessionStore) Load() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := &Session{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return sess, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if err := yaml.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	return sess, nil
}

// Save writes the session to disk.
func (s *SessionStore) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Clear removes the session file.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
