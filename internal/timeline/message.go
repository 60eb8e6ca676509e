// Package timeline models the rendered message timeline for a conversation:
// message ordering, viewport classification, and the pending-message buffer
// used while the user is scrolled away from the bottom.
package timeline

import (
	"sort"
	"time"
)

// MessageKind distinguishes how a timeline entry is rendered.
type MessageKind string

const (
	// KindUser is a human-authored message.
	KindUser MessageKind = "user"
	// KindAssistant is an assistant-authored message, visually tagged.
	KindAssistant MessageKind = "assistant"
	// KindSeparator is a synthetic divider inserted when buffered messages
	// are flushed into the timeline.
	KindSeparator MessageKind = "separator"
)

// ConversationType distinguishes direct and group conversations.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// AttachmentImage marks image attachments; replies to these route through
// image analysis on the assistant side.
const AttachmentImage = "image"

// Attachment describes an optional file attached to a message.
type Attachment struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Message is a single chat message. Messages are immutable once rendered
// except for the Read flag.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	SenderName     string      `json:"sender_name,omitempty"`
	Body           string      `json:"body"`
	Attachment     *Attachment `json:"attachment,omitempty"`
	ReplyToID      string      `json:"reply_to_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	Read           bool        `json:"read"`
	Kind           MessageKind `json:"kind,omitempty"`
}

// IsAssistant reports whether the message was authored by the assistant.
func (m Message) IsAssistant() bool {
	return m.Kind == KindAssistant
}

// Before reports whether m sorts before other: by creation timestamp,
// ties broken by identity.
func (m Message) Before(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

// Conversation describes chat metadata. Mutated locally only to reflect
// unread counters and the last-message preview.
type Conversation struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Participants []string         `json:"participants"`
	Type         ConversationType `json:"type"`
	MemberCount  int              `json:"member_count,omitempty"`
	AdminID      string           `json:"admin_id,omitempty"`
	Unread       int              `json:"unread,omitempty"`
	LastPreview  string           `json:"last_preview,omitempty"`
	LastActivity time.Time        `json:"last_activity,omitempty"`
}

// IsGroup reports whether the conversation is a group.
func (c Conversation) IsGroup() bool {
	return c.Type == ConversationGroup
}

// SortMessages orders messages by creation timestamp with a stable tie-break
// by identity. The backend is not trusted to return sorted order.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Before(msgs[j])
	})
}
