package api

import (
	"time"

	"github.com/gigtalk/gigtalk/internal/timeline"
)

// ConversationList is a paginated conversation collection.
type ConversationList struct {
	Items      []timeline.Conversation `json:"items"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

// MessageList is a paginated message list.
type MessageList struct {
	Items      []timeline.Message `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// CreateMessageRequest is the payload for posting a message.
type CreateMessageRequest struct {
	ConversationID string               `json:"conversation_id"`
	Body           string               `json:"body"`
	Attachment     *timeline.Attachment `json:"attachment,omitempty"`
	ReplyToID      string               `json:"reply_to_id,omitempty"`
	Assistant      bool                 `json:"assistant,omitempty"`
	IdempotencyKey string               `json:"idempotency_key,omitempty"`
}

// Order is a marketplace order summary.
type Order struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderList is the order listing payload.
type OrderList struct {
	Items []Order `json:"items"`
}

// Review is a rating submitted for a completed order.
type Review struct {
	OrderID int    `json:"order_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// Notification is a platform notification.
type Notification struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationList is the notification listing payload.
type NotificationList struct {
	Items []Notification `json:"items"`
}

// NotificationPrefs controls notification delivery.
type NotificationPrefs struct {
	Muted bool `json:"muted"`
}

// Report is a user report filed against another participant.
type Report struct {
	SubjectUserID string `json:"subject_user_id,omitempty"`
	Reason        string `json:"reason"`
}

// Ticket is a support ticket.
type Ticket struct {
	ID      string `json:"id,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body,omitempty"`
}

// Gig is a freelancer service listing.
type Gig struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Rating float64 `json:"rating,omitempty"`
	Seller string  `json:"seller,omitempty"`
}

// GigList is the gig search payload.
type GigList struct {
	Items []Gig `json:"items"`
}

// Job is a client job posting.
type Job struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Budget float64 `json:"budget"`
	Client string  `json:"client,omitempty"`
}

// JobList is the job search payload.
type JobList struct {
	Items []Job `json:"items"`
}

// Group is a discoverable group conversation.
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
	AdminID     string `json:"admin_id,omitempty"`
}

// GroupList is the group discovery payload.
type GroupList struct {
	Items []Group `json:"items"`
}

// CreateGroupRequest is the payload for creating a group.
type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members,omitempty"`
}

// UserSummary identifies a platform user in search results.
type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// UserList is the user search payload.
type UserList struct {
	Items []UserSummary `json:"items"`
}

// ProfileStatus reports a profile's publish state.
type ProfileStatus struct {
	Published bool `json:"published"`
}
