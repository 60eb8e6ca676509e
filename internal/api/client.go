// Package api implements the REST client for the marketplace backend. Every
// operation takes a context, sends a small JSON payload, and returns either
// a decoded success payload or an *APIError carrying the backend reason.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gigtalk/gigtalk/internal/config"
	"github.com/gigtalk/gigtalk/internal/logging"
	"github.com/gigtalk/gigtalk/internal/timeline"
)

const defaultTimeout = 10 * time.Second

// Client talks to the marketplace backend.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a backend client from API configuration.
func NewClient(cfg config.APIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  logging.Component("api"),
	}
}

// do issues one JSON request. A nil out skips response decoding.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope errorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
			apiErr.Reason = strings.TrimSpace(envelope.Error.Reason)
		}
		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("reason", logging.Redact(apiErr.Reason)).
			Msg("backend call failed")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ListConversations returns the conversation summaries for the current user.
func (c *Client) ListConversations(ctx context.Context) ([]timeline.Conversation, error) {
	var list ConversationList
	if err := c.do(ctx, http.MethodGet, "/v1/conversations", nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// ListMessages returns the messages of a conversation. The backend is not
// trusted to return sorted order.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]timeline.Message, error) {
	var list MessageList
	path := fmt.Sprintf("/v1/conversations/%s/messages", url.PathEscape(conversationID))
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// CreateMessage posts a message, optionally with an attachment.
func (c *Client) CreateMessage(ctx context.Context, req CreateMessageRequest) (timeline.Message, error) {
	var msg timeline.Message
	path := fmt.Sprintf("/v1/conversations/%s/messages", url.PathEscape(req.ConversationID))
	if err := c.do(ctx, http.MethodPost, path, req, &msg); err != nil {
		return timeline.Message{}, err
	}
	return msg, nil
}

// MarkRead marks a conversation read up to a message id.
func (c *Client) MarkRead(ctx context.Context, conversationID, messageID string) error {
	path := fmt.Sprintf("/v1/conversations/%s/read", url.PathEscape(conversationID))
	return c.do(ctx, http.MethodPost, path, map[string]string{"message_id": messageID}, nil)
}

// ListOrders returns the current user's orders.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var list OrderList
	if err := c.do(ctx, http.MethodGet, "/v1/orders", nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// UpdateOrderStatus sets an order's status.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int, status string) (Order, error) {
	var order Order
	path := fmt.Sprintf("/v1/orders/%d/status", orderID)
	if err := c.do(ctx, http.MethodPut, path, map[string]string{"status": status}, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// ReleaseEscrow releases the escrow payment of an order.
func (c *Client) ReleaseEscrow(ctx context.Context, orderID int) error {
	path := fmt.Sprintf("/v1/orders/%d/escrow/release", orderID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// CreateReview submits a rating for an order.
func (c *Client) CreateReview(ctx context.Context, review Review) error {
	return c.do(ctx, http.MethodPost, "/v1/reviews", review, nil)
}

// SwitchRole switches the active marketplace role.
func (c *Client) SwitchRole(ctx context.Context, role string) error {
	return c.do(ctx, http.MethodPost, "/v1/me/role", map[string]string{"role": role}, nil)
}

// UpdateAccount updates account profile fields.
func (c *Client) UpdateAccount(ctx context.Context, fields map[string]interface{}) error {
	return c.do(ctx, http.MethodPatch, "/v1/me/account", fields, nil)
}

// UpsertFreelancerProfile updates freelancer profile fields.
func (c *Client) UpsertFreelancerProfile(ctx context.Context, fields map[string]interface{}) error {
	return c.do(ctx, http.MethodPatch, "/v1/me/freelancer-profile", fields, nil)
}

// CreateFreelancerProfile creates an empty freelancer profile.
func (c *Client) CreateFreelancerProfile(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/me/freelancer-profile", map[string]interface{}{}, nil)
}

// UpsertClientProfile updates client profile fields.
func (c *Client) UpsertClientProfile(ctx context.Context, fields map[string]interface{}) error {
	return c.do(ctx, http.MethodPatch, "/v1/me/client-profile", fields, nil)
}

// CreateClientProfile creates an empty client profile.
func (c *Client) CreateClientProfile(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/me/client-profile", map[string]interface{}{}, nil)
}

// SetProfilePublished publishes or unpublishes the freelancer profile.
func (c *Client) SetProfilePublished(ctx context.Context, published bool) error {
	return c.do(ctx, http.MethodPut, "/v1/me/freelancer-profile/publish", ProfileStatus{Published: published}, nil)
}

// ListNotifications returns the current user's notifications.
func (c *Client) ListNotifications(ctx context.Context) ([]Notification, error) {
	var list NotificationList
	if err := c.do(ctx, http.MethodGet, "/v1/notifications", nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// UpdateNotificationPrefs updates notification preferences.
func (c *Client) UpdateNotificationPrefs(ctx context.Context, prefs NotificationPrefs) error {
	return c.do(ctx, http.MethodPut, "/v1/notifications/prefs", prefs, nil)
}

// CreateReport files a user report.
func (c *Client) CreateReport(ctx context.Context, report Report) error {
	return c.do(ctx, http.MethodPost, "/v1/reports", report, nil)
}

// CreateTicket opens a support ticket.
func (c *Client) CreateTicket(ctx context.Context, ticket Ticket) (Ticket, error) {
	var created Ticket
	if err := c.do(ctx, http.MethodPost, "/v1/support/tickets", ticket, &created); err != nil {
		return Ticket{}, err
	}
	return created, nil
}

// RequestDocuments asks the counterpart of an order to upload documents.
func (c *Client) RequestDocuments(ctx context.Context, orderID int) error {
	path := fmt.Sprintf("/v1/orders/%d/documents/request", orderID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// SearchGigs searches freelancer service listings.
func (c *Client) SearchGigs(ctx context.Context, query string) ([]Gig, error) {
	var list GigList
	path := "/v1/gigs?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// SearchJobs searches client job postings.
func (c *Client) SearchJobs(ctx context.Context, query string) ([]Job, error) {
	var list JobList
	path := "/v1/jobs?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// ListGroups returns discoverable groups.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var list GroupList
	if err := c.do(ctx, http.MethodGet, "/v1/groups", nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// JoinGroup joins a group conversation.
func (c *Client) JoinGroup(ctx context.Context, groupID string) (timeline.Conversation, error) {
	var conv timeline.Conversation
	path := fmt.Sprintf("/v1/groups/%s/join", url.PathEscape(groupID))
	if err := c.do(ctx, http.MethodPost, path, nil, &conv); err != nil {
		return timeline.Conversation{}, err
	}
	return conv, nil
}

// CreateGroup creates a group conversation.
func (c *Client) CreateGroup(ctx context.Context, req CreateGroupRequest) (timeline.Conversation, error) {
	var conv timeline.Conversation
	if err := c.do(ctx, http.MethodPost, "/v1/groups", req, &conv); err != nil {
		return timeline.Conversation{}, err
	}
	return conv, nil
}

// SearchUsers searches platform users.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]UserSummary, error) {
	var list UserList
	path := "/v1/users?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// StartDirectConversation opens (or returns) a direct conversation with a user.
func (c *Client) StartDirectConversation(ctx context.Context, userID string) (timeline.Conversation, error) {
	var conv timeline.Conversation
	if err := c.do(ctx, http.MethodPost, "/v1/conversations/direct", map[string]string{"user_id": userID}, &conv); err != nil {
		return timeline.Conversation{}, err
	}
	return conv, nil
}
