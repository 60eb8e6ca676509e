package chatui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/gigtalk/gigtalk/internal/api"
	"github.com/gigtalk/gigtalk/internal/dispatch"
	"github.com/gigtalk/gigtalk/internal/intent"
	"github.com/gigtalk/gigtalk/internal/syncer"
	"github.com/gigtalk/gigtalk/internal/timeline"
)

const requestTimeout = 10 * time.Second

// syncEventMsg carries one synchronizer reconciliation result.
type syncEventMsg struct {
	event syncer.Event
}

// conversationsLoadedMsg delivers the initial conversation list.
type conversationsLoadedMsg struct {
	conversations []timeline.Conversation
	fromCache     bool
}

// conversationOpenedMsg delivers the cached seed for a newly opened
// conversation.
type conversationOpenedMsg struct {
	conversationID string
	seed           []timeline.Message
}

// sendResultMsg reports the outcome of posting a message.
type sendResultMsg struct {
	conversationID string
	message        timeline.Message
	err            error
}

// dispatchResultMsg carries a dispatched intent's response.
type dispatchResultMsg struct {
	conversationID string
	response       dispatch.Response
}

// assistantDueMsg fires when a scheduled assistant reply comes due.
type assistantDueMsg struct {
	conversationID string
	source         timeline.Message
}

// assistantPostedMsg reports the posted assistant reply.
type assistantPostedMsg struct {
	conversationID string
	message        timeline.Message
	err            error
}

// typingExpiredMsg clears the typing indicator.
type typingExpiredMsg struct {
	conversationID string
}

func (m *Model) waitSyncEventCmd() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.sync.Events()
		if !ok {
			return nil
		}
		return syncEventMsg{event: ev}
	}
}

func (m *Model) waitAssistantCmd() tea.Cmd {
	return func() tea.Msg {
		due, ok := <-m.assistantCh
		if !ok {
			return nil
		}
		return due
	}
}

// loadConversationsCmd prefers the backend list but falls back to the cache
// so the surface renders something while offline.
func (m *Model) loadConversationsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		convs, err := m.client.ListConversations(ctx)
		if err == nil {
			return conversationsLoadedMsg{conversations: convs}
		}
		m.logger.Warn().Err(err).Msg("conversation list fetch failed, trying cache")

		if m.cache != nil {
			if cached, cacheErr := m.cache.Conversations(ctx); cacheErr == nil {
				return conversationsLoadedMsg{conversations: cached, fromCache: true}
			}
		}
		return conversationsLoadedMsg{}
	}
}

// openConversationCmd seeds the timeline from the cache; the synchronizer's
// first poll replaces it with the authoritative list.
func (m *Model) openConversationCmd(conversationID string) tea.Cmd {
	return func() tea.Msg {
		var seed []timeline.Message
		if m.cache != nil {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			if cached, err := m.cache.Messages(ctx, conversationID); err == nil {
				seed = cached
			}
		}
		return conversationOpenedMsg{conversationID: conversationID, seed: seed}
	}
}

func (m *Model) sendMessageCmd(conversationID, body string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		msg, err := m.client.CreateMessage(ctx, api.CreateMessageRequest{
			ConversationID: conversationID,
			Body:           body,
			IdempotencyKey: uuid.NewString(),
		})
		return sendResultMsg{conversationID: conversationID, message: msg, err: err}
	}
}

func (m *Model) dispatchCmd(conversationID string, in intent.Intent) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		resp := m.dispatcher.Dispatch(ctx, in, m.session)
		return dispatchResultMsg{conversationID: conversationID, response: resp}
	}
}

// postAssistantReplyCmd composes and posts the assistant's reply.
func (m *Model) postAssistantReplyCmd(due assistantDueMsg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		body, err := m.composer.Respond(ctx, due.source)
		if err != nil {
			return assistantPostedMsg{conversationID: due.conversationID, err: err}
		}
		msg, err := m.client.CreateMessage(ctx, api.CreateMessageRequest{
			ConversationID: due.conversationID,
			Body:           body,
			ReplyToID:      due.source.ID,
			Assistant:      true,
			IdempotencyKey: uuid.NewString(),
		})
		return assistantPostedMsg{conversationID: due.conversationID, message: msg, err: err}
	}
}

// markReadCmd advances the backend read marker; local state already moved.
func (m *Model) markReadCmd(conversationID, messageID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := m.client.MarkRead(ctx, conversationID, messageID); err != nil {
			m.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("mark read failed")
		}
		if m.cache != nil {
			_ = m.cache.MarkRead(ctx, conversationID)
		}
		return nil
	}
}

func typingTimeoutCmd(conversationID string, timeout time.Duration) tea.Cmd {
	return tea.Tick(timeout, func(time.Time) tea.Msg {
		return typingExpiredMsg{conversationID: conversationID}
	})
}
