package chatui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/gigtalk/gigtalk/internal/api"
	"github.com/gigtalk/gigtalk/internal/config"
	"github.com/gigtalk/gigtalk/internal/dispatch"
	"github.com/gigtalk/gigtalk/internal/syncer"
	"github.com/gigtalk/gigtalk/internal/timeline"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = "http://127.0.0.1:1"
	cfg.Global.DataDir = t.TempDir()
	cfg.Global.ConfigDir = t.TempDir()

	m := NewModel(Deps{
		Config:  cfg,
		Session: &config.Session{UserID: "me", UserName: "Me", Role: config.RoleClient},
		Client:  api.NewClient(cfg.API),
	})
	t.Cleanup(func() {
		m.scheduler.Stop()
		_ = m.tuiState.Close()
	})
	return m
}

func resize(m *Model) {
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
}

func TestViewportProbe(t *testing.T) {
	p := &viewportProbe{state: timeline.AtBottom}
	require.Equal(t, timeline.AtBottom, p.Get())
	p.Set(timeline.ScrolledUp)
	require.Equal(t, timeline.ScrolledUp, p.Get())
}

func TestDispatchResultRendersAssistantReplyWithCards(t *testing.T) {
	m := newTestModel(t)
	resize(m)
	m.open = timeline.Conversation{ID: "conv-1", Name: "Design"}
	m.sync.SetConversation("conv-1", nil)

	m.handleDispatchResult(dispatchResultMsg{
		conversationID: "conv-1",
		response: dispatch.Response{
			Text:    "Order #12 is now delivered.",
			Cards:   []dispatch.ActionCard{{Label: "Release payment", Target: "escrow-12"}},
			Handled: true,
		},
	})

	msgs := m.sync.Timeline().Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, timeline.KindAssistant, msgs[0].Kind)
	require.Equal(t, "Order #12 is now delivered.", msgs[0].Body)
	require.Len(t, m.lastCards, 1)
}

func TestDispatchResultForStaleConversationIsDropped(t *testing.T) {
	m := newTestModel(t)
	resize(m)
	m.open = timeline.Conversation{ID: "conv-2"}
	m.sync.SetConversation("conv-2", nil)

	m.handleDispatchResult(dispatchResultMsg{
		conversationID: "conv-1",
		response:       dispatch.Response{Text: "late", Handled: true},
	})
	require.Equal(t, 0, m.sync.Timeline().Len())
}

func TestSyncEventUpdatesBadge(t *testing.T) {
	m := newTestModel(t)
	resize(m)
	m.open = timeline.Conversation{ID: "conv-1"}

	m.handleSyncEvent(syncEventMsg{event: syncer.Event{
		ConversationID: "conv-1",
		Buffered:       2,
		BufferTotal:    5,
	}})
	require.Equal(t, 5, m.pendingCount)
}

func TestSyncEventRefreshesConversationList(t *testing.T) {
	m := newTestModel(t)
	resize(m)
	m.selected = 3

	m.handleSyncEvent(syncEventMsg{event: syncer.Event{
		ConversationID: "other",
		Conversations:  []timeline.Conversation{{ID: "c1", Name: "Only"}},
	}})
	require.Len(t, m.conversations, 1)
	require.Equal(t, 0, m.selected)
}

func TestSendFailureSurfacesReason(t *testing.T) {
	m := newTestModel(t)
	resize(m)
	m.open = timeline.Conversation{ID: "conv-1"}
	m.sync.SetConversation("conv-1", nil)

	m.handleSendResult(sendResultMsg{
		conversationID: "conv-1",
		err:            &api.APIError{StatusCode: 403, Reason: "you are muted in this group"},
	})
	require.Contains(t, m.statusLine, "you are muted in this group")
	require.Equal(t, 0, m.sync.Timeline().Len())
}

func TestOpenConversationPreservesDraft(t *testing.T) {
	m := newTestModel(t)
	resize(m)

	first := timeline.Conversation{ID: "conv-1", Name: "First"}
	second := timeline.Conversation{ID: "conv-2", Name: "Second"}

	m.openConversation(first)
	m.compose.SetValue("half-typed thought")
	m.openConversation(second)
	require.Empty(t, m.compose.Value())

	m.openConversation(first)
	require.Equal(t, "half-typed thought", m.compose.Value())
}

func TestJumpToBottomFlushesBuffer(t *testing.T) {
	m := newTestModel(t)
	resize(m)
	m.open = timeline.Conversation{ID: "conv-1"}
	m.sync.SetConversation("conv-1", nil)

	m.sync.Buffer().Offer(timeline.Message{ID: "m1", Body: "pending", Kind: timeline.KindUser, CreatedAt: time.Now()})
	m.pendingCount = 1

	m.jumpToBottom()
	require.Equal(t, 0, m.pendingCount)
	// Separator plus the flushed message.
	require.Equal(t, 2, m.sync.Timeline().Len())
}

func TestAssistantDueForStaleConversationIsDropped(t *testing.T) {
	m := newTestModel(t)
	resize(m)
	m.open = timeline.Conversation{ID: "conv-2"}

	_, cmd := m.Update(assistantDueMsg{conversationID: "conv-1"})
	require.NotNil(t, cmd)
	require.Empty(t, m.typing)
}

func TestReadMarkerClearsStaleUnreadCounts(t *testing.T) {
	m := newTestModel(t)
	resize(m)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.tuiState.SetReadMarker("conv-1", "msg-9", at)

	m.handleConversationsLoaded(conversationsLoadedMsg{
		conversations: []timeline.Conversation{
			{ID: "conv-1", Name: "Design", Unread: 3, LastActivity: at},
			{ID: "conv-2", Name: "Support", Unread: 2, LastActivity: at.Add(time.Minute)},
		},
		fromCache: true,
	})

	require.Equal(t, 0, m.conversations[0].Unread)
	require.Equal(t, 2, m.conversations[1].Unread)
}
