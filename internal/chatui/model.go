// Package chatui is the bubbletea chat surface: a conversation list pane, a
// message timeline viewport, and a compose line. Command-shaped input is
// classified and dispatched; ordinary chat posts to the open conversation.
package chatui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/gigtalk/gigtalk/internal/api"
	"github.com/gigtalk/gigtalk/internal/assistant"
	"github.com/gigtalk/gigtalk/internal/cache"
	"github.com/gigtalk/gigtalk/internal/config"
	"github.com/gigtalk/gigtalk/internal/dispatch"
	"github.com/gigtalk/gigtalk/internal/intent"
	"github.com/gigtalk/gigtalk/internal/logging"
	"github.com/gigtalk/gigtalk/internal/syncer"
	"github.com/gigtalk/gigtalk/internal/timeline"

	tuistate "github.com/gigtalk/gigtalk/internal/chatui/state"
)

// focus identifies the pane receiving key input.
type focus int

const (
	focusList focus = iota
	focusCompose
)

const listWidth = 30

// viewportProbe shares the current scroll classification with the
// synchronizer goroutine.
type viewportProbe struct {
	mu    sync.Mutex
	state timeline.ViewportState
}

func (p *viewportProbe) Get() timeline.ViewportState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *viewportProbe) Set(state timeline.ViewportState) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

// Model is the top-level bubbletea model.
type Model struct {
	cfg     *config.Config
	session *config.Session

	client     *api.Client
	classifier *intent.Classifier
	dispatcher *dispatch.Dispatcher
	trigger    *assistant.Trigger
	scheduler  *assistant.Scheduler
	composer   *assistant.Composer
	sync       *syncer.Synchronizer
	cache      *cache.Store
	tuiState   *tuistate.Manager
	logger     zerolog.Logger

	theme Theme
	probe *viewportProbe

	assistantCh chan assistantDueMsg

	conversations []timeline.Conversation
	selected      int
	open          timeline.Conversation

	vp      viewport.Model
	compose textinput.Model
	focus   focus

	pendingCount int
	lastCards    []dispatch.ActionCard
	statusLine   string
	typing       string

	width  int
	height int
	ready  bool
}

// Deps bundles the collaborators the chat surface is built from.
type Deps struct {
	Config  *config.Config
	Session *config.Session
	Client  *api.Client
	Cache   *cache.Store // may be nil
}

// NewModel wires the chat surface. The cache is optional; everything else
// is required.
func NewModel(deps Deps) *Model {
	cfg := deps.Config

	m := &Model{
		cfg:         cfg,
		session:     deps.Session,
		client:      deps.Client,
		classifier:  intent.NewClassifier(),
		dispatcher:  dispatch.New(deps.Client),
		trigger:     assistant.NewTrigger(cfg.Assistant),
		scheduler:   assistant.NewScheduler(),
		cache:       deps.Cache,
		logger:      logging.Component("chatui"),
		theme:       ThemeByName(cfg.TUI.Theme),
		probe:       &viewportProbe{state: timeline.AtBottom},
		assistantCh: make(chan assistantDueMsg, 4),
	}

	m.tuiState = tuistate.New(cfg.StateFilePath())
	// Non-fatal: fall back to in-memory defaults.
	_ = m.tuiState.Load()

	m.sync = syncer.New(
		syncer.Config{PollInterval: cfg.Sync.PollInterval},
		deps.Client,
		sinkOrNil(deps.Cache),
		m.probe.Get,
	)

	m.composer = assistant.NewComposer(
		&assistant.CannedResponder{Name: cfg.Assistant.Name},
		assistant.ImageAnalyzer{},
		m.lookupMessage,
	)

	ti := textinput.New()
	ti.Placeholder = "message or command"
	ti.CharLimit = 2000
	m.compose = ti

	return m
}

// sinkOrNil avoids a typed-nil interface when the cache is absent.
func sinkOrNil(store *cache.Store) syncer.Sink {
	if store == nil {
		return nil
	}
	return store
}

func (m *Model) lookupMessage(id string) (timeline.Message, bool) {
	for _, msg := range m.sync.Timeline().Messages() {
		if msg.ID == id {
			return msg, true
		}
	}
	return timeline.Message{}, false
}

// Run starts the program and blocks until exit.
func Run(deps Deps) error {
	m := NewModel(deps)
	defer m.Close()

	program := tea.NewProgram(m, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// Close releases timers, pending state writes and the poll loop.
func (m *Model) Close() {
	m.scheduler.Stop()
	_ = m.sync.Stop()
	if m.open.ID != "" {
		m.tuiState.SetLastConversation(m.open.ID)
	}
	_ = m.tuiState.Close()
}

func (m *Model) Init() tea.Cmd {
	if err := m.sync.Start(context.Background()); err != nil {
		m.logger.Error().Err(err).Msg("synchronizer start failed")
	}
	return tea.Batch(
		m.loadConversationsCmd(),
		m.waitSyncEventCmd(),
		m.waitAssistantCmd(),
		textinput.Blink,
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(typed)
	case tea.KeyMsg:
		return m.handleKey(typed)
	case conversationsLoadedMsg:
		return m.handleConversationsLoaded(typed)
	case conversationOpenedMsg:
		return m.handleConversationOpened(typed)
	case syncEventMsg:
		return m.handleSyncEvent(typed)
	case sendResultMsg:
		return m.handleSendResult(typed)
	case dispatchResultMsg:
		return m.handleDispatchResult(typed)
	case assistantDueMsg:
		if typed.conversationID != m.open.ID {
			// The user switched away; the reply is dropped.
			return m, m.waitAssistantCmd()
		}
		m.typing = m.cfg.Assistant.Name + " is typing…"
		return m, tea.Batch(
			m.postAssistantReplyCmd(typed),
			typingTimeoutCmd(typed.conversationID, m.cfg.TUI.TypingIndicatorTimeout),
			m.waitAssistantCmd(),
		)
	case assistantPostedMsg:
		return m.handleAssistantPosted(typed)
	case typingExpiredMsg:
		if typed.conversationID == m.open.ID {
			m.typing = ""
		}
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m *Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.focus == focusCompose {
		var cmd tea.Cmd
		m.compose, cmd = m.compose.Update(msg)
		cmds = append(cmds, cmd)
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	cmds = append(cmds, cmd)
	m.reclassifyViewport()
	return m, tea.Batch(cmds...)
}

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	vpWidth := max(1, m.width-listWidth-3)
	vpHeight := max(1, m.height-5)
	if !m.ready {
		m.vp = viewport.New(vpWidth, vpHeight)
		m.ready = true
	} else {
		m.vp.Width = vpWidth
		m.vp.Height = vpHeight
	}
	m.compose.Width = vpWidth
	m.refreshViewportContent(false)
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.focus == focusList {
			m.focus = focusCompose
			m.compose.Focus()
		} else {
			m.focus = focusList
			m.compose.Blur()
		}
		return m, nil
	case "ctrl+r":
		// Manual refresh escape hatch.
		m.sync.RefreshNow()
		return m, nil
	}

	if m.focus == focusList {
		return m.handleListKey(msg)
	}
	return m.handleComposeKey(msg)
}

func (m *Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down", "j":
		if m.selected < len(m.conversations)-1 {
			m.selected++
		}
		return m, nil
	case "enter":
		if m.selected < len(m.conversations) {
			return m, m.openConversation(m.conversations[m.selected])
		}
		return m, nil
	}
	return m.updateFocused(msg)
}

func (m *Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m.submitCompose()
	case "end", "G":
		if m.compose.Value() == "" {
			m.jumpToBottom()
			return m, nil
		}
	case "esc":
		m.focus = focusList
		m.compose.Blur()
		return m, nil
	}
	return m.updateFocused(msg)
}

// openConversation switches the open conversation: the old conversation's
// buffer, poll and pending assistant reply are all dropped.
func (m *Model) openConversation(conv timeline.Conversation) tea.Cmd {
	if m.open.ID == conv.ID {
		return nil
	}
	if m.open.ID != "" {
		m.scheduler.Cancel(m.open.ID)
		m.tuiState.SetDraft(m.open.ID, m.compose.Value())
	}

	m.open = conv
	m.pendingCount = 0
	m.lastCards = nil
	m.typing = ""
	m.statusLine = ""
	m.probe.Set(timeline.AtBottom)
	m.tuiState.SetLastConversation(conv.ID)

	if draft, ok := m.tuiState.Draft(conv.ID); ok {
		m.compose.SetValue(draft.Body)
	} else {
		m.compose.SetValue("")
	}
	m.focus = focusCompose
	m.compose.Focus()

	return m.openConversationCmd(conv.ID)
}

func (m *Model) handleConversationsLoaded(msg conversationsLoadedMsg) (tea.Model, tea.Cmd) {
	m.conversations = msg.conversations
	m.applyReadMarkers(m.conversations)
	if msg.fromCache {
		m.statusLine = "offline: showing cached conversations"
	}

	// Session restore: reopen the conversation from the previous run.
	if m.open.ID == "" {
		if last := m.tuiState.LastConversation(); last != "" {
			for i, conv := range m.conversations {
				if conv.ID == last {
					m.selected = i
					return m, m.openConversation(conv)
				}
			}
		}
	}
	return m, nil
}

func (m *Model) handleConversationOpened(msg conversationOpenedMsg) (tea.Model, tea.Cmd) {
	if msg.conversationID != m.open.ID {
		return m, nil
	}
	m.sync.SetConversation(msg.conversationID, msg.seed)
	m.refreshViewportContent(true)

	if tail, ok := m.sync.Timeline().Tail(); ok {
		m.tuiState.SetReadMarker(msg.conversationID, tail.ID, tail.CreatedAt)
		return m, m.markReadCmd(msg.conversationID, tail.ID)
	}
	return m, nil
}

// applyReadMarkers zeroes unread counts for conversations the persisted
// read marker already covers, so a list served from cache or a backend
// that has not seen our mark-read yet does not resurface read badges.
func (m *Model) applyReadMarkers(convs []timeline.Conversation) {
	for i := range convs {
		marker, ok := m.tuiState.ReadMarker(convs[i].ID)
		if ok && !convs[i].LastActivity.After(marker.At) {
			convs[i].Unread = 0
		}
	}
}

func (m *Model) handleSyncEvent(msg syncEventMsg) (tea.Model, tea.Cmd) {
	ev := msg.event
	cmds := []tea.Cmd{m.waitSyncEventCmd()}

	if ev.Conversations != nil {
		m.conversations = ev.Conversations
		m.applyReadMarkers(m.conversations)
		if m.selected >= len(m.conversations) {
			m.selected = max(0, len(m.conversations)-1)
		}
	}

	if ev.ConversationID == m.open.ID {
		if len(ev.Merged) > 0 {
			m.refreshViewportContent(ev.ScrollToBottom)
			if tail, ok := m.sync.Timeline().Tail(); ok {
				m.tuiState.SetReadMarker(m.open.ID, tail.ID, tail.CreatedAt)
				cmds = append(cmds, m.markReadCmd(m.open.ID, tail.ID))
			}
			cmds = append(cmds, m.maybeTriggerAssistant(ev.Merged)...)
		}
		if ev.Buffered > 0 {
			m.pendingCount = ev.BufferTotal
		}
	}

	return m, tea.Batch(cmds...)
}

// maybeTriggerAssistant evaluates freshly merged messages and schedules at
// most one delayed reply.
func (m *Model) maybeTriggerAssistant(merged []timeline.Message) []tea.Cmd {
	for _, msg := range merged {
		if msg.SenderID == m.session.UserID {
			continue
		}
		reason := m.trigger.Evaluate(msg, m.open)
		if reason == assistant.ReasonNone {
			continue
		}
		m.logger.Debug().Str("reason", string(reason)).Str("message_id", msg.ID).Msg("assistant reply scheduled")
		due := assistantDueMsg{conversationID: m.open.ID, source: msg}
		m.scheduler.Schedule(m.open.ID, m.trigger.Delay(), func() {
			m.assistantCh <- due
		})
		break
	}
	return nil
}

func (m *Model) submitCompose() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.compose.Value())
	if line == "" || m.open.ID == "" {
		return m, nil
	}
	m.compose.SetValue("")
	m.tuiState.SetDraft(m.open.ID, "")

	in := m.classifier.Classify(line)
	if in.Kind != intent.KindUnhandled {
		return m, m.dispatchCmd(m.open.ID, in)
	}
	return m, m.sendMessageCmd(m.open.ID, line)
}

func (m *Model) handleSendResult(msg sendResultMsg) (tea.Model, tea.Cmd) {
	if msg.conversationID != m.open.ID {
		return m, nil
	}
	if msg.err != nil {
		m.statusLine = "send failed: " + sendFailureReason(msg.err)
		return m, nil
	}

	m.sync.Timeline().Append(msg.message)
	m.refreshViewportContent(true)

	// The user's own chat line can summon the assistant in groups.
	if reason := m.trigger.Evaluate(msg.message, m.open); reason != assistant.ReasonNone {
		due := assistantDueMsg{conversationID: m.open.ID, source: msg.message}
		m.scheduler.Schedule(m.open.ID, m.trigger.Delay(), func() {
			m.assistantCh <- due
		})
	}
	return m, nil
}

func sendFailureReason(err error) string {
	if reason := api.ReasonOf(err); reason != "" {
		return reason
	}
	return "network error"
}

func (m *Model) handleDispatchResult(msg dispatchResultMsg) (tea.Model, tea.Cmd) {
	if msg.conversationID != m.open.ID {
		return m, nil
	}
	resp := msg.response
	if !resp.Handled {
		return m, nil
	}

	reply := timeline.Message{
		ID:             fmt.Sprintf("local-%d", time.Now().UnixNano()),
		ConversationID: m.open.ID,
		SenderName:     m.cfg.Assistant.Name,
		Body:           resp.Text,
		CreatedAt:      time.Now(),
		Kind:           timeline.KindAssistant,
	}
	m.sync.Timeline().Append(reply)
	m.lastCards = resp.Cards
	m.refreshViewportContent(true)

	if resp.Navigate != "" {
		for i, conv := range m.conversations {
			if conv.ID == resp.Navigate {
				m.selected = i
				return m, m.openConversation(conv)
			}
		}
		m.statusLine = "→ " + resp.Navigate
	}
	return m, nil
}

func (m *Model) handleAssistantPosted(msg assistantPostedMsg) (tea.Model, tea.Cmd) {
	if msg.conversationID != m.open.ID {
		return m, nil
	}
	m.typing = ""
	if msg.err != nil {
		m.logger.Warn().Err(msg.err).Msg("assistant reply failed")
		return m, nil
	}
	m.sync.Timeline().Append(msg.message)
	m.refreshViewportContent(m.probe.Get() == timeline.AtBottom)
	return m, nil
}

// jumpToBottom flushes the pending buffer into the timeline and scrolls.
func (m *Model) jumpToBottom() {
	m.sync.FlushBuffer()
	m.pendingCount = 0
	m.probe.Set(timeline.AtBottom)
	m.refreshViewportContent(true)
}

// refreshViewportContent re-renders the timeline into the viewport.
func (m *Model) refreshViewportContent(scrollToBottom bool) {
	if !m.ready {
		return
	}
	content := renderTimeline(m.theme, m.sync.Timeline().Messages(), m.session.UserID, m.cfg.TUI.ShowTimestamps, m.vp.Width)
	m.vp.SetContent(content)
	if scrollToBottom {
		m.vp.GotoBottom()
	}
	m.reclassifyViewport()
}

// reclassifyViewport recomputes the two-state scroll classification from
// the viewport's line metrics.
func (m *Model) reclassifyViewport() {
	if !m.ready {
		return
	}
	state := timeline.ClassifyViewport(m.vp.YOffset, m.vp.TotalLineCount(), m.vp.Height, m.cfg.Sync.ScrollEpsilon)
	prev := m.probe.Get()
	m.probe.Set(state)
	if prev == timeline.ScrolledUp && state == timeline.AtBottom {
		// Scrolling back down by hand flushes like an explicit jump.
		m.jumpToBottom()
	}
}

func (m *Model) View() string {
	if !m.ready {
		return "loading…"
	}

	list := m.renderConversationList()
	main := m.renderMain()
	body := lipgloss.JoinHorizontal(lipgloss.Top, list, " ", main)

	header := m.renderHeader()
	footer := m.renderFooter()
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) renderHeader() string {
	title := "gigtalk"
	if m.open.ID != "" {
		title += " — " + m.open.Name
		if m.open.IsGroup() {
			title += fmt.Sprintf(" (%d members)", m.open.MemberCount)
		}
	}
	header := m.theme.headerStyle().Render(title)
	if badge := newMessagesBadge(m.theme, m.pendingCount); badge != "" {
		header = lipgloss.JoinHorizontal(lipgloss.Top, header, "  ", badge)
	}
	return header
}

func (m *Model) renderMain() string {
	sections := []string{m.vp.View()}
	if cards := renderCards(m.theme, m.lastCards); cards != "" {
		sections = append(sections, cards)
	}
	if m.typing != "" {
		sections = append(sections, m.theme.mutedStyle().Render(m.typing))
	}
	sections = append(sections, m.compose.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderConversationList() string {
	var b strings.Builder
	b.WriteString(m.theme.headerStyle().Render("conversations"))
	b.WriteString("\n")
	for i, conv := range m.conversations {
		b.WriteString(renderConversationItem(m.theme, conv, i == m.selected && m.focus == focusList, listWidth))
		b.WriteString("\n")
	}
	return lipgloss.NewStyle().Width(listWidth).Render(b.String())
}

func (m *Model) renderFooter() string {
	help := "tab focus  enter send/open  G/end bottom  ctrl+r refresh  q quit"
	line := m.theme.footerStyle().Render(help)
	if m.statusLine != "" {
		line = m.theme.accentStyle().Render(m.statusLine) + "  " + line
	}
	return line
}
