package chatui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gigtalk/gigtalk/internal/dispatch"
	"github.com/gigtalk/gigtalk/internal/timeline"
)

// renderMessage formats one timeline entry. Assistant messages are visually
// tagged; the separator renders as a horizontal rule.
func renderMessage(theme Theme, msg timeline.Message, ownUserID string, showTimestamps bool, width int) string {
	if msg.Kind == timeline.KindSeparator {
		rule := strings.Repeat("─", max(1, width-18))
		return theme.separatorStyle().Render(fmt.Sprintf("── new messages %s", rule))
	}

	var prefix string
	var style lipgloss.Style
	switch {
	case msg.Kind == timeline.KindAssistant:
		style = theme.assistantStyle()
		prefix = "[assistant] " + senderLabel(msg)
	case msg.SenderID == ownUserID:
		style = theme.ownStyle()
		prefix = "you"
	default:
		style = theme.otherStyle()
		prefix = senderLabel(msg)
	}

	header := style.Render(prefix)
	if showTimestamps && !msg.CreatedAt.IsZero() {
		header += theme.mutedStyle().Render("  " + msg.CreatedAt.Local().Format("15:04"))
	}

	body := msg.Body
	if msg.Attachment != nil {
		body += theme.mutedStyle().Render(fmt.Sprintf("  [%s: %s]", msg.Attachment.Kind, msg.Attachment.Name))
	}
	return header + "\n" + body
}

func senderLabel(msg timeline.Message) string {
	if msg.SenderName != "" {
		return msg.SenderName
	}
	return msg.SenderID
}

// renderTimeline joins the rendered entries with blank lines.
func renderTimeline(theme Theme, msgs []timeline.Message, ownUserID string, showTimestamps bool, width int) string {
	if len(msgs) == 0 {
		return theme.mutedStyle().Render("no messages yet")
	}
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, renderMessage(theme, msg, ownUserID, showTimestamps, width))
	}
	return strings.Join(lines, "\n\n")
}

// newMessagesBadge formats the buffered-message counter shown while
// scrolled up. Empty when nothing is pending.
func newMessagesBadge(theme Theme, count int) string {
	if count <= 0 {
		return ""
	}
	label := fmt.Sprintf("%d new message", count)
	if count > 1 {
		label += "s"
	}
	return theme.badgeStyle().Render(label + " ↓")
}

// renderCards formats the suggested follow-up actions under an assistant
// response.
func renderCards(theme Theme, cards []dispatch.ActionCard) string {
	if len(cards) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(cards))
	for _, card := range cards {
		text := card.Label
		if card.Description != "" {
			text += "\n" + card.Description
		}
		rendered = append(rendered, theme.cardStyle().Render(text))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// renderConversationItem formats one conversation-list row.
func renderConversationItem(theme Theme, conv timeline.Conversation, selected bool, width int) string {
	name := conv.Name
	if conv.IsGroup() {
		name = fmt.Sprintf("%s (%d)", conv.Name, conv.MemberCount)
	}
	line := name
	if conv.Unread > 0 {
		line = fmt.Sprintf("%s  •%d", name, conv.Unread)
	}
	if conv.LastPreview != "" {
		preview := conv.LastPreview
		if len(preview) > 24 {
			preview = preview[:24] + "…"
		}
		line += "\n  " + theme.mutedStyle().Render(preview)
	}
	if selected {
		return theme.selectedStyle().Render("> ") + line
	}
	return "  " + line
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
