package chatui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gigtalk/gigtalk/internal/dispatch"
	"github.com/gigtalk/gigtalk/internal/timeline"
)

func TestRenderMessageTagsAssistant(t *testing.T) {
	msg := timeline.Message{ID: "m1", SenderName: "giggy", Body: "happy to help", Kind: timeline.KindAssistant}
	out := renderMessage(DefaultTheme, msg, "me", false, 80)
	require.Contains(t, out, "[assistant]")
	require.Contains(t, out, "happy to help")
}

func TestRenderMessageOwnVsOther(t *testing.T) {
	own := timeline.Message{ID: "m1", SenderID: "me", Body: "hello", Kind: timeline.KindUser}
	out := renderMessage(DefaultTheme, own, "me", false, 80)
	require.Contains(t, out, "you")

	other := timeline.Message{ID: "m2", SenderID: "u2", SenderName: "Priya", Body: "hi", Kind: timeline.KindUser}
	out = renderMessage(DefaultTheme, other, "me", false, 80)
	require.Contains(t, out, "Priya")
}

func TestRenderMessageSeparator(t *testing.T) {
	sep := timeline.Message{ID: timeline.SeparatorID, Kind: timeline.KindSeparator}
	out := renderMessage(DefaultTheme, sep, "me", false, 80)
	require.Contains(t, out, "new messages")
}

func TestRenderMessageShowsAttachment(t *testing.T) {
	msg := timeline.Message{
		ID: "m1", SenderID: "u2", Body: "see attached", Kind: timeline.KindUser,
		Attachment: &timeline.Attachment{Kind: timeline.AttachmentImage, Name: "mockup.png"},
	}
	out := renderMessage(DefaultTheme, msg, "me", false, 80)
	require.Contains(t, out, "mockup.png")
}

func TestRenderMessageTimestamps(t *testing.T) {
	at := time.Date(2026, 5, 1, 14, 30, 0, 0, time.Local)
	msg := timeline.Message{ID: "m1", SenderID: "u2", Body: "hi", Kind: timeline.KindUser, CreatedAt: at}
	out := renderMessage(DefaultTheme, msg, "me", true, 80)
	require.Contains(t, out, "14:30")
}

func TestNewMessagesBadge(t *testing.T) {
	require.Empty(t, newMessagesBadge(DefaultTheme, 0))
	require.Contains(t, newMessagesBadge(DefaultTheme, 1), "1 new message")
	require.Contains(t, newMessagesBadge(DefaultTheme, 4), "4 new messages")
}

func TestRenderCards(t *testing.T) {
	require.Empty(t, renderCards(DefaultTheme, nil))

	out := renderCards(DefaultTheme, []dispatch.ActionCard{
		{Label: "Release payment", Description: "Release the escrow", Target: "escrow-12"},
		{Label: "Leave a rating", Target: "review-12"},
	})
	require.Contains(t, out, "Release payment")
	require.Contains(t, out, "Leave a rating")
}

func TestRenderConversationItem(t *testing.T) {
	conv := timeline.Conversation{ID: "c1", Name: "Design crew", Type: timeline.ConversationGroup, MemberCount: 5, Unread: 3, LastPreview: "see you then"}
	out := renderConversationItem(DefaultTheme, conv, true, listWidth)
	require.True(t, strings.HasPrefix(stripANSI(out), "> "))
	require.Contains(t, out, "Design crew (5)")
	require.Contains(t, out, "•3")
	require.Contains(t, out, "see you then")
}

func TestThemeByNameFallsBack(t *testing.T) {
	require.Equal(t, "high-contrast", ThemeByName("high-contrast").Name)
	require.Equal(t, "default", ThemeByName("no-such-theme").Name)
}

// stripANSI removes escape sequences so prefix checks see plain text.
func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == 0x1b:
			inEscape = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
