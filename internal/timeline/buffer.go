package timeline

import "time"

// SeparatorID is the identity of the synthetic divider record emitted by
// Flush. The renderer styles it as a "new messages" rule.
const SeparatorID = "__separator__"

// Buffer holds messages received while the viewport is scrolled up, scoped
// to the currently open conversation. It is a pure data structure: every
// operation succeeds.
type Buffer struct {
	pending []Message
	seen    map[string]struct{}
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{seen: make(map[string]struct{})}
}

// Offer appends a message to the queue unless a message with the same
// identity is already queued. Idempotent under retransmission.
func (b *Buffer) Offer(msg Message) bool {
	if msg.ID == "" {
		return false
	}
	if _, ok := b.seen[msg.ID]; ok {
		return false
	}
	b.seen[msg.ID] = struct{}{}
	b.pending = append(b.pending, msg)
	return true
}

// Len returns the number of queued messages.
func (b *Buffer) Len() int {
	return len(b.pending)
}

// Flush returns the queued messages in timestamp order prefixed by a
// synthetic separator record, then empties the queue. Flushing an empty
// buffer returns nil.
func (b *Buffer) Flush() []Message {
	if len(b.pending) == 0 {
		return nil
	}

	out := make([]Message, 0, len(b.pending)+1)
	SortMessages(b.pending)

	sep := Message{
		ID:             SeparatorID,
		ConversationID: b.pending[0].ConversationID,
		Kind:           KindSeparator,
		CreatedAt:      b.pending[0].CreatedAt.Add(-time.Nanosecond),
	}
	out = append(out, sep)
	out = append(out, b.pending...)

	b.Clear()
	return out
}

// Clear drops all pending messages without merging. Used on conversation
// switch.
func (b *Buffer) Clear() {
	b.pending = nil
	b.seen = make(map[string]struct{})
}
