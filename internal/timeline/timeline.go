package timeline

// Timeline is the rendered message list for the open conversation. All
// mutations keep the list totally ordered by timestamp with ties broken by
// identity. At most one separator record is present at a time.
type Timeline struct {
	conversationID string
	msgs           []Message
	seen           map[string]struct{}
}

// NewTimeline creates an empty timeline for a conversation.
func NewTimeline(conversationID string) *Timeline {
	return &Timeline{
		conversationID: conversationID,
		seen:           make(map[string]struct{}),
	}
}

// ConversationID returns the conversation this timeline renders.
func (t *Timeline) ConversationID() string {
	return t.conversationID
}

// Reset replaces the timeline contents, dropping any separator state.
// Used on conversation open.
func (t *Timeline) Reset(conversationID string, msgs []Message) {
	t.conversationID = conversationID
	t.seen = make(map[string]struct{})
	t.msgs = t.msgs[:0]
	for _, m := range msgs {
		if m.ID == "" || m.Kind == KindSeparator {
			continue
		}
		if _, ok := t.seen[m.ID]; ok {
			continue
		}
		t.seen[m.ID] = struct{}{}
		t.msgs = append(t.msgs, m)
	}
	SortMessages(t.msgs)
}

// Messages returns the rendered entries, separator included.
func (t *Timeline) Messages() []Message {
	return t.msgs
}

// Len returns the number of rendered entries, separator included.
func (t *Timeline) Len() int {
	return len(t.msgs)
}

// messageCount counts non-separator entries.
func (t *Timeline) messageCount() int {
	n := 0
	for _, m := range t.msgs {
		if m.Kind != KindSeparator {
			n++
		}
	}
	return n
}

// Contains reports whether a message identity is already rendered.
func (t *Timeline) Contains(id string) bool {
	_, ok := t.seen[id]
	return ok
}

// Tail returns the newest non-separator message.
func (t *Timeline) Tail() (Message, bool) {
	for i := len(t.msgs) - 1; i >= 0; i-- {
		if t.msgs[i].Kind != KindSeparator {
			return t.msgs[i], true
		}
	}
	return Message{}, false
}

// Unchanged reports whether a fetched batch matches the rendered list by
// length and tail identity. Used to skip UI mutation when a poll returns
// nothing new.
func (t *Timeline) Unchanged(batch []Message) bool {
	if len(batch) != t.messageCount() {
		return false
	}
	tail, ok := t.Tail()
	if !ok {
		return len(batch) == 0
	}
	newest := batch[0]
	for _, m := range batch[1:] {
		if newest.Before(m) {
			newest = m
		}
	}
	return newest.ID == tail.ID
}

// Merge folds a batch into the rendered list, deduplicating by identity and
// re-sorting to restore total order. Returns the messages that were actually
// new.
func (t *Timeline) Merge(batch []Message) []Message {
	var added []Message
	for _, m := range batch {
		if m.ID == "" {
			continue
		}
		if m.Kind == KindSeparator {
			t.replaceSeparator(m)
			continue
		}
		if _, ok := t.seen[m.ID]; ok {
			continue
		}
		t.seen[m.ID] = struct{}{}
		t.msgs = append(t.msgs, m)
		added = append(added, m)
	}
	if len(added) > 0 {
		SortMessages(t.msgs)
	}
	return added
}

// Append adds a single message (e.g. one the user just sent).
func (t *Timeline) Append(m Message) bool {
	return len(t.Merge([]Message{m})) == 1
}

// ClearSeparator removes the separator record, if present.
func (t *Timeline) ClearSeparator() {
	for i, m := range t.msgs {
		if m.Kind == KindSeparator {
			t.msgs = append(t.msgs[:i], t.msgs[i+1:]...)
			return
		}
	}
}

// replaceSeparator installs a new separator, dropping any previous one.
func (t *Timeline) replaceSeparator(sep Message) {
	t.ClearSeparator()
	t.msgs = append(t.msgs, sep)
	SortMessages(t.msgs)
}

// MarkAllRead flips the read flag on every rendered message.
func (t *Timeline) MarkAllRead() {
	for i := range t.msgs {
		t.msgs[i].Read = true
	}
}
