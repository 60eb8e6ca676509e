package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTimeline_ResetSortsAndDedupes(t *testing.T) {
	tl := NewTimeline("c-1")
	tl.Reset("c-1", []Message{
		msg("m-2", base.Add(time.Second)),
		msg("m-1", base),
		msg("m-2", base.Add(time.Second)),
	})

	require.Equal(t, 2, tl.Len())
	require.Equal(t, "m-1", tl.Messages()[0].ID)
	require.Equal(t, "m-2", tl.Messages()[1].ID)
}

func TestTimeline_MergeKeepsTotalOrder(t *testing.T) {
	tl := NewTimeline("c-1")
	tl.Reset("c-1", []Message{msg("m-1", base), msg("m-3", base.Add(2*time.Second))})

	added := tl.Merge([]Message{msg("m-2", base.Add(time.Second)), msg("m-1", base)})
	require.Len(t, added, 1)
	require.Equal(t, "m-2", added[0].ID)

	ids := make([]string, 0, tl.Len())
	for _, m := range tl.Messages() {
		ids = append(ids, m.ID)
	}
	require.Equal(t, []string{"m-1", "m-2", "m-3"}, ids)
}

func TestTimeline_UnchangedByLengthAndTail(t *testing.T) {
	tl := NewTimeline("c-1")
	batch := []Message{msg("m-1", base), msg("m-2", base.Add(time.Second))}
	tl.Reset("c-1", batch)

	require.True(t, tl.Unchanged(batch))
	require.False(t, tl.Unchanged(batch[:1]))
	require.False(t, tl.Unchanged(append(append([]Message(nil), batch...), msg("m-3", base.Add(2*time.Second)))))

	// Same length, different tail.
	other := []Message{msg("m-1", base), msg("m-9", base.Add(9*time.Second))}
	require.False(t, tl.Unchanged(other))
}

func TestTimeline_UnchangedEmpty(t *testing.T) {
	tl := NewTimeline("c-1")
	require.True(t, tl.Unchanged(nil))
	require.False(t, tl.Unchanged([]Message{msg("m-1", base)}))
}

func TestTimeline_FlushMergeRestoresOrderAfterSeparator(t *testing.T) {
	tl := NewTimeline("c-1")
	tl.Reset("c-1", []Message{msg("m-1", base)})

	b := NewBuffer()
	b.Offer(msg("m-3", base.Add(3*time.Second)))
	b.Offer(msg("m-2", base.Add(2*time.Second)))

	tl.Merge(b.Flush())

	entries := tl.Messages()
	require.Equal(t, 4, tl.Len())
	require.Equal(t, "m-1", entries[0].ID)
	require.Equal(t, KindSeparator, entries[1].Kind)
	require.Equal(t, "m-2", entries[2].ID)
	require.Equal(t, "m-3", entries[3].ID)
}

func TestTimeline_SecondFlushReplacesSeparator(t *testing.T) {
	tl := NewTimeline("c-1")
	tl.Reset("c-1", []Message{msg("m-1", base)})

	b := NewBuffer()
	b.Offer(msg("m-2", base.Add(time.Second)))
	tl.Merge(b.Flush())

	b.Offer(msg("m-3", base.Add(2*time.Second)))
	tl.Merge(b.Flush())

	seps := 0
	for _, m := range tl.Messages() {
		if m.Kind == KindSeparator {
			seps++
		}
	}
	require.Equal(t, 1, seps)

	tail, ok := tl.Tail()
	require.True(t, ok)
	require.Equal(t, "m-3", tail.ID)
}

func TestTimeline_SeparatorExcludedFromComparison(t *testing.T) {
	tl := NewTimeline("c-1")
	tl.Reset("c-1", []Message{msg("m-1", base)})

	b := NewBuffer()
	b.Offer(msg("m-2", base.Add(time.Second)))
	tl.Merge(b.Flush())

	// Backend returns exactly the two real messages: no change.
	batch := []Message{msg("m-1", base), msg("m-2", base.Add(time.Second))}
	require.True(t, tl.Unchanged(batch))
}

func TestTimeline_MarkAllRead(t *testing.T) {
	tl := NewTimeline("c-1")
	tl.Reset("c-1", []Message{msg("m-1", base), msg("m-2", base.Add(time.Second))})
	tl.MarkAllRead()
	for _, m := range tl.Messages() {
		require.True(t, m.Read)
	}
}
