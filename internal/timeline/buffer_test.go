package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func msg(id string, at time.Time) Message {
	return Message{ID: id, ConversationID: "c-1", SenderID: "u-2", Body: "hi " + id, CreatedAt: at}
}

func TestBuffer_OfferDedupesByIdentity(t *testing.T) {
	b := NewBuffer()
	now := time.Now()

	require.True(t, b.Offer(msg("m-1", now)))
	require.False(t, b.Offer(msg("m-1", now)))
	require.Equal(t, 1, b.Len())
}

func TestBuffer_OfferRejectsEmptyID(t *testing.T) {
	b := NewBuffer()
	require.False(t, b.Offer(Message{}))
	require.Equal(t, 0, b.Len())
}

func TestBuffer_FlushOrdersAndPrefixesSeparator(t *testing.T) {
	b := NewBuffer()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Offered out of order.
	b.Offer(msg("m-3", base.Add(2*time.Second)))
	b.Offer(msg("m-1", base))
	b.Offer(msg("m-2", base.Add(time.Second)))

	out := b.Flush()
	require.Len(t, out, 4)
	require.Equal(t, KindSeparator, out[0].Kind)
	require.Equal(t, SeparatorID, out[0].ID)
	require.Equal(t, []string{"m-1", "m-2", "m-3"}, []string{out[1].ID, out[2].ID, out[3].ID})

	// Flush empties the queue.
	require.Equal(t, 0, b.Len())
	require.Nil(t, b.Flush())
}

func TestBuffer_FlushTieBreaksByIdentity(t *testing.T) {
	b := NewBuffer()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	b.Offer(msg("m-b", at))
	b.Offer(msg("m-a", at))

	out := b.Flush()
	require.Equal(t, "m-a", out[1].ID)
	require.Equal(t, "m-b", out[2].ID)
}

func TestBuffer_ClearDropsWithoutMerging(t *testing.T) {
	b := NewBuffer()
	b.Offer(msg("m-1", time.Now()))
	b.Clear()
	require.Equal(t, 0, b.Len())
	require.Nil(t, b.Flush())

	// Identity can be re-offered after a clear.
	require.True(t, b.Offer(msg("m-1", time.Now())))
}
