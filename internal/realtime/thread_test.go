package realtime

import (
	"testing"
	"time"

	"github.com/jobdesk/jobdesk-backend/internal/model"
	"github.com/stretchr/testify/require"
)

func TestThreadMergeIsIdempotent(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m1 := model.Message{ID: 1, ConversationID: 42, Body: "hello", CreatedAt: base}
	m2 := model.Message{ID: 2, ConversationID: 42, Body: "hi", CreatedAt: base.Add(time.Second)}

	// Same final thread no matter whether a message arrives via history
	// fetch, live broadcast, or both.
	fromHistory := NewThread()
	fromHistory.AddAll([]model.Message{m1, m2})

	fromBoth := NewThread()
	fromBoth.AddAll([]model.Message{m1, m2})
	require.False(t, fromBoth.Add(m2), "live duplicate of a fetched message")
	require.False(t, fromBoth.Add(m1))

	require.Equal(t, fromHistory.Messages(), fromBoth.Messages())
	require.Equal(t, 2, fromBoth.Len())
}

func TestThreadOrdersByCreationThenID(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	th := NewThread()
	th.Add(model.Message{ID: 3, CreatedAt: base.Add(time.Minute)})
	th.Add(model.Message{ID: 2, CreatedAt: base})
	th.Add(model.Message{ID: 1, CreatedAt: base})

	msgs := th.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, uint64(1), msgs[0].ID, "timestamp tie broken by id")
	require.Equal(t, uint64(2), msgs[1].ID)
	require.Equal(t, uint64(3), msgs[2].ID)
}

func TestThreadEmpty(t *testing.T) {
	th := NewThread()
	require.Empty(t, th.Messages())
	require.Zero(t, th.Len())
}
