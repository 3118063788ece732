package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/jobdesk/jobdesk-backend/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeSubscriber struct {
	id string

	mu     sync.Mutex
	frames []Frame
}

func newFakeSubscriber(id string) *fakeSubscriber {
	return &fakeSubscriber{id: id}
}

func (f *fakeSubscriber) SessionID() string { return f.id }

func (f *fakeSubscriber) Deliver(frame Frame) error {
	f.mu.Lock()
	f.frames = append(f.frames, frame)
	f.mu.Unlock()
	return nil
}

func (f *fakeSubscriber) received() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Frame, len(f.frames))
	copy(out, f.frames)
	return out
}

func TestHubPublishFansOutToRoomMembers(t *testing.T) {
	hub := NewHub()
	a := newFakeSubscriber("a")
	b := newFakeSubscriber("b")
	outsider := newFakeSubscriber("c")

	hub.Register(a)
	hub.Register(b)
	hub.Register(outsider)
	hub.Join("a", 42)
	hub.Join("b", 42)
	hub.Join("c", 7)

	msg := model.Message{ID: 1, ConversationID: 42, SenderUID: "seeker-1", Body: "Hello", CreatedAt: time.Now()}
	delivered := hub.Publish(42, msg)

	require.Equal(t, 2, delivered)
	for _, sub := range []*fakeSubscriber{a, b} {
		frames := sub.received()
		require.Len(t, frames, 1, "each room member receives exactly one event")
		require.Equal(t, EventReceive, frames[0].Type)
		require.Equal(t, uint64(42), frames[0].ConversationID)
		require.Equal(t, "Hello", frames[0].Message.Body)
	}
	require.Empty(t, outsider.received(), "sessions in other rooms receive nothing")
}

func TestHubPublishIncludesPublisherOwnSessions(t *testing.T) {
	hub := NewHub()
	tabA := newFakeSubscriber("tab-a")
	tabB := newFakeSubscriber("tab-b")
	hub.Register(tabA)
	hub.Register(tabB)
	hub.Join("tab-a", 42)
	hub.Join("tab-b", 42)

	hub.Publish(42, model.Message{ID: 1, ConversationID: 42, SenderUID: "u1", Body: "hi"})

	// The sender's other tab is a normal room member; nothing is excluded.
	require.Len(t, tabA.received(), 1)
	require.Len(t, tabB.received(), 1)
}

func TestHubLeaveIsIdempotent(t *testing.T) {
	hub := NewHub()
	a := newFakeSubscriber("a")
	hub.Register(a)

	// Leaving a room never joined is a no-op.
	hub.Leave("a", 42)
	hub.Leave("unknown-session", 42)

	hub.Join("a", 42)
	hub.Leave("a", 42)
	hub.Leave("a", 42)

	require.Zero(t, hub.Publish(42, model.Message{ID: 1}))
	require.Empty(t, a.received())
}

func TestHubJoinUnknownSessionIgnored(t *testing.T) {
	hub := NewHub()
	hub.Join("ghost", 42)
	require.Zero(t, hub.RoomSize(42))
}

func TestHubUnregisterRemovesFromAllRooms(t *testing.T) {
	hub := NewHub()
	a := newFakeSubscriber("a")
	b := newFakeSubscriber("b")
	hub.Register(a)
	hub.Register(b)
	hub.Join("a", 1)
	hub.Join("a", 2)
	hub.Join("b", 1)

	hub.Unregister("a")

	require.Zero(t, hub.Publish(2, model.Message{ID: 1}))
	require.Equal(t, 1, hub.Publish(1, model.Message{ID: 2}))
	require.Empty(t, a.received())
	require.Len(t, b.received(), 1)
}

func TestHubPublishEmptyRoom(t *testing.T) {
	hub := NewHub()
	require.Zero(t, hub.Publish(99, model.Message{ID: 1}))
}

func TestHubConcurrentJoinLeavePublish(t *testing.T) {
	hub := NewHub()
	subs := make([]*fakeSubscriber, 8)
	for i := range subs {
		subs[i] = newFakeSubscriber(string(rune('a' + i)))
		hub.Register(subs[i])
	}

	var wg sync.WaitGroup
	for i := range subs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				hub.Join(subs[i].SessionID(), 42)
				hub.Publish(42, model.Message{ID: uint64(n)})
				hub.Leave(subs[i].SessionID(), 42)
			}
		}(i)
	}
	wg.Wait()

	require.Zero(t, hub.RoomSize(42))
}
