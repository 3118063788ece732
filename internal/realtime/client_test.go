package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jobdesk/jobdesk-backend/internal/model"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

// newFrameServer upgrades one connection at a time, forwards every parsed
// inbound frame to the returned channel, and relays send-message frames back
// as receive-message broadcasts.
func newFrameServer(t *testing.T) (wsURL string, inbound <-chan Frame) {
	t.Helper()
	frames := make(chan Frame, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame Frame
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			frames <- frame
			if frame.Type == EventSend {
				out := Frame{Type: EventReceive, ConversationID: frame.ConversationID, Message: frame.Message}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), frames
}

func TestClientConnectivityFlag(t *testing.T) {
	url, _ := newFrameServer(t)

	client := Dial(url)
	defer client.Close()

	require.Eventually(t, client.IsConnected, 3*time.Second, 10*time.Millisecond)

	client.Close()
	require.Eventually(t, func() bool { return !client.IsConnected() }, 3*time.Second, 10*time.Millisecond)
}

func TestClientJoinLeaveSendPassThrough(t *testing.T) {
	url, inbound := newFrameServer(t)

	client := Dial(url)
	defer client.Close()
	require.Eventually(t, client.IsConnected, 3*time.Second, 10*time.Millisecond)

	client.JoinConversation(42)
	frame := waitFrame(t, inbound)
	require.Equal(t, EventJoin, frame.Type)
	require.Equal(t, uint64(42), frame.ConversationID)

	client.SendMessage(42, model.Message{ID: 7, ConversationID: 42, SenderUID: "u1", Body: "Hello"})
	frame = waitFrame(t, inbound)
	require.Equal(t, EventSend, frame.Type)
	require.Equal(t, "Hello", frame.Message.Body)

	client.LeaveConversation(42)
	frame = waitFrame(t, inbound)
	require.Equal(t, EventLeave, frame.Type)
}

func TestClientSurfacesBroadcastsAsEvents(t *testing.T) {
	url, _ := newFrameServer(t)

	client := Dial(url)
	defer client.Close()
	require.Eventually(t, client.IsConnected, 3*time.Second, 10*time.Millisecond)

	client.SendMessage(42, model.Message{ID: 7, ConversationID: 42, SenderUID: "u1", Body: "Hello"})

	select {
	case ev := <-client.Events():
		require.Equal(t, uint64(42), ev.ConversationID)
		require.Equal(t, uint64(7), ev.Message.ID)
		require.Equal(t, "Hello", ev.Message.Body)
	case <-time.After(3 * time.Second):
		t.Fatal("no broadcast event received")
	}
}

func TestClientDropsMalformedBroadcasts(t *testing.T) {
	valid := Frame{Type: EventReceive, ConversationID: 42, Message: &model.Message{ID: 1, Body: "ok"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
		_ = conn.WriteJSON(Frame{Type: "unknown-event"})
		_ = conn.WriteJSON(Frame{Type: EventReceive}) // broadcast without a message record
		_ = conn.WriteJSON(valid)
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client := Dial("ws" + strings.TrimPrefix(srv.URL, "http"))
	defer client.Close()

	select {
	case ev := <-client.Events():
		require.Equal(t, "ok", ev.Message.Body, "only the well-formed broadcast surfaces")
	case <-time.After(3 * time.Second):
		t.Fatal("no event received")
	}
	select {
	case ev, ok := <-client.Events():
		if ok {
			t.Fatalf("unexpected extra event: %+v", ev)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClientOpsDroppedWhileDisconnected(t *testing.T) {
	// Nothing listens here; the client must stay silent, not panic or block.
	client := Dial("ws://127.0.0.1:1/ws")
	defer client.Close()

	require.False(t, client.IsConnected())
	client.JoinConversation(42)
	client.SendMessage(42, model.Message{ID: 1, Body: "lost"})
	client.LeaveConversation(42)

	select {
	case ev, ok := <-client.Events():
		if ok {
			t.Fatalf("unexpected event while disconnected: %+v", ev)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func waitFrame(t *testing.T, frames <-chan Frame) Frame {
	t.Helper()
	select {
	case frame := <-frames:
		return frame
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}
