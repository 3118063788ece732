package realtime

import (
	"sync"

	"github.com/jobdesk/jobdesk-backend/internal/model"
)

// Subscriber is the hub's view of a connected session. Deliver must not
// block; implementations are expected to enqueue and return.
type Subscriber interface {
	SessionID() string
	Deliver(frame Frame) error
}

// Hub is the process-wide broker for conversation rooms. It owns the
// room-membership table exclusively; all mutation goes through Register,
// Unregister, Join and Leave. It holds no durable state — a restart loses
// every membership and clients must re-join.
type Hub struct {
	mu           sync.RWMutex
	sessions     map[string]Subscriber
	rooms        map[uint64]map[string]Subscriber // conversationID -> sessionID -> subscriber
	sessionRooms map[string]map[uint64]struct{}   // sessionID -> set of conversationIDs
}

// NewHub constructs an initialized Hub. Each caller owns its instance; there
// is no package-level singleton.
func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[string]Subscriber),
		rooms:        make(map[uint64]map[string]Subscriber),
		sessionRooms: make(map[string]map[uint64]struct{}),
	}
}

// Register tracks a session so it can join rooms. Registering an ID twice
// replaces the previous subscriber.
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	h.sessions[sub.SessionID()] = sub
	if h.sessionRooms[sub.SessionID()] == nil {
		h.sessionRooms[sub.SessionID()] = make(map[uint64]struct{})
	}
	h.mu.Unlock()
}

// Unregister drops a session and removes it from every room it had joined.
// This is the implicit-cleanup path for abrupt disconnects.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	for convID := range h.sessionRooms[sessionID] {
		h.leaveLocked(sessionID, convID)
	}
	delete(h.sessionRooms, sessionID)
	delete(h.sessions, sessionID)
	h.mu.Unlock()
}

// Join adds the session to the room for the conversation. Unknown sessions
// are ignored.
func (h *Hub) Join(sessionID string, conversationID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[string]Subscriber)
		h.rooms[conversationID] = room
	}
	room[sessionID] = sub
	h.sessionRooms[sessionID][conversationID] = struct{}{}
}

// Leave removes the session from the room. Leaving a room never joined is a
// no-op.
func (h *Hub) Leave(sessionID string, conversationID uint64) {
	h.mu.Lock()
	h.leaveLocked(sessionID, conversationID)
	h.mu.Unlock()
}

// Publish fans the message out to every session currently in the room,
// the publisher's own sessions included. Delivery is best-effort and
// at-most-once per session; the durable store remains the source of truth.
// Returns the number of sessions delivered to.
func (h *Hub) Publish(conversationID uint64, msg model.Message) int {
	frame := Frame{
		Type:           EventReceive,
		ConversationID: conversationID,
		Message:        &msg,
	}

	h.mu.RLock()
	room := h.rooms[conversationID]
	subs := make([]Subscriber, 0, len(room))
	for _, sub := range room {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if err := sub.Deliver(frame); err == nil {
			delivered++
		}
	}
	return delivered
}

// RoomSize reports the current member count for a conversation room.
func (h *Hub) RoomSize(conversationID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

func (h *Hub) leaveLocked(sessionID string, conversationID uint64) {
	room := h.rooms[conversationID]
	if room == nil {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
	if memberships, ok := h.sessionRooms[sessionID]; ok {
		delete(memberships, conversationID)
	}
}
