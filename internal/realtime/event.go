package realtime

import "github.com/jobdesk/jobdesk-backend/internal/model"

// Wire event names, matching what the browser client emits.
const (
	EventJoin    = "join-conversation"
	EventLeave   = "leave-conversation"
	EventSend    = "send-message"
	EventReceive = "receive-message"
	EventError   = "error"
)

// Frame is the envelope exchanged over the hub's websocket channel.
// Exactly which fields are set depends on Type.
type Frame struct {
	Type           string         `json:"type"`
	ConversationID uint64         `json:"conversationId,omitempty"`
	Message        *model.Message `json:"message,omitempty"`
	Code           string         `json:"code,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// MessageEvent is one inbound broadcast as surfaced to adapter consumers.
// The consumer filters by conversation; the adapter does not.
type MessageEvent struct {
	ConversationID uint64
	Message        model.Message
}
