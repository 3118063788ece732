package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jobdesk/jobdesk-backend/internal/model"
)

const (
	dialTimeout   = 5 * time.Second
	dialAttempts  = 3
	dialRetryWait = 2 * time.Second
)

// Client is the per-tab session adapter: one long-lived connection to the
// hub with bounded retry, a connectivity flag, and typed join/leave/send
// operations. Join, leave and send are fire-and-forget; while disconnected
// they are dropped silently and the caller is expected to re-issue joins
// once connected again, since the hub keeps no membership across reconnects.
type Client struct {
	url    string
	header http.Header
	dialer *websocket.Dialer

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool

	events    chan MessageEvent
	done      chan struct{}
	closeOnce sync.Once
}

// ClientOption customizes a Client before it starts dialing.
type ClientOption func(*Client)

// WithHeader sets extra handshake headers, e.g. an Authorization bearer token.
func WithHeader(h http.Header) ClientOption {
	return func(c *Client) { c.header = h }
}

// Dial starts the connect loop for the given websocket URL and returns
// immediately. Connection failures never surface as errors; after the retry
// budget is spent the client stays in disconnected mode and durable API
// calls remain the only delivery path.
func Dial(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: dialTimeout},
		events: make(chan MessageEvent, 128),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.run()
	return c
}

// IsConnected reports the current transport state. It flips asynchronously
// as the connection establishes, drops or errors.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Events returns the inbound broadcast stream. Every receive-message frame
// is surfaced regardless of conversation; filtering is the consumer's job.
func (c *Client) Events() <-chan MessageEvent {
	return c.events
}

// JoinConversation asks the hub to add this session to the conversation's
// room. Dropped silently if no live connection exists.
func (c *Client) JoinConversation(conversationID uint64) {
	c.writeFrame(Frame{Type: EventJoin, ConversationID: conversationID})
}

// LeaveConversation removes this session from the conversation's room.
func (c *Client) LeaveConversation(conversationID uint64) {
	c.writeFrame(Frame{Type: EventLeave, ConversationID: conversationID})
}

// SendMessage publishes an already-persisted message to the room so peers
// see it without re-fetching. The durable create must have succeeded first;
// a message that failed to persist must never be sent here.
func (c *Client) SendMessage(conversationID uint64, msg model.Message) {
	c.writeFrame(Frame{Type: EventSend, ConversationID: conversationID, Message: &msg})
}

// Close tears the connection down and stops the retry loop. The events
// channel is closed once the read loop has exited.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.connected = false
		c.mu.Unlock()
	})
}

func (c *Client) run() {
	defer close(c.events)
	for {
		conn, ok := c.connect()
		if !ok {
			return
		}
		select {
		case <-c.done:
			_ = conn.Close()
			return
		default:
		}
		c.mu.Lock()
		c.conn = conn
		c.connected = true
		c.mu.Unlock()

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.connected = false
		c.mu.Unlock()

		select {
		case <-c.done:
			return
		default:
		}
	}
}

// connect dials with a fixed number of attempts and a fixed delay between
// them. Returns false once the budget is spent or the client is closed.
func (c *Client) connect() (*websocket.Conn, bool) {
	for attempt := 0; attempt < dialAttempts; attempt++ {
		select {
		case <-c.done:
			return nil, false
		default:
		}
		conn, _, err := c.dialer.Dial(c.url, c.header)
		if err == nil {
			return conn, true
		}
		select {
		case <-c.done:
			return nil, false
		case <-time.After(dialRetryWait):
		}
	}
	return nil, false
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			// Malformed broadcast: drop, keep reading.
			continue
		}
		if frame.Type != EventReceive || frame.Message == nil {
			continue
		}
		event := MessageEvent{
			ConversationID: frame.ConversationID,
			Message:        *frame.Message,
		}
		select {
		case c.events <- event:
		default:
			// Consumer is not draining; delivery is best-effort.
		}
	}
}

func (c *Client) writeFrame(frame Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.conn == nil {
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteJSON(frame)
}
