package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Session wraps one websocket connection and coordinates outbound writes via
// a buffered channel. One Session corresponds to one browser tab; it is safe
// for concurrent use.
type Session struct {
	id      string
	UserUID string

	ws     *websocket.Conn
	send   chan []byte
	once   sync.Once
	closed chan struct{}
}

// NewSession constructs a Session for the given user.
func NewSession(userUID string, ws *websocket.Conn) *Session {
	return &Session{
		id:      uuid.NewString(),
		UserUID: userUID,
		ws:      ws,
		send:    make(chan []byte, 128),
		closed:  make(chan struct{}),
	}
}

func (s *Session) SessionID() string {
	return s.id
}

// Start launches the write loop. It must be called exactly once per session.
func (s *Session) Start() {
	go s.writeLoop()
}

// Deliver encodes the frame and enqueues it for the write loop.
func (s *Session) Deliver(frame Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return s.enqueue(payload)
}

// enqueue hands payload to the write loop. If the client is slow and the
// buffer fills, the session is closed to keep backpressure bounded.
func (s *Session) enqueue(payload []byte) error {
	select {
	case <-s.closed:
		return errors.New("session closed")
	case s.send <- payload:
		return nil
	default:
		s.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("session buffer exceeded")
	}
}

// Close terminates the connection and stops the write loop. The send channel
// is left open so a racing Deliver can never panic; the closed signal wins.
func (s *Session) Close(code int, reason string) {
	s.once.Do(func() {
		close(s.closed)
		_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = s.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = s.ws.Close()
	})
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.closed:
			return
		case payload := <-s.send:
			if err := s.writeMessage(payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.writePing(); err != nil {
				return
			}
		}
	}
}

func (s *Session) writeMessage(payload []byte) error {
	if err := s.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.ws.WriteMessage(websocket.TextMessage, payload)
}

func (s *Session) writePing() error {
	if err := s.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.ws.WriteMessage(websocket.PingMessage, nil)
}
