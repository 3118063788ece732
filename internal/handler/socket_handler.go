package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jobdesk/jobdesk-backend/internal/realtime"
	"github.com/jobdesk/jobdesk-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// SocketHandler owns the websocket endpoint. Each accepted connection becomes
// one hub session; join and send are authorized against the conversation's
// participants before any room mutation or fan-out.
type SocketHandler struct {
	hub     *realtime.Hub
	convSvc service.ConversationService
}

func NewSocketHandler(hub *realtime.Hub, convSvc service.ConversationService) *SocketHandler {
	return &SocketHandler{hub: hub, convSvc: convSvc}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origins are vetted by the CORS layer for the REST surface; the
		// socket itself authorizes per-conversation on join/send.
		return true
	},
}

const (
	wsReadTimeout  = 60 * time.Second
	wsAuthzTimeout = 5 * time.Second
)

// Handle upgrades the request and pumps frames until the client disconnects.
// Disconnects, clean or abrupt, remove the session from every joined room.
func (h *SocketHandler) Handle(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		uid = c.QueryParam("uid")
	}
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}

	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the response.
		return nil
	}

	sess := realtime.NewSession(uid, ws)
	h.hub.Register(sess)
	sess.Start()
	defer func() {
		h.hub.Unregister(sess.SessionID())
		sess.Close(websocket.CloseNormalClosure, "session closed")
	}()

	ws.SetReadLimit(1 << 20)
	_ = ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return nil
		}
		var frame realtime.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			// Malformed frame: drop, keep the session alive.
			continue
		}
		switch frame.Type {
		case realtime.EventJoin:
			h.handleJoin(c, sess, frame)
		case realtime.EventLeave:
			h.hub.Leave(sess.SessionID(), frame.ConversationID)
		case realtime.EventSend:
			h.handleSend(c, sess, frame)
		default:
			// Unknown frame types are ignored.
		}
	}
}

func (h *SocketHandler) handleJoin(c echo.Context, sess *realtime.Session, frame realtime.Frame) {
	if frame.ConversationID == 0 {
		h.replyError(sess, "bad_request", "conversationId is required")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), wsAuthzTimeout)
	defer cancel()
	if _, err := h.convSvc.Get(ctx, frame.ConversationID, sess.UserUID); err != nil {
		h.replyError(sess, "forbidden", "not a participant")
		return
	}
	h.hub.Join(sess.SessionID(), frame.ConversationID)
}

// handleSend relays an already-persisted message to the room. The durable
// create happens over the REST endpoint; this path only fans out.
func (h *SocketHandler) handleSend(c echo.Context, sess *realtime.Session, frame realtime.Frame) {
	if frame.ConversationID == 0 || frame.Message == nil {
		h.replyError(sess, "bad_request", "conversationId and message are required")
		return
	}
	if frame.Message.SenderUID != sess.UserUID {
		h.replyError(sess, "forbidden", "sender mismatch")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), wsAuthzTimeout)
	defer cancel()
	if _, err := h.convSvc.Get(ctx, frame.ConversationID, sess.UserUID); err != nil {
		h.replyError(sess, "forbidden", "not a participant")
		return
	}
	h.hub.Publish(frame.ConversationID, *frame.Message)
}

func (h *SocketHandler) replyError(sess *realtime.Session, code, message string) {
	_ = sess.Deliver(realtime.Frame{Type: realtime.EventError, Code: code, Error: message})
}
