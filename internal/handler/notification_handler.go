package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jobdesk/jobdesk-backend/internal/model"
	"github.com/jobdesk/jobdesk-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type NotificationHandler struct {
	svc service.NotificationService
}

func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

type NotificationResponse struct {
	ID             uint64  `json:"id"`
	Type           string  `json:"type"`
	Title          string  `json:"title"`
	Body           string  `json:"body"`
	ConversationID *uint64 `json:"conversationId,omitempty"`
	Read           bool    `json:"read"`
	CreatedAt      string  `json:"createdAt"`
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int64                  `json:"unreadCount"`
}

func (h *NotificationHandler) List(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	unreadOnly := c.QueryParam("unread") == "true"
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	list, unread, err := h.svc.List(c.Request().Context(), uid, unreadOnly, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch notifications"))
	}
	resp := NotificationListResponse{
		Notifications: make([]NotificationResponse, 0, len(list)),
		UnreadCount:   unread,
	}
	for _, n := range list {
		resp.Notifications = append(resp.Notifications, toNotificationResponse(n))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	if err := h.svc.MarkAllRead(c.Request().Context(), uid); err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to mark read"))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *NotificationHandler) MarkByConversation(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	if err := h.svc.MarkByConversation(c.Request().Context(), uid, convID); err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to mark read"))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:             n.ID,
		Type:           n.Type,
		Title:          n.Title,
		Body:           n.Body,
		ConversationID: n.ConversationID,
		Read:           n.ReadAt != nil,
		CreatedAt:      n.CreatedAt.Format(time.RFC3339),
	}
}
