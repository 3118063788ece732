package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jobdesk/jobdesk-backend/internal/model"
	"github.com/jobdesk/jobdesk-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type ConversationHandler struct {
	svc service.ConversationService
}

func NewConversationHandler(svc service.ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type CreateConversationRequest struct {
	SeekerUID  string `json:"seekerUid"`
	CompanyUID string `json:"companyUid"`
}

type ConversationResponse struct {
	ConversationID uint64 `json:"conversationId"`
	SeekerUID      string `json:"seekerUid"`
	CompanyUID     string `json:"companyUid"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

type MessageRequest struct {
	Body string `json:"body"`
}

// Create performs the lookup-or-create for a (seeker, company) pair. Calling
// it twice with the same pair yields the same conversation id.
func (h *ConversationHandler) Create(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	cv, err := h.svc.FindOrCreate(c.Request().Context(), req.SeekerUID, req.CompanyUID, uid)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not a participant"))
		}
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	return c.JSON(http.StatusOK, toConversationResponse(cv))
}

func (h *ConversationHandler) List(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convs, err := h.svc.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch conversations"))
	}
	resp := make([]ConversationResponse, 0, len(convs))
	for _, cv := range convs {
		resp = append(resp, toConversationResponse(&cv))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) Get(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	cv, err := h.svc.Get(c.Request().Context(), convID, uid)
	if err != nil {
		return h.mapError(c, err, "conversation")
	}
	return c.JSON(http.StatusOK, toConversationResponse(cv))
}

func (h *ConversationHandler) ListMessages(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	msgs, err := h.svc.ListMessages(c.Request().Context(), convID, uid)
	if err != nil {
		return h.mapError(c, err, "conversation")
	}
	return c.JSON(http.StatusOK, msgs)
}

// CreateMessage is the durable write. The created record is returned so the
// caller can publish it through the hub; a failed create must never be
// broadcast.
func (h *ConversationHandler) CreateMessage(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	msg, err := h.svc.CreateMessage(c.Request().Context(), convID, uid, req.Body)
	if err != nil {
		return h.mapError(c, err, "conversation")
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *ConversationHandler) mapError(c echo.Context, err error, entity string) error {
	if errors.Is(err, service.ErrNotFound) {
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", entity+" not found"))
	}
	if errors.Is(err, service.ErrForbidden) {
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not a participant"))
	}
	return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
}

func toConversationResponse(cv *model.Conversation) ConversationResponse {
	return ConversationResponse{
		ConversationID: cv.ID,
		SeekerUID:      cv.SeekerUID,
		CompanyUID:     cv.CompanyUID,
		CreatedAt:      cv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      cv.UpdatedAt.Format(time.RFC3339),
	}
}
