package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/transport/http/middleware"
	"github.com/arklim/anon-inbox/internal/usecase"
)

// Inbox is the message behaviour the handler depends on.
type Inbox interface {
	Send(ctx context.Context, targetUsername, content string) (domain.Message, error)
	List(ctx context.Context, caller domain.Caller) ([]domain.Message, error)
	Summary(ctx context.Context, caller domain.Caller) (usecase.InboxSummary, error)
	Delete(ctx context.Context, caller domain.Caller, messageID string) error
}

// MessageHandler exposes anonymous submission and inbox curation.
type MessageHandler struct {
	inbox Inbox
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(inbox Inbox) *MessageHandler {
	return &MessageHandler{inbox: inbox}
}

// Send accepts an anonymous message. It is reachable without authentication
// and ignores any identity the request may carry.
func (h *MessageHandler) Send(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c)
		return
	}

	msg, err := h.inbox.Send(c.Request.Context(), req.Username, req.Content)
	if err != nil {
		RespondWithMappedError(c, err, ErrorCase{Err: usecase.ErrNotFound, Status: http.StatusNotFound, Message: "user not found"})
		return
	}

	respond(c, http.StatusCreated, "message sent", SentMessageResponse{ID: msg.ID, CreatedAt: msg.CreatedAt})
}

// List returns the caller's inbox, newest first.
func (h *MessageHandler) List(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		RespondWithMappedError(c, usecase.ErrUnauthenticated)
		return
	}

	messages, err := h.inbox.List(c.Request.Context(), caller)
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	respond(c, http.StatusOK, "", newMessagePayloads(messages))
}

// Summary returns the dashboard counters for the caller.
func (h *MessageHandler) Summary(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		RespondWithMappedError(c, usecase.ErrUnauthenticated)
		return
	}

	summary, err := h.inbox.Summary(c.Request.Context(), caller)
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	respond(c, http.StatusOK, "", SummaryResponse{
		TotalMessages:       summary.Total,
		MessagesLastWeek:    summary.LastWeek,
		IsAcceptingMessages: summary.Accepting,
	})
}

// Delete removes one message from the caller's inbox.
func (h *MessageHandler) Delete(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		RespondWithMappedError(c, usecase.ErrUnauthenticated)
		return
	}

	if err := h.inbox.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		RespondWithMappedError(c, err, ErrorCase{Err: usecase.ErrNotFound, Status: http.StatusNotFound, Message: "message not found"})
		return
	}

	respond(c, http.StatusOK, "message deleted", nil)
}
