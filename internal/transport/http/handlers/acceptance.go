package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/transport/http/middleware"
	"github.com/arklim/anon-inbox/internal/usecase"
)

// AcceptanceToggle reads and writes the acceptance flag of the caller.
type AcceptanceToggle interface {
	Get(ctx context.Context, caller domain.Caller) (bool, error)
	Set(ctx context.Context, caller domain.Caller, accepting bool) (bool, error)
}

// AcceptanceHandler exposes the accept-messages switch.
type AcceptanceHandler struct {
	acceptance AcceptanceToggle
}

// NewAcceptanceHandler constructs an AcceptanceHandler.
func NewAcceptanceHandler(acceptance AcceptanceToggle) *AcceptanceHandler {
	return &AcceptanceHandler{acceptance: acceptance}
}

// Get returns the current acceptance flag.
func (h *AcceptanceHandler) Get(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		RespondWithMappedError(c, usecase.ErrUnauthenticated)
		return
	}

	accepting, err := h.acceptance.Get(c.Request.Context(), caller)
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	respond(c, http.StatusOK, "", AcceptanceResponse{IsAcceptingMessages: accepting})
}

// Set stores a new acceptance flag.
func (h *AcceptanceHandler) Set(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		RespondWithMappedError(c, usecase.ErrUnauthenticated)
		return
	}

	var req AcceptanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c)
		return
	}

	stored, err := h.acceptance.Set(c.Request.Context(), caller, *req.AcceptMessages)
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	message := "message acceptance turned off"
	if stored {
		message = "message acceptance turned on"
	}
	respond(c, http.StatusOK, message, AcceptanceResponse{IsAcceptingMessages: stored})
}
