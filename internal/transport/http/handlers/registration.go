package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/usecase"
)

// Registrar is the registration behaviour the handler depends on.
type Registrar interface {
	Register(ctx context.Context, username, email, password string) (usecase.RegistrationResult, error)
	VerifyCode(ctx context.Context, username, code string) (domain.User, error)
	ResendCode(ctx context.Context, username string) (time.Time, error)
	CheckUsername(ctx context.Context, username string) (bool, error)
}

// RegistrationHandler exposes sign-up and verification endpoints.
type RegistrationHandler struct {
	registration Registrar
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(registration Registrar) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// SignUp creates a pending account and sends its verification code.
func (h *RegistrationHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c)
		return
	}

	res, err := h.registration.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	respond(c, http.StatusCreated, "user registered, check your email for the verification code", SignUpResponse{
		User:          newUserSummary(res.User),
		CodeExpiresAt: res.CodeExpiresAt,
	})
}

// Verify confirms the code sent on sign-up.
func (h *RegistrationHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c)
		return
	}

	user, err := h.registration.VerifyCode(c.Request.Context(), req.Username, req.Code)
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	respond(c, http.StatusOK, "account verified", newUserSummary(user))
}

// Resend issues a replacement verification code.
func (h *RegistrationHandler) Resend(c *gin.Context) {
	var req ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c)
		return
	}

	expiresAt, err := h.registration.ResendCode(c.Request.Context(), req.Username)
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	respond(c, http.StatusOK, "verification code sent", ResendResponse{CodeExpiresAt: expiresAt})
}

// CheckUsername reports whether the queried username is free.
func (h *RegistrationHandler) CheckUsername(c *gin.Context) {
	username := c.Query("username")

	available, err := h.registration.CheckUsername(c.Request.Context(), username)
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	message := "username is available"
	if !available {
		message = "username is already taken"
	}
	respond(c, http.StatusOK, message, UsernameAvailability{Username: username, Available: available})
}
