package handlers

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/anon-inbox/internal/usecase"
)

// Authenticator signs users in.
type Authenticator interface {
	SignIn(ctx context.Context, identifier, password string) (usecase.SignInResult, error)
}

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth Authenticator
	now  func() time.Time
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth, now: time.Now}
}

// SignIn exchanges credentials for a bearer token.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c)
		return
	}

	res, err := h.auth.SignIn(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	expiresIn := int(math.Max(0, res.ExpiresAt.Sub(h.now()).Seconds()))
	respond(c, http.StatusOK, "signed in", SignInResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		User:        newUserSummary(res.User),
	})
}
