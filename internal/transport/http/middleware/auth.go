package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/usecase"
)

// ErrorResponse mirrors the handlers error envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, kind, message string) ErrorResponse {
	return ErrorResponse{
		Error:   kind,
		Message: message,
		TraceID: GetTraceID(c),
	}
}

// CallerResolver turns a bearer token into an authenticated principal.
type CallerResolver interface {
	ParseAccessToken(raw string) (domain.Caller, error)
}

// RequireAuth validates the Authorization header and stores the caller in the gin context.
func RequireAuth(resolver CallerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, usecase.KindUnauthenticated, "missing or malformed bearer token"))
			return
		}

		caller, err := resolver.ParseAccessToken(token)
		if err != nil || caller.IsZero() {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, usecase.KindUnauthenticated, "invalid or expired access token"))
			return
		}

		SetCaller(c, caller)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
