package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/transport/http/middleware"
)

// SuccessResponse is the envelope of every successful API response.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse represents a failed API call with its error kind and trace ID.
type ErrorResponse = middleware.ErrorResponse

// NewErrorResponse creates an error response carrying the request trace ID.
func NewErrorResponse(c *gin.Context, kind, message string) ErrorResponse {
	return ErrorResponse{
		Error:   kind,
		Message: message,
		TraceID: middleware.GetTraceID(c),
	}
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, SuccessResponse{Success: true, Message: message, Data: data})
}

// UserSummary describes the public view of an account.
type UserSummary struct {
	ID                  string `json:"id"`
	Username            string `json:"username"`
	IsVerified          bool   `json:"is_verified"`
	IsAcceptingMessages bool   `json:"is_accepting_messages"`
}

func newUserSummary(user domain.User) UserSummary {
	return UserSummary{
		ID:                  user.ID,
		Username:            user.Username,
		IsVerified:          user.IsVerified,
		IsAcceptingMessages: user.IsAcceptingMessages,
	}
}

// SignUpRequest defines the account registration payload.
type SignUpRequest struct {
	Username string `json:"username" binding:"required,min=2,max=20"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// SignUpResponse reports the pending account and when its code lapses.
type SignUpResponse struct {
	User          UserSummary `json:"user"`
	CodeExpiresAt time.Time   `json:"code_expires_at"`
}

// VerifyRequest holds the verification payload.
type VerifyRequest struct {
	Username string `json:"username" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// ResendRequest asks for a replacement verification code.
type ResendRequest struct {
	Username string `json:"username" binding:"required"`
}

// ResendResponse carries the expiry of the replacement code.
type ResendResponse struct {
	CodeExpiresAt time.Time `json:"code_expires_at"`
}

// UsernameAvailability reports whether a username can be claimed.
type UsernameAvailability struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// SignInRequest defines the payload for the sign-in endpoint.
type SignInRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// SignInResponse describes the response returned for a successful sign-in.
type SignInResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        UserSummary `json:"user"`
}

// AcceptanceRequest toggles message acceptance.
type AcceptanceRequest struct {
	AcceptMessages *bool `json:"accept_messages" binding:"required"`
}

// AcceptanceResponse reports the stored acceptance flag.
type AcceptanceResponse struct {
	IsAcceptingMessages bool `json:"is_accepting_messages"`
}

// SendMessageRequest is the anonymous submission payload.
type SendMessageRequest struct {
	Username string `json:"username" binding:"required"`
	Content  string `json:"content"`
}

// MessagePayload is one inbox message as returned to its owner.
type MessagePayload struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SentMessageResponse acknowledges an anonymous submission without echoing the recipient.
type SentMessageResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// SummaryResponse carries the inbox dashboard counters.
type SummaryResponse struct {
	TotalMessages       int  `json:"total_messages"`
	MessagesLastWeek    int  `json:"messages_last_week"`
	IsAcceptingMessages bool `json:"is_accepting_messages"`
}

// HealthResponse describes liveness and readiness results.
type HealthResponse struct {
	Status    string            `json:"status"`
	StartedAt time.Time         `json:"started_at"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func newMessagePayloads(messages []domain.Message) []MessagePayload {
	out := make([]MessagePayload, 0, len(messages))
	for _, msg := range messages {
		out = append(out, MessagePayload{ID: msg.ID, Content: msg.Content, CreatedAt: msg.CreatedAt})
	}
	return out
}
