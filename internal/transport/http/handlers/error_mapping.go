package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/anon-inbox/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// defaultErrorCases covers every error kind the use cases return.
var defaultErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidContent, Status: http.StatusBadRequest, Message: "message must be between 10 and 1000 characters"},
	{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "invalid request"},
	{Err: usecase.ErrDuplicateKey, Status: http.StatusConflict, Message: "username or email already taken"},
	{Err: usecase.ErrNotFound, Status: http.StatusNotFound, Message: "not found"},
	{Err: usecase.ErrCodeExpired, Status: http.StatusGone, Message: "verification code expired, request a new one"},
	{Err: usecase.ErrCodeMismatch, Status: http.StatusBadRequest, Message: "incorrect verification code"},
	{Err: usecase.ErrAlreadyVerified, Status: http.StatusConflict, Message: "account already verified"},
	{Err: usecase.ErrNotAccepting, Status: http.StatusForbidden, Message: "user is not accepting messages"},
	{Err: usecase.ErrUnauthenticated, Status: http.StatusUnauthorized, Message: "not authenticated"},
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
	{Err: usecase.ErrAccountNotVerified, Status: http.StatusForbidden, Message: "verify your account before signing in"},
	{Err: usecase.ErrResendTooSoon, Status: http.StatusTooManyRequests, Message: "please wait before requesting another code"},
	{Err: usecase.ErrTooManyAttempts, Status: http.StatusTooManyRequests, Message: "too many incorrect codes, try again later"},
	{Err: usecase.ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
}

// RespondWithMappedError resolves err against cases, falling back to the default table and then to 500.
func RespondWithMappedError(c *gin.Context, err error, cases ...ErrorCase) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	kind := usecase.KindOf(err)
	for _, table := range [][]ErrorCase{cases, defaultErrorCases} {
		for _, cs := range table {
			if cs.Err != nil && errors.Is(err, cs.Err) {
				if cs.Status >= http.StatusInternalServerError {
					_ = c.Error(err)
				}
				c.AbortWithStatusJSON(cs.Status, NewErrorResponse(c, kind, messageFor(err, cs.Message)))
				return
			}
		}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, NewErrorResponse(c, usecase.KindInternal, "internal error"))
}

// messageFor prefers the field-level reason of validation errors.
func messageFor(err error, fallback string) string {
	var verr *usecase.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return fallback
}

func respondBindError(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, NewErrorResponse(c, usecase.KindInvalidInput, "invalid request payload"))
}
