package usecase

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey indicates the username or email already belongs to another account.
	ErrDuplicateKey = errors.New("username or email already taken")
	// ErrNotFound indicates the user or message does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrCodeExpired indicates the verification code is past its expiry.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrCodeMismatch indicates the verification code does not match.
	ErrCodeMismatch = errors.New("verification code mismatch")
	// ErrAlreadyVerified indicates the account has already completed verification.
	ErrAlreadyVerified = errors.New("account already verified")
	// ErrNotAccepting indicates the recipient has turned off message acceptance.
	ErrNotAccepting = errors.New("user is not accepting messages")
	// ErrInvalidInput indicates a malformed registration or sign-in payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidContent indicates the message content is outside the allowed bounds.
	ErrInvalidContent = errors.New("invalid message content")
	// ErrUnauthenticated indicates no valid session accompanies the request.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrInvalidCredentials indicates authentication failure due to bad identifier or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotVerified indicates sign-in was attempted before verification.
	ErrAccountNotVerified = errors.New("account not verified")
	// ErrResendTooSoon indicates a verification code was re-sent too recently.
	ErrResendTooSoon = errors.New("verification code resent too recently")
	// ErrTooManyAttempts indicates too many wrong verification codes were submitted for the account.
	ErrTooManyAttempts = errors.New("too many verification attempts")
	// ErrStoreUnavailable indicates the backing store failed.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Error kinds exposed to clients.
const (
	KindDuplicateKey       = "duplicate_key"
	KindNotFound           = "not_found"
	KindCodeExpired        = "code_expired"
	KindCodeMismatch       = "code_mismatch"
	KindAlreadyVerified    = "already_verified"
	KindNotAccepting       = "not_accepting"
	KindInvalidInput       = "invalid_input"
	KindInvalidContent     = "invalid_content"
	KindUnauthenticated    = "unauthenticated"
	KindInvalidCredentials = "invalid_credentials"
	KindAccountNotVerified = "account_not_verified"
	KindResendTooSoon      = "resend_too_soon"
	KindTooManyAttempts    = "too_many_attempts"
	KindStoreUnavailable   = "store_unavailable"
	KindInternal           = "internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrDuplicateKey, KindDuplicateKey},
	{ErrNotFound, KindNotFound},
	{ErrCodeExpired, KindCodeExpired},
	{ErrCodeMismatch, KindCodeMismatch},
	{ErrAlreadyVerified, KindAlreadyVerified},
	{ErrNotAccepting, KindNotAccepting},
	{ErrInvalidContent, KindInvalidContent},
	{ErrInvalidInput, KindInvalidInput},
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrAccountNotVerified, KindAccountNotVerified},
	{ErrResendTooSoon, KindResendTooSoon},
	{ErrTooManyAttempts, KindTooManyAttempts},
	{ErrStoreUnavailable, KindStoreUnavailable},
}

// KindOf maps an error returned by this package to its client-facing kind.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// ValidationError names the offending field of a rejected request.
type ValidationError struct {
	Field  string
	Reason string
	kind   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.kind
}

func invalidInput(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, kind: ErrInvalidInput}
}

func invalidContent(reason string) error {
	return &ValidationError{Field: "content", Reason: reason, kind: ErrInvalidContent}
}

// storeError marks an unexpected repository failure as ErrStoreUnavailable while keeping the cause.
// Context cancellation is passed through untouched.
func storeError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStoreUnavailable, err))
}
