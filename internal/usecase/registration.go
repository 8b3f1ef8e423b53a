package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/core/port"
	"github.com/arklim/anon-inbox/internal/infra/logger"
	"github.com/arklim/anon-inbox/internal/infra/security"
	"github.com/arklim/anon-inbox/internal/repository"
)

const (
	defaultVerificationTTL = time.Hour
	defaultCodeLength      = 6
	defaultResendCooldown  = time.Minute
	defaultMaxAttempts     = 5

	resendCooldownScope = "verify-resend"
	verifyAttemptScope  = "verify-attempts"
)

// Registration outcomes reported to metrics.
const (
	RegistrationCreated   = "created"
	RegistrationRefreshed = "refreshed"
	RegistrationReclaimed = "reclaimed"
	RegistrationRejected  = "rejected"
)

// Verification outcomes reported to metrics.
const (
	VerificationVerified        = "verified"
	VerificationAlreadyVerified = "already_verified"
	VerificationExpired         = "expired"
	VerificationMismatch        = "mismatch"
	VerificationUnknownUser     = "unknown_user"
	VerificationLocked          = "locked"
)

// RegistrationConfig tunes code issuance.
type RegistrationConfig struct {
	CodeTTL        time.Duration
	CodeLength     int
	ResendCooldown time.Duration
	// MaxVerifyAttempts caps wrong codes per account within one code lifetime.
	MaxVerifyAttempts int
	// ReclaimStale lets a new sign-up take over a username held by an
	// unverified account whose code has already expired.
	ReclaimStale bool
}

func (c RegistrationConfig) withDefaults() RegistrationConfig {
	if c.CodeTTL <= 0 {
		c.CodeTTL = defaultVerificationTTL
	}
	if c.CodeLength <= 0 {
		c.CodeLength = defaultCodeLength
	}
	if c.ResendCooldown <= 0 {
		c.ResendCooldown = defaultResendCooldown
	}
	if c.MaxVerifyAttempts <= 0 {
		c.MaxVerifyAttempts = defaultMaxAttempts
	}
	return c
}

// RegistrationResult describes the account left pending verification.
type RegistrationResult struct {
	User          domain.User
	CodeExpiresAt time.Time
	Outcome       string
}

// RegistrationService handles sign-up and email verification.
type RegistrationService struct {
	cfg      RegistrationConfig
	users    port.UserRepository
	hasher   port.PasswordHasher
	policy   port.PasswordPolicyValidator
	notifier port.VerificationNotifier
	events   port.EventPublisher
	metrics  port.MetricsRecorder
	cooldown port.CooldownStore
	attempts port.AttemptCounter
	logger   *zap.Logger
	now      func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	cfg RegistrationConfig,
	users port.UserRepository,
	hasher port.PasswordHasher,
	policy port.PasswordPolicyValidator,
	notifier port.VerificationNotifier,
	events port.EventPublisher,
	metrics port.MetricsRecorder,
	logger *zap.Logger,
) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		cfg:      cfg.withDefaults(),
		users:    users,
		hasher:   hasher,
		policy:   policy,
		notifier: notifier,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *RegistrationService) WithClock(clock func() time.Time) *RegistrationService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// WithCooldownStore enables the resend cooldown.
func (s *RegistrationService) WithCooldownStore(store port.CooldownStore) *RegistrationService {
	s.cooldown = store
	return s
}

// WithAttemptCounter enables the per-account limit on wrong verification codes.
func (s *RegistrationService) WithAttemptCounter(counter port.AttemptCounter) *RegistrationService {
	s.attempts = counter
	return s
}

// Register creates an unverified account, or refreshes the pending one that already owns the email,
// and dispatches a fresh verification code.
func (s *RegistrationService) Register(ctx context.Context, username, email, password string) (RegistrationResult, error) {
	username, err := NormalizeUsername(username)
	if err != nil {
		return RegistrationResult{}, err
	}
	email, err = normalizeEmail(email)
	if err != nil {
		return RegistrationResult{}, err
	}
	if strings.TrimSpace(password) == "" {
		return RegistrationResult{}, invalidInput("password", "is required")
	}
	if s.policy != nil {
		if err := s.policy.Validate(password, domain.PasswordContext{Username: username, Email: email}); err != nil {
			return RegistrationResult{}, invalidInput("password", err.Error())
		}
	}

	byName, err := s.lookup(ctx, username)
	if err != nil {
		return RegistrationResult{}, err
	}
	byEmail, err := s.lookup(ctx, email)
	if err != nil {
		return RegistrationResult{}, err
	}

	now := s.now()
	outcome, target, err := s.resolveTarget(byName, byEmail, now)
	if err != nil {
		s.recordRegistration(RegistrationRejected)
		return RegistrationResult{}, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("hash password: %w", err)
	}
	code, err := security.GenerateNumericCode(s.cfg.CodeLength)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("generate verification code: %w", err)
	}

	user := domain.User{
		ID:                  uuid.NewString(),
		Username:            username,
		Email:               email,
		PasswordHash:        passwordHash,
		PasswordAlgo:        security.Argon2Algorithm,
		VerifyCodeHash:      security.HashToken(code),
		VerifyCodeExpiresAt: now.Add(s.cfg.CodeTTL),
		IsAcceptingMessages: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if target == nil {
		err = s.users.Create(ctx, user)
	} else {
		user.ID = target.ID
		err = s.users.ReplaceUnverified(ctx, user)
	}
	if err != nil {
		// Lost a race against another sign-up or a verification of the same row.
		if errors.Is(err, repository.ErrDuplicate) || errors.Is(err, repository.ErrNotFound) {
			s.recordRegistration(RegistrationRejected)
			return RegistrationResult{}, fmt.Errorf("store user: %w", ErrDuplicateKey)
		}
		return RegistrationResult{}, storeError("store user", err)
	}

	s.recordRegistration(outcome)
	s.dispatchCode(ctx, user, code)
	s.publishRegistered(ctx, user, outcome == RegistrationReclaimed)

	return RegistrationResult{
		User:          user.Sanitized(),
		CodeExpiresAt: user.VerifyCodeExpiresAt,
		Outcome:       outcome,
	}, nil
}

// resolveTarget decides whether sign-up creates a row or overwrites an unverified one.
func (s *RegistrationService) resolveTarget(byName, byEmail *domain.User, now time.Time) (string, *domain.User, error) {
	if byName != nil && byName.IsVerified {
		return "", nil, fmt.Errorf("username: %w", ErrDuplicateKey)
	}
	if byEmail != nil && byEmail.IsVerified {
		return "", nil, fmt.Errorf("email: %w", ErrDuplicateKey)
	}

	switch {
	case byEmail != nil && (byName == nil || byName.ID == byEmail.ID):
		return RegistrationRefreshed, byEmail, nil
	case byEmail != nil:
		// The username is pending under another email; both rows cannot be merged.
		return "", nil, fmt.Errorf("username: %w", ErrDuplicateKey)
	case byName != nil:
		if s.cfg.ReclaimStale && byName.VerificationExpired(now) {
			return RegistrationReclaimed, byName, nil
		}
		return "", nil, fmt.Errorf("username: %w", ErrDuplicateKey)
	default:
		return RegistrationCreated, nil, nil
	}
}

// VerifyCode checks the code issued to username and marks the account verified.
// Verifying an already verified account succeeds without changes.
func (s *RegistrationService) VerifyCode(ctx context.Context, username, code string) (domain.User, error) {
	username = strings.TrimSpace(username)
	code = strings.TrimSpace(code)
	if username == "" {
		return domain.User{}, invalidInput("username", "is required")
	}
	if code == "" {
		return domain.User{}, invalidInput("code", "is required")
	}

	user, err := s.lookup(ctx, username)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil || user.Username != username {
		s.recordVerification(VerificationUnknownUser)
		return domain.User{}, ErrNotFound
	}
	if user.IsVerified {
		s.recordVerification(VerificationAlreadyVerified)
		return user.Sanitized(), nil
	}

	attemptSubject := verifyAttemptScope + ":" + user.ID
	if s.attemptsExhausted(ctx, attemptSubject) {
		s.recordVerification(VerificationLocked)
		return domain.User{}, ErrTooManyAttempts
	}

	now := s.now()
	if user.VerificationExpired(now) {
		s.recordVerification(VerificationExpired)
		return domain.User{}, ErrCodeExpired
	}
	if !security.TokenMatches(code, user.VerifyCodeHash) {
		s.recordVerification(VerificationMismatch)
		s.recordFailedAttempt(ctx, attemptSubject)
		return domain.User{}, ErrCodeMismatch
	}

	if err := s.users.MarkVerified(ctx, user.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, storeError("mark verified", err)
	}
	s.recordVerification(VerificationVerified)
	s.resetAttempts(ctx, attemptSubject)

	user.IsVerified = true
	user.VerifyCodeHash = ""
	user.VerifyCodeExpiresAt = time.Time{}
	user.UpdatedAt = now

	if s.events != nil {
		event := domain.UserVerifiedEvent{
			EventID:    uuid.NewString(),
			UserID:     user.ID,
			Username:   user.Username,
			VerifiedAt: now,
		}
		if err := s.events.PublishUserVerified(ctx, event); err != nil {
			s.logger.Warn("publish user verified failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return user.Sanitized(), nil
}

// ResendCode issues a replacement code for a pending account and returns its expiry.
func (s *RegistrationService) ResendCode(ctx context.Context, username string) (time.Time, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return time.Time{}, invalidInput("username", "is required")
	}

	user, err := s.lookup(ctx, username)
	if err != nil {
		return time.Time{}, err
	}
	if user == nil || user.Username != username {
		return time.Time{}, ErrNotFound
	}
	if user.IsVerified {
		return time.Time{}, ErrAlreadyVerified
	}

	subject := resendCooldownScope + ":" + user.ID
	acquired := s.acquireCooldown(ctx, subject)
	if !acquired.ok {
		return time.Time{}, fmt.Errorf("%w: retry in %s", ErrResendTooSoon, acquired.retryAfter.Round(time.Second))
	}

	code, err := security.GenerateNumericCode(s.cfg.CodeLength)
	if err != nil {
		s.releaseCooldown(ctx, subject, acquired)
		return time.Time{}, fmt.Errorf("generate verification code: %w", err)
	}
	expiresAt := s.now().Add(s.cfg.CodeTTL)
	if err := s.users.UpdateVerificationCode(ctx, user.ID, security.HashToken(code), expiresAt); err != nil {
		s.releaseCooldown(ctx, subject, acquired)
		if errors.Is(err, repository.ErrNotFound) {
			return time.Time{}, ErrAlreadyVerified
		}
		return time.Time{}, storeError("update verification code", err)
	}

	user.VerifyCodeExpiresAt = expiresAt
	s.dispatchCode(ctx, *user, code)

	return expiresAt, nil
}

// CheckUsername reports whether username is well formed and not held by a verified account.
func (s *RegistrationService) CheckUsername(ctx context.Context, username string) (bool, error) {
	username, err := NormalizeUsername(username)
	if err != nil {
		return false, err
	}
	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return false, storeError("check username", err)
	}
	return !taken, nil
}

func (s *RegistrationService) lookup(ctx context.Context, identifier string) (*domain.User, error) {
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, storeError("lookup user", err)
	}
	return user, nil
}

type cooldownLease struct {
	ok         bool
	held       bool
	retryAfter time.Duration
}

func (s *RegistrationService) acquireCooldown(ctx context.Context, subject string) cooldownLease {
	if s.cooldown == nil {
		return cooldownLease{ok: true}
	}
	ok, remaining, err := s.cooldown.Acquire(ctx, subject, s.cfg.ResendCooldown)
	if err != nil {
		s.logger.Warn("resend cooldown acquire failed", zap.String("subject", subject), zap.Error(err))
		return cooldownLease{ok: true}
	}
	return cooldownLease{ok: ok, held: ok, retryAfter: remaining}
}

func (s *RegistrationService) releaseCooldown(ctx context.Context, subject string, lease cooldownLease) {
	if !lease.held {
		return
	}
	if err := s.cooldown.Release(ctx, subject); err != nil {
		s.logger.Warn("resend cooldown release failed", zap.String("subject", subject), zap.Error(err))
	}
}

// attemptsExhausted fails open when the counter is unreachable.
func (s *RegistrationService) attemptsExhausted(ctx context.Context, subject string) bool {
	if s.attempts == nil {
		return false
	}
	n, err := s.attempts.Count(ctx, subject)
	if err != nil {
		s.logger.Warn("verify attempt count failed", zap.String("subject", subject), zap.Error(err))
		return false
	}
	return n >= s.cfg.MaxVerifyAttempts
}

func (s *RegistrationService) recordFailedAttempt(ctx context.Context, subject string) {
	if s.attempts == nil {
		return
	}
	if _, err := s.attempts.Increment(ctx, subject, s.cfg.CodeTTL); err != nil {
		s.logger.Warn("verify attempt record failed", zap.String("subject", subject), zap.Error(err))
	}
}

func (s *RegistrationService) resetAttempts(ctx context.Context, subject string) {
	if s.attempts == nil {
		return
	}
	if err := s.attempts.Reset(ctx, subject); err != nil {
		s.logger.Warn("verify attempt reset failed", zap.String("subject", subject), zap.Error(err))
	}
}

func (s *RegistrationService) dispatchCode(ctx context.Context, user domain.User, code string) {
	if s.notifier == nil {
		return
	}
	notice := port.VerificationNotice{
		Username:  user.Username,
		Email:     user.Email,
		Code:      code,
		ExpiresAt: user.VerifyCodeExpiresAt,
	}
	if err := s.notifier.SendVerificationCode(ctx, notice); err != nil {
		s.logger.Warn("dispatch verification code failed",
			zap.String("user_id", user.ID),
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
	}
}

func (s *RegistrationService) publishRegistered(ctx context.Context, user domain.User, reclaimed bool) {
	if s.events == nil {
		return
	}
	event := domain.UserRegisteredEvent{
		EventID:      uuid.NewString(),
		UserID:       user.ID,
		Username:     user.Username,
		MaskedEmail:  logger.MaskEmail(user.Email),
		RegisteredAt: user.CreatedAt,
		CodeExpires:  user.VerifyCodeExpiresAt,
		Reclaimed:    reclaimed,
	}
	if err := s.events.PublishUserRegistered(ctx, event); err != nil {
		s.logger.Warn("publish user registered failed", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func (s *RegistrationService) recordRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RegistrationCompleted(outcome)
	}
}

func (s *RegistrationService) recordVerification(outcome string) {
	if s.metrics != nil {
		s.metrics.VerificationAttempted(outcome)
	}
}
