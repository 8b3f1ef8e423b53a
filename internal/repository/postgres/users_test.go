package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/repository"
)

var userRowColumns = []string{
	"id", "username", "email", "password_hash", "password_algo", "verify_code_hash", "verify_code_expires_at", "is_verified", "is_accepting_messages", "created_at", "updated_at",
}

func TestUserRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	now := time.Now().UTC()
	user := domain.User{
		ID:                  "user-1",
		Username:            "alice",
		Email:               "Alice@Example.com",
		PasswordHash:        "hash",
		PasswordAlgo:        "argon2id",
		VerifyCodeHash:      "code-hash",
		VerifyCodeExpiresAt: now.Add(time.Hour),
		IsAcceptingMessages: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	mock.ExpectExec(`INSERT INTO inbox\.users`).
		WithArgs(
			user.ID,
			user.Username,
			"alice@example.com",
			user.PasswordHash,
			user.PasswordAlgo,
			user.VerifyCodeHash,
			user.VerifyCodeExpiresAt,
			false,
			true,
			now,
			now,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	anyArgs := make([]any, len(userRowColumns))
	for i := range anyArgs {
		anyArgs[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec(`INSERT INTO inbox\.users`).
		WithArgs(anyArgs...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	err = repo.Create(context.Background(), domain.User{ID: "user-1", Username: "alice", Email: "a@example.com"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	var constraintErr *ConstraintError
	if !errors.As(err, &constraintErr) || constraintErr.Constraint != "users_username_key" {
		t.Fatalf("expected constraint name to be preserved, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GetByIdentifier(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	now := time.Now().UTC()
	rows := pgxmock.NewRows(userRowColumns).AddRow(
		"user-1", "alice", "alice@example.com", "hash", "argon2id", "code-hash", now.Add(time.Hour), false, true, now, now,
	)

	mock.ExpectQuery(`SELECT .*FROM inbox\.users WHERE \(username = \$1 OR email = \$2\) LIMIT 1`).
		WithArgs("Alice@Example.com", "alice@example.com").
		WillReturnRows(rows)

	user, err := repo.GetByIdentifier(context.Background(), "Alice@Example.com")
	if err != nil {
		t.Fatalf("GetByIdentifier returned error: %v", err)
	}
	if user.ID != "user-1" || user.Username != "alice" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.VerifyCodeHash != "code-hash" {
		t.Fatalf("expected verification code hash to be populated")
	}
	if user.VerifyCodeExpiresAt.IsZero() {
		t.Fatalf("expected verification expiry to be populated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM inbox\.users`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(userRowColumns))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_ReplaceUnverifiedGuardsVerifiedRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	now := time.Now().UTC()
	user := domain.User{
		ID:                  "user-1",
		Username:            "alice",
		Email:               "alice@example.com",
		PasswordHash:        "hash",
		PasswordAlgo:        "argon2id",
		VerifyCodeHash:      "code-hash",
		VerifyCodeExpiresAt: now.Add(time.Hour),
		IsAcceptingMessages: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	mock.ExpectExec(`UPDATE inbox\.users SET .* WHERE id = \$10 AND is_verified = \$11`).
		WithArgs(
			user.Username, user.Email, user.PasswordHash, user.PasswordAlgo,
			user.VerifyCodeHash, user.VerifyCodeExpiresAt, true, now, now,
			user.ID, false,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.ReplaceUnverified(context.Background(), user); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound when the row was verified meanwhile, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_MarkVerified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE inbox\.users SET is_verified = \$1`).
		WithArgs(true, nil, nil, now, "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.MarkVerified(context.Background(), "user-1", now); err != nil {
		t.Fatalf("MarkVerified returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_SetAcceptingMessages(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery(`UPDATE inbox\.users SET is_accepting_messages = \$1, updated_at = now\(\) WHERE id = \$2 RETURNING is_accepting_messages`).
		WithArgs(false, "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"is_accepting_messages"}).AddRow(false))

	stored, err := repo.SetAcceptingMessages(context.Background(), "user-1", false)
	if err != nil {
		t.Fatalf("SetAcceptingMessages returned error: %v", err)
	}
	if stored {
		t.Fatalf("expected stored flag to be false")
	}

	mock.ExpectQuery(`UPDATE inbox\.users`).
		WithArgs(true, "ghost").
		WillReturnRows(pgxmock.NewRows([]string{"is_accepting_messages"}))

	if _, err := repo.SetAcceptingMessages(context.Background(), "ghost", true); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_UsernameTaken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery(`SELECT EXISTS \( SELECT 1 FROM inbox\.users WHERE is_verified = \$1 AND username = \$2 \)`).
		WithArgs(true, "alice").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.UsernameTaken(context.Background(), "alice")
	if err != nil {
		t.Fatalf("UsernameTaken returned error: %v", err)
	}
	if !taken {
		t.Fatalf("expected username to be reported as taken")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
