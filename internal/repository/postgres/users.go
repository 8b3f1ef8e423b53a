package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/core/port"
	"github.com/arklim/anon-inbox/internal/repository"
)

const usersTable = "inbox.users"

var userColumns = []string{
	"id",
	"username",
	"email",
	"password_hash",
	"password_algo",
	"verify_code_hash",
	"verify_code_expires_at",
	"is_verified",
	"is_accepting_messages",
	"created_at",
	"updated_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Insert(usersTable).
		Columns(userColumns...).
		Values(
			user.ID,
			user.Username,
			strings.ToLower(user.Email),
			user.PasswordHash,
			user.PasswordAlgo,
			nullableString(user.VerifyCodeHash),
			nullableTime(user.VerifyCodeExpiresAt),
			user.IsVerified,
			user.IsAcceptingMessages,
			user.CreatedAt,
			user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return classifyWriteError("insert user", err)
	}

	return nil
}

// GetByID retrieves a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From(usersTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByIdentifier retrieves a user by username or email.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From(usersTable).
		Where(squirrel.Or{
			squirrel.Eq{"username": identifier},
			squirrel.Eq{"email": strings.ToLower(identifier)},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by identifier sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// ReplaceUnverified overwrites a never-verified account in place, keeping its primary key.
// The guard on is_verified makes a concurrent verification win over the overwrite.
func (r *UserRepository) ReplaceUnverified(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Update(usersTable).
		Set("username", user.Username).
		Set("email", strings.ToLower(user.Email)).
		Set("password_hash", user.PasswordHash).
		Set("password_algo", user.PasswordAlgo).
		Set("verify_code_hash", nullableString(user.VerifyCodeHash)).
		Set("verify_code_expires_at", nullableTime(user.VerifyCodeExpiresAt)).
		Set("is_accepting_messages", user.IsAcceptingMessages).
		Set("created_at", user.CreatedAt).
		Set("updated_at", user.UpdatedAt).
		Where(squirrel.Eq{"id": user.ID, "is_verified": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build replace user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return classifyWriteError("replace user", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateVerificationCode stores a freshly issued code hash and expiry for an unverified user.
func (r *UserRepository) UpdateVerificationCode(ctx context.Context, id string, codeHash string, expiresAt time.Time) error {
	stmt, args, err := r.builder.Update(usersTable).
		Set("verify_code_hash", codeHash).
		Set("verify_code_expires_at", expiresAt).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "is_verified": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update verification code sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update verification code: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// MarkVerified flips the verified flag and clears the outstanding code.
func (r *UserRepository) MarkVerified(ctx context.Context, id string, verifiedAt time.Time) error {
	stmt, args, err := r.builder.Update(usersTable).
		Set("is_verified", true).
		Set("verify_code_hash", nil).
		Set("verify_code_expires_at", nil).
		Set("updated_at", verifiedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark verified sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetAcceptingMessages persists the acceptance flag and returns the stored value.
func (r *UserRepository) SetAcceptingMessages(ctx context.Context, id string, accepting bool) (bool, error) {
	stmt, args, err := r.builder.Update(usersTable).
		Set("is_accepting_messages", accepting).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING is_accepting_messages").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build update acceptance sql: %w", err)
	}

	var stored bool
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&stored); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, repository.ErrNotFound
		}
		return false, fmt.Errorf("update acceptance: %w", err)
	}

	return stored, nil
}

// UsernameTaken reports whether a verified account already holds the username.
func (r *UserRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	stmt, args, err := r.builder.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(usersTable).
		Where(squirrel.Eq{"username": username, "is_verified": true}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build username exists sql: %w", err)
	}

	var exists bool
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("query username exists: %w", err)
	}

	return exists, nil
}

func (r *UserRepository) scanOne(row pgx.Row) (*domain.User, error) {
	var (
		user      domain.User
		codeHash  sql.NullString
		codeUntil sql.NullTime
	)

	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.PasswordAlgo,
		&codeHash,
		&codeUntil,
		&user.IsVerified,
		&user.IsAcceptingMessages,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if codeHash.Valid {
		user.VerifyCodeHash = codeHash.String
	}
	if codeUntil.Valid {
		user.VerifyCodeExpiresAt = codeUntil.Time.UTC()
	}

	return &user, nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableTime(v time.Time) any {
	if v.IsZero() {
		return nil
	}
	return v
}

var _ port.UserRepository = (*UserRepository)(nil)
