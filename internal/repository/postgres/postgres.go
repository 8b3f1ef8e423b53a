package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arklim/anon-inbox/internal/repository"
)

const uniqueViolation = "23505"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ConstraintError reports which unique constraint rejected a write.
type ConstraintError struct {
	Constraint string
	err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %s: %v", e.Constraint, e.err)
}

func (e *ConstraintError) Unwrap() error {
	return repository.ErrDuplicate
}

// classifyWriteError converts unique violations into repository.ErrDuplicate (wrapped in ConstraintError).
func classifyWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &ConstraintError{Constraint: pgErr.ConstraintName, err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
