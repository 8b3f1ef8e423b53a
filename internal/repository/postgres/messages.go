package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/core/port"
	"github.com/arklim/anon-inbox/internal/repository"
)

const messagesTable = "inbox.messages"

// appendMessageSQL inserts only while the recipient accepts messages, so a
// concurrent opt-out can never be overtaken by a send that read a stale flag.
const appendMessageSQL = `INSERT INTO inbox.messages (id, user_id, content, created_at)
SELECT $1, u.id, $2, $3
FROM inbox.users u
WHERE u.id = $4 AND u.is_verified AND u.is_accepting_messages`

// MessageRepository implements port.MessageRepository using PostgreSQL.
type MessageRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewMessageRepository wires a PostgreSQL-backed message repository.
func NewMessageRepository(exec pgExecutor) *MessageRepository {
	return &MessageRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Append stores one message in the recipient inbox. Each message is its own
// row, so concurrent appends to the same inbox never overwrite each other.
func (r *MessageRepository) Append(ctx context.Context, msg domain.Message) error {
	ct, err := r.exec.Exec(ctx, appendMessageSQL, msg.ID, msg.Content, msg.CreatedAt, msg.UserID)
	if err != nil {
		return classifyWriteError("append message", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotAccepting
	}
	return nil
}

// ListByUser returns the inbox of a user, newest first. Messages stamped with
// the same instant come back in reverse insertion order.
func (r *MessageRepository) ListByUser(ctx context.Context, userID string) ([]domain.Message, error) {
	stmt, args, err := r.builder.
		Select("id", "user_id", "content", "created_at").
		From(messagesTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "seq DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list messages sql: %w", err)
	}

	var messages []domain.Message
	if err := pgxscan.Select(ctx, r.exec, &messages, stmt, args...); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for i := range messages {
		messages[i].CreatedAt = messages[i].CreatedAt.UTC()
	}

	return messages, nil
}

// DeleteOwned removes a message only when it belongs to userID.
func (r *MessageRepository) DeleteOwned(ctx context.Context, userID, messageID string) error {
	stmt, args, err := r.builder.
		Delete(messagesTable).
		Where(squirrel.Eq{"id": messageID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete message sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// CountSince counts inbox messages created at or after since.
func (r *MessageRepository) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	query := r.builder.
		Select("count(*)").
		From(messagesTable).
		Where(squirrel.Eq{"user_id": userID})
	if !since.IsZero() {
		query = query.Where(squirrel.GtOrEq{"created_at": since})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count messages sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("count messages: %w", err)
	}

	return count, nil
}

var _ port.MessageRepository = (*MessageRepository)(nil)
