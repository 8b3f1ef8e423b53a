package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a unique constraint rejected the write.
	ErrDuplicate = errors.New("repository: duplicate key")
	// ErrNotAccepting indicates the target inbox refused the append.
	ErrNotAccepting = errors.New("repository: inbox not accepting messages")
)
