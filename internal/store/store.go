package store

import (
	"context"
	"errors"
)

var ErrEmptyUserID = errors.New("store: user id is required")

// Record is one user's value for a key, as returned by ListKey.
type Record struct {
	UserID string
	Value  []byte
}

// Store is a per-user key/value persistence provider. Reads and writes are
// synchronous; values are opaque JSON documents owned by the caller.
type Store interface {
	ReadKey(ctx context.Context, userID string, name string) ([]byte, bool, error)
	WriteKey(ctx context.Context, userID string, name string, value []byte) error
	ListKey(ctx context.Context, name string) ([]Record, error)
}
