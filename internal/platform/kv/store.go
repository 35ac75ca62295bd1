// Package kv holds the per-browser key/value storage that backs sessions.
// Each browser session owns a small set of string keys.
package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key was never set, was deleted or expired
var ErrKeyNotFound = errors.New("key not found")

// Store is a string key/value store partitioned by session id
type Store interface {
	Get(ctx context.Context, sessionID, key string) (string, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID string, keys ...string) error
}
