package repository

import "context"

// SessionStore is the per-sender key-value storage consumed by the curator.
type SessionStore interface {
	Get(ctx context.Context, sender, key string) (string, bool, error)
	Set(ctx context.Context, sender, key, value string) error
	Keys(ctx context.Context, sender string) ([]string, error)
}

var (
	_ SessionStore = (*Client)(nil)
	_ SessionStore = (*MemoryStore)(nil)
)
