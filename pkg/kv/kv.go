// Package kv is the on-device key-value layer the diary persists into.
package kv

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Store is a string key-value store with prefix enumeration.
type Store interface {
	// Get returns ErrKeyNotFound when key has no value.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Keys lists keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Remove deletes keys, ignoring ones that do not exist, and reports how many were removed.
	Remove(ctx context.Context, keys ...string) (int, error)
}
