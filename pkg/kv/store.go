// Package kv provides the durable key/value storage that cart snapshots are
// persisted to. It plays the role browser local storage plays for a client-side
// storefront: one opaque string value per key, no schema, no versioning.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no live value exists for the key.
var ErrNotFound = errors.New("kv: key not found")

// Store is the minimal surface the cart store persists through.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
