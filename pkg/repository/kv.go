package repository

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get for keys that were never written or
// have been deleted.
var ErrKeyNotFound = errors.New("key not found")

// KeyValue is the string-keyed persistence substrate shared by the cart
// payload, the order history, and the last order. Values are opaque text
// payloads; callers own the encoding.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error
}
