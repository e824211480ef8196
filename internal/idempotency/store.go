package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-publishing/internal/identity"
)

// DefaultWindow is how long a stored result is replayed for.
const DefaultWindow = 5 * time.Second

// ErrKeyRequired indicates an empty idempotency key.
var ErrKeyRequired = errors.New("idempotency: key is required")

// Store keeps encoded results for a bounded window.
type Store interface {
	// Get returns the stored value and true when the key is still inside its window.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key namespaces a caller supplied idempotency key so that arbitrary client
// strings map onto fixed-length store keys.
func Key(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrKeyRequired
	}
	return identity.IdempotencyUUID(trimmed).String(), nil
}
