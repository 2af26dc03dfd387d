// Package metadata stores small client-side settings, such as the session
// token, in the local database.
package metadata

import (
	"context"
	"time"
)

// Entry is a stored setting together with the time it was last written.
type Entry struct {
	Value     []byte
	UpdatedAt time.Time
}

// Repository is a byte-valued key/value table. Get returns (nil, nil) for a
// missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Lookup(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
