package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMalformedRecord is returned by a Store whose persisted record cannot be
// decoded. The cache deletes such records on read.
var ErrMalformedRecord = errors.New("malformed cache record")

// Record is the persisted form of a cache entry. Value holds the JSON
// encoding of the cached value.
type Record struct {
	Value    []byte
	StoredAt time.Time
	TTL      time.Duration
}

// Fresh reports whether the record may still be served at now.
func (r Record) Fresh(now time.Time) bool {
	return r.TTL > 0 && now.Sub(r.StoredAt) <= r.TTL
}

// Store persists cache records across process restarts.
//
// Load returns ok=false and a nil error when the key is missing, and an error
// wrapping ErrMalformedRecord when the record cannot be decoded. DeleteExpired
// removes every record that is no longer fresh at now and returns the removed
// keys.
type Store interface {
	Load(ctx context.Context, key string) (rec Record, ok bool, err error)
	Save(ctx context.Context, key string, rec Record) error
	Delete(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}
