package cacheentries

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/memoria/internal/client/cache"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "memoria:cache:"

// ErrMalformedRecord is shared with the cache so it can drop bad records.
var ErrMalformedRecord = cache.ErrMalformedRecord

var _ cache.Store = (*RedisStore)(nil)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps each record in a hash under prefix+key with a PEXPIRE
// matching the record TTL, so Redis drops stale entries on its own.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// DialRedis connects and pings the server before returning.
func DialRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) Load(ctx context.Context, key string) (cache.Record, bool, error) {
	m, err := s.rdb.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return cache.Record{}, false, fmt.Errorf("failed to load cache entry[%s]: %w", key, err)
	}
	if len(m) == 0 {
		return cache.Record{}, false, nil
	}

	rec, err := decodeHash(m)
	if err != nil {
		return cache.Record{}, false, fmt.Errorf("cache entry[%s]: %w", key, err)
	}
	return rec, true, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, rec cache.Record) error {
	k := s.key(key)

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, k)
	pipe.HSet(ctx, k,
		"value", rec.Value,
		"stored_at_ms", strconv.FormatInt(rec.StoredAt.UnixMilli(), 10),
		"ttl_ms", strconv.FormatInt(rec.TTL.Milliseconds(), 10),
	)
	pipe.PExpire(ctx, k, rec.TTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save cache entry[%s]: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry[%s]: %w", key, err)
	}
	return nil
}

// DeleteExpired scans the prefix and removes records that are stale at now
// but have not yet been expired by the server, which happens when the
// caller's clock runs ahead of Redis. Malformed records are removed too.
func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	var removed []string

	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		m, err := s.rdb.HGetAll(ctx, full).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to read cache entry %s: %w", full, err)
		}
		if len(m) == 0 {
			continue
		}
		if rec, err := decodeHash(m); err == nil && rec.Fresh(now) {
			continue
		}
		if err := s.rdb.Del(ctx, full).Err(); err != nil {
			return removed, fmt.Errorf("failed to delete cache entry %s: %w", full, err)
		}
		removed = append(removed, strings.TrimPrefix(full, s.prefix))
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan cache entries: %w", err)
	}
	return removed, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func decodeHash(m map[string]string) (cache.Record, error) {
	value, ok := m["value"]
	if !ok {
		return cache.Record{}, ErrMalformedRecord
	}
	storedAt, err := strconv.ParseInt(m["stored_at_ms"], 10, 64)
	if err != nil {
		return cache.Record{}, fmt.Errorf("%w: stored_at_ms: %v", ErrMalformedRecord, err)
	}
	ttl, err := strconv.ParseInt(m["ttl_ms"], 10, 64)
	if err != nil {
		return cache.Record{}, fmt.Errorf("%w: ttl_ms: %v", ErrMalformedRecord, err)
	}
	return cache.Record{
		Value:    []byte(value),
		StoredAt: time.UnixMilli(storedAt),
		TTL:      time.Duration(ttl) * time.Millisecond,
	}, nil
}
