package otp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "otp"

	// attemptTTL keeps day-scoped counters around long enough to cover the
	// whole calendar day plus clock skew; the date in the key does the real
	// windowing.
	attemptTTL = 48 * time.Hour

	// codeRetention pads the cache TTL past the logical expiry so
	// verification observes CodeExpired rather than a silent miss right at
	// the boundary.
	codeRetention = time.Hour
)

// Cache stores one-time codes and send counters in Redis. Codes live under
// one key per (account, purpose) — a new code overwrites the previous one —
// and counters are plain INCR values with a fixed-window TTL.
type Cache struct {
	redis  redis.UniversalClient
	prefix string
}

// NewCache creates a Cache on the given Redis client.
func NewCache(client redis.UniversalClient, prefix string) *Cache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Cache{redis: client, prefix: prefix}
}

func (c *Cache) key(k fmt.Stringer) string {
	return c.prefix + ":" + k.String()
}

// SaveCode stores the record, superseding any live code for the same key.
func (c *Cache) SaveCode(ctx context.Context, key CodeKey, rec Record) error {
	val := rec.Code + "|" + strconv.FormatInt(rec.ExpiresAt.Unix(), 10)
	ttl := time.Until(rec.ExpiresAt) + codeRetention
	if ttl <= 0 {
		ttl = codeRetention
	}
	if err := c.redis.Set(ctx, c.key(key), val, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetCode loads the live record for the key, or ErrCodeNotFound.
func (c *Cache) GetCode(ctx context.Context, key CodeKey) (Record, error) {
	val, err := c.redis.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrCodeNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	code, rawExp, ok := strings.Cut(val, "|")
	if !ok {
		return Record{}, ErrCodeNotFound
	}
	exp, err := strconv.ParseInt(rawExp, 10, 64)
	if err != nil {
		return Record{}, ErrCodeNotFound
	}
	return Record{Code: code, ExpiresAt: time.Unix(exp, 0)}, nil
}

// DeleteCode removes the record. Deleting an absent key is not an error.
func (c *Cache) DeleteCode(ctx context.Context, key CodeKey) error {
	if err := c.redis.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IncrementAttempts bumps the day counter and returns the new value.
// Fixed-window semantics: the TTL is set only on the first hit.
func (c *Cache) IncrementAttempts(ctx context.Context, key AttemptKey) (int, error) {
	count, err := c.redis.Incr(ctx, c.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := c.redis.Expire(ctx, c.key(key), attemptTTL).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return int(count), nil
}

// Attempts returns the current day counter; missing keys read as zero.
func (c *Cache) Attempts(ctx context.Context, key AttemptKey) (int, error) {
	count, err := c.redis.Get(ctx, c.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// ResetAttempts clears the day counter. A successful verification wipes the
// account's rate-limit history.
func (c *Cache) ResetAttempts(ctx context.Context, key AttemptKey) error {
	if err := c.redis.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
