package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Locker hands out short-lived Redis locks. Locks are best-effort: when Redis
// is unreachable or the lock is held past the wait budget the caller proceeds
// unlocked and relies on the database transaction for correctness.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func New(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *Locker {
	if rdb == nil {
		return nil
	}
	return &Locker{client: redislock.New(rdb), ttl: ttl, log: log}
}

// Connect dials Redis and verifies the connection with a ping.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, PoolSize: 20})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// Acquire waits up to the lock TTL for key and returns its release func.
// A nil Locker returns a no-op release.
func (l *Locker) Acquire(ctx context.Context, key string) func() {
	if l == nil || l.client == nil {
		return func() {}
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	held, err := l.client.Obtain(waitCtx, "lock:"+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(25 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		l.log.Warn().Str("key", key).Msg("could not obtain redis lock; proceeding without redis lock")
		return func() {}
	}
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("error obtaining redis lock; proceeding without redis lock")
		return func() {}
	}

	return func() {
		if err := held.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn().Err(err).Str("key", key).Msg("redis lock release failed")
		}
	}
}
