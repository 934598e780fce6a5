package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventpass/internal/status"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Locker hands out a named lock shared across server instances.
type Locker interface {
	Lock(ctx context.Context, name string) (unlock func(), err error)
}

type RedisLocker struct {
	rs  *redsync.Redsync
	ttl time.Duration
}

func NewRedisLocker(redisClient *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		rs:  redsync.New(goredis.NewPool(redisClient)),
		ttl: ttl,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, name string) (func(), error) {
	mutex := l.rs.NewMutex("lock:"+name,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", status.ErrReminderRunning, err)
	}

	return func() {
		if _, err := mutex.UnlockContext(context.Background()); err != nil {
			slog.Warn("Failed to release lock", "name", name, "error", err)
		}
	}, nil
}
