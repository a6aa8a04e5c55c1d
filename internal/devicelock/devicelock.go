// FilePath: internal/devicelock/devicelock.go

// Package devicelock serializes the hot paths per device: two concurrent
// wakes (or a wake racing a tracking match) for the same device must not
// race on session counters or the most-recent-prior-image lookup. The hub
// may run multiple replicas, so the production locker lives in Redis; the
// local locker covers single-process deployments and tests.
package devicelock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brainlytree/hub/internal/config"
	"github.com/brainlytree/hub/internal/errors"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

// Locker hands out exclusive per-key locks. Acquire blocks until the lock
// is held or ctx expires; the returned func releases it.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

const (
	lockKeyPrefix = "hub:devicelock:"
	lockTTL       = 10 * time.Second
	retryInterval = 25 * time.Millisecond
)

// Lua compare-and-delete so a slow holder cannot release a lock that has
// expired and been re-acquired by someone else.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker implements Locker on a shared Redis instance using
// SET NX PX with a per-holder token.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker connects to Redis and verifies the connection.
func NewRedisLocker(cfg config.RedisConfig) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.NewUnavailableError("failed to connect to redis", err)
	}

	nuts.L.Infof("[DeviceLock] Connected to redis at %s:%d", cfg.Host, cfg.Port)
	return &RedisLocker{client: client}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := lockKeyPrefix + key
	token := nuts.NID("lck", 12)

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, lockTTL).Result()
		if err != nil {
			return nil, errors.NewUnavailableError("failed to acquire device lock", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.NewUnavailableError("timed out waiting for device lock", ctx.Err())
		case <-time.After(retryInterval):
		}
	}

	release := func() {
		// Release is best effort; the TTL bounds the damage if it fails.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.client.Eval(releaseCtx, releaseScript, []string{fullKey}, token).Err(); err != nil {
			nuts.L.Warnf("[DeviceLock] Failed to release lock %s: %v", key, err)
		}
	}
	return release, nil
}

// Close releases the underlying Redis connection.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

// LocalLocker implements Locker with in-process keyed semaphores. Waiters
// honor ctx cancellation the same way the Redis locker does.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{})}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, errors.NewUnavailableError("timed out waiting for device lock", ctx.Err())
	}
}
