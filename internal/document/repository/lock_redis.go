package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
	"github.com/lexsite/lexsite/backend/go-services/pkg/retry"
	"github.com/redis/go-redis/v9"
)

// releaseLock deletes the lock only if it still holds our token.
var releaseLock = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// extendLock resets the TTL only while the lock still holds our token.
var extendLock = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)

// RedisLocker is a Locker shared by every replica: SET NX PX with a random token.
// The TTL bounds how long a crashed writer can block the collection; a live
// holder refreshes it every ttl/3 until it unlocks.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
}

func NewRedisLocker(client *redis.Client, prefix string, ttl, wait time.Duration) *RedisLocker {
	if prefix == "" {
		prefix = "lock:collection:"
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, wait: wait, poll: 25 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return l.hold(k, token), nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		if err := retry.Sleep(ctx, l.poll); err != nil {
			return nil, err
		}
	}
}

// hold keeps k alive while the caller works and returns the release func.
func (l *RedisLocker) hold(k, token string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(l.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				n, err := extendLock.Run(context.Background(), l.client, []string{k}, token, l.ttl.Milliseconds()).Int()
				if err != nil {
					logger.Warnf("refresh lock %s: %v", k, err)
					continue
				}
				if n == 0 {
					logger.Warnf("lock %s lost before release", k)
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), l.wait)
			defer cancel()
			n, err := releaseLock.Run(ctx, l.client, []string{k}, token).Int()
			switch {
			case err != nil:
				logger.Warnf("release lock %s: %v", k, err)
			case n == 0:
				logger.Warnf("lock %s expired before release", k)
			}
		})
	}
}
