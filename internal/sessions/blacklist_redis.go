package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBlacklist holds revoked access tokens until they would have expired.
// Tokens are keyed by their hash. A nil *RedisBlacklist is a no-op.
type RedisBlacklist struct {
	client *redis.Client
	prefix string
}

func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	if client == nil {
		return nil
	}
	return &RedisBlacklist{client: client, prefix: "blacklist:access:"}
}

// Add blacklists token for ttl.
func (b *RedisBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if b == nil || ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, b.prefix+HashToken(token), "1", ttl).Err()
}

// Contains implements middleware.Blacklist
func (b *RedisBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	if b == nil {
		return false, nil
	}
	exists, err := b.client.Exists(ctx, b.prefix+HashToken(token)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
