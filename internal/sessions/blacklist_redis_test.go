package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisBlacklist_AddContains(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	bl := NewRedisBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	ctx := context.Background()
	token := "access-token-1"
	require.NoError(t, bl.Add(ctx, token, 2*time.Second))

	ok, err := bl.Contains(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, m.Exists("blacklist:access:"+token))

	// advance past TTL
	m.FastForward(3 * time.Second)

	ok2, err := bl.Contains(ctx, token)
	require.NoError(t, err)
	require.False(t, ok2)
}

func TestRedisBlacklist_NilIsNoop(t *testing.T) {
	bl := NewRedisBlacklist(nil)
	ctx := context.Background()
	require.NoError(t, bl.Add(ctx, "t", time.Second))
	ok, err := bl.Contains(ctx, "t")
	require.NoError(t, err)
	require.False(t, ok)
}
