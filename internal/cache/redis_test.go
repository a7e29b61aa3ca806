package cache

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.DiscardHandler)

	return NewClientFromRedis(rdb, logger), mr
}

func TestGet_MissingKey(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Get(context.Background(), "otp:login:nobody@example.com")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSetIfAbsent_FirstWriteWins(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	ok, err := client.SetIfAbsent(ctx, "otp:login:a@example.com", "12345", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second write must be refused while the first value is live
	ok, err = client.SetIfAbsent(ctx, "otp:login:a@example.com", "99999", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	val, err := client.Get(ctx, "otp:login:a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "12345", val)
}

func TestSetIfAbsent_AllowedAfterExpiry(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := client.SetIfAbsent(ctx, "otp:reset:a@example.com", "111111", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = client.SetIfAbsent(ctx, "otp:reset:a@example.com", "222222", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetDel_ConsumesValue(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.SetIfAbsent(ctx, "otp:register:b@example.com", "54321", time.Minute)
	require.NoError(t, err)

	val, err := client.GetDel(ctx, "otp:register:b@example.com")
	require.NoError(t, err)
	assert.Equal(t, "54321", val)

	// Consumed; a second read misses
	_, err = client.GetDel(ctx, "otp:register:b@example.com")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGet_ExpiredKeyIsMiss(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	_, err := client.SetIfAbsent(ctx, "otp:confirm:user-1", "000042", time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = client.Get(ctx, "otp:confirm:user-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.SetIfAbsent(ctx, "otp:login:c@example.com", "77777", time.Minute)
	require.NoError(t, err)

	require.NoError(t, client.Delete(ctx, "otp:login:c@example.com"))

	_, err = client.Get(ctx, "otp:login:c@example.com")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
