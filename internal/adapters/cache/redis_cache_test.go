package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/core"
)

// mockRedis keeps values in a map; only the commands RedisCache issues are implemented
type mockRedis struct {
	redis.UniversalClient
	lookup map[string]string
	ttls   map[string]time.Duration
	err    error
	closed bool
}

func newMockRedis() *mockRedis {
	return &mockRedis{lookup: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *mockRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.lookup[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if m.err != nil {
		return redis.NewStatusResult("", m.err)
	}
	m.lookup[key] = string(value.([]byte))
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.lookup[k]; ok {
			delete(m.lookup, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *mockRedis) Close() error {
	m.closed = true
	return nil
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()
	c := NewRedisCacheFromClient(client, zap.NewNop())

	now := time.Now().UTC().Truncate(time.Second)
	entry := &core.CacheEntry{
		Key:       "abc",
		Verdict:   core.GenerativeVerdict{Prediction: core.LabelSpam, Reason: "bait", SpamWords: []string{"win"}},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, c.Set(ctx, entry))

	require.Contains(t, client.lookup, redisKeyPrefix+"abc")
	ttl := client.ttls[redisKeyPrefix+"abc"]
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	got, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Key)
	assert.Equal(t, entry.Verdict, got.Verdict)
	assert.True(t, entry.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, c.Delete(ctx, "abc"))
	_, err = c.Get(ctx, "abc")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, c.Cleanup(ctx))
	require.NoError(t, c.Close())
	assert.True(t, client.closed)
}

func TestRedisCacheSkipsExpiredEntries(t *testing.T) {
	client := newMockRedis()
	c := NewRedisCacheFromClient(client, zap.NewNop())

	err := c.Set(context.Background(), &core.CacheEntry{Key: "old", ExpiresAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	assert.Empty(t, client.lookup)
}

func TestRedisCacheErrors(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()
	c := NewRedisCacheFromClient(client, zap.NewNop())

	client.lookup[redisKeyPrefix+"bad"] = "{not json"
	_, err := c.Get(ctx, "bad")
	assert.ErrorContains(t, err, "decode")

	client.err = errors.New("connection refused")
	_, err = c.Get(ctx, "abc")
	assert.ErrorContains(t, err, "failed to read Redis cache")
	assert.NotErrorIs(t, err, core.ErrNotFound)

	err = c.Set(ctx, &core.CacheEntry{Key: "abc", ExpiresAt: time.Now().Add(time.Hour)})
	assert.ErrorContains(t, err, "failed to write Redis cache")
}
