package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryTokenCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	cache := NewMemoryTokenCache()
	cache.now = func() time.Time { return now }

	_, ok := cache.Get(ctx)
	assert.False(t, ok, "empty cache should miss")

	cache.Set(ctx, "tok", time.Minute)
	token, ok := cache.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, "tok", token)

	now = now.Add(time.Minute)
	_, ok = cache.Get(ctx)
	assert.False(t, ok, "token should expire at its ttl")

	cache.Set(ctx, "tok-2", time.Hour)
	cache.Invalidate(ctx)
	_, ok = cache.Get(ctx)
	assert.False(t, ok)
}
