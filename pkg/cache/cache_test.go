package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/Ebang213/pharmaforge/pkg/cache"
	"github.com/stretchr/testify/assert"
)

func TestKey_MatchesCanonicalFormat(t *testing.T) {
	assert.Equal(t, "watchtower:cache:fda_recalls", cache.Key("fda_recalls"))
}

func TestMemoryCache_SetThenGet(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()
	c.SetEx(ctx, "k", []byte("v"), time.Minute)
	val, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}

func TestMemoryCache_MissNeverErrors(t *testing.T) {
	c := cache.NewMemoryCache()
	val, ok := c.Get(context.Background(), "missing")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestFailingCache_AlwaysDegradesSilently(t *testing.T) {
	var c cache.Cache = cache.FailingCache{}
	ctx := context.Background()
	c.SetEx(ctx, "k", []byte("v"), time.Second)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}
