package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	c := New(true)
	defer c.Close()

	etag := c.Set("regression:1:2024", []byte(`{"ok":true}`), time.Minute)
	assert.Equal(t, ComputeETag([]byte(`{"ok":true}`)), etag)

	data, got, ok := c.Get("regression:1:2024")
	require.True(t, ok)
	assert.Equal(t, etag, got)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	_, _, ok = c.Get("missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
}

func TestExpiry(t *testing.T) {
	c := New(true)
	defer c.Close()

	c.Set("k", []byte("v"), -time.Second)
	_, _, ok := c.Get("k")
	assert.False(t, ok)

	c.evict()
	assert.Equal(t, 0, c.Stats()["total_keys"])
}

func TestDisabled(t *testing.T) {
	c := New(false)
	etag := c.Set("k", []byte("v"), time.Minute)
	assert.NotEmpty(t, etag)
	_, _, ok := c.Get("k")
	assert.False(t, ok)
	assert.False(t, c.Enabled())
}

func TestPurge(t *testing.T) {
	c := New(true)
	defer c.Close()

	c.Set("league:2024:top", []byte("a"), time.Minute)
	c.Set("league:2023:top", []byte("b"), time.Minute)
	c.Set("digest:2024", []byte("c"), time.Minute)

	assert.Equal(t, 1, c.PurgePrefix("league:2024:"))
	_, _, ok := c.Get("league:2023:top")
	assert.True(t, ok)

	assert.Equal(t, 2, c.Purge())
	_, _, ok = c.Get("digest:2024")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats()["purges"])
}

func TestCheckETagMatch(t *testing.T) {
	etag := ComputeETag([]byte("payload"))
	assert.True(t, CheckETagMatch(etag, etag))
	assert.True(t, CheckETagMatch("*", etag))
	assert.True(t, CheckETagMatch(`W/"abc", `+etag, etag))
	assert.False(t, CheckETagMatch("", etag))
	assert.False(t, CheckETagMatch(`W/"abc"`, etag))
}

func TestCloseIdempotent(t *testing.T) {
	c := New(true)
	c.Close()
	c.Close()
}

func TestDigestKeySurvivesPrefixPurge(t *testing.T) {
	c := New(true)
	defer c.Close()

	c.Set(DigestKey(2024), []byte(`{}`), TTLDigest)
	c.Set("player:1:regression:2024", []byte(`{}`), TTLPlayer)

	assert.Equal(t, 1, c.PurgePrefix("player:"))
	_, _, ok := c.Get("digest:2024")
	assert.True(t, ok)
}
