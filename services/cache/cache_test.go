package cache

import (
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211")

	_, err := mc.client.Get("ping")
	if err != nil && err != memcache.ErrCacheMiss {
		t.Skip("Memcached is not available, skipping test")
	}

	err = mc.Set("block_test", []byte("1"), 1*time.Minute)
	assert.NoError(t, err)

	// The entry lives under the application namespace; the bare key is
	// not visible.
	item, err := mc.client.Get(keyPrefix + "block_test")
	require.NoError(t, err)
	assert.Equal(t, "1", string(item.Value))
	_, err = mc.client.Get("block_test")
	assert.Equal(t, memcache.ErrCacheMiss, err)

	value, err := mc.Get("block_test")
	assert.NoError(t, err)
	assert.Equal(t, "1", string(value))

	err = mc.Delete("block_test")
	assert.NoError(t, err)

	_, err = mc.Get("block_test")
	assert.Equal(t, ErrCacheMiss, err)

	err = mc.Delete("block_test")
	assert.Equal(t, ErrCacheMiss, err)
}

func TestExpirationSeconds(t *testing.T) {
	assert.Equal(t, int32(0), expirationSeconds(0))
	assert.Equal(t, int32(90), expirationSeconds(90*time.Second))
	// A sub-second block must still expire, never persist forever.
	assert.Equal(t, int32(1), expirationSeconds(500*time.Millisecond))
	// Beyond 30 days memcached reads the value as a unix timestamp.
	assert.Equal(t, int32((30*24*time.Hour)/time.Second), expirationSeconds(60*24*time.Hour))
}

func TestMemoryService(t *testing.T) {
	m := NewMemoryService()

	_, err := m.Get("absent")
	assert.Equal(t, ErrCacheMiss, err)

	require.NoError(t, m.Set("block", []byte("1"), 0))
	value, err := m.Get("block")
	assert.NoError(t, err)
	assert.Equal(t, "1", string(value))

	require.NoError(t, m.Delete("block"))
	_, err = m.Get("block")
	assert.Equal(t, ErrCacheMiss, err)
}

func TestMemoryServiceExpiry(t *testing.T) {
	m := NewMemoryService()
	require.NoError(t, m.Set("block", []byte("1"), 10*time.Millisecond))

	_, err := m.Get("block")
	assert.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = m.Get("block")
	assert.Equal(t, ErrCacheMiss, err)
}
