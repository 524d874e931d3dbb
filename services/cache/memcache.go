package cache

import (
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// keyPrefix namespaces this application's entries on a shared memcached
// instance.
const keyPrefix = "pricepilot:"

// maxExpiration is the largest relative TTL memcached accepts; anything
// longer is interpreted by the server as an absolute unix timestamp.
const maxExpiration = 30 * 24 * time.Hour

// MemcacheService implements CacheService on memcached. Challenge blocks
// stored here survive process restarts and are shared between workers
// pointed at the same instance.
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService creates a memcached-backed cache service
func NewMemcacheService(serverAddr string) *MemcacheService {
	return &MemcacheService{
		client: memcache.New(serverAddr),
	}
}

// Get retrieves a value; a miss is reported as ErrCacheMiss
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(keyPrefix + key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value with an expiration time. Sub-second TTLs round up
// to one second so a short block is never stored as "no expiry", and
// TTLs beyond the memcached relative range are clamped.
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        keyPrefix + key,
		Value:      value,
		Expiration: expirationSeconds(expiration),
	})
}

func expirationSeconds(expiration time.Duration) int32 {
	if expiration > maxExpiration {
		expiration = maxExpiration
	}
	seconds := int32(expiration / time.Second)
	if expiration > 0 && seconds == 0 {
		seconds = 1
	}
	return seconds
}

// Delete removes a value; deleting an absent key reports ErrCacheMiss
func (m *MemcacheService) Delete(key string) error {
	err := m.client.Delete(keyPrefix + key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return ErrCacheMiss
	}
	return err
}
