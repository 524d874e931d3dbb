package cache

import (
	"errors"
	"time"
)

// ErrCacheMiss is the canonical miss error. Every CacheService
// implementation returns it when a key is absent or expired, so the
// fetch policy can treat "no block" uniformly across backends.
var ErrCacheMiss = errors.New("cache miss")

// CacheService remembers challenge blocks across batches so a target
// that served a bot challenge is left alone until its block expires.
type CacheService interface {
	// Get retrieves a value; a miss is reported as ErrCacheMiss
	Get(key string) ([]byte, error)

	// Set stores a value with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value
	Delete(key string) error
}
