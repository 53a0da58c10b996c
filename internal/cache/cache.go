// Package cache keeps recent feature results so repeating a request doesn't
// hit the vendor again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultSize = 128
	DefaultTTL  = 30 * time.Minute
)

// Cache is a size-bounded LRU whose entries also expire after a TTL.
type Cache[V any] struct {
	lru *expirable.LRU[string, V]
}

func New[V any](size int, ttl time.Duration) *Cache[V] {
	if size <= 0 {
		size = DefaultSize
	}

	return &Cache[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

// Key derives a cache key from its parts. Inputs are hashed so long texts
// don't become long keys.
func Key(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:])
}

func (c *Cache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

func (c *Cache[V]) Add(key string, value V) {
	c.lru.Add(key, value)
}

func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

func (c *Cache[V]) Purge() {
	c.lru.Purge()
}
