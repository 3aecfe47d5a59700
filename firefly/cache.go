package firefly

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sync"
)

// requestCache holds response bodies keyed by request signature. It has
// no eviction; its lifetime is the owning client's.
type requestCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func newRequestCache() *requestCache {
	return &requestCache{entries: make(map[string][]byte)}
}

// cacheKey hashes path and params. url.Values.Encode sorts by key, so the
// key does not depend on parameter insertion order.
func cacheKey(path string, params url.Values) string {
	sum := sha256.Sum256([]byte(path + "?" + params.Encode()))
	return hex.EncodeToString(sum[:])
}

func (c *requestCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	body, ok := c.entries[key]
	return body, ok
}

func (c *requestCache) Put(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = body
}

func (c *requestCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
}

func (c *requestCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
