package retriever

import (
	"crypto/md5" //nolint:gosec // cache key, not a security boundary
	"encoding/hex"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agentstation/rirstats/pkg/errors"
)

// Cache keeps the last good body per URI so a failing origin can be
// served from memory. It can be persisted between runs.
type Cache struct {
	store *gocache.Cache
}

// NewCache creates a cache whose entries live for ttl.
// A ttl of zero or less keeps entries until they are replaced.
func NewCache(ttl time.Duration) *Cache {
	cleanup := ttl
	if ttl <= 0 {
		ttl, cleanup = gocache.NoExpiration, 0
	}
	return &Cache{store: gocache.New(ttl, cleanup)}
}

// Key returns the cache key for a URI.
func Key(uri string) string {
	sum := md5.Sum([]byte(uri)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// Get returns the cached body for uri.
func (c *Cache) Get(uri string) ([]byte, bool) {
	v, ok := c.store.Get(Key(uri))
	if !ok {
		return nil, false
	}
	body, ok := v.([]byte)
	return body, ok
}

// Set stores the body for uri with the default ttl.
func (c *Cache) Set(uri string, body []byte) {
	c.store.Set(Key(uri), body, gocache.DefaultExpiration)
}

// Delete removes the entry for uri.
func (c *Cache) Delete(uri string) {
	c.store.Delete(Key(uri))
}

// ItemCount returns the number of cached bodies.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}

// Save writes the cache to path.
func (c *Cache) Save(path string) error {
	return errors.WrapIO("write", path, c.store.SaveFile(path))
}

// Load merges entries from a file written by Save. A missing file is not an error.
func (c *Cache) Load(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return errors.WrapIO("read", path, c.store.LoadFile(path))
}
