// Package exportcache keeps pre-rendered gallery downloads next to the card
// list so the gallery always has an export target ready.
package exportcache

import (
	"context"

	"idcard/internal/store"
)

// Cache stores PNG bytes per card id under "<prefix>:export:<id>".
type Cache struct {
	kv     store.KV
	prefix string
}

// New creates a cache sharing kv with the card list stored under prefix.
func New(kv store.KV, prefix string) *Cache {
	return &Cache{kv: kv, prefix: prefix}
}

func (c *Cache) key(id string) string { return c.prefix + ":export:" + id }

// Get returns the cached image for id, if any.
func (c *Cache) Get(ctx context.Context, id string) ([]byte, bool, error) {
	return c.kv.Get(ctx, c.key(id))
}

func (c *Cache) Put(ctx context.Context, id string, png []byte) error {
	return c.kv.Set(ctx, c.key(id), png)
}

func (c *Cache) Evict(ctx context.Context, id string) error {
	return c.kv.Delete(ctx, c.key(id))
}
