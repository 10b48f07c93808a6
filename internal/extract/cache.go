package extract

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize is the number of metadata entries kept by NewCached
const DefaultCacheSize = 128

// Cached memoizes successful metadata lookups by URL. Downloads pass through.
type Cached struct {
	Client
	entries *lru.Cache
}

// NewCached wraps c with an LRU metadata cache of the given size
func NewCached(c Client, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create metadata cache: %w", err)
	}
	return &Cached{Client: c, entries: entries}, nil
}

// FetchMetadata returns a cached entry or asks the wrapped client
func (c *Cached) FetchMetadata(ctx context.Context, url string) (Metadata, error) {
	if v, ok := c.entries.Get(url); ok {
		return v.(Metadata), nil
	}
	meta, err := c.Client.FetchMetadata(ctx, url)
	if err != nil {
		return Metadata{}, err
	}
	c.entries.Add(url, meta)
	return meta, nil
}

// Len reports the number of cached entries
func (c *Cached) Len() int {
	return c.entries.Len()
}
