package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/blevesearch/bleve/v2/search/query"
)

// DefaultDocCacheSize is the default number of document bodies to cache.
const DefaultDocCacheSize = 1000

// CachedIndex wraps a SearchIndex with LRU caching of document bodies, so
// repeated hydration of the same hits skips the document store. Writes
// invalidate the affected entries.
type CachedIndex struct {
	inner SearchIndex
	cache *lru.Cache[int64, Document]
}

// Verify interface implementation at compile time
var _ SearchIndex = (*CachedIndex)(nil)

// NewCachedIndex creates a cached index wrapping the given index.
func NewCachedIndex(inner SearchIndex, cacheSize int) *CachedIndex {
	if cacheSize <= 0 {
		cacheSize = DefaultDocCacheSize
	}
	cache, _ := lru.New[int64, Document](cacheSize)
	return &CachedIndex{
		inner: inner,
		cache: cache,
	}
}

// Upsert writes through and drops the stale cache entry.
func (c *CachedIndex) Upsert(ctx context.Context, id int64, doc Document) error {
	if err := c.inner.Upsert(ctx, id, doc); err != nil {
		return err
	}
	c.cache.Remove(id)
	return nil
}

// BulkUpsert writes through and drops the stale entries for every
// document the batch touched, whatever its individual outcome.
func (c *CachedIndex) BulkUpsert(ctx context.Context, docs []Document) (*BulkResult, error) {
	result, err := c.inner.BulkUpsert(ctx, docs)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		c.cache.Remove(doc.ID())
	}
	return result, nil
}

// Search passes through uncached; matching is Bleve's problem.
func (c *CachedIndex) Search(ctx context.Context, q query.Query, from, size int, sort []string) (*SearchResult, error) {
	return c.inner.Search(ctx, q, from, size, sort)
}

// GetDocument returns the cached body if available, otherwise reads and
// caches.
func (c *CachedIndex) GetDocument(ctx context.Context, id int64) (Document, error) {
	if doc, ok := c.cache.Get(id); ok {
		return doc, nil
	}

	doc, err := c.inner.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	c.cache.Add(id, doc)
	return doc, nil
}

// GetDocuments resolves cached ids first and reads only the misses.
func (c *CachedIndex) GetDocuments(ctx context.Context, ids []int64) (map[int64]Document, error) {
	out := make(map[int64]Document, len(ids))
	misses := make([]int64, 0, len(ids))
	for _, id := range ids {
		if doc, ok := c.cache.Get(id); ok {
			out[id] = doc
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := c.inner.GetDocuments(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, doc := range fetched {
		c.cache.Add(id, doc)
		out[id] = doc
	}

	return out, nil
}

// Ready passes through.
func (c *CachedIndex) Ready(ctx context.Context) error {
	return c.inner.Ready(ctx)
}

// Close purges the cache and closes the wrapped index.
func (c *CachedIndex) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}
