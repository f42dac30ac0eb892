package airtable

import (
	"context"
	"fmt"

	"github.com/uncovercity/BistroHunter/internal/cache"
)

// CachedLister wraps another Lister and transparently caches its results in
// the shared in-process TTL cache. Identical queries within the TTL are served
// without touching the Airtable API.
type CachedLister struct {
	inner Lister
	cache *cache.Cache
}

// NewCachedLister wraps inner with a cache-aside layer backed by c.
func NewCachedLister(inner Lister, c *cache.Cache) *CachedLister {
	return &CachedLister{inner: inner, cache: c}
}

// ListRecords satisfies the Lister interface. It checks the cache first; on a
// miss it delegates to the inner Lister and stores the result. Errors are
// never cached, so a failed query is retried on the next call.
func (l *CachedLister) ListRecords(ctx context.Context, table string, q Query) ([]Record, error) {
	key := listKey(table, q)
	if v, ok := l.cache.Get(key); ok {
		return v.([]Record), nil
	}

	records, err := l.inner.ListRecords(ctx, table, q)
	if err != nil {
		return nil, err
	}

	l.cache.Set(key, records)
	return records, nil
}

// listKey builds the composite cache key from the operation name and its
// normalized arguments.
func listKey(table string, q Query) string {
	return fmt.Sprintf("airtable.list:%s:%s:%s:%s:%d:%s",
		table, q.Formula, q.SortField, q.SortDirection, q.MaxRecords, q.View)
}
