// Package cache memoizes scraped full-article text keyed by URL so summary
// and insights calls do not re-scrape. Both backends evict: the in-memory
// cache by TTL and entry count, the Redis cache by TTL.
package cache

import (
	"context"
	"time"
)

// ContentCache stores scraped article text keyed by URL. Get misses are not
// errors; a Set that fails is dropped silently. The cache is an
// optimization, never a source of truth.
type ContentCache interface {
	Get(ctx context.Context, url string) (string, bool)
	Set(ctx context.Context, url, text string)
}

// DefaultTTL bounds how long scraped text is reused before a fresh scrape.
const DefaultTTL = time.Hour

// DefaultMaxEntries bounds the in-memory backend.
const DefaultMaxEntries = 512
