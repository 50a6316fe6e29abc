// Package cache stores serialized analysis results between runs.
package cache

import (
	"context"
	"time"
)

// Cache is owned by whoever calls the pipeline. Get never fails: a backend
// error is reported as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error
}

// DefaultTTL matches the one hour freshness window of cached analyses.
const DefaultTTL = time.Hour

// NopCache always misses.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (NopCache) Put(context.Context, string, []byte) error  { return nil }
func (NopCache) Clear(context.Context) error                { return nil }
