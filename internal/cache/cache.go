// Package cache stores rendered read views and drops them when the data
// behind a view path changes.
package cache

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrMiss is returned by Store.Get when the key is absent or expired.
	ErrMiss = errors.New("cache miss")
	// ErrStale is returned by Store.Set when the tag was invalidated after
	// the caller observed its generation.
	ErrStale = errors.New("cache tag invalidated since read")
)

// Store is a byte cache with tag sets for bulk invalidation.
//
// Every tag has a generation that Invalidate advances. A writer reads the
// generation before computing a value and passes it to Set, so a value
// computed from data older than the last invalidation is never stored.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Generation returns the current generation of tag.
	Generation(ctx context.Context, tag string) (int64, error)
	// Set stores value under key and records key in the tag set if the
	// generation of tag is still gen. Otherwise it returns ErrStale.
	Set(ctx context.Context, key, tag string, gen int64, value []byte, ttl time.Duration) error
	// Invalidate advances the generation of each tag and removes every key
	// recorded under it.
	Invalidate(ctx context.Context, tags ...string) error
	Ping(ctx context.Context) error
}
