package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
)

const (
	keyPrefix = "glow:view:"
	tagPrefix = "glow:viewtag:"
)

// Views caches JSON-encoded read views keyed by view path. A path can hold
// several variants, e.g. one per customer.
type Views struct {
	store Store
	ttl   time.Duration
}

// NewViews creates a view cache over store. Entries expire after ttl.
func NewViews(store Store, ttl time.Duration) *Views {
	return &Views{store: store, ttl: ttl}
}

// Load decodes the cached view for path and variant into dst. It reports
// false on a miss. The returned generation must be passed to Save when the
// view is computed after a miss.
func (v *Views) Load(ctx context.Context, path, variant string, dst any) (int64, bool, error) {
	// Read the generation first: a revalidation between here and Save
	// makes Save refuse the value.
	gen, err := v.store.Generation(ctx, tagPrefix+path)
	if err != nil {
		return 0, false, err
	}
	data, err := v.store.Get(ctx, key(path, variant))
	if errors.Is(err, ErrMiss) {
		return gen, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return gen, false, errors.Wrap(err, "decode view")
	}
	return gen, true, nil
}

// Save stores view for path and variant. It returns ErrStale when path was
// revalidated after Load returned gen; the view is not stored then.
func (v *Views) Save(ctx context.Context, path, variant string, gen int64, view any) error {
	data, err := json.Marshal(view)
	if err != nil {
		return errors.Wrap(err, "encode view")
	}
	return v.store.Set(ctx, key(path, variant), tagPrefix+path, gen, data, v.ttl)
}

// Revalidate drops every cached variant of the given paths.
func (v *Views) Revalidate(ctx context.Context, paths ...string) error {
	tags := make([]string, len(paths))
	for i, p := range paths {
		tags[i] = tagPrefix + p
	}
	return v.store.Invalidate(ctx, tags...)
}

func key(path, variant string) string {
	return keyPrefix + path + "#" + variant
}
