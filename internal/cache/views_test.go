package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testView struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Total  float64 `json:"total"`
}

// save stores view at the current generation of path.
func save(t *testing.T, v *Views, path, variant string, view any) {
	t.Helper()
	var discard any
	gen, _, err := v.Load(context.Background(), path, variant, &discard)
	require.NoError(t, err)
	require.NoError(t, v.Save(context.Background(), path, variant, gen, view))
}

func TestViews_SaveLoad(t *testing.T) {
	ctx := context.Background()
	v := NewViews(NewMemory(), time.Minute)

	var got testView
	gen, ok, err := v.Load(ctx, "/admin/orders/ord-1", "", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	want := testView{ID: "ord-1", Status: "PENDING", Total: 48.5}
	require.NoError(t, v.Save(ctx, "/admin/orders/ord-1", "", gen, want))

	_, ok, err = v.Load(ctx, "/admin/orders/ord-1", "", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestViews_RevalidateDropsAllVariants(t *testing.T) {
	ctx := context.Background()
	v := NewViews(NewMemory(), time.Minute)

	save(t, v, "/account/orders", "user-1", []testView{{ID: "ord-1"}})
	save(t, v, "/account/orders", "user-2", []testView{{ID: "ord-2"}})
	save(t, v, "/admin/orders", "", []testView{{ID: "ord-1"}, {ID: "ord-2"}})

	require.NoError(t, v.Revalidate(ctx, "/account/orders"))

	var list []testView
	for _, user := range []string{"user-1", "user-2"} {
		_, ok, err := v.Load(ctx, "/account/orders", user, &list)
		require.NoError(t, err)
		assert.False(t, ok, user)
	}

	_, ok, err := v.Load(ctx, "/admin/orders", "", &list)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, list, 2)
}

func TestViews_SaveAfterRevalidateIsRefused(t *testing.T) {
	ctx := context.Background()
	v := NewViews(NewMemory(), time.Minute)
	const path = "/account/orders/ord-1"

	// A reader misses and computes its view from the PENDING order.
	var got testView
	gen, ok, err := v.Load(ctx, path, "user-1", &got)
	require.NoError(t, err)
	require.False(t, ok)

	// The status update commits and revalidates before the reader saves.
	require.NoError(t, v.Revalidate(ctx, path))

	err = v.Save(ctx, path, "user-1", gen, testView{ID: "ord-1", Status: "PENDING"})
	require.ErrorIs(t, err, ErrStale)

	_, ok, err = v.Load(ctx, path, "user-1", &got)
	require.NoError(t, err)
	assert.False(t, ok, "view computed before revalidation must not be served")

	// A fresh read after the update is cached normally.
	gen, _, err = v.Load(ctx, path, "user-1", &got)
	require.NoError(t, err)
	require.NoError(t, v.Save(ctx, path, "user-1", gen, testView{ID: "ord-1", Status: "SHIPPED"}))

	_, ok, err = v.Load(ctx, path, "user-1", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "SHIPPED", got.Status)
}

func TestViews_RevalidateOtherPathKeepsSave(t *testing.T) {
	ctx := context.Background()
	v := NewViews(NewMemory(), time.Minute)

	var got testView
	gen, _, err := v.Load(ctx, "/admin/orders/ord-1", "", &got)
	require.NoError(t, err)

	require.NoError(t, v.Revalidate(ctx, "/admin/orders/ord-2"))
	require.NoError(t, v.Save(ctx, "/admin/orders/ord-1", "", gen, testView{ID: "ord-1"}))
}

func TestViews_RevalidateUnknownPath(t *testing.T) {
	v := NewViews(NewMemory(), time.Minute)
	require.NoError(t, v.Revalidate(context.Background(), "/admin/orders/missing"))
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", "t", 0, []byte("v"), time.Second))

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Second)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.NotContains(t, m.tags, "t")
}

func TestMemory_CopiesValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", "t", 0, buf, 0))
	buf[0] = 'x'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestMemory_SweepRemovesExpiredEntries(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "short", "t1", 0, []byte("a"), time.Second))
	require.NoError(t, m.Set(ctx, "long", "t2", 0, []byte("b"), time.Hour))

	now = now.Add(2 * time.Second)
	m.sweep(time.Minute)

	assert.NotContains(t, m.entries, "short")
	assert.NotContains(t, m.tags, "t1")
	assert.Contains(t, m.entries, "long")
	assert.Contains(t, m.tags, "t2")
}

func TestMemory_SweepPrunedGenerationStillRefusesStaleSave(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	gen, err := m.Generation(ctx, "t")
	require.NoError(t, err)

	require.NoError(t, m.Invalidate(ctx, "t"))
	now = now.Add(time.Hour)
	m.sweep(time.Minute)
	assert.Empty(t, m.gens)

	assert.ErrorIs(t, m.Set(ctx, "k", "t", gen, []byte("v"), 0), ErrStale)

	current, err := m.Generation(ctx, "t")
	require.NoError(t, err)
	assert.NoError(t, m.Set(ctx, "k", "t", current, []byte("v"), 0))
}

func TestMemory_SweepStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewMemory().Sweep(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop")
	}
}
