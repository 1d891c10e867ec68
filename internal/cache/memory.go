package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value   []byte
	tag     string
	expires time.Time
}

type memGen struct {
	n  int64
	at time.Time
}

// Memory is an in-process Store for single-instance deployments and tests.
// Run Sweep to bound its size.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	tags    map[string]map[string]struct{}
	gens    map[string]memGen
	// clock is the last generation handed out. Tags without a record in
	// gens are at floor, which never goes below a pruned generation.
	clock int64
	floor int64
	now   func() time.Time
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memEntry),
		tags:    make(map[string]map[string]struct{}),
		gens:    make(map[string]memGen),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if m.expired(e, m.now()) {
		m.drop(key, e)
		return nil, ErrMiss
	}
	return e.value, nil
}

func (m *Memory) Generation(_ context.Context, tag string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.generation(tag), nil
}

func (m *Memory) Set(_ context.Context, key, tag string, gen int64, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation(tag) != gen {
		return ErrStale
	}
	if old, ok := m.entries[key]; ok && old.tag != tag {
		m.drop(key, old)
	}

	e := memEntry{value: append([]byte(nil), value...), tag: tag}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e

	set, ok := m.tags[tag]
	if !ok {
		set = make(map[string]struct{})
		m.tags[tag] = set
	}
	set[key] = struct{}{}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, tag := range tags {
		m.clock++
		m.gens[tag] = memGen{n: m.clock, at: now}
		for key := range m.tags[tag] {
			delete(m.entries, key)
		}
		delete(m.tags, tag)
	}
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// Sweep removes expired entries and empty tag sets every interval until
// ctx is done. Generations recorded more than one interval ago are folded
// into the floor.
func (m *Memory) Sweep(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.sweep(interval)
		}
	}
}

func (m *Memory) sweep(genAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, e := range m.entries {
		if m.expired(e, now) {
			m.drop(key, e)
		}
	}
	pruned := false
	for tag, g := range m.gens {
		if now.Sub(g.at) >= genAge {
			delete(m.gens, tag)
			pruned = true
		}
	}
	if pruned {
		m.floor = m.clock
	}
}

func (m *Memory) generation(tag string) int64 {
	if g, ok := m.gens[tag]; ok {
		return g.n
	}
	return m.floor
}

func (m *Memory) expired(e memEntry, now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// drop removes key and its tag membership. Callers hold mu.
func (m *Memory) drop(key string, e memEntry) {
	delete(m.entries, key)
	if set, ok := m.tags[e.tag]; ok {
		delete(set, key)
		if len(set) == 0 {
			delete(m.tags, e.tag)
		}
	}
}
