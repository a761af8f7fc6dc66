// Package cache provides the expiring key-value memo used by every
// resolver: look up locally, else fetch remotely, and memoize with
// expiry. Eviction is lazy on read; an optional sweep bounds memory
// for keys that are never read again.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hactazia/reileta/pkg/cmap"
)

// DefaultTTL is the expiry applied when Set is called without one.
const DefaultTTL = 60 * time.Second

// Entry is one memoized value. Reading an expired entry evicts it and
// reports a miss; mutating the value refreshes UpdatedAt.
type Entry struct {
	Key       string
	Value     any
	CreatedAt time.Time
	UpdatedAt time.Time
	TTL       time.Duration
}

// Expired reports whether the entry is past its expiry.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.UpdatedAt.Add(e.TTL))
}

// Cache is an expiring key-value memo. One entry per key,
// last-write-wins. Resolve collapses concurrent fills of the same key
// to a single outstanding call.
type Cache struct {
	entries *cmap.Map[*Entry]
	ttl     time.Duration

	mu       sync.Mutex
	inflight map[string]*call
}

type call struct {
	done  chan struct{}
	value any
	err   error
}

// New creates a cache with the given default TTL (DefaultTTL when
// zero).
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries:  cmap.New[*Entry](),
		ttl:      ttl,
		inflight: make(map[string]*call),
	}
}

// Get returns the value under key, evicting and missing when the
// entry has expired.
func (c *Cache) Get(key string) (any, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if e.Expired(time.Now()) {
		c.entries.Delete(key)
		return nil, false
	}
	return e.Value, true
}

// GetAs returns the value under key when it is a T. A hit of the
// wrong kind is treated as a miss, so kind-specific resolvers sharing
// one cache never hand out foreign records.
func GetAs[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) *Entry {
	return c.SetTTL(key, value, c.ttl)
}

// SetTTL stores value under key with an explicit TTL. An existing
// entry keeps its CreatedAt; UpdatedAt is refreshed either way.
func (c *Cache) SetTTL(key string, value any, ttl time.Duration) *Entry {
	if ttl <= 0 {
		ttl = c.ttl
	}
	now := time.Now()
	e := &Entry{Key: key, Value: value, CreatedAt: now, UpdatedAt: now, TTL: ttl}
	if prev, ok := c.entries.Get(key); ok {
		e.CreatedAt = prev.CreatedAt
	}
	c.entries.Set(key, e)
	return e
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.entries.Delete(key)
}

// Len returns the number of entries, counting expired ones that have
// not been read since expiring.
func (c *Cache) Len() int {
	return c.entries.Count()
}

// Resolve returns the cached value under key, or runs fill to produce
// it and memoizes the result. Concurrent resolutions of the same key
// collapse to a single outstanding fill; every waiter receives the
// same value or error. Errors are not memoized.
func (c *Cache) Resolve(key string, fill func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-cl.done
		return cl.value, cl.err
	}
	// Re-check under the lock: a previous fill may have landed
	// between the miss and acquiring the lock.
	if v, ok := c.Get(key); ok {
		c.mu.Unlock()
		return v, nil
	}
	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.value, cl.err = fill()
	if cl.err == nil {
		c.Set(key, cl.value)
	}

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(cl.done)

	return cl.value, cl.err
}

// Sweep removes every expired entry and returns how many were
// evicted.
func (c *Cache) Sweep() int {
	now := time.Now()
	var expired []string
	c.entries.Range(func(key string, e *Entry) bool {
		if e.Expired(now) {
			expired = append(expired, key)
		}
		return true
	})
	for _, key := range expired {
		c.entries.Delete(key)
	}
	return len(expired)
}

// StartSweep runs Sweep on the given interval until ctx is done.
func (c *Cache) StartSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTTL
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Sweep()
			}
		}
	}()
}
