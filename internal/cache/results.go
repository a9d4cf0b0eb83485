package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultTTL bounds how long a reasoning result is reused.
	DefaultTTL = 5 * time.Minute
	// DefaultMaxEntries bounds the number of stored results.
	DefaultMaxEntries = 100
)

// ResultCache is a time-boxed key/value store with a bounded entry count.
// When full, the oldest-inserted entry is evicted regardless of access recency.
// Safe for concurrent use.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

type resultEntry struct {
	key       string
	value     any
	expiresAt time.Time
}

// Option customises a ResultCache.
type Option func(*ResultCache)

// WithClock overrides the time source, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewResultCache constructs a cache. Non-positive arguments fall back to the defaults.
func NewResultCache(ttl time.Duration, maxSize int, opts ...Option) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxEntries
	}
	c := &ResultCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the stored value while now < expiresAt. Expired entries are removed.
func (c *ResultCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*resultEntry)
	if !c.now().Before(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key with the default TTL.
func (c *ResultCache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL inserts or overwrites key. Overwrites keep the original insertion position.
func (c *ResultCache) SetWithTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*resultEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		return
	}

	c.entries[key] = c.order.PushBack(&resultEntry{key: key, value: value, expiresAt: expiresAt})
	if c.order.Len() > c.maxSize {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*resultEntry).key)
	}
}

// Clear drops every entry.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of stored entries, including not-yet-collected expired ones.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
