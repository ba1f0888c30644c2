// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache provides an interface and implementations for in-process
// caching used by the API downloader's short-lived response cache.
package cache

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Cache is a simple interface defining a cache.
type Cache interface {
	Get(any) (any, error)
	Set(any, func() (any, error)) error
	GetOrSet(any, func() (any, error)) (any, error)
	Del(any)
	Clear()
}

// ErrNotExist is returned when a key does not exist in the cache.
var ErrNotExist = errors.New("does not exist")

type ttlEntry struct {
	once      *sync.Once
	val       any
	err       error
	expiresAt time.Time
}

// TTLMemoryCache is a Cache whose entries expire after a fixed duration. It
// coalesces concurrent fetches for the same key, then evicts the entry once
// it ages past ttl. This backs the API downloader's in-memory response
// cache (spec section 4.4).
type TTLMemoryCache struct {
	ttl  time.Duration
	mu   sync.Mutex
	data map[any]*ttlEntry
}

// NewTTLMemoryCache creates a cache whose entries live for ttl.
func NewTTLMemoryCache(ttl time.Duration) *TTLMemoryCache {
	return &TTLMemoryCache{ttl: ttl, data: make(map[any]*ttlEntry)}
}

func (c *TTLMemoryCache) entry(key any, create bool) (*ttlEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if ok && !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.data, key)
		ok = false
	}
	if !ok && create {
		e = &ttlEntry{once: &sync.Once{}}
		c.data[key] = e
	}
	return e, ok
}

func (c *TTLMemoryCache) resolve(key any, e *ttlEntry, fetch func() (any, error)) (any, error) {
	e.once.Do(func() {
		e.val, e.err = fetch()
		if e.err != nil {
			c.mu.Lock()
			delete(c.data, key)
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		e.expiresAt = time.Now().Add(c.ttl)
		c.mu.Unlock()
	})
	return e.val, e.err
}

// Get returns the value for key, or ErrNotExist if absent or expired.
func (c *TTLMemoryCache) Get(key any) (any, error) {
	e, ok := c.entry(key, false)
	if !ok {
		return nil, ErrNotExist
	}
	return c.resolve(key, e, func() (any, error) { return nil, ErrNotExist })
}

// Set stores the value returned by fetch under key, replacing any prior entry.
func (c *TTLMemoryCache) Set(key any, fetch func() (any, error)) error {
	c.mu.Lock()
	e := &ttlEntry{once: &sync.Once{}}
	c.data[key] = e
	c.mu.Unlock()
	_, err := c.resolve(key, e, fetch)
	return err
}

// GetOrSet returns the cached value for key, fetching and storing it if
// absent or expired. Concurrent callers for the same key coalesce onto a
// single fetch.
func (c *TTLMemoryCache) GetOrSet(key any, fetch func() (any, error)) (any, error) {
	e, _ := c.entry(key, true)
	return c.resolve(key, e, fetch)
}

// Del removes the entry for key, if any.
func (c *TTLMemoryCache) Del(key any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Clear removes all entries.
func (c *TTLMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[any]*ttlEntry)
}

var _ Cache = &TTLMemoryCache{}
